//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main provides build targets for coinwatch using Mage.
//
// Usage:
//
//	mage build       Compile coinwatch to bin/
//	mage install     Install coinwatch to GOPATH/bin
//	mage clean       Remove build artifacts
//	mage test:all    Run every test
//	mage test:race   Run every test with the race detector
//	mage test:cover  Write a coverage profile to bin/coverage.out
//	mage lint        Run golangci-lint
//	mage serve       Run the API on :8080 with a demo token
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "coinwatch"
	binaryDir  = "bin"
	cmdDir     = "./cmd/coinwatch"
)

// Build compiles the coinwatch binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}

// Serve builds and runs the API locally with a demo token for user "demo".
func Serve() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binaryDir, binaryName), "serve",
		"--addr", "127.0.0.1:8080", "--token", "demo=demo-token", "--log-level", "info")
}

//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/magefile/mage/sh"
)

const binLint = "golangci-lint"

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV(binLint, "run", "./...")
}

// Fmt fails when any file needs gofmt.
func Fmt() error {
	out, err := sh.Output("gofmt", "-l", ".")
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) != "" {
		fmt.Println(out)
		return errors.New("files need gofmt")
	}
	return nil
}

// Vet runs go vet.
func Vet() error {
	return sh.RunV(binGo, "vet", "./...")
}

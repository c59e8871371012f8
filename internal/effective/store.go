// Package effective hides the local/remote split behind one store per
// entity family. Every operation asks the session provider which store to
// use, so a login or logout takes effect on the next call.
package effective

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mesh-intelligence/coinwatch/internal/localstore"
	"github.com/mesh-intelligence/coinwatch/internal/remote"
	"github.com/mesh-intelligence/coinwatch/internal/session"
	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

// Mode names the store that serves an operation.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// Store is the effective store for one entity family.
//
// Reads fall back to the local store when the remote fails with
// types.ErrUnauthorized or types.ErrNetwork. Writes fall back only on
// types.ErrUnauthorized: a write that may have reached the server is never
// replayed locally.
type Store[T, D any] struct {
	local   *localstore.Collection[T, D]
	remote  *remote.Collection[T, D]
	session session.Provider
	logger  *slog.Logger
}

// New builds an effective store. A nil remote pins the store to local mode.
func New[T, D any](local *localstore.Collection[T, D], rc *remote.Collection[T, D], sp session.Provider, logger *slog.Logger) *Store[T, D] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store[T, D]{
		local:   local,
		remote:  rc,
		session: sp,
		logger:  logger.With(slog.String("family", local.Family().Name)),
	}
}

// Family returns the entity family the store serves.
func (s *Store[T, D]) Family() types.Family[T, D] {
	return s.local.Family()
}

// Local returns the underlying local collection.
func (s *Store[T, D]) Local() *localstore.Collection[T, D] {
	return s.local
}

// Mode reports which store the next operation would use.
func (s *Store[T, D]) Mode(ctx context.Context) Mode {
	if s.remote == nil || s.session == nil {
		return ModeLocal
	}
	if _, ok := s.session.Current(ctx); ok {
		return ModeRemote
	}
	return ModeLocal
}

func readFallback(err error) bool {
	return errors.Is(err, types.ErrUnauthorized) || errors.Is(err, types.ErrNetwork)
}

func writeFallback(err error) bool {
	return errors.Is(err, types.ErrUnauthorized)
}

// List returns every record. It never fails; unrecoverable remote errors
// read as empty.
func (s *Store[T, D]) List(ctx context.Context) []T {
	if s.Mode(ctx) == ModeLocal {
		return s.local.Read()
	}
	items, err := s.remote.List(ctx)
	if err == nil {
		return items
	}
	if readFallback(err) {
		s.logger.Warn("remote list failed, serving local", slog.Any("err", err))
		return s.local.Read()
	}
	s.logger.Warn("remote list failed", slog.Any("err", err))
	return []T{}
}

// Get returns the record with the given id.
func (s *Store[T, D]) Get(ctx context.Context, id string) (T, bool) {
	idOf := s.Family().ID
	for _, item := range s.List(ctx) {
		if idOf(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Add creates a record from d. types.ErrAlreadyExists is returned as is so
// the caller can show the duplicate message; other failures are logged and
// returned as their taxonomy error.
func (s *Store[T, D]) Add(ctx context.Context, d D) (T, error) {
	if s.Mode(ctx) == ModeLocal {
		return s.local.Add(d)
	}
	rec, err := s.remote.Create(ctx, d)
	if err == nil {
		return rec, nil
	}
	if writeFallback(err) {
		s.logger.Warn("remote create unauthorized, writing local", slog.Any("err", err))
		return s.local.Add(d)
	}
	if !errors.Is(err, types.ErrAlreadyExists) && !errors.Is(err, types.ErrInvalidData) {
		s.logger.Warn("remote create failed", slog.Any("err", err))
	}
	var zero T
	return zero, err
}

// Update merges patch into the record with the given id and reports
// success.
func (s *Store[T, D]) Update(ctx context.Context, id string, patch types.Patch) bool {
	if s.Mode(ctx) == ModeLocal {
		return s.local.Update(id, patch)
	}
	err := s.remote.Update(ctx, id, patch)
	if err == nil {
		return true
	}
	if writeFallback(err) {
		s.logger.Warn("remote update unauthorized, writing local", slog.String("id", id), slog.Any("err", err))
		return s.local.Update(id, patch)
	}
	s.logger.Warn("remote update failed", slog.String("id", id), slog.Any("err", err))
	return false
}

// Remove deletes the record matching key and reports whether one was
// removed.
func (s *Store[T, D]) Remove(ctx context.Context, key string) bool {
	if s.Mode(ctx) == ModeLocal {
		return s.local.Remove(key)
	}
	err := s.remote.Remove(ctx, key)
	if err == nil {
		return true
	}
	if writeFallback(err) {
		s.logger.Warn("remote remove unauthorized, writing local", slog.String("key", key), slog.Any("err", err))
		return s.local.Remove(key)
	}
	if !errors.Is(err, types.ErrNotFound) {
		s.logger.Warn("remote remove failed", slog.String("key", key), slog.Any("err", err))
	}
	return false
}

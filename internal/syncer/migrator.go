// Package syncer migrates records created before login into the remote
// store. A migration runs once per session acquisition: each family's local
// records are created remotely, then the family's local store is cleared.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/coinwatch/internal/localstore"
	"github.com/mesh-intelligence/coinwatch/internal/remote"
	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

// Result summarizes one family's migration sweep.
type Result struct {
	Family    string `json:"family"`
	Attempted int    `json:"attempted"`
	Migrated  int    `json:"migrated"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
	// Abandoned is set when the sweep stopped early and left the records it
	// had not migrated in the local store.
	Abandoned bool `json:"abandoned,omitempty"`
}

// ErrAbandoned is returned by Migrate when a sweep stops before every
// record was attempted: the context ended or the server rejected the
// session.
var ErrAbandoned = errors.New("sync abandoned")

// Migrator moves one family's local records to the remote store.
type Migrator interface {
	Family() string
	Migrate(ctx context.Context) (Result, error)
}

// FamilyMigrator is the Migrator for a Family.
type FamilyMigrator[T, D any] struct {
	local  *localstore.Collection[T, D]
	remote *remote.Collection[T, D]
	logger *slog.Logger
}

// NewFamilyMigrator pairs a family's local and remote collections.
func NewFamilyMigrator[T, D any](local *localstore.Collection[T, D], rc *remote.Collection[T, D], logger *slog.Logger) *FamilyMigrator[T, D] {
	if logger == nil {
		logger = slog.Default()
	}
	return &FamilyMigrator[T, D]{local: local, remote: rc, logger: logger}
}

func (m *FamilyMigrator[T, D]) Family() string {
	return m.local.Family().Name
}

// Migrate creates every locally minted record remotely, one at a time,
// stripped back to its draft. A failed create does not stop the sweep.
// Once every record has been attempted the local store is cleared, whether
// or not each create succeeded: a duplicate already lives server-side, and
// other failures are not retried.
//
// A cancelled ctx or a rejected session abandons the sweep instead. Records
// already migrated are removed from the local store, the rest stay for the
// next sync, and the error wraps ErrAbandoned.
func (m *FamilyMigrator[T, D]) Migrate(ctx context.Context) (Result, error) {
	family := m.local.Family()
	log := m.logger.With(slog.String("family", family.Name))
	res := Result{Family: family.Name}
	var migrated []string

	abandon := func(cause error) (Result, error) {
		for _, key := range migrated {
			m.local.Remove(key)
		}
		res.Abandoned = true
		log.Warn("sync abandoned, unmigrated records stay local",
			slog.Int("migrated", res.Migrated), slog.Any("err", cause))
		return res, fmt.Errorf("%w: %s: %w", ErrAbandoned, family.Name, cause)
	}

	for _, item := range m.local.Read() {
		if err := ctx.Err(); err != nil {
			return abandon(err)
		}
		id := family.ID(item)
		if !types.IsLocalID(id) {
			res.Skipped++
			log.Debug("skipping record with server id", slog.String("id", id))
			continue
		}
		res.Attempted++
		if _, err := m.remote.Create(ctx, family.DraftOf(item)); err != nil {
			res.Failed++
			switch {
			case ctx.Err() != nil:
				return abandon(ctx.Err())
			case errors.Is(err, types.ErrUnauthorized):
				return abandon(err)
			case errors.Is(err, types.ErrAlreadyExists):
				log.Info("record already on server", slog.String("id", id))
			default:
				log.Warn("migrating record failed", slog.String("id", id), slog.Any("err", err))
			}
			continue
		}
		res.Migrated++
		migrated = append(migrated, family.RemoveKey(item))
	}

	m.local.Clear()
	return res, nil
}

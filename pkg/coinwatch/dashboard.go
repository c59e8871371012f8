// Package coinwatch is the public entry point: it wires the local store, the
// remote client, the effective stores, the query cache and the sync
// coordinator into a Dashboard.
//
// Example:
//
//	d, err := coinwatch.New(types.Config{
//	    LocalBackend: types.LocalBackendFile,
//	    DataDir:      ".coinwatch-db",
//	    APIURL:       "http://localhost:8080",
//	})
//	if err != nil { ... }
//	defer d.Close()
//	d.Start(ctx)
//	_, err = d.Watchlist().Add(ctx, "bitcoin")
package coinwatch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mesh-intelligence/coinwatch/internal/effective"
	"github.com/mesh-intelligence/coinwatch/internal/localstore"
	"github.com/mesh-intelligence/coinwatch/internal/query"
	"github.com/mesh-intelligence/coinwatch/internal/remote"
	"github.com/mesh-intelligence/coinwatch/internal/session"
	"github.com/mesh-intelligence/coinwatch/internal/syncer"
	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

// Session is an authenticated user session.
type Session = session.Session

// SyncResult summarizes one family's migration.
type SyncResult = syncer.Result

// Mode names the store serving operations.
type Mode = effective.Mode

// Option configures a Dashboard.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	session    *Session
	storage    localstore.Storage
	httpClient *http.Client
	onSync     func([]SyncResult)
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSession starts the dashboard authenticated. Starting authenticated
// does not trigger a migration.
func WithSession(s *Session) Option {
	return func(o *options) { o.session = s }
}

// WithStorage overrides the engine selected by Config.LocalBackend.
func WithStorage(s localstore.Storage) Option {
	return func(o *options) { o.storage = s }
}

// WithHTTPClient replaces the remote client's HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithOnSync registers a hook called after every migration.
func WithOnSync(fn func([]SyncResult)) Option {
	return func(o *options) { o.onSync = fn }
}

// Dashboard is the local-first watchlist and alert surface.
type Dashboard struct {
	cfg     types.Config
	logger  *slog.Logger
	storage localstore.Storage
	tracker *session.Tracker
	client  *remote.Client

	cache       *query.Client
	watchlist   *query.Watchlist
	alerts      *query.Alerts
	coordinator *syncer.Coordinator
}

// New validates cfg and builds a Dashboard. Without an APIURL the dashboard
// stays in local mode. A local engine that cannot be opened is logged and
// treated as inaccessible: reads are empty and writes fail.
func New(cfg types.Config, opts ...Option) (*Dashboard, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger

	storage := o.storage
	if storage == nil {
		s, err := localstore.Open(cfg)
		if err != nil {
			logger.Warn("local storage unavailable", slog.String("backend", cfg.LocalBackend), slog.Any("err", err))
		} else {
			storage = s
		}
	}

	d := &Dashboard{
		cfg:     cfg,
		logger:  logger,
		storage: storage,
		tracker: session.NewTracker(o.session, logger),
		cache:   query.NewClient(query.WithStaleTime(cfg.StaleTime), query.WithLogger(logger)),
	}

	if cfg.APIURL != "" {
		clientOpts := []remote.Option{remote.WithTimeout(cfg.RequestTimeout), remote.WithLogger(logger)}
		if o.httpClient != nil {
			clientOpts = append(clientOpts, remote.WithHTTPClient(o.httpClient))
		}
		d.client = remote.New(cfg.APIURL, d.tracker, clientOpts...)
	}

	wlLocal := localstore.NewCollection(storage, types.WatchlistFamily, localstore.WithLogger(logger))
	alLocal := localstore.NewCollection(storage, types.AlertFamily, localstore.WithLogger(logger))

	var (
		wlRemote  *remote.Collection[types.WatchlistItem, types.WatchlistDraft]
		alRemote  *remote.Collection[types.Alert, types.AlertDraft]
		migrators []syncer.Migrator
	)
	if d.client != nil {
		wlRemote = remote.NewCollection(d.client, types.WatchlistFamily)
		alRemote = remote.NewCollection(d.client, types.AlertFamily)
		migrators = []syncer.Migrator{
			syncer.NewFamilyMigrator(wlLocal, wlRemote, logger),
			syncer.NewFamilyMigrator(alLocal, alRemote, logger),
		}
	}

	d.watchlist = query.NewWatchlist(d.cache, effective.NewWatchlist(wlLocal, wlRemote, d.tracker, logger))
	d.alerts = query.NewAlerts(d.cache, effective.NewAlerts(alLocal, alRemote, d.tracker, logger))

	coordOpts := []syncer.Option{syncer.WithLogger(logger)}
	if o.onSync != nil {
		coordOpts = append(coordOpts, syncer.WithOnComplete(o.onSync))
	}
	d.coordinator = syncer.New(d.tracker, d.cache, migrators, coordOpts...)
	return d, nil
}

// Config returns the effective configuration, defaults applied.
func (d *Dashboard) Config() types.Config {
	return d.cfg
}

// Start begins listening for logins. Each login migrates local records.
func (d *Dashboard) Start(ctx context.Context) {
	d.coordinator.Start(ctx)
}

// Close stops the coordinator, waits for background refreshes and closes
// the local engine.
func (d *Dashboard) Close() error {
	d.coordinator.Stop()
	d.cache.Wait()
	if d.storage != nil {
		return d.storage.Close()
	}
	return nil
}

// Watchlist returns the cached watchlist surface.
func (d *Dashboard) Watchlist() *query.Watchlist {
	return d.watchlist
}

// Alerts returns the cached alerts surface.
func (d *Dashboard) Alerts() *query.Alerts {
	return d.alerts
}

// Mode reports whether operations currently go to the local or the remote
// store.
func (d *Dashboard) Mode(ctx context.Context) Mode {
	return d.watchlist.Store().Mode(ctx)
}

// Session returns the current session, if any.
func (d *Dashboard) Session(ctx context.Context) (Session, bool) {
	return d.tracker.Current(ctx)
}

// staticToken is a TokenSource for verifying a token before it becomes the
// session.
type staticToken string

func (s staticToken) Token(context.Context) (string, bool) {
	return string(s), s != ""
}

// Login verifies token against the API and establishes the session. When
// no session existed before, this is an acquisition: a started dashboard
// migrates local records in the background.
func (d *Dashboard) Login(ctx context.Context, token string) (Session, error) {
	if d.client == nil {
		return Session{}, fmt.Errorf("login: %w: no api_url configured", types.ErrNetwork)
	}
	verifier := remote.New(d.client.BaseURL(), staticToken(token),
		remote.WithTimeout(d.cfg.RequestTimeout), remote.WithLogger(d.logger))
	userID, err := verifier.WhoAmI(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}
	s := Session{UserID: userID, Token: token}
	d.tracker.Set(s)
	d.cache.InvalidateAll()
	return s, nil
}

// Logout drops the session and every cached read.
func (d *Dashboard) Logout() {
	d.tracker.Clear()
	d.cache.InvalidateAll()
}

// Sync runs a migration now, outside the login trigger.
func (d *Dashboard) Sync(ctx context.Context) []SyncResult {
	return d.coordinator.Sync(ctx)
}

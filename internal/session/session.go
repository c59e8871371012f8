// Package session is the boundary to the authentication provider. It answers
// "is a session established right now" and emits an event on every
// transition from no session to a session, so the sync coordinator can
// subscribe instead of polling.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Session is an authenticated user session.
type Session struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether s has an expiry that is not after now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Provider answers the current session state. Implementations are queried on
// every store operation; callers must not cache the answer.
type Provider interface {
	Current(ctx context.Context) (Session, bool)
}

// Tracker holds the current session in memory and broadcasts acquisition
// events. It implements Provider and the remote client's token source.
type Tracker struct {
	mu      sync.Mutex
	current *Session
	subs    map[int]chan Session
	nextSub int
	now     func() time.Time
	logger  *slog.Logger
}

// NewTracker returns a tracker that starts with initial (nil for no
// session). Starting with a session does not emit an event: a process that
// starts already authenticated has nothing to migrate.
func NewTracker(initial *Session, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{
		subs:   make(map[int]chan Session),
		now:    time.Now,
		logger: logger,
	}
	if initial != nil {
		s := *initial
		t.current = &s
	}
	return t
}

// SetClock overrides the clock used for expiry checks.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// Current returns the session if one is established and not expired.
func (t *Tracker) Current(ctx context.Context) (Session, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentLocked()
}

func (t *Tracker) currentLocked() (Session, bool) {
	if t.current == nil || t.current.Expired(t.now()) {
		return Session{}, false
	}
	return *t.current, true
}

// Token returns the bearer token of the current session.
func (t *Tracker) Token(ctx context.Context) (string, bool) {
	s, ok := t.Current(ctx)
	if !ok || s.Token == "" {
		return "", false
	}
	return s.Token, true
}

// Set establishes s. Subscribers are notified only if no session was
// present before the call, so repeated Sets (token refresh) do not fire.
func (t *Tracker) Set(s Session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, had := t.currentLocked()
	cp := s
	t.current = &cp
	if _, has := t.currentLocked(); had || !has {
		return
	}

	t.logger.Info("session acquired", slog.String("user", s.UserID))
	for id, ch := range t.subs {
		select {
		case ch <- cp:
		default:
			t.logger.Warn("session subscriber lagging, event dropped", slog.Int("subscriber", id))
		}
	}
}

// Clear ends the current session.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current != nil {
		t.logger.Info("session cleared", slog.String("user", t.current.UserID))
	}
	t.current = nil
}

// Subscribe returns a channel receiving one value per no-session to session
// transition, and a cancel func that closes it.
func (t *Tracker) Subscribe() (<-chan Session, func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := t.nextSub
	t.nextSub++
	ch := make(chan Session, 1)
	t.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs, id)
			close(ch)
		})
	}
	return ch, cancel
}

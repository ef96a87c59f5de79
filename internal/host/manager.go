package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/changeorders/internal/changeorder"
	"github.com/JonMunkholm/changeorders/internal/config"
	"github.com/JonMunkholm/changeorders/internal/fieldstore"
	"github.com/JonMunkholm/changeorders/internal/logging"
	"github.com/JonMunkholm/changeorders/internal/metrics"
	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound is returned for unknown or already closed sessions.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTooManySessions is returned by Open when the session cap is reached.
	ErrTooManySessions = errors.New("too many open sessions")
)

// Manager owns the open editor sessions.
type Manager struct {
	store        fieldstore.Store
	cfg          config.SessionConfig
	metrics      *metrics.Metrics
	storeTimeout time.Duration
	now          func() time.Time

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// Option configures a Manager.
type Option func(*Manager)

// WithMetrics records session and edit metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(mgr *Manager) { mgr.metrics = m }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(mgr *Manager) { mgr.now = now }
}

// WithStoreTimeout bounds each load and save against the field store.
func WithStoreTimeout(d time.Duration) Option {
	return func(mgr *Manager) {
		if d > 0 {
			mgr.storeTimeout = d
		}
	}
}

// NewManager returns a manager persisting to store.
func NewManager(store fieldstore.Store, cfg config.SessionConfig, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		cfg:          cfg,
		storeTimeout: 5 * time.Second,
		now:          time.Now,
		sessions:     make(map[uuid.UUID]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open loads fieldID and starts a session rendering on surface. A field that
// has never been saved opens as an empty list.
func (m *Manager) Open(ctx context.Context, fieldID string, surface changeorder.Surface) (*Session, error) {
	if err := fieldstore.ValidateFieldID(fieldID); err != nil {
		return nil, err
	}
	if m.cfg.MaxSessions > 0 && m.Len() >= m.cfg.MaxSessions {
		return nil, fmt.Errorf("%w (max %d)", ErrTooManySessions, m.cfg.MaxSessions)
	}

	text, err := m.load(ctx, fieldID)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	logger := logging.WithFields(ctx, "session_id", id.String(), "field_id", fieldID)
	s := &Session{
		ID:       id,
		FieldID:  fieldID,
		mgr:      m,
		log:      logger,
		surface:  surface,
		ctrl:     changeorder.New(changeorder.WithLogger(logger)),
		lastUsed: m.now(),
	}

	s.mu.Lock()
	err = s.ctrl.Initialize(text, s.flush, surface)
	corrupt := s.ctrl.Corrupt()
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("initialize session: %w", err)
	}

	// Loading is slow, so other opens may have filled the cap meanwhile.
	m.mu.Lock()
	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		m.mu.Unlock()
		s.teardown()
		return nil, fmt.Errorf("%w (max %d)", ErrTooManySessions, m.cfg.MaxSessions)
	}
	m.sessions[id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	if corrupt && m.metrics != nil {
		m.metrics.DecodeFailures.Inc()
	}

	if m.metrics != nil {
		m.metrics.Sessions.Set(float64(n))
	}
	logger.Info("session opened", "corrupt", corrupt)
	return s, nil
}

// Get returns an open session.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Refresh re-renders an open session.
func (m *Manager) Refresh(id uuid.UUID) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.Refresh()
}

// Reload re-reads an open session's field from the store.
func (m *Manager) Reload(ctx context.Context, id uuid.UUID) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.Reload(ctx)
}

// Close tears the session down and forgets it.
func (m *Manager) Close(id uuid.UUID) error {
	s, ok := m.forget(id)
	if !ok {
		return ErrSessionNotFound
	}
	s.teardown()
	s.log.Info("session closed")
	return nil
}

// forget removes id from the open set.
func (m *Manager) forget(id uuid.UUID) (*Session, bool) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	if ok && m.metrics != nil {
		m.metrics.Sessions.Set(float64(n))
	}
	return s, ok
}

// CloseAll tears down every session.
func (m *Manager) CloseAll() {
	for _, id := range m.ids() {
		_ = m.Close(id)
	}
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes every session idle for longer than the configured timeout and
// returns how many it closed. A session used while the sweep runs is kept.
func (m *Manager) Sweep(now time.Time) int {
	if m.cfg.IdleTimeout <= 0 {
		return 0
	}

	closed := 0
	for _, id := range m.ids() {
		s, err := m.Get(id)
		if err != nil {
			continue
		}
		if !s.expire(now, m.cfg.IdleTimeout) {
			continue
		}
		if _, ok := m.forget(id); ok {
			s.log.Info("session closed", "reason", "idle")
			closed++
		}
	}
	return closed
}

// StartReaper sweeps idle sessions every SweepInterval until ctx is
// cancelled. Run it in its own goroutine.
func (m *Manager) StartReaper(ctx context.Context) {
	interval := m.cfg.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	slog.Info("session reaper started",
		"idle_timeout", m.cfg.IdleTimeout,
		"sweep_interval", interval,
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("session reaper stopped")
			return
		case <-ticker.C:
			if n := m.Sweep(m.now()); n > 0 {
				slog.Info("idle sessions closed", "count", n, "open", m.Len())
			}
		}
	}
}

func (m *Manager) load(ctx context.Context, fieldID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.storeTimeout)
	defer cancel()

	text, found, err := m.store.Load(ctx, fieldID)
	if err != nil {
		return "", fmt.Errorf("load field: %w", err)
	}
	if !found {
		return changeorder.EmptyState, nil
	}
	return text, nil
}

func (m *Manager) ids() []uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	return ids
}

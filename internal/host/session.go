// Package host adapts editor controllers to a hosting application.
//
// A host field is edited through a [Session]: the session loads the field's
// stored text, initializes a [changeorder.Controller] on a caller-supplied
// surface, and saves the controller's output every time it signals a change.
// The [Manager] keeps the open sessions, serializes events per session, and
// reaps sessions nobody has touched for a while.
package host

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/JonMunkholm/changeorders/internal/changeorder"
	"github.com/google/uuid"
)

// Session is one open editor bound to one stored field.
type Session struct {
	ID      uuid.UUID
	FieldID string

	mgr     *Manager
	log     *slog.Logger
	surface changeorder.Surface

	mu       sync.Mutex
	ctrl     *changeorder.Controller
	op       string
	lastUsed time.Time
	flushErr error
	closed   bool
}

// Do runs fn with exclusive access to the controller. op names the edit for
// metrics; it is attached to every flush fn triggers.
func (s *Session) Do(op string, fn func(c *changeorder.Controller) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionNotFound
	}
	s.lastUsed = s.mgr.now()
	s.op = op
	defer func() { s.op = "" }()

	return fn(s.ctrl)
}

// Surface returns the surface the session renders on.
func (s *Session) Surface() changeorder.Surface { return s.surface }

// Output returns the latest serialized value.
func (s *Session) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Output()
}

// Corrupt reports whether the session started from undecodable data.
func (s *Session) Corrupt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrl.Corrupt()
}

// Refresh re-renders the rows from the records.
func (s *Session) Refresh() error {
	return s.Do("refresh", func(c *changeorder.Controller) error {
		return c.Refresh()
	})
}

// Reload re-reads the stored field and rebuilds the rows from it.
func (s *Session) Reload(ctx context.Context) error {
	text, err := s.mgr.load(ctx, s.FieldID)
	if err != nil {
		return err
	}
	return s.Do("reload", func(c *changeorder.Controller) error {
		return c.Reload(text)
	})
}

// FlushErr returns the error from the most recent flush, or nil if it
// succeeded.
func (s *Session) FlushErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushErr
}

// flush persists the controller output. It runs from the controller's notify
// callback, so s.mu is already held by Do.
func (s *Session) flush() {
	if s.op != "" && s.mgr.metrics != nil {
		s.mgr.metrics.Edits.WithLabelValues(s.op).Inc()
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.mgr.storeTimeout)
	defer cancel()

	if err := s.mgr.store.Save(ctx, s.FieldID, s.ctrl.Output()); err != nil {
		s.flushErr = err
		s.log.Error("flush failed", "op", s.op, "error", err)
		if s.mgr.metrics != nil {
			s.mgr.metrics.FlushErrors.Inc()
		}
		return
	}
	s.flushErr = nil
}

// expire tears the session down if it has been idle for longer than timeout
// at now. The check and the teardown happen under one lock, so an event that
// lands first keeps the session alive.
func (s *Session) expire(now time.Time, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || now.Sub(s.lastUsed) <= timeout {
		return false
	}
	s.closed = true
	s.ctrl.Teardown()
	return true
}

// teardown releases the controller. Safe to call more than once.
func (s *Session) teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.ctrl.Teardown()
}

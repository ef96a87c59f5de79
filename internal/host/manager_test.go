package host

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/changeorders/internal/changeorder"
	"github.com/JonMunkholm/changeorders/internal/config"
	"github.com/JonMunkholm/changeorders/internal/fieldstore"
	"github.com/JonMunkholm/changeorders/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type stubRow struct {
	emit   changeorder.EmitFunc
	amount string
	status changeorder.Status
}

func (r *stubRow) SetLabel(string)                 {}
func (r *stubRow) SetAmountText(text string)       { r.amount = text }
func (r *stubRow) AmountText() string              { return r.amount }
func (r *stubRow) SetStatus(st changeorder.Status) { r.status = st }
func (r *stubRow) Status() changeorder.Status      { return r.status }

type stubSurface struct {
	rows     []*stubRow
	add      func() error
	warnings []string
}

func (s *stubSurface) NewRow(_ string, emit changeorder.EmitFunc) changeorder.RowWidget {
	return &stubRow{emit: emit}
}
func (s *stubSurface) Attach(w changeorder.RowWidget) { s.rows = append(s.rows, w.(*stubRow)) }
func (s *stubSurface) Detach(w changeorder.RowWidget) {
	for i, r := range s.rows {
		if r == w {
			s.rows = append(s.rows[:i], s.rows[i+1:]...)
			return
		}
	}
}
func (s *stubSurface) SetHeading(string, string) {}
func (s *stubSurface) BindAdd(fn func() error)   { s.add = fn }
func (s *stubSurface) Warn(message string)       { s.warnings = append(s.warnings, message) }

// failingStore wraps a store and fails every save once broken is set.
type failingStore struct {
	fieldstore.Store
	broken bool
}

func (f *failingStore) Save(ctx context.Context, id, value string) error {
	if f.broken {
		return errors.New("disk full")
	}
	return f.Store.Save(ctx, id, value)
}

// slowStore delays every load the way a database round trip would.
type slowStore struct {
	fieldstore.Store
	delay time.Duration
}

func (s *slowStore) Load(ctx context.Context, id string) (string, bool, error) {
	time.Sleep(s.delay)
	return s.Store.Load(ctx, id)
}

func sessionConfig() config.SessionConfig {
	return config.SessionConfig{MaxSessions: 10, IdleTimeout: time.Minute, SweepInterval: time.Second}
}

func TestOpen_MissingFieldStartsEmpty(t *testing.T) {
	store := fieldstore.NewMemory()
	mgr := NewManager(store, sessionConfig())
	surface := &stubSurface{}

	s, err := mgr.Open(context.Background(), "job-1", surface)
	require.NoError(t, err)
	require.Equal(t, changeorder.EmptyState, s.Output())
	require.False(t, s.Corrupt())
	require.NotNil(t, surface.add)
	require.Equal(t, 1, mgr.Len())
}

func TestOpen_InvalidFieldID(t *testing.T) {
	mgr := NewManager(fieldstore.NewMemory(), sessionConfig())

	_, err := mgr.Open(context.Background(), "", &stubSurface{})
	require.ErrorIs(t, err, fieldstore.ErrInvalidFieldID)
	require.Zero(t, mgr.Len())
}

func TestOpen_SessionCap(t *testing.T) {
	cfg := sessionConfig()
	cfg.MaxSessions = 1
	mgr := NewManager(fieldstore.NewMemory(), cfg)

	_, err := mgr.Open(context.Background(), "a", &stubSurface{})
	require.NoError(t, err)
	_, err = mgr.Open(context.Background(), "b", &stubSurface{})
	require.ErrorIs(t, err, ErrTooManySessions)
}

func TestOpen_SessionCapHoldsUnderConcurrentOpens(t *testing.T) {
	cfg := sessionConfig()
	cfg.MaxSessions = 1
	m := metrics.New()
	mgr := NewManager(&slowStore{Store: fieldstore.NewMemory(), delay: 5 * time.Millisecond}, cfg, WithMetrics(m))

	const openers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		opened   int
		rejected int
	)
	for i := 0; i < openers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Open(context.Background(), "job-1", &stubSurface{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				opened++
			case errors.Is(err, ErrTooManySessions):
				rejected++
			default:
				t.Errorf("open: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, opened)
	require.Equal(t, openers-1, rejected)
	require.Equal(t, 1, mgr.Len())
	require.Equal(t, 1.0, testutil.ToFloat64(m.Sessions))
}

func TestSession_EditsAreSaved(t *testing.T) {
	ctx := context.Background()
	store := fieldstore.NewMemory()
	m := metrics.New()
	mgr := NewManager(store, sessionConfig(), WithMetrics(m))
	surface := &stubSurface{}

	s, err := mgr.Open(ctx, "job-1", surface)
	require.NoError(t, err)

	require.NoError(t, s.Do("add", func(*changeorder.Controller) error { return surface.add() }))
	require.NoError(t, s.Do("amount", func(*changeorder.Controller) error {
		row := surface.rows[0]
		row.amount = "250.5"
		return row.emit(changeorder.IntentAmount)
	}))

	saved, found, err := store.Load(ctx, "job-1")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, `{"orders":[{"amount":250.5,"status":0}]}`, saved)
	require.Equal(t, saved, s.Output())

	require.Equal(t, 1.0, testutil.ToFloat64(m.Edits.WithLabelValues("add")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Edits.WithLabelValues("amount")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Sessions))
}

func TestSession_FlushErrorIsRecorded(t *testing.T) {
	store := &failingStore{Store: fieldstore.NewMemory()}
	m := metrics.New()
	mgr := NewManager(store, sessionConfig(), WithMetrics(m))
	surface := &stubSurface{}

	s, err := mgr.Open(context.Background(), "job-1", surface)
	require.NoError(t, err)

	store.broken = true
	require.NoError(t, s.Do("add", func(*changeorder.Controller) error { return surface.add() }))
	require.Error(t, s.FlushErr())
	require.Equal(t, 1.0, testutil.ToFloat64(m.FlushErrors))

	// The in-memory state still advanced; the next good flush catches up.
	store.broken = false
	require.NoError(t, s.Do("add", func(*changeorder.Controller) error { return surface.add() }))
	require.NoError(t, s.FlushErr())
	require.Len(t, surface.rows, 2)
}

func TestOpen_CorruptFieldWarnsAndDisablesAdd(t *testing.T) {
	ctx := context.Background()
	store := fieldstore.NewMemory()
	require.NoError(t, store.Save(ctx, "job-1", "not json"))
	m := metrics.New()
	mgr := NewManager(store, sessionConfig(), WithMetrics(m))
	surface := &stubSurface{}

	s, err := mgr.Open(ctx, "job-1", surface)
	require.NoError(t, err)
	require.True(t, s.Corrupt())
	require.Equal(t, []string{changeorder.CorruptWarning}, surface.warnings)
	require.Nil(t, surface.add)
	require.Equal(t, "not json", s.Output())
	require.Equal(t, 1.0, testutil.ToFloat64(m.DecodeFailures))
}

func TestSession_ReloadPicksUpStoredValue(t *testing.T) {
	ctx := context.Background()
	store := fieldstore.NewMemory()
	mgr := NewManager(store, sessionConfig())
	surface := &stubSurface{}

	s, err := mgr.Open(ctx, "job-1", surface)
	require.NoError(t, err)
	require.Empty(t, surface.rows)

	require.NoError(t, store.Save(ctx, "job-1", `{"orders":[{"amount":1,"status":1},{"amount":2,"status":2}]}`))
	require.NoError(t, s.Reload(ctx))
	require.Len(t, surface.rows, 2)
	require.Equal(t, changeorder.StatusRejected, surface.rows[1].status)
}

func TestManager_Close(t *testing.T) {
	mgr := NewManager(fieldstore.NewMemory(), sessionConfig())
	surface := &stubSurface{}

	s, err := mgr.Open(context.Background(), "job-1", surface)
	require.NoError(t, err)
	require.NoError(t, surface.add())

	require.NoError(t, mgr.Close(s.ID))
	require.Empty(t, surface.rows)
	require.Nil(t, surface.add)

	_, err = mgr.Get(s.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	require.ErrorIs(t, mgr.Close(s.ID), ErrSessionNotFound)
	require.ErrorIs(t, s.Refresh(), ErrSessionNotFound)
}

func TestManager_Sweep(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	mgr := NewManager(fieldstore.NewMemory(), sessionConfig(), WithClock(clock))

	idle, err := mgr.Open(context.Background(), "idle", &stubSurface{})
	require.NoError(t, err)

	now = now.Add(45 * time.Second)
	busy, err := mgr.Open(context.Background(), "busy", &stubSurface{})
	require.NoError(t, err)

	now = now.Add(30 * time.Second)
	require.NoError(t, busy.Refresh())

	require.Equal(t, 1, mgr.Sweep(now))
	_, err = mgr.Get(idle.ID)
	require.ErrorIs(t, err, ErrSessionNotFound)
	_, err = mgr.Get(busy.ID)
	require.NoError(t, err)
}

func TestManager_SweepKeepsSessionUsedDuringSweep(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var (
		mu  sync.Mutex
		now = start
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	mgr := NewManager(fieldstore.NewMemory(), sessionConfig(), WithClock(clock))

	s, err := mgr.Open(context.Background(), "job-1", &stubSurface{})
	require.NoError(t, err)

	// The sweep was scheduled for a moment the session looked idle, but an
	// event is already holding the session when it gets there.
	mu.Lock()
	now = start.Add(2 * time.Minute)
	mu.Unlock()

	entered := make(chan struct{})
	release := make(chan struct{})
	editDone := make(chan error)
	go func() {
		editDone <- s.Do("refresh", func(c *changeorder.Controller) error {
			close(entered)
			<-release
			return c.Refresh()
		})
	}()
	<-entered

	swept := make(chan int)
	go func() { swept <- mgr.Sweep(start.Add(2 * time.Minute)) }()
	time.Sleep(10 * time.Millisecond)
	close(release)

	require.NoError(t, <-editDone)
	require.Zero(t, <-swept)
	_, err = mgr.Get(s.ID)
	require.NoError(t, err)
	require.NoError(t, s.Refresh())
}

func TestSession_ExpireIsOneShot(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mgr := NewManager(fieldstore.NewMemory(), sessionConfig(), WithClock(func() time.Time { return now }))

	s, err := mgr.Open(context.Background(), "job-1", &stubSurface{})
	require.NoError(t, err)

	require.False(t, s.expire(now.Add(30*time.Second), time.Minute))
	require.True(t, s.expire(now.Add(2*time.Minute), time.Minute))
	require.False(t, s.expire(now.Add(3*time.Minute), time.Minute))
	require.ErrorIs(t, s.Refresh(), ErrSessionNotFound)
}

func TestManager_ReaperStopsOnCancel(t *testing.T) {
	mgr := NewManager(fieldstore.NewMemory(), config.SessionConfig{
		MaxSessions:   1,
		IdleTimeout:   time.Nanosecond,
		SweepInterval: time.Millisecond,
	})
	_, err := mgr.Open(context.Background(), "job-1", &stubSurface{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		mgr.StartReaper(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return mgr.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}

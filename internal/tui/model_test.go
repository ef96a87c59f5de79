package tui

import (
	"context"
	"testing"
	"time"

	"github.com/JonMunkholm/changeorders/internal/changeorder"
	"github.com/JonMunkholm/changeorders/internal/config"
	"github.com/JonMunkholm/changeorders/internal/fieldstore"
	"github.com/JonMunkholm/changeorders/internal/host"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

// harness drives a Model the way bubbletea would, one message at a time.
type harness struct {
	t     *testing.T
	model Model
	store fieldstore.Store
	last  tea.Cmd
}

func newHarness(t *testing.T, stored string) *harness {
	t.Helper()
	ctx := context.Background()
	store := fieldstore.NewMemory()
	if stored != "" {
		require.NoError(t, store.Save(ctx, "job-1", stored))
	}

	mgr := host.NewManager(store, config.SessionConfig{MaxSessions: 1, IdleTimeout: time.Hour, SweepInterval: time.Hour})
	t.Cleanup(mgr.CloseAll)

	sess, err := mgr.Open(ctx, "job-1", NewSurface())
	require.NoError(t, err)
	m, err := New(ctx, sess)
	require.NoError(t, err)
	return &harness{t: t, model: m, store: store}
}

func (h *harness) send(msg tea.Msg) *harness {
	updated, cmd := h.model.Update(msg)
	h.model = updated.(Model)
	h.last = cmd
	return h
}

func (h *harness) key(k tea.KeyType) *harness {
	return h.send(tea.KeyMsg{Type: k})
}

func (h *harness) runes(s string) *harness {
	return h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (h *harness) stored() string {
	h.t.Helper()
	text, found, err := h.store.Load(context.Background(), "job-1")
	require.NoError(h.t, err)
	require.True(h.t, found)
	return text
}

func TestModel_EmptyField(t *testing.T) {
	h := newHarness(t, "")

	view := h.model.View()
	require.Contains(t, view, changeorder.Heading)
	require.Contains(t, view, changeorder.EmptyNotice)
	require.Contains(t, view, "job-1")
}

func TestModel_AddEditAndCycleStatus(t *testing.T) {
	h := newHarness(t, "")

	h.runes("a")
	require.Equal(t, `{"orders":[{"amount":0,"status":0}]}`, h.stored())
	require.Contains(t, h.model.View(), "CO-1")

	h.key(tea.KeyEnter)
	require.True(t, h.model.editing)
	h.key(tea.KeyBackspace) // clear the "0"
	h.runes("99.5")
	h.key(tea.KeyEnter)
	require.False(t, h.model.editing)
	require.Equal(t, `{"orders":[{"amount":99.5,"status":0}]}`, h.stored())

	h.key(tea.KeyRight)
	require.Equal(t, `{"orders":[{"amount":99.5,"status":1}]}`, h.stored())
	h.key(tea.KeyLeft).key(tea.KeyLeft)
	require.Equal(t, `{"orders":[{"amount":99.5,"status":2}]}`, h.stored())
	require.Contains(t, h.model.View(), "Rejected")
}

func TestModel_EscapeCancelsAmountEdit(t *testing.T) {
	h := newHarness(t, `{"orders":[{"amount":5,"status":0}]}`)

	h.key(tea.KeyEnter).runes("123").key(tea.KeyEsc)
	require.False(t, h.model.editing)
	require.Equal(t, `{"orders":[{"amount":5,"status":0}]}`, h.stored())
}

func TestModel_DeleteMovesCursor(t *testing.T) {
	h := newHarness(t, `{"orders":[{"amount":1,"status":0},{"amount":2,"status":1},{"amount":3,"status":2}]}`)

	h.runes("j").runes("j")
	require.Equal(t, 2, h.model.cursor)

	h.runes("x")
	require.Equal(t, `{"orders":[{"amount":1,"status":0},{"amount":2,"status":1}]}`, h.stored())
	require.Equal(t, 1, h.model.cursor)

	h.runes("k").runes("x")
	require.Equal(t, `{"orders":[{"amount":2,"status":1}]}`, h.stored())

	view := h.model.View()
	require.Contains(t, view, "CO-1")
	require.NotContains(t, view, "CO-2")
}

func TestModel_CorruptFieldShowsModal(t *testing.T) {
	h := newHarness(t, `{"orders": "nope"}`)

	require.Contains(t, h.model.View(), "Data may be corrupt")

	// Keys other than enter are swallowed while the modal is up.
	h.runes("q")
	require.Nil(t, h.last)
	h.runes("a")
	require.NotEmpty(t, h.model.warning)

	h.key(tea.KeyEnter)
	require.Empty(t, h.model.warning)
	require.Contains(t, h.model.View(), changeorder.EmptyNotice)

	h.runes("a")
	require.Contains(t, h.model.message, "disabled")
	require.Equal(t, `{"orders": "nope"}`, h.stored())
}

func TestModel_Quit(t *testing.T) {
	h := newHarness(t, "")

	h.runes("q")
	require.NotNil(t, h.last)
	require.IsType(t, tea.QuitMsg{}, h.last())

	h = newHarness(t, "")
	h.key(tea.KeyCtrlC)
	require.IsType(t, tea.QuitMsg{}, h.last())
}

func TestModel_Reload(t *testing.T) {
	h := newHarness(t, "")
	require.NoError(t, h.store.Save(context.Background(), "job-1", `{"orders":[{"amount":7,"status":1}]}`))

	h.runes("r")
	require.Equal(t, "reloaded", h.model.message)
	require.Contains(t, h.model.View(), "Accepted")
}

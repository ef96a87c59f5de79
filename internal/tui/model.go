// Package tui edits one change order field in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/changeorders/internal/changeorder"
	"github.com/JonMunkholm/changeorders/internal/host"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

/* ----------------------------------------
	STYLES
---------------------------------------- */

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	noticeStyle   = lipgloss.NewStyle().Italic(true).Faint(true)
	cursorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	disabledStyle = lipgloss.NewStyle().Strikethrough(true).Faint(true)
	modalStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(1, 2).
			Width(60)

	statusStyles = [...]lipgloss.Style{
		changeorder.StatusPending:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		changeorder.StatusAccepted: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		changeorder.StatusRejected: lipgloss.NewStyle().Foreground(lipgloss.Color("160")),
	}
)

/* ----------------------------------------
	MODEL
---------------------------------------- */

// Model is the bubbletea model for one editor session.
type Model struct {
	ctx     context.Context
	session *host.Session
	surface *Surface

	cursor  int
	editing bool
	input   textinput.Model

	warning string // modal; blocks every key but enter
	message string // one-line feedback from the last action
}

// New builds a model on an open session. The session must have been opened
// on a *Surface.
func New(ctx context.Context, sess *host.Session) (Model, error) {
	surf, ok := sess.Surface().(*Surface)
	if !ok {
		return Model{}, fmt.Errorf("session %s was not opened on a terminal surface", sess.ID)
	}

	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = "0"
	ti.CharLimit = 32
	ti.Width = 16

	m := Model{ctx: ctx, session: sess, surface: surf, input: ti}
	m.pullWarning()
	return m, nil
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.editing {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if key.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	switch {
	case m.warning != "":
		if key.Type == tea.KeyEnter {
			m.warning = ""
			m.pullWarning()
		}
		return m, nil
	case m.editing:
		return m.updateEditing(key)
	default:
		return m.updateBrowsing(key)
	}
}

func (m Model) updateEditing(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEnter:
		text := m.input.Value()
		i := m.cursor
		m.editing = false
		m.input.Blur()
		m.run("amount", func() error { return m.surface.typeAmount(i, text) })
		return m, nil
	case tea.KeyEsc:
		m.editing = false
		m.input.Blur()
		m.message = ""
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

func (m Model) updateBrowsing(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.surface.rows)

	switch key.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < n-1 {
			m.cursor++
		}
	case "left", "h", "right", "l":
		if n == 0 {
			return m, nil
		}
		step := 1
		if key.String() == "left" || key.String() == "h" {
			step = len(changeorder.StatusLabels()) - 1
		}
		i := m.cursor
		next := changeorder.Status((int(m.surface.rows[i].status) + step) % len(changeorder.StatusLabels()))
		m.run("status", func() error { return m.surface.selectStatus(i, next) })
	case "enter", "e":
		if n == 0 {
			return m, nil
		}
		m.editing = true
		m.input.SetValue(m.surface.rows[m.cursor].amount)
		m.input.CursorEnd()
		return m, m.input.Focus()
	case "a":
		m.run("add", m.surface.pressAdd)
		if len(m.surface.rows) > n {
			m.cursor = len(m.surface.rows) - 1
		}
	case "x":
		if n == 0 {
			return m, nil
		}
		i := m.cursor
		m.run("delete", func() error { return m.surface.pressDelete(i) })
		if m.cursor >= len(m.surface.rows) && m.cursor > 0 {
			m.cursor = len(m.surface.rows) - 1
		}
	case "r":
		if err := m.session.Reload(m.ctx); err != nil {
			m.message = err.Error()
		} else {
			m.message = "reloaded"
		}
		m.cursor = 0
		m.pullWarning()
	}
	return m, nil
}

// run applies one edit through the session, re-syncs the rows so labels
// follow their new positions, and records the outcome.
func (m *Model) run(op string, fn func() error) {
	err := m.session.Do(op, func(c *changeorder.Controller) error {
		if err := fn(); err != nil {
			return err
		}
		return c.Refresh()
	})
	switch {
	case err != nil:
		m.message = err.Error()
	case m.session.FlushErr() != nil:
		m.message = "not saved: " + m.session.FlushErr().Error()
	default:
		m.message = "saved"
	}
	m.pullWarning()
}

func (m *Model) pullWarning() {
	if m.warning != "" {
		return
	}
	if msg, ok := m.surface.nextWarning(); ok {
		m.warning = msg
	}
}

/* ----------------------------------------
	VIEW
---------------------------------------- */

func (m Model) View() string {
	if m.warning != "" {
		return modalStyle.Render(m.warning+"\n\n"+helpStyle.Render("press enter to continue")) + "\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.surface.title))
	b.WriteString("  ")
	b.WriteString(helpStyle.Render(m.session.FieldID))
	b.WriteString("\n\n")

	if m.surface.notice != "" {
		b.WriteString(noticeStyle.Render(m.surface.notice))
		b.WriteString("\n")
	}

	for i, r := range m.surface.rows {
		pointer := "  "
		label := r.label
		if i == m.cursor {
			pointer = cursorStyle.Render("> ")
			label = cursorStyle.Render(label)
		}

		amount := r.amount
		if m.editing && i == m.cursor {
			amount = "[" + m.input.View() + "]"
		}

		fmt.Fprintf(&b, "%s%-8s %-18s %s\n", pointer, label, amount, statusLabel(r.status))
	}

	b.WriteString("\n")
	if m.message != "" {
		if strings.HasPrefix(m.message, "saved") || m.message == "reloaded" {
			b.WriteString(helpStyle.Render(m.message))
		} else {
			b.WriteString(errorStyle.Render(m.message))
		}
		b.WriteString("\n")
	}
	b.WriteString(m.help())
	b.WriteString("\n")
	return b.String()
}

func (m Model) help() string {
	if m.editing {
		return helpStyle.Render("enter save • esc cancel")
	}
	add := "a add"
	if !m.surface.canAdd() {
		add = disabledStyle.Render(add)
	}
	return add + helpStyle.Render(" • ↑/↓ move • ←/→ status • enter amount • x delete • r reload • q quit")
}

func statusLabel(st changeorder.Status) string {
	if !st.Valid() {
		return st.String()
	}
	return statusStyles[st].Render(st.String())
}

package tui

import (
	"slices"

	"github.com/JonMunkholm/changeorders/internal/changeorder"
)

// Surface is the terminal widget tree. The Model reads it while rendering
// and drives it from key presses; both happen on the bubbletea event loop.
type Surface struct {
	rows    []*row
	title   string
	notice  string
	add     func() error
	pending []string
}

type row struct {
	key    string
	emit   changeorder.EmitFunc
	label  string
	amount string
	status changeorder.Status
}

func (r *row) SetLabel(text string)            { r.label = text }
func (r *row) SetAmountText(text string)       { r.amount = text }
func (r *row) AmountText() string              { return r.amount }
func (r *row) SetStatus(st changeorder.Status) { r.status = st }
func (r *row) Status() changeorder.Status      { return r.status }

// NewSurface returns an empty surface to open a session on.
func NewSurface() *Surface {
	return &Surface{}
}

func (s *Surface) NewRow(key string, emit changeorder.EmitFunc) changeorder.RowWidget {
	return &row{key: key, emit: emit}
}

func (s *Surface) Attach(w changeorder.RowWidget) {
	s.rows = append(s.rows, w.(*row))
}

func (s *Surface) Detach(w changeorder.RowWidget) {
	s.rows = slices.DeleteFunc(s.rows, func(r *row) bool { return r == w })
}

func (s *Surface) SetHeading(title, notice string) {
	s.title, s.notice = title, notice
}

func (s *Surface) BindAdd(fn func() error) { s.add = fn }

func (s *Surface) Warn(message string) {
	s.pending = append(s.pending, message)
}

// nextWarning pops the oldest unacknowledged warning.
func (s *Surface) nextWarning() (string, bool) {
	if len(s.pending) == 0 {
		return "", false
	}
	msg := s.pending[0]
	s.pending = s.pending[1:]
	return msg, true
}

func (s *Surface) canAdd() bool { return s.add != nil }

func (s *Surface) pressAdd() error {
	if s.add == nil {
		return changeorder.ErrAddDisabled
	}
	return s.add()
}

func (s *Surface) typeAmount(i int, text string) error {
	r := s.rows[i]
	r.amount = text
	return r.emit(changeorder.IntentAmount)
}

func (s *Surface) selectStatus(i int, st changeorder.Status) error {
	r := s.rows[i]
	r.status = st
	return r.emit(changeorder.IntentStatus)
}

func (s *Surface) pressDelete(i int) error {
	return s.rows[i].emit(changeorder.IntentDelete)
}

package web

import (
	"errors"
	"slices"

	"github.com/JonMunkholm/changeorders/internal/changeorder"
	"github.com/JonMunkholm/changeorders/internal/web/views"
)

// errRowNotFound is returned when a request names a row the page no longer
// shows, usually because it was deleted from another tab.
var errRowNotFound = errors.New("row not found")

// htmlSurface is the server-side widget tree behind one editor page. Posted
// form values are written into the widgets and the widget's intent is fired,
// the same sequence a browser input event would cause. All access happens
// inside host.Session.Do.
type htmlSurface struct {
	rows    []*htmlRow
	title   string
	notice  string
	add     func() error
	pending []string
}

type htmlRow struct {
	key    string
	emit   changeorder.EmitFunc
	label  string
	amount string
	status changeorder.Status
}

func (r *htmlRow) SetLabel(text string)            { r.label = text }
func (r *htmlRow) SetAmountText(text string)       { r.amount = text }
func (r *htmlRow) AmountText() string              { return r.amount }
func (r *htmlRow) SetStatus(st changeorder.Status) { r.status = st }
func (r *htmlRow) Status() changeorder.Status      { return r.status }

func newHTMLSurface() *htmlSurface {
	return &htmlSurface{}
}

func (s *htmlSurface) NewRow(key string, emit changeorder.EmitFunc) changeorder.RowWidget {
	return &htmlRow{key: key, emit: emit}
}

func (s *htmlSurface) Attach(w changeorder.RowWidget) {
	s.rows = append(s.rows, w.(*htmlRow))
}

func (s *htmlSurface) Detach(w changeorder.RowWidget) {
	s.rows = slices.DeleteFunc(s.rows, func(r *htmlRow) bool { return r == w })
}

func (s *htmlSurface) SetHeading(title, notice string) {
	s.title, s.notice = title, notice
}

func (s *htmlSurface) BindAdd(fn func() error) { s.add = fn }

// Warn queues message for the next render, which shows it as a modal.
func (s *htmlSurface) Warn(message string) {
	s.pending = append(s.pending, message)
}

// clickAdd presses the add control.
func (s *htmlSurface) clickAdd() error {
	if s.add == nil {
		return changeorder.ErrAddDisabled
	}
	return s.add()
}

func (s *htmlSurface) row(key string) (*htmlRow, error) {
	for _, r := range s.rows {
		if r.key == key {
			return r, nil
		}
	}
	return nil, errRowNotFound
}

// typeAmount writes text into the row's amount input and fires its change.
func (s *htmlSurface) typeAmount(key, text string) error {
	r, err := s.row(key)
	if err != nil {
		return err
	}
	r.amount = text
	return r.emit(changeorder.IntentAmount)
}

// selectStatus picks a selector option and fires its change.
func (s *htmlSurface) selectStatus(key string, st changeorder.Status) error {
	r, err := s.row(key)
	if err != nil {
		return err
	}
	r.status = st
	return r.emit(changeorder.IntentStatus)
}

func (s *htmlSurface) clickDelete(key string) error {
	r, err := s.row(key)
	if err != nil {
		return err
	}
	return r.emit(changeorder.IntentDelete)
}

// view snapshots the surface for rendering and consumes pending warnings.
func (s *htmlSurface) view(sessionID, fieldID string) views.Editor {
	e := views.Editor{
		SessionID: sessionID,
		FieldID:   fieldID,
		Title:     s.title,
		Notice:    s.notice,
		Statuses:  changeorder.StatusLabels(),
		CanAdd:    s.add != nil,
		Rows:      make([]views.Row, len(s.rows)),
	}
	for i, r := range s.rows {
		e.Rows[i] = views.Row{Key: r.key, Label: r.label, Amount: r.amount, Status: int(r.status)}
	}
	if len(s.pending) > 0 {
		e.Warning = s.pending[0]
		s.pending = s.pending[1:]
	}
	return e
}

package changeorder

import "slices"

// fakeSurface records everything the controller does to the visual tree.
type fakeSurface struct {
	attached []*fakeRow
	built    int
	title    string
	notice   string
	add      func() error
	warnings []string
}

type fakeRow struct {
	key    string
	emit   EmitFunc
	label  string
	amount string
	status Status
}

func (r *fakeRow) SetLabel(text string)      { r.label = text }
func (r *fakeRow) SetAmountText(text string) { r.amount = text }
func (r *fakeRow) AmountText() string        { return r.amount }
func (r *fakeRow) SetStatus(st Status)       { r.status = st }
func (r *fakeRow) Status() Status            { return r.status }

// typeAmount simulates the user typing into the amount field.
func (r *fakeRow) typeAmount(text string) error {
	r.amount = text
	return r.emit(IntentAmount)
}

// selectStatus simulates the user picking a selector option.
func (r *fakeRow) selectStatus(st Status) error {
	r.status = st
	return r.emit(IntentStatus)
}

func (r *fakeRow) clickDelete() error {
	return r.emit(IntentDelete)
}

func (s *fakeSurface) NewRow(key string, emit EmitFunc) RowWidget {
	s.built++
	return &fakeRow{key: key, emit: emit}
}

func (s *fakeSurface) Attach(w RowWidget) {
	s.attached = append(s.attached, w.(*fakeRow))
}

func (s *fakeSurface) Detach(w RowWidget) {
	s.attached = slices.DeleteFunc(s.attached, func(r *fakeRow) bool { return r == w.(*fakeRow) })
}

func (s *fakeSurface) SetHeading(title, notice string) {
	s.title, s.notice = title, notice
}

func (s *fakeSurface) BindAdd(fn func() error) { s.add = fn }

func (s *fakeSurface) Warn(message string) {
	s.warnings = append(s.warnings, message)
}

// clickAdd presses the add control. An unbound control does nothing.
func (s *fakeSurface) clickAdd() error {
	if s.add == nil {
		return nil
	}
	return s.add()
}

func (s *fakeSurface) labels() []string {
	out := make([]string, len(s.attached))
	for i, r := range s.attached {
		out[i] = r.label
	}
	return out
}

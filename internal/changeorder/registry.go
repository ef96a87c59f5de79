package changeorder

import (
	"fmt"

	"github.com/google/uuid"
)

// IntentKind identifies what the user did to a row.
type IntentKind int

const (
	IntentAmount IntentKind = iota + 1 // amount field edited
	IntentStatus                       // status selector changed
	IntentDelete                       // delete trigger pressed
)

func (k IntentKind) String() string {
	switch k {
	case IntentAmount:
		return "amount"
	case IntentStatus:
		return "status"
	case IntentDelete:
		return "delete"
	default:
		return fmt.Sprintf("IntentKind(%d)", int(k))
	}
}

// Intent is a user request originating from one row.
type Intent struct {
	Kind IntentKind
	Row  *RowHandle
}

// EmitFunc is handed to a toolkit when a row is built. The toolkit calls it
// from the row's interactive elements; the returned error is the outcome of
// the edit operation the intent triggered.
type EmitFunc func(IntentKind) error

// RowWidget is the interactive surface of one row: a name label, an amount
// input, a status selector offering StatusLabels, a delete trigger, and the
// container grouping them. Implementations live with the host toolkit.
type RowWidget interface {
	SetLabel(text string)
	SetAmountText(text string)
	AmountText() string
	SetStatus(st Status)
	Status() Status
}

// Surface is the visual parent the controller renders into.
type Surface interface {
	// NewRow builds a detached row widget. key is stable for the row's
	// lifetime and may be used by the toolkit to address it.
	NewRow(key string, emit EmitFunc) RowWidget

	Attach(w RowWidget)
	Detach(w RowWidget)

	// SetHeading sets the editor title. notice is non-empty when there are
	// no records to show.
	SetHeading(title, notice string)

	// BindAdd wires the add control to fn. A nil fn leaves the control inert.
	BindAdd(fn func() error)

	// Warn interrupts the operator with a message that must be acknowledged.
	Warn(message string)
}

// RowHandle is the stable identity of a rendered row. Handles are compared by
// pointer; the uuid exists so hosts can address a row from outside the
// process (an HTTP route, a test).
type RowHandle struct {
	id     uuid.UUID
	widget RowWidget
}

// ID returns the handle's identity.
func (h *RowHandle) ID() uuid.UUID { return h.id }

// Widget returns the toolkit widget the handle owns.
func (h *RowHandle) Widget() RowWidget { return h.widget }

// Registry holds the row handles in display order. Position i always edits
// record i of the store it is paired with.
type Registry struct {
	surface  Surface
	dispatch func(Intent) error
	rows     []*RowHandle
}

// NewRegistry returns an empty registry that builds widgets on surface and
// routes their intents to dispatch.
func NewRegistry(surface Surface, dispatch func(Intent) error) *Registry {
	return &Registry{surface: surface, dispatch: dispatch}
}

// CreateRow builds a new row for the record that will sit at initialIndex.
// The row is neither registered nor attached; see Append and Attach.
func (r *Registry) CreateRow(initialIndex int) *RowHandle {
	h := &RowHandle{id: uuid.New()}
	h.widget = r.surface.NewRow(h.id.String(), func(kind IntentKind) error {
		return r.dispatch(Intent{Kind: kind, Row: h})
	})
	h.widget.SetLabel(DisplayTag(initialIndex))
	return h
}

// Append registers h at the end of the sequence.
func (r *Registry) Append(h *RowHandle) {
	r.rows = append(r.rows, h)
}

// RemoveAt drops the handle at index i from the sequence.
func (r *Registry) RemoveAt(i int) {
	if i < 0 || i >= len(r.rows) {
		panic(fmt.Sprintf("changeorder: Registry.RemoveAt: index %d out of range [0,%d)", i, len(r.rows)))
	}
	r.rows = append(r.rows[:i], r.rows[i+1:]...)
}

// IndexOf returns the current position of h, or -1 if h is not registered.
// The position is recomputed on every call.
func (r *Registry) IndexOf(h *RowHandle) int {
	if h == nil {
		return -1
	}
	for i, row := range r.rows {
		if row == h {
			return i
		}
	}
	return -1
}

// Lookup returns the registered handle with the given id.
func (r *Registry) Lookup(id uuid.UUID) (*RowHandle, bool) {
	for _, row := range r.rows {
		if row.id == id {
			return row, true
		}
	}
	return nil, false
}

// Attach adds the row's container to the surface.
func (r *Registry) Attach(h *RowHandle) { r.surface.Attach(h.widget) }

// Detach removes the row's container from the surface.
func (r *Registry) Detach(h *RowHandle) { r.surface.Detach(h.widget) }

// Len returns the number of registered rows.
func (r *Registry) Len() int { return len(r.rows) }

// At returns the handle at index i.
func (r *Registry) At(i int) *RowHandle { return r.rows[i] }

// Handles returns a copy of the handle sequence.
func (r *Registry) Handles() []*RowHandle {
	out := make([]*RowHandle, len(r.rows))
	copy(out, r.rows)
	return out
}

// DisplayTag is the label of the row at index i: "CO-1" for index 0.
func DisplayTag(i int) string {
	return fmt.Sprintf("CO-%d", i+1)
}

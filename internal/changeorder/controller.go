package changeorder

import (
	"errors"
	"log/slog"
)

type lifecycle int

const (
	stateNew lifecycle = iota
	stateActive
	stateClosed
)

// ErrTornDown is returned by Initialize on a controller that has already
// been torn down. A controller serves exactly one session.
var ErrTornDown = errors.New("controller torn down")

// Controller owns one editor session: the record store, the row registry,
// the serialized output, and the corrupt flag.
type Controller struct {
	log *slog.Logger

	state   lifecycle
	surface Surface
	notify  func()
	store   *Store
	rows    *Registry
	output  string
	corrupt bool
	warned  bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for decode failures and invariant
// violations. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns an uninitialized controller.
func New(opts ...Option) *Controller {
	c := &Controller{log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initialize decodes input, builds one row per record on surface and renders
// them. notify is called once after every completed edit; it may be nil.
//
// Undecodable input is not an error: the session starts empty, the operator
// is warned, and Add stays disabled until Teardown.
func (c *Controller) Initialize(input string, notify func(), surface Surface) error {
	switch c.state {
	case stateActive:
		return ErrAlreadyInitialized
	case stateClosed:
		return ErrTornDown
	}
	if surface == nil {
		return errors.New("changeorder: nil surface")
	}

	c.surface = surface
	c.notify = notify
	c.state = stateActive

	c.load(input)
	return c.render()
}

// Reload discards the current rows and re-decodes input. The corrupt flag is
// sticky: a clean reload does not re-enable Add once the session has seen bad
// data, and a second failure is logged without warning the operator again.
func (c *Controller) Reload(input string) error {
	if c.state != stateActive {
		return ErrNotInitialized
	}
	c.clearRows()
	c.load(input)
	return c.render()
}

// Refresh re-applies the records to the existing rows without decoding
// anything. Hosts call it whenever they re-render.
func (c *Controller) Refresh() error {
	if c.state != stateActive {
		return ErrNotInitialized
	}
	return c.render()
}

// Output returns the serialized value the host should persist. Until the
// first edit this is the text the session was initialized with, so corrupt
// input is handed back untouched.
func (c *Controller) Output() string {
	return c.output
}

// Outputs returns the output keyed by field name.
func (c *Controller) Outputs() map[string]string {
	return map[string]string{OutputField: c.output}
}

// Corrupt reports whether the session was initialized from bad data.
func (c *Controller) Corrupt() bool { return c.corrupt }

// Records returns a copy of the current records.
func (c *Controller) Records() []Record {
	if c.store == nil {
		return nil
	}
	return c.store.Records()
}

// Rows returns the current row handles in display order.
func (c *Controller) Rows() []*RowHandle {
	if c.rows == nil {
		return nil
	}
	return c.rows.Handles()
}

// Row returns the registered handle at index i.
func (c *Controller) Row(i int) (*RowHandle, bool) {
	if c.rows == nil || i < 0 || i >= c.rows.Len() {
		return nil, false
	}
	return c.rows.At(i), true
}

// Teardown detaches every row and unbinds the add control. Nothing survives:
// Output is empty afterwards and the controller cannot be reused.
func (c *Controller) Teardown() {
	if c.state != stateActive {
		c.state = stateClosed
		return
	}
	c.clearRows()
	c.surface.BindAdd(nil)
	c.store = nil
	c.rows = nil
	c.notify = nil
	c.surface = nil
	c.output = ""
	c.state = stateClosed
}

// Add appends a pending record with a zero amount and a row for it.
func (c *Controller) Add() error {
	if c.state != stateActive {
		return ErrNotInitialized
	}
	if c.corrupt {
		return ErrAddDisabled
	}

	i := c.store.Len()
	c.store.Append(Record{Amount: 0, Status: StatusPending})
	h := c.rows.CreateRow(i)
	c.rows.Append(h)
	c.rows.Attach(h)

	c.commit("add", i)
	return nil
}

// UpdateAmount copies the row's amount field into its record. Text that is
// not a number is stored as 0.
func (c *Controller) UpdateAmount(h *RowHandle) error {
	i, err := c.resolve(h, IntentAmount)
	if err != nil {
		return err
	}
	c.store.SetAmount(i, h.widget.AmountText())
	c.commit(IntentAmount.String(), i)
	return nil
}

// UpdateStatus copies the row's selected status into its record.
func (c *Controller) UpdateStatus(h *RowHandle) error {
	i, err := c.resolve(h, IntentStatus)
	if err != nil {
		return err
	}
	st := h.widget.Status()
	if !st.Valid() {
		c.log.Debug("status coerced to pending", "index", i, "status", int(st))
		st = StatusPending
	}
	c.store.SetStatus(i, st)
	c.commit(IntentStatus.String(), i)
	return nil
}

// Delete removes the row and its record. Rows after it move up by one.
func (c *Controller) Delete(h *RowHandle) error {
	i, err := c.resolve(h, IntentDelete)
	if err != nil {
		return err
	}
	c.store.RemoveAt(i)
	c.rows.Detach(h)
	c.rows.RemoveAt(i)
	c.commit(IntentDelete.String(), i)
	return nil
}

// dispatch routes a row intent to its edit operation.
func (c *Controller) dispatch(in Intent) error {
	switch in.Kind {
	case IntentAmount:
		return c.UpdateAmount(in.Row)
	case IntentStatus:
		return c.UpdateStatus(in.Row)
	case IntentDelete:
		return c.Delete(in.Row)
	default:
		c.log.Error("unknown intent", "kind", in.Kind.String())
		return nil
	}
}

// resolve finds the current index of h. A handle that is not registered is
// an invariant violation: it is logged and the operation aborts untouched.
func (c *Controller) resolve(h *RowHandle, kind IntentKind) (int, error) {
	if c.state != stateActive {
		return -1, ErrNotInitialized
	}
	i := c.rows.IndexOf(h)
	if i < 0 {
		attrs := []any{"intent", kind.String()}
		if h != nil {
			attrs = append(attrs, "row", h.id.String())
		}
		c.log.Error("intent for unregistered row", attrs...)
		return -1, ErrUnknownRow
	}
	return i, nil
}

// commit re-encodes the records and notifies the host. It runs once per
// operation, after both collections are consistent again.
func (c *Controller) commit(op string, i int) {
	c.output = c.store.Encode()
	c.log.Debug("change order edited", "op", op, "index", i, "records", c.store.Len())
	if c.notify != nil {
		c.notify()
	}
}

func (c *Controller) load(input string) {
	text := input
	if text == "" {
		text = EmptyState
	}

	res := Decode(text)
	if !res.OK {
		c.corrupt = true
		c.log.Warn("field data may be corrupt",
			"error", res.Err,
			"input_bytes", len(text),
		)
		if !c.warned {
			c.warned = true
			c.surface.Warn(CorruptWarning)
		}
	}

	c.output = text
	c.store = NewStore(res.Orders)
	c.rows = NewRegistry(c.surface, c.dispatch)
	for i := 0; i < c.store.Len(); i++ {
		h := c.rows.CreateRow(i)
		c.rows.Append(h)
		c.rows.Attach(h)
	}

	if c.corrupt {
		c.surface.BindAdd(nil)
	} else {
		c.surface.BindAdd(c.Add)
	}
}

func (c *Controller) clearRows() {
	if c.rows == nil {
		return
	}
	for _, h := range c.rows.Handles() {
		c.rows.Detach(h)
	}
	c.rows = NewRegistry(c.surface, c.dispatch)
}

func (c *Controller) render() error {
	if err := Sync(c.store, c.rows, c.surface); err != nil {
		c.log.Error("render sync failed", "error", err)
		return err
	}
	return nil
}

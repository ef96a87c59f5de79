// Package changeorder implements the change order field editor.
//
// The package keeps three collections in step for the lifetime of an editor
// session:
//
//   - Records: the ordered list of change orders held by [Store].
//   - Serialized state: the JSON text the host persists, produced by [Encode]
//     and read back by [Decode].
//   - Rows: one [RowHandle] per record, owned by a [Registry] and rendered on a
//     host-provided [Surface].
//
// # Lifecycle
//
// A [Controller] is driven by the host:
//
//	c := changeorder.New(changeorder.WithLogger(logger))
//	c.Initialize(fieldText, flush, surface)
//	c.Refresh()         // host asks for a re-render
//	out := c.Output()   // host collects the serialized value
//	c.Teardown()
//
// # Row identity
//
// Records have no id of their own; a record is whatever sits at index i.
// Rows are therefore addressed by handle, never by a captured index. Every
// intent a row emits carries its [RowHandle], and the controller resolves the
// handle to its current position with [Registry.IndexOf] at the moment the
// event arrives. Deleting a row shifts every later row down by one without any
// bookkeeping.
//
// # Corrupt input
//
// Text that cannot be decoded is replaced by an empty list, the operator is
// warned once through [Surface.Warn], and the add control stays unbound for
// the rest of the session so nothing is appended on top of bad data. The
// original text is still what [Controller.Output] reports until an edit
// replaces it.
//
// The controller is not safe for concurrent use. Hosts that receive events on
// several goroutines must serialize them.
package changeorder

package changeorder

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Status is the review state of a change order. The ordinal is what gets
// persisted, so the values must never be renumbered.
type Status int

const (
	StatusPending Status = iota
	StatusAccepted
	StatusRejected
)

// statusLabels are the fixed selector options, indexed by ordinal.
var statusLabels = [...]string{"Pending", "Accepted", "Rejected"}

// StatusLabels returns the selector options in ordinal order.
func StatusLabels() []string {
	out := make([]string, len(statusLabels))
	copy(out, statusLabels[:])
	return out
}

// Valid reports whether s is one of the three known states.
func (s Status) Valid() bool {
	return s >= StatusPending && s <= StatusRejected
}

func (s Status) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Status(%d)", int(s))
	}
	return statusLabels[s]
}

// ParseStatus converts a selector ordinal ("0", "1", "2") to a Status.
func ParseStatus(s string) (Status, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return StatusPending, fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	st := Status(n)
	if !st.Valid() {
		return StatusPending, fmt.Errorf("%w: %d", ErrInvalidStatus, n)
	}
	return st, nil
}

// Record is a single change order.
type Record struct {
	Amount float64 `json:"amount"`
	Status Status  `json:"status"`
}

// ParseAmount converts user input to an amount. Anything that is not a finite
// number, including the empty string, becomes 0.
func ParseAmount(text string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// FormatAmount renders an amount the way it is shown in the amount field:
// the shortest representation that parses back to the same value.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Store is the authoritative ordered list of change orders.
//
// Index arguments must come from a resolved row handle. An out-of-range index
// means the store and the row registry have drifted apart, which is a bug, so
// the mutators panic rather than return an error.
type Store struct {
	orders []Record
}

// NewStore returns a store holding a copy of orders.
func NewStore(orders []Record) *Store {
	s := &Store{orders: make([]Record, len(orders))}
	copy(s.orders, orders)
	return s
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.orders) }

// At returns the record at index i.
func (s *Store) At(i int) Record {
	s.checkIndex("At", i)
	return s.orders[i]
}

// Records returns a copy of all records in display order.
func (s *Store) Records() []Record {
	out := make([]Record, len(s.orders))
	copy(out, s.orders)
	return out
}

// Append adds r at the end and returns its index.
func (s *Store) Append(r Record) int {
	s.orders = append(s.orders, r)
	return len(s.orders) - 1
}

// RemoveAt deletes the record at index i. Later records move down by one.
func (s *Store) RemoveAt(i int) {
	s.checkIndex("RemoveAt", i)
	s.orders = append(s.orders[:i], s.orders[i+1:]...)
}

// SetAmount stores the parsed value of text at index i and returns it.
// Non-numeric text is stored as 0.
func (s *Store) SetAmount(i int, text string) float64 {
	s.checkIndex("SetAmount", i)
	v := ParseAmount(text)
	s.orders[i].Amount = v
	return v
}

// SetStatus sets the status at index i. st must be valid.
func (s *Store) SetStatus(i int, st Status) {
	s.checkIndex("SetStatus", i)
	if !st.Valid() {
		panic(fmt.Sprintf("changeorder: SetStatus(%d): invalid status %d", i, int(st)))
	}
	s.orders[i].Status = st
}

// Encode returns the serialized form of the current records.
func (s *Store) Encode() string {
	return Encode(s.orders)
}

func (s *Store) checkIndex(op string, i int) {
	if i < 0 || i >= len(s.orders) {
		panic(fmt.Sprintf("changeorder: %s: index %d out of range [0,%d)", op, i, len(s.orders)))
	}
}

package changeorder

// codec.go converts between the persisted field text and []Record.
//
// The wire format is fixed:
//
//	{"orders":[{"amount":100,"status":0},{"amount":-25.5,"status":2}]}
//
// Decoding is strict about shape (a JSON object, an array of objects, numeric
// amounts, integral statuses in 0..2, keys spelled exactly) but lenient about
// absence: a missing or null "orders" key, or a missing field in an entry,
// takes the zero value.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// OutputField is the name of the single output the host reads.
const OutputField = "OutputField"

// EmptyState is the text substituted when the host supplies no value.
const EmptyState = `{"orders": []}`

// DecodeResult is the outcome of decoding host-supplied text. When OK is false
// Orders is empty and Err describes what was wrong with the input.
type DecodeResult struct {
	Orders []Record
	OK     bool
	Err    error
}

type encodedState struct {
	Orders []Record `json:"orders"`
}

// Decode parses text into records. It never panics; malformed input yields a
// result with OK set to false and an error wrapping ErrCorruptState.
func Decode(text string) DecodeResult {
	if strings.TrimSpace(text) == "" {
		return DecodeResult{Orders: []Record{}, OK: true}
	}

	orders, err := decode(text)
	if err != nil {
		return DecodeResult{
			Orders: []Record{},
			Err:    fmt.Errorf("%w: %v", ErrCorruptState, err),
		}
	}
	return DecodeResult{Orders: orders, OK: true}
}

func decode(text string) ([]Record, error) {
	if !strings.HasPrefix(strings.TrimSpace(text), "{") {
		return nil, errors.New("state is not a JSON object")
	}

	var state map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &state); err != nil {
		return nil, err
	}
	raw, err := field(state, "orders")
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return []Record{}, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("orders: %w", err)
	}

	orders := make([]Record, 0, len(entries))
	for i, e := range entries {
		r, err := decodeOrder(e)
		if err != nil {
			return nil, fmt.Errorf("orders[%d]: %w", i, err)
		}
		orders = append(orders, r)
	}
	return orders, nil
}

func decodeOrder(raw json.RawMessage) (Record, error) {
	var r Record
	if isNull(raw) {
		return r, errors.New("null entry")
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return r, err
	}

	amount, err := field(obj, "amount")
	if err != nil {
		return r, err
	}
	if amount != nil {
		if err := json.Unmarshal(amount, &r.Amount); err != nil {
			return r, fmt.Errorf("amount: %w", err)
		}
	}

	status, err := field(obj, "status")
	if err != nil {
		return r, err
	}
	if status != nil {
		var st float64
		if err := json.Unmarshal(status, &st); err != nil {
			return r, fmt.Errorf("status: %w", err)
		}
		if st != math.Trunc(st) || st < float64(StatusPending) || st > float64(StatusRejected) {
			return r, fmt.Errorf("%w: %v", ErrInvalidStatus, st)
		}
		r.Status = Status(st)
	}
	return r, nil
}

// field returns the value stored under exactly key, or nil when it is absent
// or null. Keys are case sensitive; a key that differs from the expected one
// only by case is rejected rather than ignored, so data written under it is
// never silently dropped.
func field(obj map[string]json.RawMessage, key string) (json.RawMessage, error) {
	for k := range obj {
		if k != key && strings.EqualFold(k, key) {
			return nil, fmt.Errorf("key %q does not match %q", k, key)
		}
	}
	v, ok := obj[key]
	if !ok || isNull(v) {
		return nil, nil
	}
	return v, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Encode serializes records. It cannot fail: amounts that have no JSON form
// (NaN, ±Inf) are written as 0.
func Encode(orders []Record) string {
	out := encodedState{Orders: make([]Record, len(orders))}
	for i, r := range orders {
		if math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) {
			r.Amount = 0
		}
		out.Orders[i] = r
	}

	b, err := json.Marshal(out)
	if err != nil {
		panic(fmt.Sprintf("changeorder: encode: %v", err))
	}
	return string(b)
}

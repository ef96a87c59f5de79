package changeorder

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   []Record
		wantOK bool
	}{
		{name: "empty string", input: "", want: []Record{}, wantOK: true},
		{name: "whitespace", input: "  \n\t", want: []Record{}, wantOK: true},
		{name: "empty orders", input: `{"orders":[]}`, want: []Record{}, wantOK: true},
		{name: "default state", input: EmptyState, want: []Record{}, wantOK: true},
		{name: "missing orders key", input: `{}`, want: []Record{}, wantOK: true},
		{name: "null orders", input: `{"orders":null}`, want: []Record{}, wantOK: true},
		{
			name:   "single record",
			input:  `{"orders":[{"amount":100,"status":0}]}`,
			want:   []Record{{Amount: 100, Status: StatusPending}},
			wantOK: true,
		},
		{
			name:   "mixed records",
			input:  `{"orders":[{"amount":-25.5,"status":2},{"amount":0,"status":1}]}`,
			want:   []Record{{Amount: -25.5, Status: StatusRejected}, {Amount: 0, Status: StatusAccepted}},
			wantOK: true,
		},
		{
			name:   "missing fields default to zero",
			input:  `{"orders":[{}, {"status":1}, {"amount":7}]}`,
			want:   []Record{{}, {Status: StatusAccepted}, {Amount: 7}},
			wantOK: true,
		},
		{
			name:   "unknown keys ignored",
			input:  `{"orders":[{"amount":1,"status":0,"note":"x"}],"version":2}`,
			want:   []Record{{Amount: 1}},
			wantOK: true,
		},
		{name: "not json", input: "not json"},
		{name: "truncated", input: `{"orders":[{"amount":1`},
		{name: "top level array", input: `[{"amount":1,"status":0}]`},
		{name: "top level null", input: `null`},
		{name: "orders not array", input: `{"orders":{"amount":1}}`},
		{name: "string amount", input: `{"orders":[{"amount":"100","status":0}]}`},
		{name: "status out of range", input: `{"orders":[{"amount":1,"status":3}]}`},
		{name: "negative status", input: `{"orders":[{"amount":1,"status":-1}]}`},
		{name: "fractional status", input: `{"orders":[{"amount":1,"status":1.5}]}`},
		{name: "null entry", input: `{"orders":[null]}`},
		{name: "trailing data", input: `{"orders":[]} {"orders":[]}`},
		{name: "upper case orders key", input: `{"ORDERS":[{"amount":5,"status":1}]}`},
		{name: "mixed case entry keys", input: `{"orders":[{"Amount":5,"STATUS":1}]}`},
		{name: "case variant beside exact key", input: `{"orders":[],"Orders":[{"amount":5}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.input)
			require.Equal(t, tt.wantOK, got.OK)
			if !tt.wantOK {
				require.Empty(t, got.Orders)
				require.NotNil(t, got.Orders)
				require.True(t, errors.Is(got.Err, ErrCorruptState), "err = %v", got.Err)
				return
			}
			require.NoError(t, got.Err)
			require.Equal(t, tt.want, got.Orders)
		})
	}
}

func TestDecode_InvalidStatusIsWrapped(t *testing.T) {
	got := Decode(`{"orders":[{"amount":1,"status":9}]}`)
	require.False(t, got.OK)
	require.ErrorIs(t, got.Err, ErrInvalidStatus)
}

func TestEncode(t *testing.T) {
	require.Equal(t, `{"orders":[]}`, Encode(nil))
	require.Equal(t, `{"orders":[{"amount":100,"status":0}]}`, Encode([]Record{{Amount: 100}}))
	require.Equal(t,
		`{"orders":[{"amount":0,"status":0},{"amount":0,"status":0}]}`,
		Encode([]Record{{}, {}}),
	)
}

func TestEncode_NonFiniteAmountsBecomeZero(t *testing.T) {
	got := Encode([]Record{{Amount: math.NaN(), Status: StatusAccepted}, {Amount: math.Inf(-1)}})
	require.Equal(t, `{"orders":[{"amount":0,"status":1},{"amount":0,"status":0}]}`, got)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	collections := [][]Record{
		{},
		{{Amount: 100, Status: StatusPending}},
		{{Amount: -0.1, Status: StatusRejected}, {Amount: 1e21, Status: StatusAccepted}},
		{{Amount: 0.1 + 0.2}, {Amount: 123456789.987654321}, {Amount: -5e-324}},
		{{Amount: math.MaxFloat64, Status: StatusRejected}, {Amount: math.SmallestNonzeroFloat64}},
	}

	for _, c := range collections {
		res := Decode(Encode(c))
		require.True(t, res.OK, "decode(encode(%v)): %v", c, res.Err)
		require.Equal(t, c, res.Orders)
	}
}

package expr

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruthy(t *testing.T) {
	falsy := []any{nil, false, "", 0, int64(0), uint64(0), 0.0, json.Number("0")}
	for _, v := range falsy {
		assert.False(t, Truthy(v), "%#v", v)
	}

	truthy := []any{true, "no", 1, int64(-1), 0.1, json.Number("2"), map[string]any{}, []any{}}
	for _, v := range truthy {
		assert.True(t, Truthy(v), "%#v", v)
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"Lisbon", "Lisbon"},
		{true, "true"},
		{int64(42), "42"},
		{21.0, "21"},
		{21.5, "21.5"},
		{map[string]any{"temp": 21}, `{"temp":21}`},
		{[]any{"a", 1}, `["a",1]`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Text(tt.in))
	}
}

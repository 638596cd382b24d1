package devclient

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToUint32(t *testing.T) {
	tests := []struct {
		in   any
		want uint32
		ok   bool
	}{
		{float64(3), 3, true},
		{float64(3.5), 0, false},
		{float64(-1), 0, false},
		{uint8(7), 7, true},
		{uint16(0xFFFC), 0xFFFC, true},
		{uint64(1 << 40), 0, false},
		{int(12), 12, true},
		{int64(-3), 0, false},
		{json.Number("9"), 9, true},
		{json.Number("x"), 0, false},
		{"7", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := ToUint32(tt.in)
		assert.Equal(t, tt.ok, ok, "%#v", tt.in)
		assert.Equal(t, tt.want, got, "%#v", tt.in)
	}
}

func TestToIDList(t *testing.T) {
	ids, ok := ToIDList([]any{float64(0), float64(1), float64(0xFFFB)})
	assert.True(t, ok)
	assert.Equal(t, []uint32{0, 1, 0xFFFB}, ids)

	ids, ok = ToIDList(nil)
	assert.True(t, ok)
	assert.Empty(t, ids)

	ids, ok = ToIDList([]uint16{4, 5})
	assert.True(t, ok)
	assert.Equal(t, []uint32{4, 5}, ids)

	_, ok = ToIDList([]any{"x"})
	assert.False(t, ok)
	_, ok = ToIDList(7)
	assert.False(t, ok)
}

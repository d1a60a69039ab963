package resp_test

import (
	"testing"

	"github.com/eternalApril/moonsub/internal/resp"
	"github.com/stretchr/testify/assert"
)

func TestValue_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b resp.Value
		want bool
	}{
		{"same integers", resp.MakeInteger(1), resp.MakeInteger(1), true},
		{"different integers", resp.MakeInteger(1), resp.MakeInteger(2), false},
		{"simple vs bulk", resp.MakeSimpleString("a"), resp.MakeBulkString("a"), false},
		{"nil vs empty slice array", resp.MakeArray(nil), resp.Value{Type: resp.TypeArray}, true},
		{"null vs empty array", resp.MakeNilArray(), resp.MakeArray(nil), false},
		{"null vs empty bulk", resp.MakeNilBulkString(), resp.MakeBulkString(""), false},
		{
			"order matters",
			resp.MakeArray([]resp.Value{resp.MakeInteger(1), resp.MakeInteger(2)}),
			resp.MakeArray([]resp.Value{resp.MakeInteger(2), resp.MakeInteger(1)}),
			false,
		},
		{
			"nested equal",
			resp.MakeArray([]resp.Value{resp.MakeArray([]resp.Value{resp.MakeBulkString("x")})}),
			resp.MakeArray([]resp.Value{resp.MakeArray([]resp.Value{resp.MakeBulkString("x")})}),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want, tt.b.Equal(tt.a))
		})
	}
}

func TestValue_Text(t *testing.T) {
	s, ok := resp.MakeBulkString("chan").Text()
	assert.True(t, ok)
	assert.Equal(t, "chan", s)

	s, ok = resp.MakeSimpleString("PONG").Text()
	assert.True(t, ok)
	assert.Equal(t, "PONG", s)

	_, ok = resp.MakeNilBulkString().Text()
	assert.False(t, ok)

	_, ok = resp.MakeInteger(1).Text()
	assert.False(t, ok)

	_, ok = resp.MakeError("ERR").Text()
	assert.False(t, ok)
}

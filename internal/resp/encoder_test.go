package resp

import (
	"bufio"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeString(t *testing.T, v Value) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, v))
	return buf.String()
}

func TestEncodeScalars(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"ok", OK(), "+OK\r\n"},
		{"simple", Simple("PONG"), "+PONG\r\n"},
		{"error", Err("ERR wrong"), "-ERR wrong\r\n"},
		{"formatted error", Errf("ERR unknown command '%s'", "FOO"), "-ERR unknown command 'FOO'\r\n"},
		{"integer", Int(-42), ":-42\r\n"},
		{"true", Bool(true), ":1\r\n"},
		{"false", Bool(false), ":0\r\n"},
		{"bulk", Bulk("hi"), "$2\r\nhi\r\n"},
		{"empty bulk", Bulk(""), "$0\r\n\r\n"},
		{"null bulk", NullBulk(), "$-1\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, encodeString(t, tt.v))
		})
	}
}

func TestEncodeArray(t *testing.T) {
	require.Equal(t, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$1\r\nv\r\n",
		encodeString(t, BulkArray([]string{"SET", "k", "v"})))
	require.Equal(t, "*0\r\n", encodeString(t, BulkArray(nil)))
	require.Equal(t, "*-1\r\n", encodeString(t, Value{Type: Array, IsNull: true}))
}

func TestEncodeNestedArray(t *testing.T) {
	arr := Value{Type: Array, Array: []Value{
		OK(),
		Int(42),
		Bulk("x"),
		BulkArray([]string{"y"}),
	}}
	require.Equal(t, "*4\r\n+OK\r\n:42\r\n$1\r\nx\r\n*1\r\n$1\r\ny\r\n", encodeString(t, arr))
}

func TestEncodeUnknownType(t *testing.T) {
	var buf bytes.Buffer
	require.Error(t, Encode(&buf, Value{Type: Type(99)}))
	require.Zero(t, buf.Len())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestEncodeWriteError(t *testing.T) {
	require.EqualError(t, Encode(failingWriter{}, OK()), "closed")
}

func TestEncodeThenParse(t *testing.T) {
	in := Value{Type: Array, Array: []Value{Bulk("member"), Int(3), NullBulk(), Err("WRONGTYPE x")}}
	r := bufio.NewReader(bytes.NewReader([]byte(encodeString(t, in))))
	out, err := Parse(r)
	require.NoError(t, err)
	require.Equal(t, in, out)
}

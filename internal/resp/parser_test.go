package resp

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newR(b []byte) *bufio.Reader { return bufio.NewReader(bytes.NewReader(b)) }

func TestParseSimpleTypes(t *testing.T) {
	r := newR([]byte("+OK\r\n-ERR wrong type\r\n:123\r\n:-7\r\n"))

	v, err := Parse(r)
	require.NoError(t, err)
	require.Equal(t, Value{Type: SimpleString, Str: "OK"}, v)

	v, err = Parse(r)
	require.NoError(t, err)
	require.Equal(t, Value{Type: Error, Str: "ERR wrong type"}, v)

	v, err = Parse(r)
	require.NoError(t, err)
	require.Equal(t, Value{Type: Integer, Int: 123}, v)

	v, err = Parse(r)
	require.NoError(t, err)
	require.Equal(t, int64(-7), v.Int)
}

func TestParseBulkStrings(t *testing.T) {
	r := newR([]byte("$5\r\nhello\r\n$-1\r\n$0\r\n\r\n"))

	v, err := Parse(r)
	require.NoError(t, err)
	require.Equal(t, Value{Type: BulkString, Str: "hello"}, v)

	v, err = Parse(r)
	require.NoError(t, err)
	require.True(t, v.IsNull)

	v, err = Parse(r)
	require.NoError(t, err)
	require.False(t, v.IsNull)
	require.Equal(t, "", v.Str)
}

func TestParseArrays(t *testing.T) {
	r := newR([]byte("*3\r\n+OK\r\n:42\r\n$2\r\nhi\r\n*-1\r\n"))

	v, err := Parse(r)
	require.NoError(t, err)
	require.Equal(t, Array, v.Type)
	require.Len(t, v.Array, 3)
	require.Equal(t, "OK", v.Array[0].Str)
	require.Equal(t, int64(42), v.Array[1].Int)
	require.Equal(t, "hi", v.Array[2].Str)

	v, err = Parse(r)
	require.NoError(t, err)
	require.Equal(t, Value{Type: Array, IsNull: true}, v)
}

func TestStrictCRLF(t *testing.T) {
	_, err := Parse(newR([]byte("+OK\n")))
	require.ErrorIs(t, err, ErrBadLineEnding)

	_, err = Parse(newR([]byte("$5\r\nhello\n\n")))
	require.ErrorIs(t, err, ErrBadLineEnding)
}

func TestParseUnknownPrefix(t *testing.T) {
	_, err := Parse(newR([]byte("?x\r\n")))
	require.ErrorIs(t, err, ErrUnknownPrefix)
}

func TestReadCommand(t *testing.T) {
	r := newR(EncodeCommand("SET", "k", "v"))
	words, err := ReadCommand(r, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"SET", "k", "v"}, words)

	_, err = ReadCommand(r, 0)
	require.ErrorIs(t, err, io.EOF)
}

func TestReadCommandInline(t *testing.T) {
	r := newR([]byte("PING\r\nECHO  hello \nTYPE k"))

	words, err := ReadCommand(r, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"PING"}, words)

	words, err = ReadCommand(r, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"ECHO", "hello"}, words)

	// EOF without a newline still yields the command
	words, err = ReadCommand(r, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"TYPE", "k"}, words)
}

func TestReadCommandPipeline(t *testing.T) {
	var req bytes.Buffer
	req.Write(EncodeCommand("DEL", "k"))
	req.Write(EncodeCommand("RPUSH", "k", "a", "b"))
	req.Write(EncodeCommand("LRANGE", "k", "0", "-1"))
	r := newR(req.Bytes())

	want := [][]string{{"DEL", "k"}, {"RPUSH", "k", "a", "b"}, {"LRANGE", "k", "0", "-1"}}
	for _, w := range want {
		words, err := ReadCommand(r, 0)
		require.NoError(t, err)
		require.Equal(t, w, words)
	}
}

type shortReader struct {
	b      []byte
	pos, n int
}

func (s *shortReader) Read(p []byte) (int, error) {
	if s.pos >= len(s.b) {
		return 0, io.EOF
	}
	lim := s.pos + s.n
	if lim > len(s.b) {
		lim = len(s.b)
	}
	c := copy(p, s.b[s.pos:lim])
	s.pos += c
	return c, nil
}

func TestShortReads(t *testing.T) {
	big := strings.Repeat("x", 4096)
	req := append(EncodeCommand("SET", "key", big), EncodeCommand("GET", "key")...)
	r := bufio.NewReader(&shortReader{b: req, n: 7})

	words, err := ReadCommand(r, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"SET", "key", big}, words)

	words, err = ReadCommand(r, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"GET", "key"}, words)
}

func TestReadCommandInvalidFrames(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"negative bulk length", "*2\r\n$3\r\nSET\r\n$-2\r\n", ErrInvalidBulkLen},
		{"empty array", "*0\r\n", ErrEmptyArray},
		{"null array", "*-1\r\n", ErrEmptyArray},
		{"non-bulk element", "*1\r\n:1\r\n", ErrExpectedBulk},
		{"null command name", "*1\r\n$-1\r\n", ErrExpectedBulk},
		{"truncated bulk", "*1\r\n$5\r\nab", ErrPartialFrame},
		{"blank inline", "   \r\n", ErrUnknownPrefix},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadCommand(newR([]byte(tt.input)), 0)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReadCommandArrayLimit(t *testing.T) {
	_, err := ReadCommand(newR([]byte("*1001\r\n")), 1000)
	require.ErrorIs(t, err, ErrTooLarge)

	_, err = ReadCommand(newR([]byte("a b c\r\n")), 2)
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestNullBulkArgumentBecomesEmpty(t *testing.T) {
	words, err := ReadCommand(newR([]byte("*2\r\n$3\r\nFOO\r\n$-1\r\n")), 0)
	require.NoError(t, err)
	require.Equal(t, []string{"FOO", ""}, words)
}

package resp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	ErrUnknownPrefix   = errors.New("resp: unknown prefix")
	ErrBadLineEnding   = errors.New("resp: bad line ending, expected CRLF")
	ErrInvalidArrayLen = errors.New("resp: invalid array length")
	ErrInvalidBulkLen  = errors.New("resp: invalid bulk string length")
	ErrEmptyArray      = errors.New("resp: empty array")
	ErrExpectedBulk    = errors.New("resp: expected bulk string")
	ErrTooLarge        = errors.New("resp: frame too large")
	ErrPartialFrame    = errors.New("resp: partial frame")
)

// Limits

const (
	MaxBulkLen        = 512 * 1024 * 1024
	DefaultMaxArrayEl = 1024 * 1024
)

// Parse reads one RESP value of any kind
func Parse(r *bufio.Reader) (Value, error) {
	b, err := r.ReadByte()
	if err != nil {
		return Value{}, err
	}
	switch b {
	case '+', '-', ':':
		line, err := readLineCRLF(r)
		if err != nil {
			return Value{}, err
		}
		switch b {
		case '+':
			return Value{Type: SimpleString, Str: string(line)}, nil
		case '-':
			return Value{Type: Error, Str: string(line)}, nil
		}
		n, err := parseInt(line)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: Integer, Int: n}, nil
	case '$':
		s, isNull, err := readBulkBody(r)
		if err != nil {
			return Value{}, err
		}
		return Value{Type: BulkString, Str: s, IsNull: isNull}, nil
	case '*':
		n, err := readLength(r, ErrInvalidArrayLen)
		if err != nil {
			return Value{}, err
		}
		if n == -1 {
			return Value{Type: Array, IsNull: true}, nil
		}
		arr := make([]Value, n)
		for i := range arr {
			if arr[i], err = Parse(r); err != nil {
				return Value{}, err
			}
		}
		return Value{Type: Array, Array: arr}, nil
	default:
		return Value{}, ErrUnknownPrefix
	}
}

// ReadCommand reads one client request and returns its words, the command
// name first. Requests are arrays of bulk strings; a line without a RESP
// prefix is accepted as an inline command split on whitespace. A null bulk
// argument reads as the empty string.
func ReadCommand(r *bufio.Reader, maxArray int) ([]string, error) {
	if maxArray <= 0 {
		maxArray = DefaultMaxArrayEl
	}

	b, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if b != '*' {
		if err := r.UnreadByte(); err != nil {
			return nil, err
		}
		return readInline(r, maxArray)
	}

	n, err := readLength(r, ErrInvalidArrayLen)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, ErrEmptyArray
	}
	if n > maxArray {
		return nil, ErrTooLarge
	}

	words := make([]string, n)
	for i := range words {
		if b, err = r.ReadByte(); err != nil {
			return nil, partial(err)
		}
		if b != '$' {
			return nil, ErrExpectedBulk
		}
		s, isNull, err := readBulkBody(r)
		if err != nil {
			return nil, err
		}
		if isNull && i == 0 {
			return nil, ErrExpectedBulk
		}
		words[i] = s
	}
	return words, nil
}

func readInline(r *bufio.Reader, maxArray int) ([]string, error) {
	line, err := r.ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return nil, err
	}
	line = bytes.TrimRight(line, "\r\n")
	words := strings.Fields(string(line))
	if len(words) == 0 {
		return nil, ErrUnknownPrefix
	}
	if len(words) > maxArray {
		return nil, ErrTooLarge
	}
	return words, nil
}

// Helpers

func readLineCRLF(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, partial(err)
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return nil, ErrBadLineEnding
	}
	return line[:len(line)-2], nil
}

func parseInt(b []byte) (int64, error) {
	digits := b
	if len(digits) > 0 && digits[0] == '-' {
		digits = digits[1:]
	}
	if len(digits) == 0 {
		return 0, fmt.Errorf("resp: invalid integer %q", b)
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("resp: invalid integer %q", b)
		}
	}
	return strconv.ParseInt(string(b), 10, 64)
}

// readLength reads the length line following a '*' or '$' prefix. -1 is the
// only negative length allowed and marks a null value.
func readLength(r *bufio.Reader, invalid error) (int, error) {
	line, err := readLineCRLF(r)
	if err != nil {
		return 0, err
	}
	n, err := parseInt(line)
	if err != nil {
		return 0, err
	}
	if n < -1 {
		return 0, invalid
	}
	if n > MaxBulkLen {
		return 0, ErrTooLarge
	}
	return int(n), nil
}

// readBulkBody reads a bulk string whose '$' prefix was already consumed
func readBulkBody(r *bufio.Reader) (string, bool, error) {
	n, err := readLength(r, ErrInvalidBulkLen)
	if err != nil {
		return "", false, err
	}
	if n == -1 {
		return "", true, nil
	}
	buf := make([]byte, n+2)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", false, partial(err)
	}
	if buf[n] != '\r' || buf[n+1] != '\n' {
		return "", false, ErrBadLineEnding
	}
	return string(buf[:n]), false, nil
}

func partial(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrPartialFrame
	}
	return err
}

// EncodeCommand renders words as a request array of bulk strings
func EncodeCommand(words ...string) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "*%d\r\n", len(words))
	for _, w := range words {
		fmt.Fprintf(&b, "$%d\r\n%s\r\n", len(w), w)
	}
	return b.Bytes()
}

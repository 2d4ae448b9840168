package resp

import (
	"fmt"
	"io"
	"strconv"
	"sync"
)

type Type int

const (
	SimpleString Type = iota
	Error
	Integer
	BulkString
	Array
)

// Value is one RESP frame
type Value struct {
	Type   Type
	Str    string
	Int    int64
	Array  []Value
	IsNull bool
}

// Reply constructors

func OK() Value             { return Value{Type: SimpleString, Str: "OK"} }
func Simple(s string) Value { return Value{Type: SimpleString, Str: s} }
func Int(n int64) Value     { return Value{Type: Integer, Int: n} }
func Bulk(s string) Value   { return Value{Type: BulkString, Str: s} }
func NullBulk() Value       { return Value{Type: BulkString, IsNull: true} }
func Err(msg string) Value  { return Value{Type: Error, Str: msg} }

func Errf(format string, args ...any) Value {
	return Value{Type: Error, Str: fmt.Sprintf(format, args...)}
}

// Bool replies 1 or 0
func Bool(b bool) Value {
	if b {
		return Int(1)
	}
	return Int(0)
}

// BulkArray replies with an array of bulk strings
func BulkArray(items []string) Value {
	arr := make([]Value, len(items))
	for i, s := range items {
		arr[i] = Bulk(s)
	}
	return Value{Type: Array, Array: arr}
}

var bufPool = sync.Pool{New: func() any { b := make([]byte, 0, 4096); return &b }}

// Encode writes v to w in a single Write call
func Encode(w io.Writer, v Value) error {
	p := bufPool.Get().(*[]byte)
	buf, err := AppendValue((*p)[:0], v)
	if err == nil {
		_, err = w.Write(buf)
	}
	if cap(buf) <= 1<<20 {
		*p = buf[:0]
		bufPool.Put(p)
	}
	return err
}

// AppendValue appends the wire form of v to dst
func AppendValue(dst []byte, v Value) ([]byte, error) {
	switch v.Type {
	case SimpleString:
		return appendLine(dst, '+', v.Str), nil
	case Error:
		return appendLine(dst, '-', v.Str), nil
	case Integer:
		dst = append(dst, ':')
		dst = strconv.AppendInt(dst, v.Int, 10)
		return append(dst, '\r', '\n'), nil
	case BulkString:
		if v.IsNull {
			return append(dst, "$-1\r\n"...), nil
		}
		dst = appendLen(dst, '$', len(v.Str))
		dst = append(dst, v.Str...)
		return append(dst, '\r', '\n'), nil
	case Array:
		if v.IsNull {
			return append(dst, "*-1\r\n"...), nil
		}
		dst = appendLen(dst, '*', len(v.Array))
		var err error
		for _, el := range v.Array {
			if dst, err = AppendValue(dst, el); err != nil {
				return dst, err
			}
		}
		return dst, nil
	default:
		return dst, fmt.Errorf("resp: unknown type %d", v.Type)
	}
}

func appendLine(dst []byte, prefix byte, s string) []byte {
	dst = append(dst, prefix)
	dst = append(dst, s...)
	return append(dst, '\r', '\n')
}

func appendLen(dst []byte, prefix byte, n int) []byte {
	dst = append(dst, prefix)
	dst = strconv.AppendInt(dst, int64(n), 10)
	return append(dst, '\r', '\n')
}

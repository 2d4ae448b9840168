package snapshot

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/hdt3213/rdb/core"
	"github.com/hdt3213/rdb/encoder"
	"github.com/hdt3213/rdb/model"
)

// Writer encodes native structures as RDB objects
type Writer struct {
	buf *bufio.Writer
	enc *core.Encoder
}

// NewWriter writes the RDB magic and version to w
func NewWriter(w io.Writer) (*Writer, error) {
	buf := bufio.NewWriter(w)
	enc := encoder.NewEncoder(buf)
	if err := enc.WriteHeader(); err != nil {
		return nil, fmt.Errorf("write rdb header: %w", err)
	}
	return &Writer{buf: buf, enc: enc}, nil
}

// WriteHeader writes aux fields and the database selector with size hints.
// An empty snapshot has neither.
func (w *Writer) WriteHeader(keyCount, ttlCount uint64) error {
	if keyCount == 0 {
		return nil
	}
	aux := map[string]string{
		"redis-ver":    "7.0.0",
		"redis-bits":   "64",
		"ctime":        fmt.Sprint(time.Now().Unix()),
		"aof-preamble": "0",
	}
	names := make([]string, 0, len(aux))
	for k := range aux {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if err := w.enc.WriteAux(k, aux[k]); err != nil {
			return err
		}
	}
	return w.enc.WriteDBHeader(0, keyCount, ttlCount)
}

// WriteEnd writes the EOF marker and checksum, then flushes
func (w *Writer) WriteEnd() error {
	if err := w.enc.WriteEnd(); err != nil {
		return err
	}
	return w.buf.Flush()
}

func (w *Writer) WriteString(key, value string, exp time.Time) error {
	return w.enc.WriteStringObject(key, []byte(value), ttlOption(exp)...)
}

func (w *Writer) WriteList(key string, values []string, exp time.Time) error {
	return w.enc.WriteListObject(key, toBytes(values), ttlOption(exp)...)
}

func (w *Writer) WriteSet(key string, members []string, exp time.Time) error {
	return w.enc.WriteSetObject(key, toBytes(members), ttlOption(exp)...)
}

func (w *Writer) WriteHash(key string, fields map[string]string, exp time.Time) error {
	m := make(map[string][]byte, len(fields))
	for k, v := range fields {
		m[k] = []byte(v)
	}
	return w.enc.WriteHashMapObject(key, m, ttlOption(exp)...)
}

func (w *Writer) WriteZSet(key string, entries []*model.ZSetEntry, exp time.Time) error {
	return w.enc.WriteZSetObject(key, entries, ttlOption(exp)...)
}

// ttlOption carries the absolute expiry in unix milliseconds, or nothing for persistent keys
func ttlOption(exp time.Time) []interface{} {
	if exp.IsZero() {
		return nil
	}
	return []interface{}{encoder.WithTTL(uint64(exp.UnixMilli()))}
}

func toBytes(values []string) [][]byte {
	out := make([][]byte, len(values))
	for i, v := range values {
		out[i] = []byte(v)
	}
	return out
}

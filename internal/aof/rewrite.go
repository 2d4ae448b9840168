package aof

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"typedkv/internal/logger"
	"typedkv/internal/resp"
	"typedkv/internal/store"
)

// RewritePolicy decides when the log has grown enough to be compacted
type RewritePolicy struct {
	// MinSize is the smallest file that is ever rewritten
	MinSize int64
	// Percentage is the growth over the size after the last rewrite that triggers a new one
	Percentage int
}

func (p RewritePolicy) withDefaults() RewritePolicy {
	if p.MinSize <= 0 {
		p.MinSize = 64 * 1024 * 1024
	}
	if p.Percentage <= 0 {
		p.Percentage = 100
	}
	return p
}

// ShouldRewrite reports whether a file of size bytes, base bytes after the
// last rewrite, is due for compaction
func (p RewritePolicy) ShouldRewrite(size, base int64) bool {
	if size < p.MinSize {
		return false
	}
	growth := size - base
	if growth <= 0 {
		return false
	}
	if base == 0 {
		return true
	}
	return growth*100/base >= int64(p.Percentage)
}

// Rewrite replaces the log with the shortest command sequence that rebuilds
// db. Callers must keep write commands from running until it returns.
func (w *Writer) Rewrite(db store.DataStore) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return os.ErrClosed
	}
	start := time.Now()

	tmp, err := os.CreateTemp(filepath.Dir(w.path), filepath.Base(w.path)+".rewrite-*")
	if err != nil {
		return fmt.Errorf("failed to create rewrite file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	bw := bufio.NewWriterSize(tmp, bufferSize)
	keys, err := dump(bw, db)
	if err == nil {
		err = bw.Flush()
	}
	if err == nil {
		err = tmp.Sync()
	}
	if err != nil {
		cleanup()
		return fmt.Errorf("failed to write rewrite file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close rewrite file: %w", err)
	}

	// drop what the old file still buffers; the dump already holds it
	w.buf.Reset(w.f)
	if err := w.f.Close(); err != nil {
		logger.Warnf("Closing old aof failed: %v", err)
	}
	if err := os.Rename(tmpPath, w.path); err != nil {
		_ = os.Remove(tmpPath)
		return w.reopen(fmt.Errorf("failed to replace aof: %w", err))
	}
	if err := w.reopen(nil); err != nil {
		return err
	}

	w.baseSize = w.size
	logger.Infof("Rewrote %s with %d keys (%d bytes) in %s", w.path, keys, w.size, time.Since(start))
	return nil
}

// reopen opens the log for appending again and returns cause, or the open error
func (w *Writer) reopen(cause error) error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		w.closed = true
		return errors.Join(cause, fmt.Errorf("failed to reopen aof: %w", err))
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		w.closed = true
		return errors.Join(cause, fmt.Errorf("failed to stat aof: %w", err))
	}
	w.f = f
	w.buf.Reset(f)
	w.size = st.Size()
	w.dirty = false
	return cause
}

// MaybeRewrite rewrites the log when the policy says it is due
func (w *Writer) MaybeRewrite(db store.DataStore) (bool, error) {
	w.mu.Lock()
	due := !w.closed && w.policy.ShouldRewrite(w.size, w.baseSize)
	w.mu.Unlock()

	if !due {
		return false, nil
	}
	return true, w.Rewrite(db)
}

// RunRewrites checks the policy every interval until ctx is done. exclusive
// runs its argument while no write command executes.
func (w *Writer) RunRewrites(ctx context.Context, interval time.Duration, db store.DataStore, exclusive func(func() error) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := exclusive(func() error {
				_, err := w.MaybeRewrite(db)
				return err
			})
			if err != nil {
				logger.Errorf("AOF rewrite failed: %v", err)
			}
		}
	}
}

// dump writes commands recreating every key of db and returns how many keys it wrote
func dump(bw *bufio.Writer, db store.DataStore) (int, error) {
	keys := db.Keys()
	sort.Strings(keys)

	written := 0
	for _, key := range keys {
		cmds, err := keyCommands(db, key)
		if err != nil {
			return written, err
		}
		if len(cmds) == 0 {
			continue
		}
		if exp, ok := db.Expiration(key); ok {
			cmds = append(cmds, []string{"PEXPIREAT", key, strconv.FormatInt(exp.UnixMilli(), 10)})
		}
		for _, c := range cmds {
			if _, err := bw.Write(resp.EncodeCommand(c...)); err != nil {
				return written, err
			}
		}
		written++
	}
	return written, nil
}

func keyCommands(db store.DataStore, key string) ([][]string, error) {
	var err error
	switch db.GetDataType(key) {
	case store.TypeString:
		var (
			v  string
			ok bool
		)
		if v, ok, err = db.Get(key); ok {
			return [][]string{{"SET", key, v}}, nil
		}
	case store.TypeList:
		var l *store.List
		if l, err = db.GetList(key); l != nil {
			if values := l.LRange(0, -1); len(values) > 0 {
				return [][]string{append([]string{"RPUSH", key}, values...)}, nil
			}
		}
	case store.TypeSet:
		var s *store.Set
		if s, err = db.GetSet(key); s != nil {
			if members := s.SMembers(); len(members) > 0 {
				sort.Strings(members)
				return [][]string{append([]string{"SADD", key}, members...)}, nil
			}
		}
	case store.TypeHash:
		var h *store.Hash
		if h, err = db.GetHash(key); h != nil {
			fields := h.HGetAll()
			if len(fields) == 0 {
				return nil, nil
			}
			names := make([]string, 0, len(fields))
			for f := range fields {
				names = append(names, f)
			}
			sort.Strings(names)
			args := []string{"HSET", key}
			for _, f := range names {
				args = append(args, f, fields[f])
			}
			return [][]string{args}, nil
		}
	case store.TypeSortedSet:
		var z *store.SortedSet
		if z, err = db.GetSortedSet(key); z != nil {
			entries := z.ZRange(0, -1)
			if len(entries) == 0 {
				return nil, nil
			}
			args := []string{"ZADD", key}
			for _, e := range entries {
				args = append(args, strconv.FormatFloat(e.Score, 'f', -1, 64), e.Member)
			}
			return [][]string{args}, nil
		}
	}
	if errors.Is(err, store.ErrWrongType) {
		// replaced since GetDataType
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dump %q: %w", key, err)
	}
	// expired or deleted since Keys
	return nil, nil
}

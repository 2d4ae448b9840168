package aof

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"typedkv/internal/logger"
	"typedkv/internal/resp"
)

const bufferSize = 64 * 1024

// SyncMode controls when appended commands reach the disk
type SyncMode int

const (
	// Always fsyncs after every command
	Always SyncMode = iota
	// EverySec flushes and fsyncs once per second in the background
	EverySec
	// No flushes the buffer after every command and leaves fsync to the OS
	No
)

func (m SyncMode) String() string {
	switch m {
	case Always:
		return "always"
	case EverySec:
		return "everysec"
	case No:
		return "no"
	default:
		return "unknown"
	}
}

// ParseSyncMode parses the appendfsync names always, everysec and no
func ParseSyncMode(s string) (SyncMode, error) {
	switch strings.ToLower(s) {
	case "always":
		return Always, nil
	case "everysec":
		return EverySec, nil
	case "no":
		return No, nil
	default:
		return 0, fmt.Errorf("unknown aof fsync mode %q (always, everysec, no)", s)
	}
}

// Writer appends write commands to an append-only file
type Writer struct {
	path   string
	mode   SyncMode
	policy RewritePolicy

	mu       sync.Mutex
	f        *os.File
	buf      *bufio.Writer
	size     int64
	baseSize int64
	dirty    bool
	closed   bool

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewWriter opens path for appending, creating it when missing
func NewWriter(path string, mode SyncMode, policy RewritePolicy) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open aof: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat aof: %w", err)
	}

	w := &Writer{
		path:     path,
		mode:     mode,
		policy:   policy.withDefaults(),
		f:        f,
		buf:      bufio.NewWriterSize(f, bufferSize),
		size:     st.Size(),
		baseSize: st.Size(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	if mode == EverySec {
		go w.backgroundFsync()
	} else {
		close(w.done)
	}

	logger.Infof("Appending commands to %s (fsync %s)", path, mode)
	return w, nil
}

// Log appends one executed write command. Relative expirations are
// converted to absolute ones so a replay restores the same deadline.
func (w *Writer) Log(words []string) error {
	if len(words) == 0 {
		return nil
	}
	cmds := translate(words, time.Now())

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return os.ErrClosed
	}
	for _, c := range cmds {
		n, err := w.buf.Write(resp.EncodeCommand(c...))
		w.size += int64(n)
		if err != nil {
			return fmt.Errorf("failed to append to aof: %w", err)
		}
	}
	w.dirty = true

	switch w.mode {
	case Always:
		return w.syncLocked()
	case No:
		return w.buf.Flush()
	}
	return nil
}

// translate rewrites commands whose effect depends on the time they ran
func translate(words []string, now time.Time) [][]string {
	name := strings.ToUpper(words[0])

	switch name {
	case "EXPIRE", "PEXPIRE":
		if len(words) != 3 {
			break
		}
		n, err := strconv.ParseInt(words[2], 10, 64)
		if err != nil {
			break
		}
		unit := time.Millisecond
		if name == "EXPIRE" {
			unit = time.Second
		}
		at := now.Add(time.Duration(n) * unit).UnixMilli()
		return [][]string{{"PEXPIREAT", words[1], strconv.FormatInt(at, 10)}}

	case "SET":
		if len(words) != 5 {
			break
		}
		n, err := strconv.ParseInt(words[4], 10, 64)
		if err != nil {
			break
		}
		unit := time.Millisecond
		if strings.EqualFold(words[3], "EX") {
			unit = time.Second
		}
		at := now.Add(time.Duration(n) * unit).UnixMilli()
		return [][]string{
			{"SET", words[1], words[2]},
			{"PEXPIREAT", words[1], strconv.FormatInt(at, 10)},
		}
	}
	return [][]string{words}
}

// Sync flushes buffered commands and fsyncs the file
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.syncLocked()
}

func (w *Writer) syncLocked() error {
	if w.closed || !w.dirty {
		return nil
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush aof: %w", err)
	}
	if err := w.f.Sync(); err != nil {
		return fmt.Errorf("failed to sync aof: %w", err)
	}
	w.dirty = false
	return nil
}

func (w *Writer) backgroundFsync() {
	defer close(w.done)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := w.Sync(); err != nil {
				logger.Errorf("Background aof fsync failed: %v", err)
			}
		case <-w.stop:
			return
		}
	}
}

// Size returns the file size including buffered commands
func (w *Writer) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Path returns the file the writer appends to
func (w *Writer) Path() string { return w.path }

// Close syncs outstanding commands and closes the file
func (w *Writer) Close() error {
	w.closeOnce.Do(func() {
		close(w.stop)
		<-w.done

		w.mu.Lock()
		defer w.mu.Unlock()
		w.dirty = true
		err := w.syncLocked()
		w.closed = true
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
		w.closeErr = err
	})
	return w.closeErr
}

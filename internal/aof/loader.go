package aof

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"typedkv/internal/logger"
	"typedkv/internal/resp"
)

// ReplayResult describes a finished replay
type ReplayResult struct {
	Commands int
	// ValidSize is the offset just past the last complete command
	ValidSize int64
	// Truncated is set when the file ends in the middle of a command
	Truncated bool
}

// ReplayFunc executes one logged command
type ReplayFunc func(words []string) error

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Replay feeds every command in the log at path to fn. A command cut short
// at the end of the file, as left by a crash mid-append, ends the replay
// without error; see ReplayResult.Truncated. Errors opening the file wrap
// the os error, so a missing log matches os.ErrNotExist.
func Replay(path string, fn ReplayFunc) (ReplayResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReplayResult{}, fmt.Errorf("failed to open aof: %w", err)
	}
	defer f.Close()

	return replay(f, fn)
}

func replay(r io.Reader, fn ReplayFunc) (ReplayResult, error) {
	var result ReplayResult
	cr := &countingReader{r: r}
	reader := bufio.NewReader(cr)

	for {
		if _, err := reader.Peek(1); err != nil {
			if errors.Is(err, io.EOF) {
				return result, nil
			}
			return result, fmt.Errorf("failed to read aof: %w", err)
		}

		words, err := resp.ReadCommand(reader, 0)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, resp.ErrPartialFrame) {
				result.Truncated = true
				logger.Warnf("AOF ends with a partial command after %d commands (%d valid bytes)", result.Commands, result.ValidSize)
				return result, nil
			}
			return result, fmt.Errorf("invalid aof at offset %d: %w", result.ValidSize, err)
		}

		if err := fn(words); err != nil {
			return result, fmt.Errorf("failed to replay command %d (%s): %w", result.Commands+1, words[0], err)
		}
		result.Commands++
		result.ValidSize = cr.n - int64(reader.Buffered())
	}
}

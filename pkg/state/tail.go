package state

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

const DefaultTailBytes = 2 << 20

// TailLines returns up to n trailing lines of path, reading at most maxBytes
// from the end of the file.
func TailLines(path string, n int, maxBytes int64) ([]string, error) {
	lines, _, err := tail(path, n, maxBytes, false)
	return lines, err
}

// TailCompleteLines is TailLines restricted to newline-terminated lines. It
// also returns the offset just past the last returned newline, where a
// follower should continue reading.
func TailCompleteLines(path string, n int, maxBytes int64) ([]string, int64, error) {
	return tail(path, n, maxBytes, true)
}

func tail(path string, n int, maxBytes int64, completeOnly bool) ([]string, int64, error) {
	if path == "" {
		return nil, 0, errors.New("missing path")
	}
	if n <= 0 {
		n = 20
	}
	if maxBytes <= 0 {
		maxBytes = DefaultTailBytes
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, errors.Wrap(err, "open")
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return nil, 0, errors.Wrap(err, "stat")
	}
	size := info.Size()
	start := int64(0)
	if size > maxBytes {
		start = size - maxBytes
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return nil, 0, errors.Wrap(err, "seek")
	}
	b, err := io.ReadAll(io.LimitReader(f, size-start))
	if err != nil {
		return nil, 0, errors.Wrap(err, "read")
	}

	end := start + int64(len(b))
	if completeOnly {
		i := bytes.LastIndexByte(b, '\n')
		b = b[:i+1]
		end = start + int64(i+1)
	}
	if start > 0 {
		// drop the partial first line
		if i := bytes.IndexByte(b, '\n'); i >= 0 && i+1 < len(b) {
			b = b[i+1:]
		}
	}

	lines := strings.Split(string(b), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) > n {
		lines = append([]string{}, lines[len(lines)-n:]...)
	}
	return lines, end, nil
}

// Package logging configures the process-wide slog logger with a console
// sink and a line-capped file sink that backs the owner /logs command.
package logging

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"sync"
)

// MaxFileLines is how many log lines the file sink keeps. When the file
// grows past the cap it is rewritten keeping only the newest lines.
const MaxFileLines = 6000

// Setup deletes any previous log file, then returns a logger writing to both
// stderr and the capped file.
func Setup(path string, level slog.Level) (*slog.Logger, error) {
	_ = os.Remove(path)

	f, err := newCappedFile(path, MaxFileLines)
	if err != nil {
		return nil, err
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stderr, f), &slog.HandlerOptions{Level: level})
	return slog.New(h), nil
}

// cappedFile appends to a file and trims it back to maxLines whenever the
// cap is exceeded. Writes are serialized; the sweep and the update loop both
// log through it.
type cappedFile struct {
	mu       sync.Mutex
	path     string
	maxLines int
	lines    int
	f        *os.File
}

func newCappedFile(path string, maxLines int) (*cappedFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &cappedFile{path: path, maxLines: maxLines, f: f}, nil
}

func (c *cappedFile) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n, err := c.f.Write(p)
	if err != nil {
		return n, err
	}
	c.lines += bytes.Count(p, []byte{'\n'})
	if c.lines > c.maxLines {
		if err := c.rotate(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// rotate rewrites the file keeping only the last maxLines lines.
func (c *cappedFile) rotate() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return err
	}
	lines := bytes.Split(data, []byte{'\n'})
	if len(lines) > c.maxLines {
		lines = lines[len(lines)-c.maxLines:]
	}
	if err := c.f.Close(); err != nil {
		return err
	}
	if err := os.WriteFile(c.path, bytes.Join(lines, []byte{'\n'}), 0o644); err != nil {
		return err
	}
	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	c.f = f
	c.lines = len(lines)
	return nil
}

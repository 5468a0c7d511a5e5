package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LogRotator is a file writer that bounds the file to roughly maxLines lines.
// Once twice the limit has been written the file is rewritten with the most
// recent maxLines lines.
type LogRotator struct {
	file   *os.File
	path   string
	buffer *RingBuffer
	mu     sync.Mutex
}

// OpenLogRotator opens or creates the log file at path.
func OpenLogRotator(path string, maxLines int) (*LogRotator, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file %s: %w", path, err)
	}

	return &LogRotator{
		file:   file,
		path:   path,
		buffer: NewRingBuffer(maxLines),
	}, nil
}

// Write implements io.Writer.
func (w *LogRotator) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	n, err := w.file.Write(p)
	if err != nil {
		return n, err
	}

	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}

		w.buffer.Add(line)

		if w.buffer.Written() >= w.buffer.Cap()*2 {
			if err := w.rotate(); err != nil {
				return n, fmt.Errorf("failed to rotate log file: %w", err)
			}

			w.buffer.Compact()
		}
	}

	return n, nil
}

// Sync flushes the file.
func (w *LogRotator) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.file.Sync()
}

// Close closes the file.
func (w *LogRotator) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.file.Close()
}

// rotate replaces the file contents with the buffered lines.
func (w *LogRotator) rotate() error {
	lines := w.buffer.Lines()
	if len(lines) == 0 {
		return nil
	}

	temp, err := os.CreateTemp(filepath.Dir(w.path), "temp-log-")
	if err != nil {
		return err
	}

	tempPath := temp.Name()

	_, writeErr := io.WriteString(temp, strings.Join(lines, "\n")+"\n")
	syncErr := temp.Sync()
	closeErr := temp.Close()

	if err := errors.Join(writeErr, syncErr, closeErr); err != nil {
		os.Remove(tempPath)
		return err
	}

	w.file.Close()

	// Windows refuses to rename over an existing file.
	os.Remove(w.path)

	if err := os.Rename(tempPath, w.path); err != nil {
		return err
	}

	file, err := os.OpenFile(w.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	w.file = file

	return nil
}

// Package file appends audit events to a local JSON-lines file.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/vshulcz/Telemetra/internal/services/audit"
)

// Writer keeps the audit file open and appends one JSON object per line.
type Writer struct {
	f    *os.File
	enc  *json.Encoder
	path string
	mu   sync.Mutex
}

var _ audit.Observer = (*Writer)(nil)

// New creates a Writer for path. The file is opened on the first event.
func New(path string) *Writer {
	return &Writer{path: path}
}

// Notify appends evt. Writes from concurrent requests never interleave.
func (w *Writer) Notify(_ context.Context, evt audit.Event) error {
	if w == nil || w.path == "" {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("open audit file: %w", err)
		}
		w.f = f
		w.enc = json.NewEncoder(f)
	}
	if err := w.enc.Encode(evt); err != nil {
		return fmt.Errorf("write audit file: %w", err)
	}
	return nil
}

// Close syncs and closes the underlying file.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := errors.Join(w.f.Sync(), w.f.Close())
	w.f, w.enc = nil, nil
	if err != nil {
		return fmt.Errorf("close audit file: %w", err)
	}
	return nil
}

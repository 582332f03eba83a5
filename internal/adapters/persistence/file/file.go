// Package file snapshots stored points to a JSON file and restores them on start.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vshulcz/Telemetra/internal/domain"
	"github.com/vshulcz/Telemetra/internal/ports"
)

type Persister struct {
	path string
}

var _ ports.Persister = (*Persister)(nil)

func New(path string) *Persister {
	return &Persister{path: path}
}

// Save replaces the snapshot atomically: a crash never leaves a half-written file.
func (p *Persister) Save(_ context.Context, points []domain.Point) error {
	if points == nil {
		points = []domain.Point{}
	}
	return writeJSONAtomic(p.path, points)
}

// Restore loads the snapshot into repo. A missing file is not an error.
func (p *Persister) Restore(ctx context.Context, repo ports.PointsRepo) (retErr error) {
	f, err := os.Open(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && retErr == nil {
			retErr = fmt.Errorf("close: %w", cerr)
		}
	}()

	var points []domain.Point
	if err := json.NewDecoder(f).Decode(&points); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if len(points) == 0 {
		return nil
	}
	return repo.Append(ctx, "", points)
}

func writeJSONAtomic(path string, points []domain.Point) (retErr error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("mkdir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(dir, ".points-*")
	if err != nil {
		return fmt.Errorf("create tmp: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := true
	closed := false
	defer func() {
		if !closed {
			if cerr := tmp.Close(); cerr != nil && retErr == nil {
				retErr = fmt.Errorf("close tmp: %w", cerr)
			}
		}
		if cleanup {
			if err := os.Remove(tmpName); err != nil && retErr == nil {
				retErr = fmt.Errorf("remove tmp: %w", err)
			}
		}
	}()
	if err := json.NewEncoder(tmp).Encode(points); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync tmp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close tmp: %w", err)
	}
	closed = true
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	cleanup = false
	return nil
}

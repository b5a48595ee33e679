package csvfile

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/taskmgr/internal/task"
)

// File is a snapshot backend storing a single CSV file.
//
// Save writes a temporary file next to Path and renames it into place, so
// the file on disk is always the last complete snapshot.
type File struct {
	path     string
	tolerant bool
	logger   *slog.Logger
}

// Option configures a File.
type Option func(*File)

// WithTolerant skips unreadable rows on load instead of failing.
func WithTolerant(tolerant bool) Option {
	return func(f *File) { f.tolerant = tolerant }
}

// WithLogger sets the logger for skipped rows.
func WithLogger(logger *slog.Logger) Option {
	return func(f *File) { f.logger = logger }
}

// New creates a backend for the file at path. The file need not exist.
func New(path string, opts ...Option) *File {
	f := &File{path: path}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

// Save replaces the file with snap.
func (f *File) Save(ctx context.Context, snap task.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, base := filepath.Split(f.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return fmt.Errorf("save %s: %w", f.path, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	w := bufio.NewWriter(tmp)
	if err := Encode(w, snap); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", f.path, err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: %w", f.path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("save %s: sync: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save %s: close: %w", f.path, err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("save %s: rename: %w", f.path, err)
	}
	return nil
}

// Load reads the file. A missing file loads as an empty snapshot.
func (f *File) Load(ctx context.Context) (task.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return task.Snapshot{}, err
	}

	fh, err := os.Open(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		f.logger.Debug("no snapshot file yet", "path", f.path)
		return task.Snapshot{}, nil
	}
	if err != nil {
		return task.Snapshot{}, fmt.Errorf("load %s: %w", f.path, err)
	}
	defer fh.Close()

	snap, err := Decode(bufio.NewReader(fh), DecodeOptions{Tolerant: f.tolerant, Logger: f.logger})
	if err != nil {
		return task.Snapshot{}, fmt.Errorf("load %s: %w", f.path, err)
	}
	return snap, nil
}

// Package disk exposes a directory of files as a work queue.
package disk

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
)

// Local serves files from a single directory. Paths cannot escape it.
type Local struct {
	root *os.Root
}

// OpenLocal opens dir as a Local disk.
func OpenLocal(dir string) (*Local, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("platform/disk: open %s: %w", dir, err)
	}
	return &Local{root: root}, nil
}

// Files lists regular files at the top level, sorted by name.
func (l *Local) Files(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := l.root.Open(".")
	if err != nil {
		return nil, fmt.Errorf("platform/disk: list: %w", err)
	}
	defer dir.Close()
	entries, err := dir.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("platform/disk: list: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Open returns a reader over the named file.
func (l *Local) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := l.root.Open(name)
	if err != nil {
		return nil, fmt.Errorf("platform/disk: open %s: %w", name, err)
	}
	return f, nil
}

// Delete removes the named file.
func (l *Local) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.root.Remove(name); err != nil {
		return fmt.Errorf("platform/disk: delete %s: %w", name, err)
	}
	return nil
}

// Close releases the directory handle.
func (l *Local) Close() error {
	return l.root.Close()
}

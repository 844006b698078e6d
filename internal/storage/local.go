// Package storage keeps uploaded attachment files on local disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("file too large")

// Local stores files under Root. Returned paths are relative to Root and use
// forward slashes.
type Local struct {
	Root     string
	MaxBytes int64
}

func NewLocal(root string, maxBytes int64) *Local {
	return &Local{Root: root, MaxBytes: maxBytes}
}

// cleanName keeps the base name of a client-supplied filename.
func cleanName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return "file"
	}
	return name
}

// Save copies r into dir under a unique name and returns the relative path and
// the number of bytes written.
func (l *Local) Save(ctx context.Context, dir, filename string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	rel := path.Join(dir, uuid.NewString()+"_"+cleanName(filename))
	full := filepath.Join(l.Root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", 0, fmt.Errorf("create dir: %w", err)
	}
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create file: %w", err)
	}

	src := r
	if l.MaxBytes > 0 {
		src = io.LimitReader(r, l.MaxBytes+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && l.MaxBytes > 0 && n > l.MaxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(full)
		return "", 0, err
	}
	return rel, n, nil
}

// Remove deletes a previously saved file. Missing files are not an error.
func (l *Local) Remove(_ context.Context, rel string) error {
	full := filepath.Join(l.Root, filepath.FromSlash(path.Clean("/"+rel)))
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

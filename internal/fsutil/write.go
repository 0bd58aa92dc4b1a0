package fsutil

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/task"
)

// RetryBackoff is the pause before the single retry of a failed write.
var RetryBackoff = 50 * time.Millisecond

// WriteFile replaces path with data using write-to-temp-then-rename, so a
// reader never observes a half-written file. A failed attempt is retried
// once after RetryBackoff; a second failure is returned as *task.IOError.
// The context is checked before committing: a canceled plan leaves the
// previous content in place.
func WriteFile(ctx context.Context, path string, data []byte, perm os.FileMode) error {
	err := writeAtomic(ctx, path, data, perm)
	if err == nil || ctx.Err() != nil {
		return wrapIO("write", path, err)
	}
	ctxlog.FromContext(ctx).Warn("Write failed, retrying once.", "path", path, "error", err)
	select {
	case <-ctx.Done():
		return wrapIO("write", path, ctx.Err())
	case <-time.After(RetryBackoff):
	}
	return wrapIO("write", path, writeAtomic(ctx, path, data, perm))
}

// CopyFile copies src to dst with the same atomic and retry guarantees as
// WriteFile, preserving the source permission bits.
func CopyFile(ctx context.Context, src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return &task.SourceNotFoundError{Path: src}
		}
		return wrapIO("stat", src, err)
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return wrapIO("read", src, err)
	}
	return WriteFile(ctx, dst, data, info.Mode().Perm())
}

// ReadSource reads a source file, mapping a missing file to
// *task.SourceNotFoundError.
func ReadSource(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &task.SourceNotFoundError{Path: path}
		}
		return nil, wrapIO("read", path, err)
	}
	return data, nil
}

func writeAtomic(ctx context.Context, path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, ".assetgrid-tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}() // cleanup on error

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Chmod(perm); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func wrapIO(op, path string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*task.IOError); ok {
		return err
	}
	return &task.IOError{Op: op, Path: path, Err: err}
}

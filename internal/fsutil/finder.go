// Package fsutil provides the file system primitives shared by every
// transform: discovery, glob expansion and whole-file atomic writes.
package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns a slice of their full paths.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// IsGlob reports whether the path contains glob metacharacters.
func IsGlob(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}

// Expand resolves each pattern to the regular files it matches, preserving
// pattern order and dropping duplicates. Literal paths are returned as-is
// even when missing, so the caller can report them as not found.
func Expand(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range patterns {
		if !IsGlob(p) {
			if _, ok := seen[p]; !ok {
				seen[p] = struct{}{}
				out = append(out, p)
			}
			continue
		}
		matches, err := doublestar.FilepathGlob(p, doublestar.WithFilesOnly())
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if _, ok := seen[m]; !ok {
				seen[m] = struct{}{}
				out = append(out, m)
			}
		}
	}
	return out, nil
}

// GlobDir returns the files under root that match pattern, as paths relative
// to root. A missing root is reported with an error wrapping fs.ErrNotExist.
func GlobDir(root, pattern string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "glob", Path: root, Err: errors.New("not a directory")}
	}
	if pattern == "" {
		pattern = "**"
	}
	return doublestar.Glob(os.DirFS(root), filepath.ToSlash(pattern), doublestar.WithFilesOnly())
}

// Match reports whether path is matched by pattern. Both are OS paths.
func Match(pattern, path string) bool {
	if !IsGlob(pattern) {
		return filepath.Clean(pattern) == filepath.Clean(path)
	}
	ok, err := doublestar.PathMatch(pattern, path)
	return err == nil && ok
}

// Within reports whether path equals root or lies beneath it.
func Within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// StaticBase returns the longest directory prefix of a pattern that contains
// no glob metacharacters.
func StaticBase(pattern string) string {
	if !IsGlob(pattern) {
		return pattern
	}
	base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
	return filepath.FromSlash(base)
}

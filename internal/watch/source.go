package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/assetgrid/internal/ctxlog"
)

// Source turns fsnotify events under a set of roots into a stream of
// changed paths. Directories are watched recursively, including ones
// created after the Source started.
type Source struct {
	fsw    *fsnotify.Watcher
	ignore func(path string) bool
	events chan string
}

// NewSource starts observing roots. Paths for which ignore returns true are
// neither watched nor reported; ignore may be nil. Missing roots are
// skipped.
func NewSource(ctx context.Context, roots []string, ignore func(string) bool) (*Source, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if ignore == nil {
		ignore = func(string) bool { return false }
	}
	s := &Source{fsw: fsw, ignore: ignore, events: make(chan string, 64)}

	logger := ctxlog.FromContext(ctx)
	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			logger.Warn("Watch root is not accessible, skipping.", "root", root, "error", err)
			continue
		}
		if err := s.addTree(root); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return s, nil
}

// Events returns the stream of changed paths. It is closed when Run returns.
func (s *Source) Events() <-chan string {
	return s.events
}

// Run pumps events until ctx is done or the underlying watcher fails.
func (s *Source) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	defer close(s.events)
	defer s.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-s.fsw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if s.ignore(ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := s.addTree(ev.Name); err != nil {
						logger.Warn("Could not watch new directory.", "dir", ev.Name, "error", err)
					}
				}
			}
			select {
			case s.events <- ev.Name:
			case <-ctx.Done():
				return nil
			}
		case err, ok := <-s.fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("File watcher error.", "error", err)
		}
	}
}

func (s *Source) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if s.ignore(path) {
			return filepath.SkipDir
		}
		return s.fsw.Add(path)
	})
}

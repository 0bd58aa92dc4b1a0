package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/vk/assetgrid/internal/task"
)

// DefaultDebounce is the watch debounce window used when none is configured.
const DefaultDebounce = 200 * time.Millisecond

// Model is the unified, format-agnostic representation of a build
// configuration.
type Model struct {
	Project    Project
	Settings   Settings
	Tasks      []*task.Spec
	Aliases    []*task.Alias
	Watches    []*Watch
	LiveReload *LiveReload
}

// Project is the package metadata consumed by banner and token-replace
// values. It is opaque to the orchestrator itself.
type Project struct {
	Name     string
	Title    string
	Version  string
	Homepage string
	Author   string
	Licenses []string
}

// DisplayName returns the title when set, otherwise the name.
func (p Project) DisplayName() string {
	if p.Title != "" {
		return p.Title
	}
	return p.Name
}

// Settings holds process-level knobs.
type Settings struct {
	OutputRoot  string
	Workers     int
	PlanTimeout time.Duration
	Debounce    time.Duration
	LogLevel    string
	LogFormat   string
	// HealthcheckPort enables the watch-mode health endpoint when > 0.
	HealthcheckPort int
}

// ApplyDefaults fills zero-valued settings.
func (s *Settings) ApplyDefaults() {
	if s.Workers <= 0 {
		s.Workers = runtime.GOMAXPROCS(0)
	}
	if s.Debounce <= 0 {
		s.Debounce = DefaultDebounce
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.LogFormat == "" {
		s.LogFormat = "text"
	}
}

// Watch maps a set of source globs to the tasks to re-run when a matching
// file changes.
type Watch struct {
	Name  string
	Files []string
	Tasks []string
}

// LiveReload configures the socket.io endpoint notified after each
// successful watch cycle.
type LiveReload struct {
	URL                string
	Namespace          string
	Event              string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// ApplyDefaults fills zero-valued live reload settings.
func (lr *LiveReload) ApplyDefaults() {
	if lr.Namespace == "" {
		lr.Namespace = "/"
	}
	if lr.Event == "" {
		lr.Event = "reload"
	}
	if lr.Timeout <= 0 {
		lr.Timeout = 5 * time.Second
	}
}

// ResolvePath makes p absolute against baseDir. Empty paths stay empty.
func ResolvePath(baseDir, p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(baseDir, filepath.FromSlash(p))
}

// ParseDuration parses an optional duration setting named field.
func ParseDuration(s, field string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return d, nil
}

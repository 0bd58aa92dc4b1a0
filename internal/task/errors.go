package task

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrSkipped marks a step that never ran because an upstream step failed or
// the plan ran out of time.
var ErrSkipped = errors.New("skipped")

// ConfigError reports a malformed or missing TaskSpec, alias or setting. It
// is fatal and raised before any destination is written.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Err == nil:
		return "config error: " + e.Msg
	case e.Msg == "":
		return "config error: " + e.Err.Error()
	default:
		return fmt.Sprintf("config error: %s: %v", e.Msg, e.Err)
	}
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Configf builds a ConfigError from a format string.
func Configf(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// DuplicateTaskError is returned when a (kind, variant) pair is registered twice.
type DuplicateTaskError struct {
	ID ID
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("duplicate task %q", e.ID)
}

// UnknownTaskError is returned when a name resolves to neither an alias, a
// task nor a task kind.
type UnknownTaskError struct {
	Name string
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("unknown task or alias %q", e.Name)
}

// CyclicAliasError is returned when alias expansion revisits an alias that is
// still on the active expansion stack.
type CyclicAliasError struct {
	Path []string
}

func (e *CyclicAliasError) Error() string {
	return "cyclic alias: " + strings.Join(e.Path, " -> ")
}

// SourceNotFoundError reports a missing source file. It is recoverable per file.
type SourceNotFoundError struct {
	Path string
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("source not found: %s", e.Path)
}

// StyleSyntaxError reports malformed stylesheet input at a given line.
type StyleSyntaxError struct {
	File string
	Line int
	Msg  string
}

func (e *StyleSyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: style syntax error: %s", e.File, e.Line, e.Msg)
}

// MarkupSyntaxError reports an embedded script block that could not be parsed.
type MarkupSyntaxError struct {
	File string
	Msg  string
	Err  error
}

func (e *MarkupSyntaxError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: markup syntax error: %s: %v", e.File, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: markup syntax error: %s", e.File, e.Msg)
}

func (e *MarkupSyntaxError) Unwrap() error { return e.Err }

// IOError reports a filesystem failure on a specific path.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// PlanTimeoutError is reported for a step still running when the overall
// plan deadline expired.
type PlanTimeoutError struct {
	ID      ID
	Timeout time.Duration
}

func (e *PlanTimeoutError) Error() string {
	return fmt.Sprintf("task %s still running when the plan timed out after %s", e.ID, e.Timeout)
}

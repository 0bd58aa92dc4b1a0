package task

// Result is the outcome of executing one Spec. File-level failures are
// collected in Errors without aborting sibling files.
type Result struct {
	Written []string
	Errors  []error
}

// NewResult returns an empty result with a non-nil Written slice so that a
// no-op run reports `written: []` rather than nil.
func NewResult() *Result {
	return &Result{Written: []string{}}
}

// AddWritten records a successfully committed destination.
func (r *Result) AddWritten(path string) {
	r.Written = append(r.Written, path)
}

// AddError records a file-level or task-level failure. Nil errors are ignored.
func (r *Result) AddError(err error) {
	if err != nil {
		r.Errors = append(r.Errors, err)
	}
}

// Failed reports whether any error was recorded.
func (r *Result) Failed() bool {
	return len(r.Errors) > 0
}

package testutil

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertStepStatus checks the per-step status list within a HarnessResult
// for a line reporting id with the given status, e.g. "ok" or "skipped".
func AssertStepStatus(t *testing.T, result *HarnessResult, status, id string) {
	t.Helper()

	re := regexp.MustCompile(`(?m)^\s+` + regexp.QuoteMeta(status) + `\s+` + regexp.QuoteMeta(id) + `\s`)
	require.True(t,
		re.MatchString(result.LogOutput),
		"expected step %s with status %q in output:\n%s", id, status, result.LogOutput,
	)
}

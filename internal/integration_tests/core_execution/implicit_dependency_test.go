package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/testutil"
)

// Test for: a task reading another task's output runs after it, even when
// the reader is declared in a separate alias.
func TestCoreExecution_OutputFeedsLaterTask(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"assetgrid.hcl": `
			settings { output_root = "dist" }

			task "less" "dev" {
				files = {
					"dist/tmp/a.css" = "src/a.less"
					"dist/tmp/b.css" = "src/b.less"
				}
			}

			task "concat" "css" {
				separator = ""
				files     = { "dist/all.css" = ["dist/tmp/*.css"] }
			}

			alias "styles" { tasks = ["less:dev"] }
			alias "build"  { tasks = ["styles", "concat:css"] }
		`,
		"src/a.less": ".a { top: 0; }",
		"src/b.less": ".b { top: 1px; }",
	}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files, "build")

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Equal(t, ".a {\n  top: 0;\n}\n.b {\n  top: 1px;\n}\n", testutil.ReadFile(t, result.Root, "dist/all.css"))
}

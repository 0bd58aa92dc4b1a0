package integration_tests

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/testutil"
)

// Test for: two replace steps rewriting the same file run one after the
// other, and a later copy stages the fully rewritten file.
func TestCoreExecution_InPlaceRewritesKeepPlanOrder(t *testing.T) {
	files := map[string]string{
		"assetgrid.hcl": `
			project {
				version = "3.0.1"
			}

			settings {
				output_root = "war"
				workers     = 4
			}

			task "htmlmin" "prod" {
				collapse_whitespace = true
				files               = { "war/index.html" = "src/index.html" }
			}

			task "replace" "prod" {
				targets = ["war/index.html"]
				pattern {
					match       = "@@version"
					replacement = project.version
				}
			}

			task "replace" "stamp" {
				targets = ["war/index.html"]
				pattern {
					match       = "@@channel"
					replacement = "stable"
				}
			}

			task "copy" "staging" {
				copy {
					src     = "war"
					dest    = "war/staging"
					pattern = "*.html"
				}
			}

			alias "release" {
				tasks = ["htmlmin:prod", "replace:prod", "replace:stamp", "copy:staging"]
			}
		`,
		"src/index.html": "<html>\n  <body>\n    <p>@@version @@channel</p>\n  </body>\n</html>\n",
	}
	want := "<html><body><p>3.0.1 stable</p></body></html>"

	for i := 0; i < 10; i++ {
		t.Run(fmt.Sprintf("run %d", i), func(t *testing.T) {
			// --- Act ---
			result := testutil.RunIntegrationTest(t, files, "release")

			// --- Assert ---
			require.NoError(t, result.Err)
			assert.Equal(t, want, testutil.ReadFile(t, result.Root, "war/index.html"))
			assert.Equal(t, want, testutil.ReadFile(t, result.Root, "war/staging/index.html"))
		})
	}
}

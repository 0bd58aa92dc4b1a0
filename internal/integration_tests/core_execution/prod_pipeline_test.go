package integration_tests

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/testutil"
)

// Test for: a production alias compiles styles, bundles scripts, minifies
// templates, stamps the version and stages static files in one run.
func TestCoreExecution_ProdPipeline(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"assetgrid.hcl": `
			project {
				name    = "shop"
				version = "2.1.0"
			}

			settings {
				output_root = "war"
				workers     = 4
			}

			task "less" "prod" {
				compress = true
				paths    = ["src/less/include"]
				files    = { "war/css/site.css" = "src/less/site.less" }
			}

			task "concat" "prod" {
				banner        = "/*! ${project.name} v${project.version} */\n"
				strip_banners = true
				files         = { "war/js/app.js" = ["src/js/a.js", "src/js/b.js"] }
			}

			task "htmlmin" "prod" {
				remove_comments     = true
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

			task "copy" "prod" {
				copy {
					src     = "static"
					dest    = "war/static"
					pattern = "**/*.png"
				}
			}

			alias "prod" {
				tasks = ["less:prod", "concat:prod", "htmlmin:prod", "replace:prod", "copy:prod"]
			}
		`,
		"src/less/site.less":           "@import \"colors\";\n.nav { color: @brand; a { top: 0; } }\n",
		"src/less/include/colors.less": "@brand: #123456;\n",
		"src/js/a.js":                  "/* header a */\nvar a = 1;",
		"src/js/b.js":                  "var b = 2;",
		"src/index.html":               "<html>\n  <body>\n    <!-- note -->\n    <p>v@@version</p>\n  </body>\n</html>\n",
		"static/img/logo.png":          "PNG",
		"static/img/readme.txt":        "skip me",
	}

	// --- Act ---
	result := testutil.RunIntegrationTest(t, files, "prod")

	// --- Assert ---
	require.NoError(t, result.Err)
	for _, id := range []string{"less:prod", "concat:prod", "htmlmin:prod", "replace:prod", "copy:prod"} {
		testutil.AssertStepStatus(t, result, "ok", id)
	}

	assert.Equal(t, ".nav{color:#123456;}.nav a{top:0;}", testutil.ReadFile(t, result.Root, "war/css/site.css"))
	assert.Equal(t, "/*! shop v2.1.0 */\nvar a = 1;\nvar b = 2;", testutil.ReadFile(t, result.Root, "war/js/app.js"))
	assert.Equal(t, "<html><body><p>v2.1.0</p></body></html>", testutil.ReadFile(t, result.Root, "war/index.html"))
	assert.Equal(t, "PNG", testutil.ReadFile(t, result.Root, "war/static/img/logo.png"))
	assert.NoFileExists(t, filepath.Join(result.Root, "war/static/img/readme.txt"))
}

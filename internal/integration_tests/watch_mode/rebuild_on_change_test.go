package integration_tests

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/testutil"
)

func readOrEmpty(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

// Test for: editing a watched source rebuilds only the tasks it feeds, and
// a broken edit keeps the session alive for the next fix.
func TestWatchMode_RebuildsAffectedTasks(t *testing.T) {
	// --- Arrange ---
	root := testutil.NewProject(t, map[string]string{
		"assetgrid.hcl": `
			settings {
				output_root = "dist"
				debounce    = "50ms"
			}

			task "less" "dev" {
				files = { "dist/site.css" = "src/less/site.less" }
			}

			task "copy" "dev" {
				copy {
					src  = "static"
					dest = "dist/static"
				}
			}

			alias "dev" { tasks = ["less:dev", "copy:dev"] }

			watch "styles" {
				files = ["src/less/**/*.less"]
				tasks = ["less:dev"]
			}
		`,
		"src/less/site.less": ".a { top: 0; }",
		"static/logo.txt":    "logo",
	})
	testApp, logs, _, err := testutil.NewTestApp(t, root, "assetgrid.hcl")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- testApp.Watch(ctx, "dev") }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("watch session did not stop after cancellation")
		}
	})

	cssPath := filepath.Join(root, "dist/site.css")
	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "Watching for changes")
	}, 5*time.Second, 20*time.Millisecond, "watch session never started")
	assert.Equal(t, ".a {\n  top: 0;\n}\n", readOrEmpty(cssPath))
	assert.Equal(t, "logo", readOrEmpty(filepath.Join(root, "dist/static/logo.txt")))

	// --- Act: a valid edit ---
	testutil.WriteFiles(t, root, map[string]string{"src/less/site.less": ".a { top: 5px; }"})

	// --- Assert ---
	require.Eventually(t, func() bool {
		return readOrEmpty(cssPath) == ".a {\n  top: 5px;\n}\n"
	}, 5*time.Second, 20*time.Millisecond, "stylesheet was not rebuilt")

	// --- Act: a broken edit, then a fix ---
	testutil.WriteFiles(t, root, map[string]string{"src/less/site.less": ".a { top 5px; }"})
	require.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "Rebuild failed, still watching")
	}, 5*time.Second, 20*time.Millisecond, "broken edit was not reported")
	assert.Equal(t, ".a {\n  top: 5px;\n}\n", readOrEmpty(cssPath), "a failed rebuild must keep the last good output")

	testutil.WriteFiles(t, root, map[string]string{"src/less/site.less": ".a { top: 9px; }"})
	require.Eventually(t, func() bool {
		return readOrEmpty(cssPath) == ".a {\n  top: 9px;\n}\n"
	}, 5*time.Second, 20*time.Millisecond, "session did not recover after a fix")

	// Static files changed under a derived entry rebuild the copy task.
	testutil.WriteFiles(t, root, map[string]string{"static/logo.txt": "new logo"})
	require.Eventually(t, func() bool {
		return readOrEmpty(filepath.Join(root, "dist/static/logo.txt")) == "new logo"
	}, 5*time.Second, 20*time.Millisecond, "copy task was not rebuilt")
}

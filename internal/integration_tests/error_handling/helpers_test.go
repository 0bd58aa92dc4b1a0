package integration_tests

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/vk/assetgrid/internal/task"
	"github.com/vk/assetgrid/internal/testutil"
)

// copyTask renders a copy task whose executor is replaced by a mock in
// these tests. Each variant gets its own destination directory.
func copyTask(variant string, dependsOn ...string) string {
	deps := ""
	if len(dependsOn) > 0 {
		quoted := make([]string, len(dependsOn))
		for i, d := range dependsOn {
			quoted[i] = strconv.Quote(d)
		}
		deps = "\n\tdepends_on = [" + strings.Join(quoted, ", ") + "]"
	}
	return fmt.Sprintf(`
task "copy" %q {%s
	copy {
		src  = "src/%s"
		dest = "dist/%s"
	}
}
`, variant, deps, variant, variant)
}

// manifest joins a settings block with the given task and alias blocks.
func manifest(workers int, blocks ...string) string {
	return fmt.Sprintf("settings {\n\toutput_root = \"dist\"\n\tworkers = %d\n}\n", workers) + strings.Join(blocks, "\n")
}

// variantRouter dispatches each spec to the sleeper registered for its variant.
type variantRouter map[string]*testutil.MockSleeperModule

func (v variantRouter) Execute(ctx context.Context, spec *task.Spec) *task.Result {
	return v[spec.ID.Variant].Execute(ctx, spec)
}

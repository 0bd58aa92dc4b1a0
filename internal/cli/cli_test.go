package cli

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/app"
)

func TestParse(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		args        []string
		expectExit  bool
		expectCode  int
		expected    *Command
		checkOutput func(t *testing.T, output string)
	}{
		{
			name:     "run with default config",
			args:     []string{"run", "dev"},
			expected: &Command{Name: "run", Target: "dev", Config: &app.Config{ConfigPath: "assetgrid.hcl"}},
		},
		{
			name:     "watch with --config",
			args:     []string{"--config", "build/site.yaml", "watch", "less:dev"},
			expected: &Command{Name: "watch", Target: "less:dev", Config: &app.Config{ConfigPath: "build/site.yaml"}},
		},
		{
			name:     "list with shorthand",
			args:     []string{"-c", "conf", "list"},
			expected: &Command{Name: "list", Config: &app.Config{ConfigPath: "conf"}},
		},
		{
			name:     "log overrides are normalized",
			args:     []string{"--log-level", "DEBUG", "--log-format", "json", "run", "dev"},
			expected: &Command{Name: "run", Target: "dev", Config: &app.Config{ConfigPath: "assetgrid.hcl", LogLevel: "debug", LogFormat: "json"}},
		},
		{
			name:       "help exits cleanly",
			args:       []string{"-h"},
			expectExit: true,
			checkOutput: func(t *testing.T, output string) {
				require.Contains(t, output, "Usage:")
			},
		},
		{name: "no command", args: []string{}, expectCode: ExitUsage},
		{name: "unknown command", args: []string{"build", "dev"}, expectCode: ExitUsage},
		{name: "run without name", args: []string{"run"}, expectCode: ExitUsage},
		{name: "run with two names", args: []string{"run", "a", "b"}, expectCode: ExitUsage},
		{name: "list with argument", args: []string{"list", "x"}, expectCode: ExitUsage},
		{name: "unknown flag", args: []string{"--workers", "4", "run", "dev"}, expectCode: ExitUsage},
		{name: "bad log level", args: []string{"--log-level", "loud", "list"}, expectCode: ExitUsage},
		{name: "empty config", args: []string{"--config", "", "list"}, expectCode: ExitUsage},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			cmd, exit, err := Parse(tc.args, &out)

			if tc.expectCode != 0 {
				var exitErr *ExitError
				require.ErrorAs(t, err, &exitErr)
				require.Equal(t, tc.expectCode, exitErr.Code)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expectExit, exit)
			if tc.checkOutput != nil {
				tc.checkOutput(t, out.String())
			}
			if diff := cmp.Diff(tc.expected, cmd); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

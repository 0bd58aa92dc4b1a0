package concat

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/task"
)

func TestStripBanner(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "leading block comment", input: "/* v1 */\nvar a;", expected: "var a;"},
		{name: "indented", input: "\n  /* multi\n line */\n\nvar a;", expected: "var a;"},
		{name: "important comment kept", input: "/*! keep */\nvar a;", expected: "/*! keep */\nvar a;"},
		{name: "only the first comment", input: "/* a */ /* b */ x", expected: "/* b */ x"},
		{name: "no comment", input: "var a; /* tail */", expected: "var a; /* tail */"},
		{name: "unterminated", input: "/* open", expected: "/* open"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, StripBanner(tc.input))
		})
	}
}

func TestExecute(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"src/a.js":     "/* a banner */\nvar a = 1;",
		"src/b.js":     "/*! license */\nvar b = 2;",
		"src/lib/c.js": "var c = 3;",
	} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}

	out := filepath.Join(dir, "war", "js")
	spec := &task.Spec{
		ID: task.MustParseID("concat:dist"),
		Files: []task.FileMapping{
			{Dest: filepath.Join(out, "app.js"), Src: []string{
				filepath.Join(dir, "src", "lib", "*.js"),
				filepath.Join(dir, "src", "a.js"),
				filepath.Join(dir, "src", "b.js"),
			}},
			{Dest: filepath.Join(out, "broken.js"), Src: []string{
				filepath.Join(dir, "src", "a.js"),
				filepath.Join(dir, "src", "missing.js"),
			}},
		},
		Options: task.Options{
			Banner:       "/*! site - v1.0.0 */\n",
			StripBanners: true,
			Separator:    ";\n",
		},
	}

	res := Execute(context.Background(), spec)
	assert.Equal(t, []string{filepath.Join(out, "app.js")}, res.Written)
	require.Len(t, res.Errors, 1)
	var notFound *task.SourceNotFoundError
	assert.ErrorAs(t, res.Errors[0], &notFound)

	data, err := os.ReadFile(filepath.Join(out, "app.js"))
	require.NoError(t, err)
	assert.Equal(t, "/*! site - v1.0.0 */\nvar c = 3;;\nvar a = 1;;\n/*! license */\nvar b = 2;", string(data))

	_, err = os.Stat(filepath.Join(out, "broken.js"))
	assert.True(t, os.IsNotExist(err))
}

package copyfiles

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/task"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func TestExecute_CopiesMatchingFilesPreservingStructure(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"war/css/site.css":        "body{}",
		"war/css/print/p.css":     "@media print{}",
		"war/css/site.css.map":    "{}",
		"war/js/app.js":           "x()",
		"war/staging/css/old.css": "stale",
	})
	staging := filepath.Join(root, "war", "staging")
	spec := &task.Spec{
		ID: task.MustParseID("copy:staging"),
		Options: task.Options{Copies: []task.CopyRule{
			{SrcDir: filepath.Join(root, "war", "css"), DestDir: filepath.Join(staging, "css"), Pattern: "**/*.css"},
			{SrcDir: filepath.Join(root, "war", "js"), DestDir: filepath.Join(staging, "js"), Pattern: "*.js"},
		}},
	}

	res := Execute(context.Background(), spec)
	require.Empty(t, res.Errors)

	written := append([]string(nil), res.Written...)
	sort.Strings(written)
	assert.Equal(t, []string{
		filepath.Join(staging, "css", "print", "p.css"),
		filepath.Join(staging, "css", "site.css"),
		filepath.Join(staging, "js", "app.js"),
	}, written)

	data, err := os.ReadFile(filepath.Join(staging, "css", "print", "p.css"))
	require.NoError(t, err)
	assert.Equal(t, "@media print{}", string(data))

	_, err = os.Stat(filepath.Join(staging, "css", "site.css.map"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(staging, "css", "old.css"))
	assert.NoError(t, err, "files not matched by the source are left alone")
}

func TestExecute_OverwritesUnconditionally(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"src/a.txt": "new",
		"dst/a.txt": "old",
	})
	spec := &task.Spec{
		ID: task.MustParseID("copy:prod"),
		Options: task.Options{Copies: []task.CopyRule{
			{SrcDir: filepath.Join(root, "src"), DestDir: filepath.Join(root, "dst"), Pattern: "*"},
		}},
	}

	res := Execute(context.Background(), spec)
	require.Empty(t, res.Errors)
	data, err := os.ReadFile(filepath.Join(root, "dst", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestExecute_EmptyMatchIsNoop(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0755))
	spec := &task.Spec{
		ID: task.MustParseID("copy:dev"),
		Options: task.Options{Copies: []task.CopyRule{
			{SrcDir: filepath.Join(root, "src"), DestDir: filepath.Join(root, "dst"), Pattern: "*.css"},
		}},
	}

	res := Execute(context.Background(), spec)
	assert.Empty(t, res.Errors)
	require.NotNil(t, res.Written)
	assert.Empty(t, res.Written)
	_, err := os.Stat(filepath.Join(root, "dst"))
	assert.True(t, os.IsNotExist(err))
}

func TestExecute_MissingSourceDir(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"b/x.txt": "x"})
	spec := &task.Spec{
		ID: task.MustParseID("copy:dev"),
		Options: task.Options{Copies: []task.CopyRule{
			{SrcDir: filepath.Join(root, "a"), DestDir: filepath.Join(root, "out", "a"), Pattern: "*"},
			{SrcDir: filepath.Join(root, "b"), DestDir: filepath.Join(root, "out", "b"), Pattern: "*"},
		}},
	}

	res := Execute(context.Background(), spec)
	require.Len(t, res.Errors, 1)
	var ioErr *task.IOError
	require.ErrorAs(t, res.Errors[0], &ioErr)
	assert.Equal(t, filepath.Join(root, "a"), ioErr.Path)
	assert.ErrorIs(t, res.Errors[0], os.ErrNotExist)
	assert.Equal(t, []string{filepath.Join(root, "out", "b", "x.txt")}, res.Written)
}

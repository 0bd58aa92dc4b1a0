package replace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/task"
)

func TestExecute_ReplacesEveryOccurrenceInEveryTarget(t *testing.T) {
	dir := t.TempDir()
	index := filepath.Join(dir, "index.html")
	about := filepath.Join(dir, "pages", "about.html")
	require.NoError(t, os.MkdirAll(filepath.Dir(about), 0755))
	require.NoError(t, os.WriteFile(index, []byte(`<link href="a.css?v=@@v"><script src="b.js?v=@@v"></script>`), 0644))
	require.NoError(t, os.WriteFile(about, []byte(`<p>@@name @@v</p>`), 0644))

	spec := &task.Spec{
		ID: task.MustParseID("replace:prod"),
		Options: task.Options{
			Targets: []string{index, filepath.Join(dir, "pages", "*.html")},
			Replacements: []task.Replacement{
				{Match: "@@v", Value: task.Literal("42")},
				{Match: "@@name", Value: task.Literal("site")},
			},
		},
	}

	res := Execute(context.Background(), spec)
	require.Empty(t, res.Errors)
	assert.Equal(t, []string{index, about}, res.Written)

	data, err := os.ReadFile(index)
	require.NoError(t, err)
	assert.Equal(t, `<link href="a.css?v=42"><script src="b.js?v=42"></script>`, string(data))
	data, err = os.ReadFile(about)
	require.NoError(t, err)
	assert.Equal(t, `<p>site 42</p>`, string(data))
}

func TestExecute_ValuesAreEvaluatedPerRun(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "index.html")

	calls := 0
	spec := &task.Spec{
		ID: task.MustParseID("replace:dev"),
		Options: task.Options{
			Targets: []string{target},
			Replacements: []task.Replacement{{
				Match: "@@stamp",
				Value: func(context.Context) (string, error) {
					calls++
					return strconv.Itoa(1700000000000 + calls), nil
				},
			}},
		},
	}

	var outputs []string
	for i := 0; i < 2; i++ {
		require.NoError(t, os.WriteFile(target, []byte("v=@@stamp;v=@@stamp"), 0644))
		res := Execute(context.Background(), spec)
		require.Empty(t, res.Errors)
		data, err := os.ReadFile(target)
		require.NoError(t, err)
		outputs = append(outputs, string(data))
	}

	assert.Equal(t, 2, calls, "one evaluation per run, shared by every occurrence")
	assert.Equal(t, "v=1700000000001;v=1700000000001", outputs[0])
	assert.NotEqual(t, outputs[0], outputs[1])
}

func TestExecute_Errors(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.html")
	require.NoError(t, os.WriteFile(present, []byte("x@@v"), 0644))

	t.Run("missing target", func(t *testing.T) {
		spec := &task.Spec{
			ID: task.MustParseID("replace:dev"),
			Options: task.Options{
				Targets:      []string{filepath.Join(dir, "missing.html"), present},
				Replacements: []task.Replacement{{Match: "@@v", Value: task.Literal("1")}},
			},
		}
		res := Execute(context.Background(), spec)
		require.Len(t, res.Errors, 1)
		var notFound *task.SourceNotFoundError
		assert.ErrorAs(t, res.Errors[0], &notFound)
		assert.Equal(t, []string{present}, res.Written)
	})

	t.Run("failing value writes nothing", func(t *testing.T) {
		require.NoError(t, os.WriteFile(present, []byte("x@@v"), 0644))
		boom := errors.New("boom")
		spec := &task.Spec{
			ID: task.MustParseID("replace:dev"),
			Options: task.Options{
				Targets: []string{present},
				Replacements: []task.Replacement{{
					Match: "@@v",
					Value: func(context.Context) (string, error) { return "", boom },
				}},
			},
		}
		res := Execute(context.Background(), spec)
		require.Len(t, res.Errors, 1)
		assert.ErrorIs(t, res.Errors[0], boom)
		assert.Empty(t, res.Written)

		data, err := os.ReadFile(present)
		require.NoError(t, err)
		assert.Equal(t, "x@@v", string(data))
	})
}

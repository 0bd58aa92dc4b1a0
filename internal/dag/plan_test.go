package dag

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/internal/task"
)

type fixture struct {
	reg *registry.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{reg: registry.New()}
}

func (f *fixture) spec(t *testing.T, id string, src, dest string, deps ...string) *task.Spec {
	t.Helper()
	s := &task.Spec{ID: task.MustParseID(id)}
	if dest != "" {
		s.Files = []task.FileMapping{{Dest: dest, Src: []string{src}}}
	}
	for _, d := range deps {
		s.DependsOn = append(s.DependsOn, task.MustParseID(d))
	}
	require.NoError(t, f.reg.Register(s))
	return s
}

func (f *fixture) alias(t *testing.T, name string, tasks ...string) {
	t.Helper()
	require.NoError(t, f.reg.RegisterAlias(&task.Alias{Name: name, Tasks: tasks}))
}

func idStrings(ids []task.ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func TestBuild_AliasExpansion(t *testing.T) {
	f := newFixture(t)
	f.spec(t, "less:prod", "/src/a.less", "/out/a.css")
	f.spec(t, "htmlmin:prod", "/src/index.html", "/out/index.html")
	f.spec(t, "copy:prod", "/src/img", "/out/img.png")
	f.alias(t, "styles", "less:prod")
	f.alias(t, "prod", "styles", "htmlmin:prod", "less:prod", "copy")

	plan, err := Build(context.Background(), f.reg, "prod")
	require.NoError(t, err)
	assert.Equal(t, "prod", plan.Name)
	assert.Equal(t, []string{"less:prod", "htmlmin:prod", "copy:prod"}, idStrings(plan.IDs()))
}

func TestBuild_MultipleNamesDeduplicate(t *testing.T) {
	f := newFixture(t)
	f.spec(t, "less:dev", "/src/a.less", "/out/a.css")
	f.spec(t, "less:prod", "/src/a.less", "/out/a.min.css")

	plan, err := Build(context.Background(), f.reg, "less:prod", "less")
	require.NoError(t, err)
	assert.Equal(t, []string{"less:prod", "less:dev"}, idStrings(plan.IDs()))
}

func TestBuild_CyclicAlias(t *testing.T) {
	f := newFixture(t)
	f.spec(t, "less:dev", "/src/a.less", "/out/a.css")
	f.alias(t, "a", "less:dev", "b")
	f.alias(t, "b", "c")
	f.alias(t, "c", "a")

	_, err := Build(context.Background(), f.reg, "a")
	var cycleErr *task.CyclicAliasError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, []string{"a", "b", "c", "a"}, cycleErr.Path)
}

func TestBuild_RepeatedAliasIsNotACycle(t *testing.T) {
	f := newFixture(t)
	f.spec(t, "less:dev", "/src/a.less", "/out/a.css")
	f.alias(t, "styles", "less:dev")
	f.alias(t, "all", "styles", "styles")

	plan, err := Build(context.Background(), f.reg, "all")
	require.NoError(t, err)
	assert.Len(t, plan.Steps, 1)
}

func TestBuild_UnknownName(t *testing.T) {
	f := newFixture(t)
	f.alias(t, "broken", "nope:dev")

	_, err := Build(context.Background(), f.reg, "broken")
	var unknown *task.UnknownTaskError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "nope:dev", unknown.Name)

	_, err = Build(context.Background(), f.reg)
	assert.ErrorContains(t, err, "no task or alias name given")
}

func TestBuild_ImplicitEdges(t *testing.T) {
	f := newFixture(t)
	f.spec(t, "less:prod", "/src/a.less", "/out/css/a.css")
	f.spec(t, "htmlmin:prod", "/src/index.html", "/out/index.html")
	replace := &task.Spec{
		ID:      task.MustParseID("replace:prod"),
		Options: task.Options{Targets: []string{"/out/**/*.html"}},
	}
	require.NoError(t, f.reg.Register(replace))
	stage := &task.Spec{
		ID:      task.MustParseID("copy:stage"),
		Options: task.Options{Copies: []task.CopyRule{{SrcDir: "/out/css", DestDir: "/out/staging/css"}}},
	}
	require.NoError(t, f.reg.Register(stage))
	f.alias(t, "prod", "less:prod", "htmlmin:prod", "replace:prod", "copy:stage")

	plan, err := Build(context.Background(), f.reg, "prod")
	require.NoError(t, err)

	deps, err := plan.Graph.Dependencies(task.MustParseID("replace:prod"))
	require.NoError(t, err)
	assert.Equal(t, []string{"htmlmin:prod"}, idStrings(deps))

	// The replace glob may rewrite files under /out/css, so staging waits for it.
	deps, err = plan.Graph.Dependencies(task.MustParseID("copy:stage"))
	require.NoError(t, err)
	assert.Equal(t, []string{"less:prod", "replace:prod"}, idStrings(deps))

	deps, err = plan.Graph.Dependencies(task.MustParseID("htmlmin:prod"))
	require.NoError(t, err)
	assert.Empty(t, deps)
}

func TestBuild_InPlaceRewritesAreOrdered(t *testing.T) {
	f := newFixture(t)
	f.spec(t, "htmlmin:prod", "/src/index.html", "/war/index.html")
	for _, id := range []string{"replace:prod", "replace:stamp"} {
		require.NoError(t, f.reg.Register(&task.Spec{
			ID:      task.MustParseID(id),
			Options: task.Options{Targets: []string{"/war/index.html"}},
		}))
	}
	require.NoError(t, f.reg.Register(&task.Spec{
		ID:      task.MustParseID("copy:staging"),
		Options: task.Options{Copies: []task.CopyRule{{SrcDir: "/war", Pattern: "*.html", DestDir: "/war/staging"}}},
	}))
	f.spec(t, "less:prod", "/src/a.less", "/war/css/a.css")
	f.alias(t, "prod", "htmlmin:prod", "replace:prod", "replace:stamp", "copy:staging")
	f.alias(t, "early-copy", "copy:staging", "replace:prod")

	plan, err := Build(context.Background(), f.reg, "prod")
	require.NoError(t, err)

	want := map[string][]string{
		"replace:prod":  {"htmlmin:prod"},
		"replace:stamp": {"htmlmin:prod", "replace:prod"},
		"copy:staging":  {"htmlmin:prod", "replace:prod", "replace:stamp"},
	}
	for id, expected := range want {
		deps, err := plan.Graph.Dependencies(task.MustParseID(id))
		require.NoError(t, err)
		assert.Equal(t, expected, idStrings(deps), "dependencies of %s", id)
	}

	// A rewrite declared after a reader waits for the reader.
	plan, err = Build(context.Background(), f.reg, "early-copy")
	require.NoError(t, err)
	deps, err := plan.Graph.Dependencies(task.MustParseID("replace:prod"))
	require.NoError(t, err)
	assert.Equal(t, []string{"copy:staging"}, idStrings(deps))
}

func TestBuild_ExplicitEdgesReorderSteps(t *testing.T) {
	f := newFixture(t)
	f.spec(t, "replace:prod", "/out/x", "", "less:prod")
	f.spec(t, "less:prod", "/src/a.less", "/out/a.css")
	f.spec(t, "copy:prod", "/src/b", "/out/b", "less:missing-from-plan")
	f.alias(t, "prod", "replace:prod", "less:prod", "copy:prod")

	plan, err := Build(context.Background(), f.reg, "prod")
	require.NoError(t, err)
	assert.Equal(t, []string{"less:prod", "replace:prod", "copy:prod"}, idStrings(plan.IDs()))
}

func TestBuild_DependencyCycle(t *testing.T) {
	f := newFixture(t)
	f.spec(t, "less:a", "/src/a.less", "/out/a.css", "less:b")
	f.spec(t, "less:b", "/src/b.less", "/out/b.css", "less:a")

	_, err := Build(context.Background(), f.reg, "less")
	var cfgErr *task.ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.ErrorContains(t, err, "cycle")
}

func TestOverlaps(t *testing.T) {
	file := func(p string) task.Footprint { return task.Footprint{Path: p} }
	tree := func(p string) task.Footprint { return task.Footprint{Path: p, Tree: true} }

	testCases := []struct {
		name string
		a, b task.Footprint
		want bool
	}{
		{"same file", file("/out/a.css"), file("/out/a.css"), true},
		{"dir input contains file", tree("/out/css"), file("/out/css/a.css"), true},
		{"file under produced dir", tree("/out/staging/a.css"), tree("/out/staging"), true},
		{"sibling files", file("/out/a.css"), file("/out/b.css"), false},
		{"glob matches file", tree("/out/**/*.html"), file("/out/x/index.html"), true},
		{"file matches glob target", file("/out/x/index.html"), file("/out/**/*.html"), true},
		{"glob misses file", tree("/out/**/*.html"), file("/out/a.css"), false},
		{"glob under produced dir", tree("/out/staging/css/*.css"), tree("/out/staging"), true},
		{"produced dir under glob base", tree("/out/staging/**/*.css"), tree("/out/staging/css"), true},
		{"unrelated", tree("/src/a.less"), file("/out/a.css"), false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, overlaps(tc.a, tc.b))
			assert.Equal(t, tc.want, overlaps(tc.b, tc.a), "overlap must be symmetric")
		})
	}
}

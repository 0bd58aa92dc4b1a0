package yaml

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/task"
)

const sampleConfig = `
project:
  name: flextest
  version: 2.0.1
settings:
  output_root: dist
  workers: 2
tasks:
  - kind: concat
    variant: js
    banner: "/*! ${project.name} ${project.version} */"
    separator: ";\n"
    files:
      dist/all.js: [src/a.js, src/b.js]
  - kind: less
    variant: prod
    compress: true
    paths: [src/less]
    files:
      dist/site.css: src/site.less
  - kind: replace
    variant: stamp
    depends_on: ["less:prod"]
    targets: [dist/index.html]
    patterns:
      - match: "@@stamp"
        replacement: "${epoch_ms}"
aliases:
  - name: prod
    tasks: ["less:prod", "replace:stamp"]
watches:
  - name: styles
    files: ["src/**/*.less"]
    tasks: ["less:prod"]
livereload:
  url: http://localhost:35729
`

func TestLoad_Sample(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "assetgrid.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0644))

	current := time.UnixMilli(42)
	l := &Loader{now: func() time.Time { return current }}
	model, err := l.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "dist"), model.Settings.OutputRoot)
	assert.Equal(t, 2, model.Settings.Workers)
	require.Len(t, model.Tasks, 3)

	concat := model.Tasks[0]
	assert.Equal(t, "/*! flextest 2.0.1 */", concat.Options.Banner)
	assert.Equal(t, ";\n", concat.Options.Separator)
	want := []task.FileMapping{{
		Dest: filepath.Join(dir, "dist/all.js"),
		Src:  []string{filepath.Join(dir, "src/a.js"), filepath.Join(dir, "src/b.js")},
	}}
	if diff := cmp.Diff(want, concat.Files); diff != "" {
		t.Errorf("concat files mismatch (-want +got):\n%s", diff)
	}

	less := model.Tasks[1]
	assert.True(t, less.Options.Compress)
	assert.Equal(t, []string{filepath.Join(dir, "src/less")}, less.Options.Paths)
	assert.Equal(t, []string{filepath.Join(dir, "src/site.less")}, less.Files[0].Src)

	replace := model.Tasks[2]
	assert.Equal(t, []task.ID{task.MustParseID("less:prod")}, replace.DependsOn)
	value := replace.Options.Replacements[0].Value
	first, err := value(context.Background())
	require.NoError(t, err)
	current = time.UnixMilli(43)
	second, err := value(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "42", first)
	assert.Equal(t, "43", second)

	require.Len(t, model.Aliases, 1)
	assert.Equal(t, "prod", model.Aliases[0].Name)
	require.Len(t, model.Watches, 1)
	assert.Equal(t, []string{filepath.Join(dir, "src/**/*.less")}, model.Watches[0].Files)
	require.NotNil(t, model.LiveReload)
	assert.Equal(t, "reload", model.LiveReload.Event)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("ASSETGRID_TEST_BUCKET", "cdn-bucket")
	dir := t.TempDir()
	path := filepath.Join(dir, "assetgrid.yml")
	content := `
settings:
  output_root: dist
tasks:
  - kind: publish
    variant: cdn
    publish:
      endpoint: localhost:9000
      bucket: ${ASSETGRID_TEST_BUCKET}
      access_key: key
      secret_key: secret
      src: dist
      cache_max_age: 1h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	model, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	pub := model.Tasks[0].Options.Publish
	require.NotNil(t, pub)
	assert.Equal(t, "cdn-bucket", pub.Bucket)
	assert.Equal(t, time.Hour, pub.CacheMaxAge)
	assert.Equal(t, filepath.Join(dir, "dist"), pub.SrcDir)
}

func TestExpander_KeepsBareDollar(t *testing.T) {
	t.Setenv("ASSETGRID_TEST_CHANNEL", "beta")
	exp := &expander{
		now:     func() time.Time { return time.UnixMilli(7) },
		project: config.Project{Version: "1.2.0"},
	}

	testCases := []struct {
		in   string
		want string
	}{
		{in: "price: $5 and $HOME_PAGE_X literal", want: "price: $5 and $HOME_PAGE_X literal"},
		{in: "v${project.version} costs $5", want: "v1.2.0 costs $5"},
		{in: "${ASSETGRID_TEST_CHANNEL}/${env.ASSETGRID_TEST_CHANNEL}", want: "beta/beta"},
		{in: "$${epoch_ms}$", want: "$7$"},
		{in: "${ ASSETGRID_TEST_UNSET_VAR }", want: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := exp.valueFunc(tc.in)(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := exp.expand("${project.nickname}")
	assert.ErrorContains(t, err, "unknown reference ${project.nickname}")
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		errMsg  string
	}{
		{name: "missing settings", content: "tasks: []\n", errMsg: "output_root is required"},
		{name: "unknown kind", content: "settings: {output_root: dist}\ntasks:\n  - {kind: sass, variant: x}\n", errMsg: `unknown task kind "sass"`},
		{name: "bad yaml", content: "settings: [\n", errMsg: "failed to parse config file"},
		{name: "bad sources", content: "settings: {output_root: dist}\ntasks:\n  - kind: less\n    variant: x\n    files:\n      a.css: {x: 1}\n", errMsg: "expected a path or a list of paths"},
		{name: "unknown reference", content: "settings: {output_root: dist}\ntasks:\n  - kind: concat\n    variant: x\n    banner: \"${project.nickname}\"\n", errMsg: "unknown reference ${project.nickname}"},
		{name: "replace without patterns", content: "settings: {output_root: dist}\ntasks:\n  - {kind: replace, variant: x}\n", errMsg: "at least one pattern is required"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0644))
			_, err := NewLoader().Load(context.Background(), path)
			require.Error(t, err)
			var cfgErr *task.ConfigError
			assert.True(t, errors.As(err, &cfgErr))
			assert.ErrorContains(t, err, tc.errMsg)
		})
	}
}

package testutil

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/app"
	"github.com/vk/assetgrid/internal/registry"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// WriteFiles writes files, keyed by slash-separated paths relative to root.
func WriteFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

// ReadFile returns the content of a slash-separated path under root.
func ReadFile(t *testing.T, root, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
	require.NoError(t, err)
	return string(data)
}

// ReadTree returns every regular file under root/dir keyed by its
// slash-separated path relative to root/dir.
func ReadTree(t *testing.T, root, dir string) map[string]string {
	t.Helper()
	base := filepath.Join(root, filepath.FromSlash(dir))
	tree := make(map[string]string)
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		tree[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return tree
}

// NewProject writes files into a fresh temporary directory and returns it.
func NewProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	WriteFiles(t, root, files)
	return root
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Root      string
	LogOutput string
	Output    string
	Err       error
	App       *app.App
}

// NewTestApp builds an App from the config file at configPath (relative to
// root). With no modules given, the core modules are used.
func NewTestApp(t *testing.T, root, configPath string, modules ...registry.Module) (*app.App, *SafeBuffer, *SafeBuffer, error) {
	t.Helper()
	logBuffer := &SafeBuffer{}
	outBuffer := &SafeBuffer{}
	cfg, err := app.NewConfig(app.Config{
		ConfigPath: filepath.Join(root, filepath.FromSlash(configPath)),
		LogLevel:   "debug",
		LogFormat:  "text",
	})
	require.NoError(t, err)

	a, err := app.NewApp(outBuffer, logBuffer, cfg, nil, modules...)
	t.Cleanup(func() {
		if os.Getenv("ASSETGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})
	return a, logBuffer, outBuffer, err
}

// RunIntegrationTest writes files into a temporary project, loads
// assetgrid.hcl from it and runs name once.
func RunIntegrationTest(t *testing.T, files map[string]string, name string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, name, modules...)
}

// RunIntegrationTestWithContext is RunIntegrationTest with a caller-provided context.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, name string, modules ...registry.Module) *HarnessResult {
	t.Helper()
	root := NewProject(t, files)

	testApp, logs, out, err := NewTestApp(t, root, "assetgrid.hcl", modules...)
	if err != nil {
		return &HarnessResult{Root: root, LogOutput: logs.String(), Err: err}
	}
	runErr := testApp.Run(ctx, name)
	return &HarnessResult{
		Root:      root,
		LogOutput: logs.String(),
		Output:    out.String(),
		Err:       runErr,
		App:       testApp,
	}
}

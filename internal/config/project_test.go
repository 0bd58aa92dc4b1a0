package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProjectFile(t *testing.T) {
	testCases := []struct {
		name     string
		content  string
		expected Project
	}{
		{
			name:    "author object and licenses list",
			content: `{"name":"flextest","version":"1.2.0","author":{"name":"Jane"},"licenses":[{"type":"MIT"},{"type":"GPL"}]}`,
			expected: Project{
				Name: "flextest", Version: "1.2.0", Author: "Jane", Licenses: []string{"MIT", "GPL"},
			},
		},
		{
			name:    "author string and single license",
			content: `{"name":"flextest","title":"Flex Test","homepage":"https://x.test","author":"Bob","license":"ISC"}`,
			expected: Project{
				Name: "flextest", Title: "Flex Test", Homepage: "https://x.test", Author: "Bob", Licenses: []string{"ISC"},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "package.json")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0644))

			p, err := LoadProjectFile(path)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.expected, p); diff != "" {
				t.Errorf("project mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadProjectFile_Errors(t *testing.T) {
	_, err := LoadProjectFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to read project file")

	path := filepath.Join(t.TempDir(), "package.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
	_, err = LoadProjectFile(path)
	assert.ErrorContains(t, err, "failed to parse project file")
}

func TestProjectMergeAndDisplayName(t *testing.T) {
	base := Project{Name: "a", Version: "1.0.0"}
	merged := base.Merge(Project{Version: "2.0.0", Title: "A!"})
	assert.Equal(t, Project{Name: "a", Version: "2.0.0", Title: "A!"}, merged)
	assert.Equal(t, "A!", merged.DisplayName())
	assert.Equal(t, "a", base.DisplayName())
}

func TestSettingsApplyDefaults(t *testing.T) {
	var s Settings
	s.ApplyDefaults()
	assert.Positive(t, s.Workers)
	assert.Equal(t, DefaultDebounce, s.Debounce)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, "text", s.LogFormat)
}

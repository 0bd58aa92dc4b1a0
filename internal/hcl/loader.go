package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/fsutil"
	"github.com/vk/assetgrid/internal/schema"
	"github.com/vk/assetgrid/internal/task"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	now func() time.Time
}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{now: time.Now}
}

// Load parses every .hcl file found under paths, merges them into one body
// and translates it into the config model. Relative paths inside the files
// resolve against the directory of the first path.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := findAllHCLFiles(paths)
	if err != nil {
		return nil, &task.ConfigError{Msg: "failed to discover configuration files", Err: err}
	}
	if len(hclFiles) == 0 {
		return nil, task.Configf("no .hcl configuration files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	baseDir, err := baseDirOf(paths[0])
	if err != nil {
		return nil, &task.ConfigError{Msg: "failed to resolve configuration directory", Err: err}
	}

	parser := hclparse.NewParser()
	var parsed []*hcl.File
	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, &task.ConfigError{Msg: fmt.Sprintf("failed to parse HCL file %s", file), Err: diags}
		}
		parsed = append(parsed, hclFile)
	}
	body := hcl.MergeFiles(parsed)

	// First pass: project and settings, which feed the evaluation context.
	var header schema.Header
	if diags := gohcl.DecodeBody(body, l.evalContext(nil), &header); diags.HasErrors() {
		return nil, &task.ConfigError{Msg: "failed to decode configuration header", Err: diags}
	}

	model := &config.Model{}
	if model.Project, err = translateProject(header.Project, baseDir); err != nil {
		return nil, err
	}
	if model.Settings, err = translateSettings(header.Settings, baseDir); err != nil {
		return nil, err
	}
	logger.Debug("Configuration header decoded.", "project", model.Project.Name, "output_root", model.Settings.OutputRoot)

	// Second pass: everything that may reference project.* variables.
	var root schema.Root
	if diags := gohcl.DecodeBody(header.Remain, l.evalContext(&model.Project), &root); diags.HasErrors() {
		return nil, &task.ConfigError{Msg: "failed to decode configuration", Err: diags}
	}

	st := &decodeState{loader: l, project: model.Project, baseDir: baseDir}
	for _, t := range root.Tasks {
		spec, err := st.translateTask(t)
		if err != nil {
			return nil, err
		}
		model.Tasks = append(model.Tasks, spec)
	}
	for _, a := range root.Aliases {
		model.Aliases = append(model.Aliases, &task.Alias{Name: a.Name, Tasks: a.Tasks})
	}
	for _, w := range root.Watches {
		model.Watches = append(model.Watches, &config.Watch{
			Name:  w.Name,
			Files: st.resolveAll(w.Files),
			Tasks: w.Tasks,
		})
	}
	if model.LiveReload, err = translateLiveReload(root.LiveReload); err != nil {
		return nil, err
	}

	logger.Debug("HCL loading complete.", "tasks", len(model.Tasks), "aliases", len(model.Aliases), "watches", len(model.Watches))
	return model, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl files found.
func findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		var found []string
		if info.IsDir() {
			found, err = fsutil.FindFilesByExtension(path, ".hcl")
			if err != nil {
				return nil, err
			}
		} else {
			found = []string{path}
		}

		for _, f := range found {
			if _, wasSeen := seen[f]; !wasSeen {
				allFiles = append(allFiles, f)
				seen[f] = struct{}{}
			}
		}
	}
	return allFiles, nil
}

// baseDirOf returns the absolute directory relative paths resolve against.
func baseDirOf(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return abs, nil
	}
	return filepath.Dir(abs), nil
}

package yaml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/task"
	"gopkg.in/yaml.v3"
)

// Loader is the YAML implementation of the config.Loader interface.
type Loader struct {
	now func() time.Time
}

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{now: time.Now}
}

// Load reads a single YAML file. Only the first path is used; YAML
// configurations are not merged.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	if len(paths) == 0 {
		return nil, task.Configf("no configuration file given")
	}
	path := paths[0]
	ctxlog.FromContext(ctx).Debug("YAML loader started.", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &task.ConfigError{Msg: "failed to read config file", Err: err}
	}
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, &task.ConfigError{Msg: "failed to parse config file", Err: err}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &task.ConfigError{Msg: "failed to resolve config path", Err: err}
	}
	return l.translate(&file, filepath.Dir(abs))
}

func (l *Loader) translate(file *File, baseDir string) (*config.Model, error) {
	model := &config.Model{}

	if p := file.Project; p != nil {
		if p.File != "" {
			loaded, err := config.LoadProjectFile(config.ResolvePath(baseDir, p.File))
			if err != nil {
				return nil, &task.ConfigError{Msg: "project", Err: err}
			}
			model.Project = loaded
		}
		model.Project = model.Project.Merge(config.Project{
			Name:     p.Name,
			Title:    p.Title,
			Version:  p.Version,
			Homepage: p.Homepage,
			Author:   p.Author,
			Licenses: p.Licenses,
		})
	}

	if file.Settings == nil {
		return nil, task.Configf("settings.output_root is required")
	}
	settings, err := translateSettings(file.Settings, baseDir)
	if err != nil {
		return nil, err
	}
	model.Settings = settings

	exp := &expander{now: l.now, project: model.Project}
	for i := range file.Tasks {
		spec, err := translateTask(&file.Tasks[i], exp, baseDir)
		if err != nil {
			return nil, err
		}
		model.Tasks = append(model.Tasks, spec)
	}
	for _, a := range file.Aliases {
		model.Aliases = append(model.Aliases, &task.Alias{Name: a.Name, Tasks: a.Tasks})
	}
	for _, w := range file.Watches {
		files := make([]string, 0, len(w.Files))
		for _, f := range w.Files {
			expanded, err := exp.expand(f)
			if err != nil {
				return nil, &task.ConfigError{Msg: fmt.Sprintf("watch %s", w.Name), Err: err}
			}
			files = append(files, config.ResolvePath(baseDir, expanded))
		}
		model.Watches = append(model.Watches, &config.Watch{Name: w.Name, Files: files, Tasks: w.Tasks})
	}
	if lr := file.LiveReload; lr != nil {
		timeout, err := config.ParseDuration(lr.Timeout, "livereload.timeout")
		if err != nil {
			return nil, &task.ConfigError{Err: err}
		}
		url, err := exp.expand(lr.URL)
		if err != nil {
			return nil, &task.ConfigError{Msg: "livereload.url", Err: err}
		}
		model.LiveReload = &config.LiveReload{
			URL:                url,
			Namespace:          lr.Namespace,
			Event:              lr.Event,
			Timeout:            timeout,
			InsecureSkipVerify: lr.InsecureSkipVerify,
		}
		model.LiveReload.ApplyDefaults()
	}
	return model, nil
}

func translateSettings(s *Settings, baseDir string) (config.Settings, error) {
	if s.OutputRoot == "" {
		return config.Settings{}, task.Configf("settings.output_root is required")
	}
	planTimeout, err := config.ParseDuration(s.PlanTimeout, "settings.plan_timeout")
	if err != nil {
		return config.Settings{}, &task.ConfigError{Err: err}
	}
	debounce, err := config.ParseDuration(s.Debounce, "settings.debounce")
	if err != nil {
		return config.Settings{}, &task.ConfigError{Err: err}
	}
	out := config.Settings{
		OutputRoot:      config.ResolvePath(baseDir, s.OutputRoot),
		Workers:         s.Workers,
		PlanTimeout:     planTimeout,
		Debounce:        debounce,
		LogLevel:        s.LogLevel,
		LogFormat:       s.LogFormat,
		HealthcheckPort: s.HealthcheckPort,
	}
	out.ApplyDefaults()
	return out, nil
}

func translateTask(t *Task, exp *expander, baseDir string) (*task.Spec, error) {
	if !task.ValidName(t.Kind) || !task.ValidName(t.Variant) {
		return nil, task.Configf("invalid task name %q %q", t.Kind, t.Variant)
	}
	spec := &task.Spec{ID: task.ID{Kind: task.Kind(t.Kind), Variant: t.Variant}}
	fail := func(format string, args ...any) error {
		return task.Configf("task %s: %s", spec.ID, fmt.Sprintf(format, args...))
	}
	resolve := func(p string) string { return config.ResolvePath(baseDir, p) }
	var expandErr error
	expand := func(v string) string {
		out, err := exp.expand(v)
		if err != nil && expandErr == nil {
			expandErr = err
		}
		return out
	}
	resolveAll := func(ps []string) []string {
		out := make([]string, 0, len(ps))
		for _, p := range ps {
			out = append(out, resolve(p))
		}
		return out
	}

	for _, dep := range t.DependsOn {
		id, err := task.ParseID(dep)
		if err != nil {
			return nil, &task.ConfigError{Msg: fmt.Sprintf("task %s: invalid depends_on entry", spec.ID), Err: err}
		}
		spec.DependsOn = append(spec.DependsOn, id)
	}

	dests := make([]string, 0, len(t.Files))
	for d := range t.Files {
		dests = append(dests, d)
	}
	sort.Strings(dests)
	for _, d := range dests {
		spec.Files = append(spec.Files, task.FileMapping{Dest: resolve(d), Src: resolveAll(t.Files[d])})
	}

	opts := &spec.Options
	switch spec.ID.Kind {
	case "less":
		opts.Compress = t.Compress
		opts.Paths = resolveAll(t.Paths)
	case "htmlmin":
		opts.RemoveComments = t.RemoveComments
		opts.CollapseWhitespace = t.CollapseWhitespace
		opts.MinifyJS = t.MinifyJS
		opts.MinifyCSS = t.MinifyCSS
		opts.KeepClosingSlash = t.KeepClosingSlash
	case "copy":
		if len(t.Copy) == 0 {
			return nil, fail("at least one copy rule is required")
		}
		for _, r := range t.Copy {
			opts.Copies = append(opts.Copies, task.CopyRule{SrcDir: resolve(r.Src), DestDir: resolve(r.Dest), Pattern: r.Pattern})
		}
	case "replace":
		if len(t.Patterns) == 0 {
			return nil, fail("at least one pattern is required")
		}
		opts.Targets = resolveAll(t.Targets)
		for _, p := range t.Patterns {
			if p.Match == "" {
				return nil, fail("pattern match must not be empty")
			}
			// Checked once here; the value is expanded again on every run.
			expand(p.Replacement)
			opts.Replacements = append(opts.Replacements, task.Replacement{Match: p.Match, Value: exp.valueFunc(p.Replacement)})
		}
	case "concat":
		opts.Banner = expand(t.Banner)
		opts.StripBanners = t.StripBanners
		opts.Separator = "\n"
		if t.Separator != nil {
			opts.Separator = *t.Separator
		}
	case "publish":
		p := t.Publish
		if p == nil {
			return nil, fail("a publish section is required")
		}
		maxAge, err := config.ParseDuration(p.CacheMaxAge, "cache_max_age")
		if err != nil {
			return nil, fail("%v", err)
		}
		opts.Publish = &task.PublishOptions{
			Endpoint:    expand(p.Endpoint),
			Region:      expand(p.Region),
			Bucket:      expand(p.Bucket),
			Prefix:      expand(p.Prefix),
			AccessKey:   expand(p.AccessKey),
			SecretKey:   expand(p.SecretKey),
			UseSSL:      p.UseSSL,
			SrcDir:      resolve(p.Src),
			Pattern:     p.Pattern,
			CacheMaxAge: maxAge,
		}
	default:
		return nil, fail("unknown task kind %q", t.Kind)
	}
	if expandErr != nil {
		return nil, fail("%v", expandErr)
	}
	return spec, nil
}

// reference matches ${name}. A bare $ is literal text.
var reference = regexp.MustCompile(`\$\{([^}]+)\}`)

// envName is the shape of a name looked up in the environment.
var envName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// expander resolves ${...} references in string values.
type expander struct {
	now     func() time.Time
	project config.Project
}

func (e *expander) lookup(name string) (string, error) {
	switch name {
	case "timestamp":
		return e.now().UTC().Format(time.RFC3339), nil
	case "epoch_ms":
		return strconv.FormatInt(e.now().UnixMilli(), 10), nil
	case "project.name":
		return e.project.Name, nil
	case "project.title":
		return e.project.Title, nil
	case "project.display_name":
		return e.project.DisplayName(), nil
	case "project.version":
		return e.project.Version, nil
	case "project.homepage":
		return e.project.Homepage, nil
	case "project.author":
		return e.project.Author, nil
	case "project.licenses":
		return strings.Join(e.project.Licenses, ", "), nil
	}
	env := strings.TrimPrefix(name, "env.")
	if !envName.MatchString(env) {
		return "", fmt.Errorf("unknown reference ${%s}", name)
	}
	return os.Getenv(env), nil
}

func (e *expander) expand(s string) (string, error) {
	var firstErr error
	out := reference.ReplaceAllStringFunc(s, func(m string) string {
		v, err := e.lookup(strings.TrimSpace(m[2 : len(m)-1]))
		if err != nil && firstErr == nil {
			firstErr = err
		}
		return v
	})
	return out, firstErr
}

// valueFunc expands s anew on every call so time references stay fresh.
func (e *expander) valueFunc(s string) task.ValueFunc {
	return func(context.Context) (string, error) {
		return e.expand(s)
	}
}

package hcl

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/schema"
	"github.com/vk/assetgrid/internal/task"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// decodeState carries what every task decoder needs.
type decodeState struct {
	loader  *Loader
	project config.Project
	baseDir string
}

// bodyDecoder decodes the kind-specific body of a task block into spec.
type bodyDecoder func(st *decodeState, body hcl.Body, spec *task.Spec) error

var bodyDecoders = map[task.Kind]bodyDecoder{
	"less":    decodeLess,
	"htmlmin": decodeHTMLMin,
	"copy":    decodeCopy,
	"replace": decodeReplace,
	"concat":  decodeConcat,
	"publish": decodePublish,
}

// translateTask converts a task block into an immutable spec.
func (st *decodeState) translateTask(t *schema.Task) (*task.Spec, error) {
	if !task.ValidName(t.Kind) || !task.ValidName(t.Variant) {
		return nil, task.Configf("invalid task name %q %q", t.Kind, t.Variant)
	}
	spec := &task.Spec{ID: task.ID{Kind: task.Kind(t.Kind), Variant: t.Variant}}

	for _, dep := range t.DependsOn {
		id, err := task.ParseID(dep)
		if err != nil {
			return nil, &task.ConfigError{Msg: fmt.Sprintf("task %s: invalid depends_on entry", spec.ID), Err: err}
		}
		spec.DependsOn = append(spec.DependsOn, id)
	}

	decode, ok := bodyDecoders[spec.ID.Kind]
	if !ok {
		return nil, task.Configf("task %s: unknown task kind %q", spec.ID, t.Kind)
	}
	if err := decode(st, t.Body, spec); err != nil {
		return nil, &task.ConfigError{Msg: fmt.Sprintf("task %s", spec.ID), Err: err}
	}
	return spec, nil
}

func (st *decodeState) evalContext() *hcl.EvalContext {
	return st.loader.evalContext(&st.project)
}

func (st *decodeState) resolve(p string) string {
	return config.ResolvePath(st.baseDir, p)
}

func (st *decodeState) resolveAll(ps []string) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, st.resolve(p))
	}
	return out
}

// singleSourceFiles turns a `dest = src` map into mappings sorted by destination.
func (st *decodeState) singleSourceFiles(files map[string]string) []task.FileMapping {
	dests := make([]string, 0, len(files))
	for d := range files {
		dests = append(dests, d)
	}
	sort.Strings(dests)

	out := make([]task.FileMapping, 0, len(dests))
	for _, d := range dests {
		out = append(out, task.FileMapping{Dest: st.resolve(d), Src: []string{st.resolve(files[d])}})
	}
	return out
}

func decodeLess(st *decodeState, body hcl.Body, spec *task.Spec) error {
	var b schema.LessBody
	if diags := gohcl.DecodeBody(body, st.evalContext(), &b); diags.HasErrors() {
		return diags
	}
	spec.Files = st.singleSourceFiles(b.Files)
	spec.Options.Compress = b.Compress
	spec.Options.Paths = st.resolveAll(b.Paths)
	return nil
}

func decodeHTMLMin(st *decodeState, body hcl.Body, spec *task.Spec) error {
	var b schema.HTMLMinBody
	if diags := gohcl.DecodeBody(body, st.evalContext(), &b); diags.HasErrors() {
		return diags
	}
	spec.Files = st.singleSourceFiles(b.Files)
	spec.Options.RemoveComments = b.RemoveComments
	spec.Options.CollapseWhitespace = b.CollapseWhitespace
	spec.Options.MinifyJS = b.MinifyJS
	spec.Options.MinifyCSS = b.MinifyCSS
	spec.Options.KeepClosingSlash = b.KeepClosingSlash
	return nil
}

func decodeCopy(st *decodeState, body hcl.Body, spec *task.Spec) error {
	var b schema.CopyBody
	if diags := gohcl.DecodeBody(body, st.evalContext(), &b); diags.HasErrors() {
		return diags
	}
	if len(b.Rules) == 0 {
		return fmt.Errorf("at least one copy block is required")
	}
	for _, r := range b.Rules {
		spec.Options.Copies = append(spec.Options.Copies, task.CopyRule{
			SrcDir:  st.resolve(r.Src),
			DestDir: st.resolve(r.Dest),
			Pattern: r.Pattern,
		})
	}
	return nil
}

func decodeReplace(st *decodeState, body hcl.Body, spec *task.Spec) error {
	var b schema.ReplaceBody
	if diags := gohcl.DecodeBody(body, st.evalContext(), &b); diags.HasErrors() {
		return diags
	}
	if len(b.Patterns) == 0 {
		return fmt.Errorf("at least one pattern block is required")
	}
	spec.Options.Targets = st.resolveAll(b.Targets)
	for _, p := range b.Patterns {
		if p.Match == "" {
			return fmt.Errorf("pattern match must not be empty")
		}
		value := st.replacementValue(p.Replacement)
		// Evaluate once so broken expressions fail at load, not mid-plan.
		if _, err := value(context.Background()); err != nil {
			return fmt.Errorf("pattern %q: %w", p.Match, err)
		}
		spec.Options.Replacements = append(spec.Options.Replacements, task.Replacement{Match: p.Match, Value: value})
	}
	return nil
}

// replacementValue defers evaluation of expr to execution time.
func (st *decodeState) replacementValue(expr hcl.Expression) task.ValueFunc {
	loader, project := st.loader, st.project
	return func(context.Context) (string, error) {
		val, diags := expr.Value(loader.evalContext(&project))
		if diags.HasErrors() {
			return "", diags
		}
		str, err := convert.Convert(val, cty.String)
		if err != nil {
			return "", fmt.Errorf("replacement must be a string: %w", err)
		}
		if str.IsNull() || !str.IsKnown() {
			return "", fmt.Errorf("replacement evaluated to null")
		}
		return str.AsString(), nil
	}
}

func decodeConcat(st *decodeState, body hcl.Body, spec *task.Spec) error {
	var b schema.ConcatBody
	if diags := gohcl.DecodeBody(body, st.evalContext(), &b); diags.HasErrors() {
		return diags
	}
	dests := make([]string, 0, len(b.Files))
	for d := range b.Files {
		dests = append(dests, d)
	}
	sort.Strings(dests)
	for _, d := range dests {
		spec.Files = append(spec.Files, task.FileMapping{Dest: st.resolve(d), Src: st.resolveAll(b.Files[d])})
	}
	spec.Options.Banner = b.Banner
	spec.Options.StripBanners = b.StripBanners
	spec.Options.Separator = "\n"
	if b.Separator != nil {
		spec.Options.Separator = *b.Separator
	}
	return nil
}

func decodePublish(st *decodeState, body hcl.Body, spec *task.Spec) error {
	var b schema.PublishBody
	if diags := gohcl.DecodeBody(body, st.evalContext(), &b); diags.HasErrors() {
		return diags
	}
	maxAge, err := config.ParseDuration(b.CacheMaxAge, "cache_max_age")
	if err != nil {
		return err
	}
	spec.Options.Publish = &task.PublishOptions{
		Endpoint:    b.Endpoint,
		Region:      b.Region,
		Bucket:      b.Bucket,
		Prefix:      b.Prefix,
		AccessKey:   b.AccessKey,
		SecretKey:   b.SecretKey,
		UseSSL:      b.UseSSL,
		SrcDir:      st.resolve(b.Src),
		Pattern:     b.Pattern,
		CacheMaxAge: maxAge,
	}
	return nil
}

// translateProject merges an optional package.json with the block's own fields.
func translateProject(p *schema.Project, baseDir string) (config.Project, error) {
	if p == nil {
		return config.Project{}, nil
	}
	var project config.Project
	if p.File != "" {
		loaded, err := config.LoadProjectFile(config.ResolvePath(baseDir, p.File))
		if err != nil {
			return config.Project{}, &task.ConfigError{Msg: "project", Err: err}
		}
		project = loaded
	}
	return project.Merge(config.Project{
		Name:     p.Name,
		Title:    p.Title,
		Version:  p.Version,
		Homepage: p.Homepage,
		Author:   p.Author,
		Licenses: p.Licenses,
	}), nil
}

func translateSettings(s *schema.Settings, baseDir string) (config.Settings, error) {
	if s == nil {
		return config.Settings{}, task.Configf("a settings block with output_root is required")
	}
	planTimeout, err := config.ParseDuration(s.PlanTimeout, "plan_timeout")
	if err != nil {
		return config.Settings{}, &task.ConfigError{Msg: "settings", Err: err}
	}
	debounce, err := config.ParseDuration(s.Debounce, "debounce")
	if err != nil {
		return config.Settings{}, &task.ConfigError{Msg: "settings", Err: err}
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

func translateLiveReload(lr *schema.LiveReload) (*config.LiveReload, error) {
	if lr == nil {
		return nil, nil
	}
	timeout, err := config.ParseDuration(lr.Timeout, "timeout")
	if err != nil {
		return nil, &task.ConfigError{Msg: "livereload", Err: err}
	}
	out := &config.LiveReload{
		URL:                lr.URL,
		Namespace:          lr.Namespace,
		Event:              lr.Event,
		Timeout:            timeout,
		InsecureSkipVerify: lr.InsecureSkipVerify,
	}
	out.ApplyDefaults()
	return out, nil
}

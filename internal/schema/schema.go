// Package schema holds the gohcl decoding targets for configuration files.
// The structs mirror the block layout of a file; translation into the
// format-agnostic config model happens in the hcl package.
package schema

import (
	"github.com/hashicorp/hcl/v2"
)

// --- Top-level structures ---

// Header is decoded first: its blocks feed the evaluation context used to
// decode everything else.
type Header struct {
	Project  *Project  `hcl:"project,block"`
	Settings *Settings `hcl:"settings,block"`
	Remain   hcl.Body  `hcl:",remain"`
}

// Root holds every block that may reference `project.*` variables.
type Root struct {
	Tasks      []*Task     `hcl:"task,block"`
	Aliases    []*Alias    `hcl:"alias,block"`
	Watches    []*Watch    `hcl:"watch,block"`
	LiveReload *LiveReload `hcl:"livereload,block"`
}

// Project represents the `project` block. File optionally points at a
// package.json whose fields are overlaid by the attributes set here.
type Project struct {
	File     string   `hcl:"file,optional"`
	Name     string   `hcl:"name,optional"`
	Title    string   `hcl:"title,optional"`
	Version  string   `hcl:"version,optional"`
	Homepage string   `hcl:"homepage,optional"`
	Author   string   `hcl:"author,optional"`
	Licenses []string `hcl:"licenses,optional"`
}

// Settings represents the `settings` block.
type Settings struct {
	OutputRoot  string `hcl:"output_root"`
	Workers     int    `hcl:"workers,optional"`
	PlanTimeout string `hcl:"plan_timeout,optional"`
	Debounce    string `hcl:"debounce,optional"`
	LogLevel    string `hcl:"log_level,optional"`
	LogFormat   string `hcl:"log_format,optional"`
	// HealthcheckPort serves GET /health during watch sessions when > 0.
	HealthcheckPort int `hcl:"healthcheck_port,optional"`
}

// Task represents a `task "<kind>" "<variant>"` block. Its body is decoded
// a second time against the kind-specific struct below.
type Task struct {
	Kind      string   `hcl:"kind,label"`
	Variant   string   `hcl:"variant,label"`
	DependsOn []string `hcl:"depends_on,optional"`
	Body      hcl.Body `hcl:",remain"`
}

// Alias represents an `alias "<name>"` block.
type Alias struct {
	Name  string   `hcl:"name,label"`
	Tasks []string `hcl:"tasks"`
}

// Watch represents a `watch "<name>"` block.
type Watch struct {
	Name  string   `hcl:"name,label"`
	Files []string `hcl:"files"`
	Tasks []string `hcl:"tasks"`
}

// LiveReload represents the `livereload` block.
type LiveReload struct {
	URL                string `hcl:"url"`
	Namespace          string `hcl:"namespace,optional"`
	Event              string `hcl:"event,optional"`
	Timeout            string `hcl:"timeout,optional"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
}

// --- Kind-specific task bodies ---

// LessBody is the body of a `task "less"` block.
type LessBody struct {
	Paths    []string          `hcl:"paths,optional"`
	Compress bool              `hcl:"compress,optional"`
	Files    map[string]string `hcl:"files"`
}

// HTMLMinBody is the body of a `task "htmlmin"` block.
type HTMLMinBody struct {
	RemoveComments     bool              `hcl:"remove_comments,optional"`
	CollapseWhitespace bool              `hcl:"collapse_whitespace,optional"`
	MinifyJS           bool              `hcl:"minify_js,optional"`
	MinifyCSS          bool              `hcl:"minify_css,optional"`
	KeepClosingSlash   bool              `hcl:"keep_closing_slash,optional"`
	Files              map[string]string `hcl:"files"`
}

// CopyRule is one `copy` block inside a `task "copy"` block.
type CopyRule struct {
	Src     string `hcl:"src"`
	Dest    string `hcl:"dest"`
	Pattern string `hcl:"pattern,optional"`
}

// CopyBody is the body of a `task "copy"` block.
type CopyBody struct {
	Rules []*CopyRule `hcl:"copy,block"`
}

// Pattern is one `pattern` block inside a `task "replace"` block. The
// replacement stays an expression so it is evaluated on every run.
type Pattern struct {
	Match       string         `hcl:"match"`
	Replacement hcl.Expression `hcl:"replacement"`
}

// ReplaceBody is the body of a `task "replace"` block.
type ReplaceBody struct {
	Targets  []string   `hcl:"targets"`
	Patterns []*Pattern `hcl:"pattern,block"`
}

// ConcatBody is the body of a `task "concat"` block.
type ConcatBody struct {
	Banner       string              `hcl:"banner,optional"`
	StripBanners bool                `hcl:"strip_banners,optional"`
	Separator    *string             `hcl:"separator,optional"`
	Files        map[string][]string `hcl:"files"`
}

// PublishBody is the body of a `task "publish"` block.
type PublishBody struct {
	Endpoint    string `hcl:"endpoint"`
	Region      string `hcl:"region,optional"`
	Bucket      string `hcl:"bucket"`
	Prefix      string `hcl:"prefix,optional"`
	AccessKey   string `hcl:"access_key"`
	SecretKey   string `hcl:"secret_key"`
	UseSSL      bool   `hcl:"use_ssl,optional"`
	Src         string `hcl:"src"`
	Pattern     string `hcl:"pattern,optional"`
	CacheMaxAge string `hcl:"cache_max_age,optional"`
}

package yaml

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// File is the top-level layout of a YAML configuration file.
type File struct {
	Project    *Project    `yaml:"project"`
	Settings   *Settings   `yaml:"settings"`
	Tasks      []Task      `yaml:"tasks"`
	Aliases    []Alias     `yaml:"aliases"`
	Watches    []Watch     `yaml:"watches"`
	LiveReload *LiveReload `yaml:"livereload"`
}

// Project mirrors the HCL `project` block.
type Project struct {
	File     string   `yaml:"file"`
	Name     string   `yaml:"name"`
	Title    string   `yaml:"title"`
	Version  string   `yaml:"version"`
	Homepage string   `yaml:"homepage"`
	Author   string   `yaml:"author"`
	Licenses []string `yaml:"licenses"`
}

// Settings mirrors the HCL `settings` block.
type Settings struct {
	OutputRoot      string `yaml:"output_root"`
	Workers         int    `yaml:"workers"`
	PlanTimeout     string `yaml:"plan_timeout"`
	Debounce        string `yaml:"debounce"`
	LogLevel        string `yaml:"log_level"`
	LogFormat       string `yaml:"log_format"`
	HealthcheckPort int    `yaml:"healthcheck_port"`
}

// Task is one entry of the `tasks` list. Fields not understood by the
// task's kind are ignored.
type Task struct {
	Kind      string             `yaml:"kind"`
	Variant   string             `yaml:"variant"`
	DependsOn []string           `yaml:"depends_on"`
	Files     map[string]Sources `yaml:"files"`

	Paths    []string `yaml:"paths"`
	Compress bool     `yaml:"compress"`

	RemoveComments     bool `yaml:"remove_comments"`
	CollapseWhitespace bool `yaml:"collapse_whitespace"`
	MinifyJS           bool `yaml:"minify_js"`
	MinifyCSS          bool `yaml:"minify_css"`
	KeepClosingSlash   bool `yaml:"keep_closing_slash"`

	Copy []CopyRule `yaml:"copy"`

	Targets  []string  `yaml:"targets"`
	Patterns []Pattern `yaml:"patterns"`

	Banner       string  `yaml:"banner"`
	StripBanners bool    `yaml:"strip_banners"`
	Separator    *string `yaml:"separator"`

	Publish *Publish `yaml:"publish"`
}

// CopyRule is one entry of a copy task's `copy` list.
type CopyRule struct {
	Src     string `yaml:"src"`
	Dest    string `yaml:"dest"`
	Pattern string `yaml:"pattern"`
}

// Pattern is one entry of a replace task's `patterns` list.
type Pattern struct {
	Match       string `yaml:"match"`
	Replacement string `yaml:"replacement"`
}

// Publish configures a publish task.
type Publish struct {
	Endpoint    string `yaml:"endpoint"`
	Region      string `yaml:"region"`
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	AccessKey   string `yaml:"access_key"`
	SecretKey   string `yaml:"secret_key"`
	UseSSL      bool   `yaml:"use_ssl"`
	Src         string `yaml:"src"`
	Pattern     string `yaml:"pattern"`
	CacheMaxAge string `yaml:"cache_max_age"`
}

// Alias is one entry of the `aliases` list.
type Alias struct {
	Name  string   `yaml:"name"`
	Tasks []string `yaml:"tasks"`
}

// Watch is one entry of the `watches` list.
type Watch struct {
	Name  string   `yaml:"name"`
	Files []string `yaml:"files"`
	Tasks []string `yaml:"tasks"`
}

// LiveReload mirrors the HCL `livereload` block.
type LiveReload struct {
	URL                string `yaml:"url"`
	Namespace          string `yaml:"namespace"`
	Event              string `yaml:"event"`
	Timeout            string `yaml:"timeout"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// Sources accepts either a single path or a list of paths.
type Sources []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Sources) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*s = Sources{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	default:
		return fmt.Errorf("line %d: expected a path or a list of paths", node.Line)
	}
}

package task

import (
	"context"
	"time"
)

// FileMapping maps one destination file to the source file(s) it is built
// from. Most kinds take exactly one source; concat takes several.
type FileMapping struct {
	Dest string
	Src  []string
}

// CopyRule copies every file under SrcDir matching Pattern into DestDir,
// preserving the path relative to SrcDir.
type CopyRule struct {
	SrcDir  string
	DestDir string
	Pattern string
}

// ValueFunc computes a value at execution time. It is invoked on every run
// and its result must never be cached across runs.
type ValueFunc func(ctx context.Context) (string, error)

// Replacement is one literal `match -> value` rewrite for the replace kind.
type Replacement struct {
	Match string
	Value ValueFunc
}

// Literal returns a ValueFunc that always yields s.
func Literal(s string) ValueFunc {
	return func(context.Context) (string, error) { return s, nil }
}

// PublishOptions configures the upload of a staged subtree to an
// S3-compatible bucket.
type PublishOptions struct {
	Endpoint    string
	Region      string
	Bucket      string
	Prefix      string
	AccessKey   string
	SecretKey   string
	UseSSL      bool
	SrcDir      string
	Pattern     string
	CacheMaxAge time.Duration
}

// Options is the record of recognized per-kind options. Each kind reads the
// fields it understands and ignores the rest.
type Options struct {
	// less
	Compress bool
	Paths    []string

	// htmlmin
	RemoveComments     bool
	CollapseWhitespace bool
	MinifyJS           bool
	MinifyCSS          bool
	KeepClosingSlash   bool

	// copy
	Copies []CopyRule

	// replace
	Targets      []string
	Replacements []Replacement

	// concat
	Banner       string
	StripBanners bool
	Separator    string

	// publish
	Publish *PublishOptions
}

// Spec is the immutable description of one file-transform unit.
type Spec struct {
	ID        ID
	Files     []FileMapping
	Options   Options
	DependsOn []ID
}

// Destinations returns every path this spec writes: destination files and
// copy destination directories.
func (s *Spec) Destinations() []string {
	var out []string
	for _, f := range s.Files {
		out = append(out, f.Dest)
	}
	for _, c := range s.Options.Copies {
		out = append(out, c.DestDir)
	}
	return out
}

// Inputs returns every path or glob this spec reads: sources, copy source
// directories, replace targets and the publish source directory.
func (s *Spec) Inputs() []string {
	var out []string
	for _, f := range s.Files {
		out = append(out, f.Src...)
	}
	for _, c := range s.Options.Copies {
		out = append(out, c.SrcDir)
	}
	out = append(out, s.Options.Targets...)
	if s.Options.Publish != nil && s.Options.Publish.SrcDir != "" {
		out = append(out, s.Options.Publish.SrcDir)
	}
	return out
}

// Footprint is a path or glob a spec touches. Tree marks a directory whose
// whole subtree is covered.
type Footprint struct {
	Path string
	Tree bool
}

// Reads returns the footprints this spec reads. Plain source paths may name
// directories, so they cover their subtree.
func (s *Spec) Reads() []Footprint {
	var out []Footprint
	for _, in := range s.Inputs() {
		out = append(out, Footprint{Path: in, Tree: true})
	}
	return out
}

// Writes returns the footprints this spec writes: destination files, copy
// destination directories and the replace targets rewritten in place.
func (s *Spec) Writes() []Footprint {
	var out []Footprint
	for _, f := range s.Files {
		out = append(out, Footprint{Path: f.Dest})
	}
	for _, c := range s.Options.Copies {
		out = append(out, Footprint{Path: c.DestDir, Tree: true})
	}
	for _, t := range s.Options.Targets {
		out = append(out, Footprint{Path: t})
	}
	return out
}

// Alias is a named, ordered composition of task or alias names.
type Alias struct {
	Name  string
	Tasks []string
}

package hcl

import (
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/assetgrid/internal/config"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// evalContext builds the evaluation context for configuration expressions.
// Passing a nil project omits the `project` variable, which is the case
// while the header blocks themselves are being decoded.
func (l *Loader) evalContext(project *config.Project) *hcl.EvalContext {
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
		Functions: l.functions(),
	}
	if project != nil {
		evalCtx.Variables["project"] = projectValue(*project)
	}
	return evalCtx
}

func (l *Loader) functions() map[string]function.Function {
	return map[string]function.Function{
		"timestamp":  timestampFunc(l.now),
		"epoch_ms":   epochMillisFunc(l.now),
		"env":        envFunc,
		"formatdate": stdlib.FormatDateFunc,
		"upper":      stdlib.UpperFunc,
		"lower":      stdlib.LowerFunc,
		"join":       stdlib.JoinFunc,
	}
}

// projectValue exposes project metadata as the `project` object.
func projectValue(p config.Project) cty.Value {
	licenses := cty.ListValEmpty(cty.String)
	if len(p.Licenses) > 0 {
		vals := make([]cty.Value, 0, len(p.Licenses))
		for _, l := range p.Licenses {
			vals = append(vals, cty.StringVal(l))
		}
		licenses = cty.ListVal(vals)
	}
	return cty.ObjectVal(map[string]cty.Value{
		"name":         cty.StringVal(p.Name),
		"title":        cty.StringVal(p.Title),
		"display_name": cty.StringVal(p.DisplayName()),
		"version":      cty.StringVal(p.Version),
		"homepage":     cty.StringVal(p.Homepage),
		"author":       cty.StringVal(p.Author),
		"licenses":     licenses,
	})
}

func timestampFunc(now func() time.Time) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{},
		Type:   function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			return cty.StringVal(now().UTC().Format(time.RFC3339)), nil
		},
	})
}

func epochMillisFunc(now func() time.Time) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{},
		Type:   function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			return cty.StringVal(strconv.FormatInt(now().UnixMilli(), 10)), nil
		},
	})
}

var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "name", Type: cty.String},
	},
	Type: function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
		return cty.StringVal(os.Getenv(args[0].AsString())), nil
	},
})

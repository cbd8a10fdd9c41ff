package render

import (
	"errors"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// functions available inside templates.
var functions = map[string]function.Function{
	"upper":      stdlib.UpperFunc,
	"lower":      stdlib.LowerFunc,
	"format":     stdlib.FormatFunc,
	"join":       stdlib.JoinFunc,
	"split":      stdlib.SplitFunc,
	"replace":    stdlib.ReplaceFunc,
	"trimspace":  stdlib.TrimSpaceFunc,
	"jsonencode": stdlib.JSONEncodeFunc,
	"jsondecode": stdlib.JSONDecodeFunc,
	"length":     stdlib.LengthFunc,
	"coalesce":   stdlib.CoalesceFunc,
}

// HCLRenderer renders HCL native templates. Parsed templates are cached,
// so it is safe and cheap to render the same template concurrently.
type HCLRenderer struct {
	cache sync.Map // string -> hclsyntax.Expression
}

var _ Renderer = (*HCLRenderer)(nil)

// NewHCLRenderer creates a renderer with an empty template cache.
func NewHCLRenderer() *HCLRenderer {
	return &HCLRenderer{}
}

func (r *HCLRenderer) Render(template string, ctx *Context) (string, error) {
	expr, err := r.parse(template)
	if err != nil {
		return "", &Error{Template: template, Err: err}
	}

	vars, err := toCtyObjectMap(ctx.Variables())
	if err != nil {
		return "", &Error{Template: template, Err: err}
	}

	val, diags := expr.Value(&hcl.EvalContext{Variables: vars, Functions: functions})
	if diags.HasErrors() {
		return "", &Error{Template: template, Err: diags}
	}

	val, err = convert.Convert(val, cty.String)
	if err != nil {
		return "", &Error{Template: template, Err: err}
	}
	if val.IsNull() || !val.IsKnown() {
		return "", &Error{Template: template, Err: errors.New("template produced no value")}
	}
	return val.AsString(), nil
}

func (r *HCLRenderer) parse(template string) (hclsyntax.Expression, error) {
	if cached, ok := r.cache.Load(template); ok {
		return cached.(hclsyntax.Expression), nil
	}

	expr, diags := hclsyntax.ParseTemplate([]byte(template), "template", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}
	r.cache.Store(template, expr)
	return expr, nil
}

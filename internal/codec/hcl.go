package codec

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

// jobBlock is the only block type accepted at the top level of an HCL
// file. Each `job "<name>" { ... }` block becomes an entry of "jobs".
const jobBlock = "job"

// decodeHCL evaluates top-level attributes and job blocks without an
// evaluation context.
func decodeHCL(data []byte, filename string) (any, error) {
	file, diags := hclsyntax.ParseConfig(data, filename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, diags
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("unexpected body type %T", file.Body)
	}

	root, err := attributesToMap(body)
	if err != nil {
		return nil, err
	}

	var jobs []any
	for _, block := range body.Blocks {
		if block.Type != jobBlock {
			return nil, fmt.Errorf("%s: unsupported block %q, only %q blocks are allowed", block.DefRange().String(), block.Type, jobBlock)
		}
		if len(block.Labels) != 1 {
			return nil, fmt.Errorf("%s: a job block needs exactly one label", block.DefRange().String())
		}
		if len(block.Body.Blocks) > 0 {
			return nil, fmt.Errorf("%s: nested blocks are not supported in job %q", block.Body.Blocks[0].DefRange().String(), block.Labels[0])
		}

		job, err := attributesToMap(block.Body)
		if err != nil {
			return nil, fmt.Errorf("job %q: %w", block.Labels[0], err)
		}
		if _, dup := job["name"]; dup {
			return nil, fmt.Errorf("job %q: the name comes from the block label and cannot be set as an attribute", block.Labels[0])
		}
		job["name"] = block.Labels[0]
		jobs = append(jobs, job)
	}

	if jobs != nil {
		if _, dup := root["jobs"]; dup {
			return nil, fmt.Errorf("jobs cannot be declared both as an attribute and as blocks")
		}
		root["jobs"] = jobs
	}
	return root, nil
}

func attributesToMap(body *hclsyntax.Body) (map[string]any, error) {
	out := make(map[string]any, len(body.Attributes))
	for name, attr := range body.Attributes {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		native, err := ctyToNative(val)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		out[name] = native
	}
	return out, nil
}

// ctyToNative converts a cty.Value to plain Go values. Integral numbers
// become int64, the rest float64.
func ctyToNative(val cty.Value) (any, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, nil
	}

	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil
	case ty == cty.Bool:
		return val.True(), nil
	case ty == cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			if i, acc := bf.Int64(); acc == big.Exact {
				return i, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			native, err := ctyToNative(v)
			if err != nil {
				return nil, fmt.Errorf("in key %q: %w", k.AsString(), err)
			}
			out[k.AsString()] = native
		}
		return out, nil
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		out := make([]any, 0, val.LengthInt())
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			native, err := ctyToNative(v)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value type %s", ty.FriendlyName())
	}
}

package render

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"
)

// ToCty converts the generic values produced by the codecs into cty
// values. Lists become tuples and maps become objects so that mixed
// element types are preserved. Times, as TOML dates decode, become RFC 3339
// strings.
func ToCty(v any) (cty.Value, error) {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case cty.Value:
		return x, nil
	case string:
		return cty.StringVal(x), nil
	case bool:
		return cty.BoolVal(x), nil
	case time.Time:
		return cty.StringVal(x.Format(time.RFC3339)), nil
	case int:
		return cty.NumberIntVal(int64(x)), nil
	case int64:
		return cty.NumberIntVal(x), nil
	case uint64:
		return cty.NumberUIntVal(x), nil
	case float64:
		return cty.NumberFloatVal(x), nil
	case json.Number:
		n, err := cty.ParseNumberVal(x.String())
		if err != nil {
			return cty.NilVal, fmt.Errorf("invalid number %q: %w", x, err)
		}
		return n, nil
	case []any:
		if len(x) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elems := make([]cty.Value, len(x))
		for i, e := range x {
			ev, err := ToCty(e)
			if err != nil {
				return cty.NilVal, fmt.Errorf("[%d]: %w", i, err)
			}
			elems[i] = ev
		}
		return cty.TupleVal(elems), nil
	case map[string]any:
		attrs, err := toCtyObjectMap(x)
		if err != nil {
			return cty.NilVal, err
		}
		return objectVal(attrs), nil
	case map[string]string:
		attrs := make(map[string]cty.Value, len(x))
		for k, s := range x {
			attrs[k] = cty.StringVal(s)
		}
		return objectVal(attrs), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported value type %T", v)
	}
}

func toCtyObjectMap(m map[string]any) (map[string]cty.Value, error) {
	out := make(map[string]cty.Value, len(m))
	for k, v := range m {
		cv, err := ToCty(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		out[k] = cv
	}
	return out, nil
}

func objectVal(attrs map[string]cty.Value) cty.Value {
	if len(attrs) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(attrs)
}

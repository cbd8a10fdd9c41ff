package config

import (
	"fmt"
	"strings"
)

// TemplatePath is a parsed "<input>:<output>" transform spec. Both halves
// are templates rendered per iteration.
type TemplatePath struct {
	Input  string
	Output string
}

// ParseTemplatePath splits spec on ':' and requires exactly two non-empty
// segments.
func ParseTemplatePath(spec string) (TemplatePath, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return TemplatePath{}, fmt.Errorf("%w: %q must be \"<input>:<output>\"", ErrMalformedTemplatePath, spec)
	}
	return TemplatePath{Input: parts[0], Output: parts[1]}, nil
}

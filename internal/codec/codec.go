package codec

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Format identifies a supported serialization format.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	TOML Format = "toml"
	HCL  Format = "hcl"
)

// ErrUnsupportedFormat is returned for files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported file format")

var decoders = map[Format]func(data []byte, filename string) (any, error){
	JSON: decodeJSON,
	YAML: decodeYAML,
	TOML: decodeTOML,
	HCL:  decodeHCL,
}

// FormatOf picks the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return JSON, nil
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	case ".hcl":
		return HCL, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
}

// Decode parses data in the given format. filename is only used in error
// messages.
func Decode(format Format, data []byte, filename string) (any, error) {
	decode, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	v, err := decode(data, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s as %s: %w", filename, format, err)
	}
	return normalize(v), nil
}

// DecodeFile reads and parses path.
func DecodeFile(path string) (any, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Decode(format, data, path)
}

// FileLoader adapts DecodeFile to config.FileLoader.
type FileLoader struct{}

func (FileLoader) LoadFile(path string) (any, error) {
	return DecodeFile(path)
}

// normalize rewrites the container types some decoders produce
// (map[any]any, []map[string]any) into map[string]any and []any.
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, val := range x {
			x[k] = normalize(val)
		}
		return x
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		for i, val := range x {
			x[i] = normalize(val)
		}
		return x
	case []map[string]any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}

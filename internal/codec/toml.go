package codec

import "github.com/BurntSushi/toml"

// decodeTOML always yields a table; TOML has no top-level arrays.
func decodeTOML(data []byte, _ string) (any, error) {
	var v map[string]any
	if _, err := toml.Decode(string(data), &v); err != nil {
		return nil, err
	}
	return v, nil
}

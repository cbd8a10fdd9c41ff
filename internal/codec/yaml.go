package codec

import "gopkg.in/yaml.v3"

func decodeYAML(data []byte, _ string) (any, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

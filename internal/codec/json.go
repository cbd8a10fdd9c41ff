package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// decodeJSON keeps numbers as json.Number so integers survive intact.
func decodeJSON(data []byte, _ string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after the top-level value")
	}
	return v, nil
}

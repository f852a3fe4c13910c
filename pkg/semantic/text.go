package semantic

import (
	"fmt"

	gojson "github.com/goccy/go-json"
)

// Text returns the text an embedding is computed from: strings are used as
// is, byte slices are read as UTF-8 and everything else is JSON-encoded.
func Text(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case nil:
		return "", fmt.Errorf("%w: nil value has no text", ErrValidation)
	}

	b, err := gojson.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%w: serializing %T: %v", ErrValidation, v, err)
	}
	return string(b), nil
}

func payloadText[T any](payload T) (string, error) {
	return Text(payload)
}

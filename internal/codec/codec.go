package codec

import (
	"encoding/json"
	"fmt"
)

// Codec converts values to and from the string form held in the session store.
// Decode failures on stored data are expected (truncated writes, foreign
// entries) and callers treat them as "no value present".

type Codec interface {
	Encode(v any) (string, error)
	Decode(s string, v any) error
}

// JSON encodes values as compact JSON. The zero value is ready to use.
type JSON struct{}

func (JSON) Encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("codec encode: %w", err)
	}
	return string(b), nil
}

func (JSON) Decode(s string, v any) error {
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("codec decode: %w", err)
	}
	return nil
}

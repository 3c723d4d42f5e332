package domain

import (
	"encoding/json"
	"errors"
	"io"
)

// ErrMalformedBatch is returned when a payload is neither a JSON object nor an array.
var ErrMalformedBatch = errors.New("body must be an object or an array of objects")

// DecodeCandidates reads a single JSON object or an array of objects. Numbers are kept as
// json.Number so amounts are never routed through float64. Array elements that are not objects
// decode to empty candidates, which validation then drops.
func DecodeCandidates(r io.Reader) ([]RawActivity, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	var body any
	if err := decoder.Decode(&body); err != nil {
		return nil, err
	}

	switch v := body.(type) {
	case map[string]any:
		return []RawActivity{v}, nil
	case []any:
		out := make([]RawActivity, 0, len(v))
		for _, item := range v {
			obj, _ := item.(map[string]any)
			out = append(out, obj)
		}
		return out, nil
	default:
		return nil, ErrMalformedBatch
	}
}

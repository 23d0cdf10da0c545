package patch

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// ParseJSONPatch parses and structurally validates an RFC 6902 operation
// sequence: the payload must be a JSON array and every element must carry a
// string "op" and a string "path". Malformed input fails here, before any
// application is attempted, with an error distinct from application failures.
func ParseJSONPatch(text string) (jsonpatch.Patch, error) {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(text), &elements); err != nil {
		return nil, fmt.Errorf("JSON patch must be an array of operations: %w", err)
	}
	for i, el := range elements {
		var op struct {
			Op   *string `json:"op"`
			Path *string `json:"path"`
		}
		if err := json.Unmarshal(el, &op); err != nil {
			return nil, fmt.Errorf("operation %d is not a valid operation object: %w", i, err)
		}
		if op.Op == nil {
			return nil, fmt.Errorf("operation %d is missing a string %q member", i, "op")
		}
		if op.Path == nil {
			return nil, fmt.Errorf("operation %d is missing a string %q member", i, "path")
		}
	}
	p, err := jsonpatch.DecodePatch([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("decode JSON patch: %w", err)
	}
	return p, nil
}

// ApplyJSONPatch applies an operation sequence to the JSON document and
// returns the patched serialization. The input string is never modified: the
// patch runs against a decoded scratch copy, so any failing operation
// (missing path, out-of-range index, failed test) leaves the stored value
// untouched. An empty document defaults to {}.
func ApplyJSONPatch(document string, ops jsonpatch.Patch) (string, error) {
	doc := []byte(document)
	if len(bytes.TrimSpace(doc)) == 0 {
		doc = []byte("{}")
	}
	out, err := ops.Apply(doc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Package jsonutil is a small JSON reader/writer. It wraps goccy/go-json
// rather than encoding/json, matching the import-alias idiom
// bolt/core/context.go uses ("json \"github.com/goccy/go-json\"") for
// its JSON request/response handling.
package jsonutil

import json "github.com/goccy/go-json"

// Decode unmarshals body into a generic document (map/slice/scalar),
// the form an optional parsed JSON document takes on a request.
func Decode(body []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Encode marshals v to a compact JSON byte slice for a response body.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

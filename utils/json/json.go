// Package json wraps encoding/json with HTML escaping switched off, so
// pointcut expressions like "execution(pub fn *(..)) && within(a)" survive
// a round trip through plan documents and event payloads unmangled.
package json

import (
	"bytes"
	"encoding/json"
)

// Marshal marshals v without escaping &, <, and > to &, < and
// >.
func Marshal(v interface{}) ([]byte, error) {
	return marshal(v, "")
}

// MarshalIndent is like Marshal with two-space indentation, for
// human-facing output.
func MarshalIndent(v interface{}) ([]byte, error) {
	return marshal(v, "  ")
}

func marshal(v interface{}, indent string) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if indent != "" {
		encoder.SetIndent("", indent)
	}
	err := encoder.Encode(v)
	if err == nil && buf.Len() > 0 {
		// Drop the trailing newline the encoder appends.
		return buf.Bytes()[:buf.Len()-1], nil
	}
	return buf.Bytes(), err
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

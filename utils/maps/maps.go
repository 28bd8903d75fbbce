// Package maps decodes untyped configuration maps into typed component
// config structs. Weave-plan documents arrive as map[string]interface{};
// every configurable aspect funnels its Configuration through Map2Struct
// during Init.
package maps

import (
	"github.com/mitchellh/mapstructure"
)

// Map2Struct decodes input into output, which must be a pointer to a map
// or struct. Keys match fields case-insensitively, so JSON camelCase keys
// bind to exported Go fields without tags. Duration strings like "30s"
// decode into time.Duration fields.
func Map2Struct(input interface{}, output interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
		Result: output,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

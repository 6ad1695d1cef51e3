package targetsync

import (
	"fmt"
	"sort"
)

// Record and form field names.
const (
	FieldTargetDefinition      = "target_definition"
	FieldMetadata              = "metadata"
	FieldConditionTargetDSL    = "condition_target_dsl"
	FieldConditionTargetPreset = "condition_target_preset"
)

// Legacy metadata keys that used to hold a copy of the target definition. They never survive a
// persist.
const (
	LegacyKeyTargetDefinition          = "target_definition"
	LegacyKeyConditionTargetDefinition = "condition_target_definition"
	LegacyKeyConditionTargetDSL        = "condition_target_dsl"
)

var legacyMetadataKeys = map[string]struct{}{
	LegacyKeyTargetDefinition:          {},
	LegacyKeyConditionTargetDefinition: {},
	LegacyKeyConditionTargetDSL:        {},
}

var transientFields = []string{FieldConditionTargetDSL, FieldConditionTargetPreset}

// LegacyMetadataKeys returns the legacy metadata keys in sorted order.
func LegacyMetadataKeys() []string {
	keys := make([]string, 0, len(legacyMetadataKeys))
	for key := range legacyMetadataKeys {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Data is the key/value bag exchanged with forms and records.
type Data map[string]any

// Clone returns a shallow copy of d with the metadata mapping copied as well.
func (d Data) Clone() Data {
	out := make(Data, len(d))
	for key, value := range d {
		out[key] = value
	}
	if metadata, ok := asMapping(d[FieldMetadata]); ok {
		out[FieldMetadata] = cloneMapping(metadata)
	}
	return out
}

// DSL returns the condition target DSL form field.
func (d Data) DSL() string {
	return stringValue(d[FieldConditionTargetDSL])
}

// Preset returns the condition target preset form field.
func (d Data) Preset() string {
	return stringValue(d[FieldConditionTargetPreset])
}

// TargetDefinition returns the record's structured definition when it is a mapping.
func (d Data) TargetDefinition() map[string]any {
	def, _ := asMapping(d[FieldTargetDefinition])
	return def
}

// Metadata returns the metadata mapping, or an empty mapping when absent or not a mapping.
func (d Data) Metadata() map[string]any {
	return metadataOf(d)
}

// LegacyTargetDefinition returns metadata.target_definition when it is a mapping.
func (d Data) LegacyTargetDefinition() map[string]any {
	def, _ := asMapping(metadataOf(d)[LegacyKeyTargetDefinition])
	return def
}

// PurgeLegacyMetadata returns metadata minus the legacy key set, or nil when nothing remains.
func PurgeLegacyMetadata(metadata map[string]any) map[string]any {
	cleaned := make(map[string]any, len(metadata))
	for key, value := range metadata {
		if _, legacy := legacyMetadataKeys[key]; legacy {
			continue
		}
		cleaned[key] = value
	}
	if len(cleaned) == 0 {
		return nil
	}
	return cleaned
}

func metadataOf(d Data) map[string]any {
	if metadata, ok := asMapping(d[FieldMetadata]); ok {
		return metadata
	}
	return map[string]any{}
}

func asMapping(value any) (map[string]any, bool) {
	switch v := value.(type) {
	case map[string]any:
		return v, v != nil
	case Data:
		return map[string]any(v), v != nil
	default:
		return nil, false
	}
}

func cloneMapping(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Package targetsync keeps the stored target definition, the editable DSL text and the detected
// preset of a voucher consistent across the edit and create flows.
package targetsync

import (
	"strings"

	"finitefield.org/hanko-vouchers/internal/conditiontarget"
	"finitefield.org/hanko-vouchers/internal/vouchers/preset"
)

// Source names the storage location a definition was resolved from.
type Source string

// Definition sources in precedence order.
const (
	SourceRecord   Source = "target_definition"
	SourceMetadata Source = "metadata.target_definition"
	SourceDefault  Source = "default"
)

// ResolveDefinition walks the storage locations in precedence order and returns the first
// structured definition found. SourceDefault is returned with a nil definition when none exists.
func ResolveDefinition(data Data) (map[string]any, Source) {
	if def, ok := structuredDefinition(data[FieldTargetDefinition]); ok {
		return def, SourceRecord
	}
	if def, ok := structuredDefinition(metadataOf(data)[LegacyKeyTargetDefinition]); ok {
		return def, SourceMetadata
	}
	return nil, SourceDefault
}

func structuredDefinition(value any) (map[string]any, bool) {
	def, ok := asMapping(value)
	if !ok || len(def) == 0 {
		return nil, false
	}
	return def, true
}

// Synchronizer converts between stored records and edit-form state.
type Synchronizer struct {
	codec    preset.Codec
	detector *preset.Detector
}

// New returns a Synchronizer using codec, or the standard codec when nil.
func New(codec preset.Codec) *Synchronizer {
	if codec == nil {
		codec = conditiontarget.Codec{}
	}
	return &Synchronizer{
		codec:    codec,
		detector: preset.NewDetector(codec),
	}
}

// Detector exposes the preset detector bound to the synchronizer's codec.
func (s *Synchronizer) Detector() *preset.Detector {
	return s.detector
}

// Hydrate prepares edit-form state from a stored record. The DSL field always holds the parser's
// canonical rendering of the resolved definition; the preset falls back to preset.Default.
// The input is not modified.
func (s *Synchronizer) Hydrate(data Data) (Data, error) {
	metadata := cloneMapping(metadataOf(data))
	definition, source := ResolveDefinition(data)
	if source == SourceDefault {
		definition = s.defaultDefinition()
	}

	target, err := s.codec.ParseDefinition(definition)
	if err != nil {
		return nil, &StoredDefinitionError{Source: source, Err: err}
	}
	dsl := s.codec.Format(target)

	out := data.Clone()
	out[FieldConditionTargetDSL] = dsl
	out[FieldConditionTargetPreset] = s.detector.DetectOrDefault(dsl).Value()
	out[FieldMetadata] = metadata
	out[FieldTargetDefinition] = cloneMapping(definition)
	return out, nil
}

// Persist turns submitted form state into record fields: the DSL is parsed into
// target_definition, legacy metadata copies are purged and the transient form fields are dropped.
// Blank or unparsable DSL yields a *ValidationError on the DSL field. The input is not modified.
func (s *Synchronizer) Persist(data Data) (Data, error) {
	dsl := strings.TrimSpace(data.DSL())
	if dsl == "" {
		return nil, emptyInputError()
	}

	target, err := s.codec.Parse(dsl)
	if err != nil {
		return nil, invalidDSLError(err)
	}

	out := data.Clone()
	out[FieldTargetDefinition] = s.codec.Definition(target)
	if metadata := PurgeLegacyMetadata(metadataOf(data)); metadata != nil {
		out[FieldMetadata] = metadata
	} else {
		out[FieldMetadata] = nil
	}
	for _, field := range transientFields {
		delete(out, field)
	}
	return out, nil
}

// Normalise returns the canonical DSL and detected preset for dsl without touching any record.
// ok is false when the DSL cannot be parsed.
func (s *Synchronizer) Normalise(dsl string) (canonical string, p preset.Preset, ok bool) {
	canonical, ok = s.detector.Normalise(dsl)
	if !ok {
		return "", preset.Custom, false
	}
	if detected, found := s.detector.Detect(canonical); found {
		return canonical, detected, true
	}
	return canonical, preset.Custom, true
}

func (s *Synchronizer) defaultDefinition() map[string]any {
	target, _ := preset.Default().Target()
	return s.codec.Definition(target)
}

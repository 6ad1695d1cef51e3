package preset

import (
	"strings"

	"finitefield.org/hanko-vouchers/internal/conditiontarget"
)

// Codec is the boundary to the condition target DSL library.
type Codec interface {
	Parse(dsl string) (conditiontarget.Target, error)
	ParseDefinition(def map[string]any) (conditiontarget.Target, error)
	Format(target conditiontarget.Target) string
	Definition(target conditiontarget.Target) map[string]any
}

// Detector matches DSL text against the canonical preset forms.
type Detector struct {
	codec Codec
}

// NewDetector returns a Detector using codec, or the standard codec when nil.
func NewDetector(codec Codec) *Detector {
	if codec == nil {
		codec = conditiontarget.Codec{}
	}
	return &Detector{codec: codec}
}

// Detect returns the non-Custom preset whose canonical DSL equals the normalised form of dsl.
// Empty or unparsable input, and input matching no preset, report false; callers fall back to
// Default or Custom.
func (d *Detector) Detect(dsl string) (Preset, bool) {
	if strings.TrimSpace(dsl) == "" {
		return 0, false
	}
	normalised, ok := d.Normalise(dsl)
	if !ok {
		return 0, false
	}
	for _, p := range All() {
		if p == Custom {
			continue
		}
		if canonical, ok := p.DSL(); ok && canonical == normalised {
			return p, true
		}
	}
	return 0, false
}

// DetectOrDefault is Detect with the Default fallback applied.
func (d *Detector) DetectOrDefault(dsl string) Preset {
	if p, ok := d.Detect(dsl); ok {
		return p
	}
	return Default()
}

// Normalise parses dsl and renders it back, reporting false when parsing fails.
func (d *Detector) Normalise(dsl string) (string, bool) {
	codec := d.codecOrDefault()
	target, err := codec.Parse(dsl)
	if err != nil {
		return "", false
	}
	normalised := codec.Format(target)
	if normalised == "" {
		return "", false
	}
	return normalised, true
}

// Codec returns the codec used by the detector.
func (d *Detector) Codec() Codec {
	return d.codecOrDefault()
}

func (d *Detector) codecOrDefault() Codec {
	if d == nil || d.codec == nil {
		return conditiontarget.Codec{}
	}
	return d.codec
}

package presentation

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"finitefield.org/hanko-vouchers/internal/conditiontarget"
	"finitefield.org/hanko-vouchers/internal/vouchers/preset"
	"finitefield.org/hanko-vouchers/internal/vouchers/targetsync"
)

const (
	fallbackScope       = string(conditiontarget.ScopeCart)
	fallbackPhase       = string(conditiontarget.PhaseCartSubtotal)
	fallbackApplication = string(conditiontarget.ApplicationAggregate)
)

// ConditionTarget holds the read-only display fields of a voucher's condition target.
type ConditionTarget struct {
	PresetLabel string `json:"preset_label"`
	Scope       string `json:"scope"`
	Phase       string `json:"phase"`
	Application string `json:"application"`
	DSL         string `json:"dsl"`
	// Source is where the definition was found.
	Source targetsync.Source `json:"source"`
	// Invalid is set when a stored definition exists but no longer parses.
	Invalid bool `json:"invalid,omitempty"`
}

// ConditionTarget derives the condition target display fields from record. Scope, phase and
// application each fall back on their own from the record definition to metadata.target_definition
// and then to the default preset; record is never modified.
func (p *Presenter) ConditionTarget(record targetsync.Data) ConditionTarget {
	definition, source := targetsync.ResolveDefinition(record)

	layers := []map[string]any{record.TargetDefinition(), record.LegacyTargetDefinition()}

	view := ConditionTarget{
		Scope:       cases.Upper(language.Und).String(layeredValue(layers, conditiontarget.KeyScope, fallbackScope)),
		Phase:       spaced(layeredValue(layers, conditiontarget.KeyPhase, fallbackPhase)),
		Application: spaced(layeredValue(layers, conditiontarget.KeyApplication, fallbackApplication)),
		Source:      source,
	}

	defaultDSL, _ := preset.Default().DSL()
	switch {
	case definition == nil:
		view.DSL = defaultDSL
	default:
		target, err := p.codec.ParseDefinition(definition)
		if err != nil {
			view.Invalid = true
			break
		}
		view.DSL = p.codec.Format(target)
	}

	view.PresetLabel = p.detector.DetectOrDefault(view.DSL).Label()
	return view
}

// layeredValue returns the first non-blank string under key, checking each layer in order.
func layeredValue(layers []map[string]any, key, fallback string) string {
	for _, layer := range layers {
		if value, ok := layer[key].(string); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return fallback
}

func spaced(value string) string {
	return strings.ReplaceAll(value, "_", " ")
}

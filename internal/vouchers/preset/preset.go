// Package preset classifies condition targets against the named shortcuts offered by the voucher
// editor.
package preset

import (
	"fmt"
	"strings"

	"finitefield.org/hanko-vouchers/internal/conditiontarget"
)

// Preset is a named shortcut for a common condition target.
type Preset int

// Presets in declaration order. Custom must stay last.
const (
	CartSubtotal Preset = iota
	GrandTotal
	Shipments
	Payments
	Items
	Custom

	presetCount = int(Custom) + 1
)

type entry struct {
	value       string
	label       string
	description string
	target      func() conditiontarget.Target
}

// table holds the per-preset behaviour in declaration order. The size assertions below fail to
// compile when the table and the preset constants disagree.
var table = [...]entry{
	CartSubtotal: {
		value:       "cart_subtotal",
		label:       "Cart subtotal",
		description: "Applies before shipping, tax, and payments (aggregate)",
		target:      conditiontarget.CartSubtotal,
	},
	GrandTotal: {
		value:       "grand_total",
		label:       "Cart grand total",
		description: "Applies after shipping/tax/payment adjustments (aggregate)",
		target:      conditiontarget.CartGrandTotal,
	},
	Shipments: {
		value:       "shipments",
		label:       "Shipments / shipping",
		description: "Applies to each shipment/shipping group",
		target:      conditiontarget.ShipmentsPerGroup,
	},
	Payments: {
		value:       "payments",
		label:       "Payments",
		description: "Applies to each payment instrument",
		target:      conditiontarget.PaymentsPerPayment,
	},
	Items: {
		value:       "items",
		label:       "Each cart item",
		description: "Applies to every line item individually",
		target:      conditiontarget.ItemsPerItem,
	},
	Custom: {
		value:       "custom",
		label:       "Custom target",
		description: "Provide a custom DSL expression",
	},
}

var (
	_ [len(table) - presetCount]struct{}
	_ [presetCount - len(table)]struct{}
)

// Option is a select entry for the editor.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Default returns the preset used when nothing else applies.
func Default() Preset {
	return CartSubtotal
}

// All returns every preset in declaration order.
func All() []Preset {
	out := make([]Preset, 0, presetCount)
	for p := Preset(0); int(p) < presetCount; p++ {
		out = append(out, p)
	}
	return out
}

// Options lists every preset as "<label> – <description>" in declaration order.
func Options() []Option {
	options := make([]Option, 0, presetCount)
	for _, p := range All() {
		options = append(options, Option{
			Value: p.Value(),
			Label: p.Label() + " – " + p.Description(),
		})
	}
	return options
}

// Parse resolves a preset from its form value.
func Parse(value string) (Preset, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, p := range All() {
		if p.Value() == value {
			return p, nil
		}
	}
	return 0, fmt.Errorf("preset: unknown value %q", value)
}

func (p Preset) valid() bool {
	return p >= 0 && int(p) < presetCount
}

// Value returns the form value of the preset.
func (p Preset) Value() string {
	if !p.valid() {
		return ""
	}
	return table[p].value
}

// String implements fmt.Stringer.
func (p Preset) String() string { return p.Value() }

// Label returns the human readable name.
func (p Preset) Label() string {
	if !p.valid() {
		return ""
	}
	return table[p].label
}

// Description explains where the preset applies.
func (p Preset) Description() string {
	if !p.valid() {
		return ""
	}
	return table[p].description
}

// Target returns the canonical definition of the preset. Custom has none.
func (p Preset) Target() (conditiontarget.Target, bool) {
	if !p.valid() || table[p].target == nil {
		return conditiontarget.Target{}, false
	}
	return table[p].target(), true
}

// DSL returns the canonical DSL text of the preset. Custom has none.
func (p Preset) DSL() (string, bool) {
	target, ok := p.Target()
	if !ok {
		return "", false
	}
	return target.DSL(), true
}

// MarshalText encodes the preset as its form value.
func (p Preset) MarshalText() ([]byte, error) {
	if !p.valid() {
		return nil, fmt.Errorf("preset: invalid preset %d", int(p))
	}
	return []byte(p.Value()), nil
}

// UnmarshalText decodes a form value.
func (p *Preset) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

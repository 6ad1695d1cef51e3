// Package conditiontarget models where a voucher condition applies inside the cart pricing
// pipeline and converts between the compact DSL text and the structured definition stored on
// voucher records.
package conditiontarget

import (
	"sort"
	"strings"
)

// Scope identifies the cart component a condition targets.
type Scope string

// Supported scopes.
const (
	ScopeCart      Scope = "cart"
	ScopeItems     Scope = "items"
	ScopeShipments Scope = "shipments"
	ScopePayments  Scope = "payments"
)

// Phase identifies the pricing stage at which a condition is evaluated.
type Phase string

// Supported pricing phases, in pipeline order.
const (
	PhasePreItem      Phase = "pre_item"
	PhaseItemDiscount Phase = "item_discount"
	PhaseItemPost     Phase = "item_post"
	PhaseCartSubtotal Phase = "cart_subtotal"
	PhaseShipping     Phase = "shipping"
	PhaseTaxable      Phase = "taxable"
	PhaseTax          Phase = "tax"
	PhasePayment      Phase = "payment"
	PhaseGrandTotal   Phase = "grand_total"
)

// Application controls whether a condition applies once or per targeted unit.
type Application string

// Supported application modes.
const (
	ApplicationAggregate  Application = "aggregate"
	ApplicationPerItem    Application = "per_item"
	ApplicationPerUnit    Application = "per_unit"
	ApplicationPerGroup   Application = "per_group"
	ApplicationPerPayment Application = "per_payment"
)

// Structured definition keys.
const (
	KeyScope       = "scope"
	KeyPhase       = "phase"
	KeyApplication = "application"
	KeyFilters     = "filters"
)

var (
	scopes       = []Scope{ScopeCart, ScopeItems, ScopeShipments, ScopePayments}
	phases       = []Phase{PhasePreItem, PhaseItemDiscount, PhaseItemPost, PhaseCartSubtotal, PhaseShipping, PhaseTaxable, PhaseTax, PhasePayment, PhaseGrandTotal}
	applications = []Application{ApplicationAggregate, ApplicationPerItem, ApplicationPerUnit, ApplicationPerGroup, ApplicationPerPayment}

	scopeAliases = map[string]Scope{
		"item":     ScopeItems,
		"shipment": ScopeShipments,
		"payment":  ScopePayments,
	}
)

// DefaultApplication returns the application used when the DSL omits one.
func (s Scope) DefaultApplication() Application {
	switch s {
	case ScopeItems:
		return ApplicationPerItem
	case ScopeShipments:
		return ApplicationPerGroup
	case ScopePayments:
		return ApplicationPerPayment
	default:
		return ApplicationAggregate
	}
}

// Target is an immutable condition target. Values are produced by Parse, FromDefinition or the
// preset constructors; the zero value is not a valid target.
type Target struct {
	scope       Scope
	phase       Phase
	application Application
	filters     map[string]string
}

func newTarget(scope Scope, phase Phase, application Application, filters map[string]string) Target {
	t := Target{scope: scope, phase: phase, application: application}
	if len(filters) > 0 {
		t.filters = make(map[string]string, len(filters))
		for key, value := range filters {
			t.filters[key] = value
		}
	}
	return t
}

// Scope returns the targeted cart component.
func (t Target) Scope() Scope { return t.scope }

// Phase returns the pricing phase.
func (t Target) Phase() Phase { return t.phase }

// Application returns the application mode.
func (t Target) Application() Application { return t.application }

// Filters returns a copy of the selector filters, or nil when there are none.
func (t Target) Filters() map[string]string {
	if len(t.filters) == 0 {
		return nil
	}
	out := make(map[string]string, len(t.filters))
	for key, value := range t.filters {
		out[key] = value
	}
	return out
}

// IsZero reports whether t is the zero value.
func (t Target) IsZero() bool {
	return t.scope == "" && t.phase == "" && t.application == ""
}

// Equal reports whether both targets have the same canonical form.
func (t Target) Equal(other Target) bool {
	return t.DSL() == other.DSL()
}

// DSL renders the canonical text form: lower-case identifiers, filters sorted by key and the
// application always explicit.
func (t Target) DSL() string {
	if t.IsZero() {
		return ""
	}
	var b strings.Builder
	b.WriteString(string(t.scope))
	if len(t.filters) > 0 {
		b.WriteByte('[')
		for i, key := range sortedKeys(t.filters) {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(key)
			b.WriteByte('=')
			b.WriteString(t.filters[key])
		}
		b.WriteByte(']')
	}
	b.WriteByte('@')
	b.WriteString(string(t.phase))
	b.WriteByte('/')
	b.WriteString(string(t.application))
	return b.String()
}

// String implements fmt.Stringer.
func (t Target) String() string { return t.DSL() }

// Definition returns the structured form stored on voucher records.
func (t Target) Definition() map[string]any {
	if t.IsZero() {
		return nil
	}
	def := map[string]any{
		KeyScope:       string(t.scope),
		KeyPhase:       string(t.phase),
		KeyApplication: string(t.application),
	}
	if len(t.filters) > 0 {
		filters := make(map[string]any, len(t.filters))
		for key, value := range t.filters {
			filters[key] = value
		}
		def[KeyFilters] = filters
	}
	return def
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

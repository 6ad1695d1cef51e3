package conditiontarget

// CartSubtotal targets the cart once, before shipping, tax and payment adjustments.
func CartSubtotal() Target {
	return newTarget(ScopeCart, PhaseCartSubtotal, ApplicationAggregate, nil)
}

// CartGrandTotal targets the cart once, after shipping, tax and payment adjustments.
func CartGrandTotal() Target {
	return newTarget(ScopeCart, PhaseGrandTotal, ApplicationAggregate, nil)
}

// ShipmentsPerGroup targets every shipment group individually.
func ShipmentsPerGroup() Target {
	return newTarget(ScopeShipments, PhaseShipping, ApplicationPerGroup, nil)
}

// PaymentsPerPayment targets every payment instrument individually.
func PaymentsPerPayment() Target {
	return newTarget(ScopePayments, PhasePayment, ApplicationPerPayment, nil)
}

// ItemsPerItem targets every line item individually.
func ItemsPerItem() Target {
	return newTarget(ScopeItems, PhaseItemDiscount, ApplicationPerItem, nil)
}

// Codec exposes the package functions as a value so callers can depend on an interface.
type Codec struct{}

// Parse reads DSL text.
func (Codec) Parse(dsl string) (Target, error) { return Parse(dsl) }

// ParseDefinition reads a structured definition.
func (Codec) ParseDefinition(def map[string]any) (Target, error) { return FromDefinition(def) }

// Format renders the canonical DSL text.
func (Codec) Format(t Target) string { return t.DSL() }

// Definition renders the structured definition.
func (Codec) Definition(t Target) map[string]any { return t.Definition() }

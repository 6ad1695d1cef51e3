package conditiontarget

import (
	"fmt"
	"strings"
)

// SyntaxError reports why an expression or structured definition was rejected.
type SyntaxError struct {
	Input  string
	Reason string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	if e == nil {
		return ""
	}
	if e.Input == "" {
		return fmt.Sprintf("invalid condition target definition: %s", e.Reason)
	}
	return fmt.Sprintf("invalid condition target %q: %s", e.Input, e.Reason)
}

func syntaxError(input, format string, args ...any) *SyntaxError {
	return &SyntaxError{Input: strings.TrimSpace(input), Reason: fmt.Sprintf(format, args...)}
}

// From parses a DSL string, a structured definition or an existing Target.
func From(value any) (Target, error) {
	switch v := value.(type) {
	case Target:
		if v.IsZero() {
			return Target{}, syntaxError("", "target is empty")
		}
		return v, nil
	case string:
		return Parse(v)
	case map[string]any:
		return FromDefinition(v)
	case map[string]string:
		def := make(map[string]any, len(v))
		for key, val := range v {
			def[key] = val
		}
		return FromDefinition(def)
	case nil:
		return Target{}, syntaxError("", "definition is empty")
	default:
		return Target{}, syntaxError("", "unsupported definition type %T", value)
	}
}

// Parse reads the DSL form:
//
//	scope[key=value,...]@phase/application
//
// The selector and the application are optional. Whitespace around tokens is ignored,
// identifiers are case-insensitive and "-" may be used in place of "_".
func Parse(input string) (Target, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Target{}, syntaxError(input, "expression is empty")
	}

	head, tail, ok := strings.Cut(raw, "@")
	if !ok {
		return Target{}, syntaxError(input, `expected "@" between scope and phase`)
	}
	if strings.Contains(tail, "@") {
		return Target{}, syntaxError(input, `unexpected second "@"`)
	}

	scopeText, filters, err := splitSelector(input, head)
	if err != nil {
		return Target{}, err
	}
	scope, err := parseScope(input, scopeText)
	if err != nil {
		return Target{}, err
	}

	phaseText, applicationText, hasApplication := strings.Cut(tail, "/")
	if hasApplication && strings.Contains(applicationText, "/") {
		return Target{}, syntaxError(input, `unexpected second "/"`)
	}
	phase, err := parsePhase(input, phaseText)
	if err != nil {
		return Target{}, err
	}

	application := scope.DefaultApplication()
	if hasApplication {
		application, err = parseApplication(input, applicationText)
		if err != nil {
			return Target{}, err
		}
	}
	if err := checkApplication(input, scope, application); err != nil {
		return Target{}, err
	}

	return newTarget(scope, phase, application, filters), nil
}

// FromDefinition reads the structured form produced by Target.Definition. Unknown keys are ignored.
func FromDefinition(def map[string]any) (Target, error) {
	if len(def) == 0 {
		return Target{}, syntaxError("", "definition is empty")
	}

	scopeText, err := definitionString(def, KeyScope, true)
	if err != nil {
		return Target{}, err
	}
	phaseText, err := definitionString(def, KeyPhase, true)
	if err != nil {
		return Target{}, err
	}
	applicationText, err := definitionString(def, KeyApplication, false)
	if err != nil {
		return Target{}, err
	}

	scope, err := parseScope("", scopeText)
	if err != nil {
		return Target{}, err
	}
	phase, err := parsePhase("", phaseText)
	if err != nil {
		return Target{}, err
	}
	application := scope.DefaultApplication()
	if strings.TrimSpace(applicationText) != "" {
		application, err = parseApplication("", applicationText)
		if err != nil {
			return Target{}, err
		}
	}
	if err := checkApplication("", scope, application); err != nil {
		return Target{}, err
	}

	filters, err := definitionFilters(def[KeyFilters])
	if err != nil {
		return Target{}, err
	}
	return newTarget(scope, phase, application, filters), nil
}

func splitSelector(input, head string) (string, map[string]string, error) {
	head = strings.TrimSpace(head)
	open := strings.IndexByte(head, '[')
	if open < 0 {
		if strings.ContainsRune(head, ']') {
			return "", nil, syntaxError(input, `unexpected "]" without "["`)
		}
		return head, nil, nil
	}
	if !strings.HasSuffix(head, "]") {
		return "", nil, syntaxError(input, `selector must end with "]" before "@"`)
	}
	inner := head[open+1 : len(head)-1]
	if strings.ContainsAny(inner, "[]") {
		return "", nil, syntaxError(input, "nested selectors are not supported")
	}
	if strings.TrimSpace(inner) == "" {
		return "", nil, syntaxError(input, "selector is empty")
	}

	filters := make(map[string]string)
	for _, part := range strings.Split(inner, ",") {
		keyText, value, ok := strings.Cut(part, "=")
		if !ok {
			return "", nil, syntaxError(input, "filter %q must be written as key=value", strings.TrimSpace(part))
		}
		key, valid := normaliseIdentifier(keyText)
		if !valid {
			return "", nil, syntaxError(input, "filter key %q is not a valid identifier", strings.TrimSpace(keyText))
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return "", nil, syntaxError(input, "filter %q has no value", key)
		}
		if strings.ContainsAny(value, "=@/ ") {
			return "", nil, syntaxError(input, "filter %q has an invalid value %q", key, value)
		}
		if _, dup := filters[key]; dup {
			return "", nil, syntaxError(input, "filter %q is repeated", key)
		}
		filters[key] = value
	}
	return head[:open], filters, nil
}

func parseScope(input, text string) (Scope, error) {
	id, ok := normaliseIdentifier(text)
	if !ok {
		return "", syntaxError(input, "scope %q is not a valid identifier", strings.TrimSpace(text))
	}
	if alias, found := scopeAliases[id]; found {
		return alias, nil
	}
	for _, scope := range scopes {
		if string(scope) == id {
			return scope, nil
		}
	}
	return "", syntaxError(input, "unknown scope %q (expected one of %s)", id, joinValues(scopes))
}

func parsePhase(input, text string) (Phase, error) {
	id, ok := normaliseIdentifier(text)
	if !ok {
		return "", syntaxError(input, "phase %q is not a valid identifier", strings.TrimSpace(text))
	}
	for _, phase := range phases {
		if string(phase) == id {
			return phase, nil
		}
	}
	return "", syntaxError(input, "unknown phase %q (expected one of %s)", id, joinValues(phases))
}

func parseApplication(input, text string) (Application, error) {
	id, ok := normaliseIdentifier(text)
	if !ok {
		return "", syntaxError(input, "application %q is not a valid identifier", strings.TrimSpace(text))
	}
	for _, application := range applications {
		if string(application) == id {
			return application, nil
		}
	}
	return "", syntaxError(input, "unknown application %q (expected one of %s)", id, joinValues(applications))
}

func checkApplication(input string, scope Scope, application Application) error {
	var required Scope
	switch application {
	case ApplicationPerItem, ApplicationPerUnit:
		required = ScopeItems
	case ApplicationPerGroup:
		required = ScopeShipments
	case ApplicationPerPayment:
		required = ScopePayments
	default:
		return nil
	}
	if scope != required {
		return syntaxError(input, "application %q requires the %q scope, got %q", application, required, scope)
	}
	return nil
}

func definitionString(def map[string]any, key string, required bool) (string, error) {
	raw, ok := def[key]
	if !ok || raw == nil {
		if required {
			return "", syntaxError("", "%q is required", key)
		}
		return "", nil
	}
	value, ok := raw.(string)
	if !ok {
		return "", syntaxError("", "%q must be a string, got %T", key, raw)
	}
	if required && strings.TrimSpace(value) == "" {
		return "", syntaxError("", "%q is required", key)
	}
	return value, nil
}

func definitionFilters(raw any) (map[string]string, error) {
	var source map[string]any
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		source = v
	case map[string]string:
		source = make(map[string]any, len(v))
		for key, value := range v {
			source[key] = value
		}
	default:
		return nil, syntaxError("", "%q must be a mapping, got %T", KeyFilters, raw)
	}

	filters := make(map[string]string, len(source))
	for rawKey, rawValue := range source {
		key, ok := normaliseIdentifier(rawKey)
		if !ok {
			return nil, syntaxError("", "filter key %q is not a valid identifier", rawKey)
		}
		value, ok := rawValue.(string)
		if !ok {
			return nil, syntaxError("", "filter %q must be a string, got %T", key, rawValue)
		}
		value = strings.TrimSpace(value)
		if value == "" || strings.ContainsAny(value, "[],=@/ ") {
			return nil, syntaxError("", "filter %q has an invalid value %q", key, value)
		}
		if _, dup := filters[key]; dup {
			return nil, syntaxError("", "filter %q is repeated", key)
		}
		filters[key] = value
	}
	return filters, nil
}

// normaliseIdentifier lower-cases text, maps "-" to "_" and reports whether the result only
// contains [a-z0-9_].
func normaliseIdentifier(text string) (string, bool) {
	id := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(text)), "-", "_")
	if id == "" {
		return "", false
	}
	for _, r := range id {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return id, false
		}
	}
	return id, true
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, len(values))
	for i, value := range values {
		parts[i] = string(value)
	}
	return strings.Join(parts, ", ")
}

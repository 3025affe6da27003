package odoo

// Odoo's JSON responses are loosely shaped: absent values come back as
// false, many2one fields as [id, display_name] pairs, numbers always as
// float64. These adapters extract definite scalars in one place.

// ScalarID extracts the id from a many2one value. Handles the
// [id, name] pair shape, a bare number, and false/nil (no link).
func ScalarID(v any) int {
	switch t := v.(type) {
	case []any:
		if len(t) > 0 {
			if id, ok := t[0].(float64); ok {
				return int(id)
			}
		}
	case float64:
		return int(t)
	case int:
		return t
	}
	return 0
}

// AsString returns a string field, treating false (unset) as empty.
func AsString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// AsFloat returns a numeric field, treating false (unset) as zero.
func AsFloat(v any) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return 0
}

// AsBool returns a boolean field; anything non-boolean is false.
func AsBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}

// LinkedName extracts the display name from a many2one [id, name] pair.
func LinkedName(v any) string {
	if pair, ok := v.([]any); ok && len(pair) > 1 {
		if name, ok := pair[1].(string); ok {
			return name
		}
	}
	return ""
}

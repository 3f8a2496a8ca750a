package phos

// The document is the intermediate structured form between the in-memory
// project tree and its serialized bytes: map[string]any, []any and scalars,
// exactly as the CBOR decoder produces them (unsigned integers arrive as
// uint64, negative ones as int64). The accessors below implement the
// schema's tolerance rules: a missing or wrong-typed field yields its
// default; mandatory fields are checked by the callers.

func docMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func docArray(v any) ([]any, bool) {
	a, ok := v.([]any)
	return a, ok
}

func intFromAny(v any) (int64, bool) {
	switch n := v.(type) {
	case uint64:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case uint:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint8:
		return int64(n), true
	}
	return 0, false
}

// docInt returns the integer field key, or 0 when missing or wrong-typed.
func docInt(m map[string]any, key string) int {
	if n, ok := intFromAny(m[key]); ok {
		return int(n)
	}
	return 0
}

// docIntStrict reports the field's presence as a well-typed integer; used
// for structurally mandatory fields.
func docIntStrict(m map[string]any, key string) (int, bool) {
	n, ok := intFromAny(m[key])
	return int(n), ok
}

// docUint64 returns the unsigned field key; a negative value maps to 0.
// Unsigned values pass through directly so the full uint64 range survives,
// including values above the int64 maximum.
func docUint64(m map[string]any, key string) uint64 {
	if u, ok := m[key].(uint64); ok {
		return u
	}
	n, ok := intFromAny(m[key])
	if !ok || n < 0 {
		return 0
	}
	return uint64(n)
}

func docString(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func docBool(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func docStrings(m map[string]any, key string) []string {
	arr, ok := docArray(m[key])
	if !ok {
		return nil
	}
	var out []string
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

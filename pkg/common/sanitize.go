package common

// Sanitize returns a copy of properties that only holds values a store can
// index natively: strings, booleans, integers and floats. Everything else
// (nil, maps, slices, structs, pointers) is dropped. It never fails.
func Sanitize(properties map[string]any) map[string]any {
	out := make(map[string]any, len(properties))
	for key, value := range properties {
		if IsPrimitive(value) {
			out[key] = value
		}
	}
	return out
}

// IsPrimitive reports whether v is a string, bool, integer or float.
func IsPrimitive(v any) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	default:
		return false
	}
}

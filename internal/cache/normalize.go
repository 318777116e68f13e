package cache

import (
	"bytes"
	"encoding/json"
)

// Shape identifies which payload layout Normalize recognized.
type Shape int

const (
	ShapeUnknown Shape = iota // nothing recognizable; empty result
	ShapeKeyed                // {"<key>": [...]}
	ShapeBare                 // [...]
	ShapeNested               // [[...], ...]; the first element is used
)

func (s Shape) String() string {
	switch s {
	case ShapeKeyed:
		return "keyed"
	case ShapeBare:
		return "bare"
	case ShapeNested:
		return "nested"
	default:
		return "unknown"
	}
}

// Collection payload keys.
const (
	KeyMelodies = "melodies"
	KeyWeekly   = "schedules"
	KeySpecial  = "events"
)

// Normalize decodes a collection payload. Layouts are tried in a fixed order:
// an object carrying an array under key, a bare array, then an array whose
// first element is itself an array. Elements that fail to decode as T are
// skipped. The result is never nil.
func Normalize[T any](raw []byte, key string) ([]T, Shape) {
	elems, shape := locate(raw, key)
	out := make([]T, 0, len(elems))
	for _, elem := range elems {
		var item T
		if err := json.Unmarshal(elem, &item); err != nil {
			continue
		}
		out = append(out, item)
	}
	return out, shape
}

func locate(raw []byte, key string) ([]json.RawMessage, Shape) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, ShapeUnknown
	}

	switch trimmed[0] {
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, ShapeUnknown
		}
		field, ok := obj[key]
		if !ok {
			return nil, ShapeUnknown
		}
		var elems []json.RawMessage
		if !isArray(field) || json.Unmarshal(field, &elems) != nil {
			return nil, ShapeUnknown
		}
		return elems, ShapeKeyed
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(trimmed, &elems); err != nil {
			return nil, ShapeUnknown
		}
		if len(elems) == 0 || !isArray(elems[0]) {
			return elems, ShapeBare
		}
		var inner []json.RawMessage
		if err := json.Unmarshal(elems[0], &inner); err != nil {
			return nil, ShapeUnknown
		}
		return inner, ShapeNested
	}
	return nil, ShapeUnknown
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

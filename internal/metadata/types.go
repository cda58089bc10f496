// Package metadata models the typed key-value metadata attached to
// documents and the filter predicates evaluated over it at query time.
//
// Metadata arrives from external producers as loosely typed JSON; FromMap
// converts it into tagged Values at the boundary so filters can be
// type-checked instead of reflecting over interface{} maps.
package metadata

import (
	"fmt"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindBool
	KindStringList
)

// Value is a small tagged value. Exactly one payload field is meaningful,
// selected by Kind.
type Value struct {
	Kind Kind     `json:"kind"`
	Str  string   `json:"str,omitempty"`
	Num  float64  `json:"num,omitempty"`
	Bool bool     `json:"bool,omitempty"`
	List []string `json:"list,omitempty"`
}

// Document is the metadata attached to a single indexed document.
type Document map[string]Value

func String(s string) Value       { return Value{Kind: KindString, Str: s} }
func Number(n float64) Value      { return Value{Kind: KindNumber, Num: n} }
func Bool(b bool) Value           { return Value{Kind: KindBool, Bool: b} }
func StringList(l []string) Value { return Value{Kind: KindStringList, List: l} }

// Equal reports whether two values have the same kind and payload.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == other.Str
	case KindNumber:
		return v.Num == other.Num
	case KindBool:
		return v.Bool == other.Bool
	case KindStringList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if v.List[i] != other.List[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// FromMap converts a loosely typed map (e.g. a decoded JSON object) into a
// Document. Numeric JSON values arrive as float64; int is accepted for
// convenience. Unsupported kinds are rejected so bad metadata fails at the
// ingestion boundary rather than at query time.
func FromMap(raw map[string]any) (Document, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	doc := make(Document, len(raw))
	for key, val := range raw {
		switch v := val.(type) {
		case string:
			doc[key] = String(v)
		case float64:
			doc[key] = Number(v)
		case int:
			doc[key] = Number(float64(v))
		case int64:
			doc[key] = Number(float64(v))
		case bool:
			doc[key] = Bool(v)
		case []string:
			doc[key] = StringList(v)
		case []any:
			list := make([]string, 0, len(v))
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("metadata key %q: list values must be strings, got %T", key, item)
				}
				list = append(list, s)
			}
			doc[key] = StringList(list)
		default:
			return nil, fmt.Errorf("metadata key %q: unsupported value type %T", key, val)
		}
	}
	return doc, nil
}

// ToMap converts a Document back into a plain map for JSON responses.
func (d Document) ToMap() map[string]any {
	if len(d) == 0 {
		return nil
	}
	raw := make(map[string]any, len(d))
	for key, val := range d {
		switch val.Kind {
		case KindString:
			raw[key] = val.Str
		case KindNumber:
			raw[key] = val.Num
		case KindBool:
			raw[key] = val.Bool
		case KindStringList:
			raw[key] = val.List
		}
	}
	return raw
}

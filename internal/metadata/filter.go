package metadata

import (
	"fmt"
	"strings"
)

// Op is a filter comparison operator.
type Op string

const (
	OpEqual       Op = "eq"
	OpNotEqual    Op = "ne"
	OpGreaterThan Op = "gt"
	OpLessThan    Op = "lt"
	OpIn          Op = "in"
	OpContains    Op = "contains"
)

// Filter compares a single metadata key against a value. A document whose
// metadata lacks the key never matches, regardless of operator.
type Filter struct {
	Key   string `json:"key"`
	Op    Op     `json:"op"`
	Value Value  `json:"value"`
}

// Matches reports whether doc satisfies this filter.
func (f Filter) Matches(doc Document) bool {
	value, exists := doc[f.Key]
	if !exists {
		return false
	}
	switch f.Op {
	case OpEqual:
		return value.Equal(f.Value)
	case OpNotEqual:
		return !value.Equal(f.Value)
	case OpGreaterThan:
		return value.Kind == KindNumber && f.Value.Kind == KindNumber && value.Num > f.Value.Num
	case OpLessThan:
		return value.Kind == KindNumber && f.Value.Kind == KindNumber && value.Num < f.Value.Num
	case OpIn:
		// value must equal one of the filter's list entries.
		if f.Value.Kind != KindStringList || value.Kind != KindString {
			return false
		}
		for _, candidate := range f.Value.List {
			if value.Str == candidate {
				return true
			}
		}
		return false
	case OpContains:
		switch value.Kind {
		case KindStringList:
			if f.Value.Kind != KindString {
				return false
			}
			for _, item := range value.List {
				if item == f.Value.Str {
					return true
				}
			}
			return false
		case KindString:
			return f.Value.Kind == KindString && strings.Contains(value.Str, f.Value.Str)
		default:
			return false
		}
	default:
		return false
	}
}

// FilterSet is a conjunction of filters. An empty set matches everything.
type FilterSet struct {
	Filters []Filter `json:"filters"`
}

// Matches reports whether doc satisfies every filter in the set.
func (fs *FilterSet) Matches(doc Document) bool {
	if fs == nil {
		return true
	}
	for _, filter := range fs.Filters {
		if !filter.Matches(doc) {
			return false
		}
	}
	return true
}

// Empty reports whether the set contains no filters.
func (fs *FilterSet) Empty() bool {
	return fs == nil || len(fs.Filters) == 0
}

// CacheKey returns a stable textual form of the filter set, used for query
// cache keys. Filters are order-sensitive: callers should build sets in a
// canonical order if they want cross-request cache hits.
func (fs *FilterSet) CacheKey() string {
	if fs.Empty() {
		return ""
	}
	parts := make([]string, 0, len(fs.Filters))
	for _, f := range fs.Filters {
		parts = append(parts, fmt.Sprintf("%s %s %s", f.Key, f.Op, valueKey(f.Value)))
	}
	return strings.Join(parts, "&")
}

func valueKey(v Value) string {
	switch v.Kind {
	case KindString:
		return "s:" + v.Str
	case KindNumber:
		return fmt.Sprintf("n:%g", v.Num)
	case KindBool:
		return fmt.Sprintf("b:%t", v.Bool)
	case KindStringList:
		return "l:" + strings.Join(v.List, "\x1f")
	default:
		return "invalid"
	}
}

// ParseFilterParam parses the HTTP surface's compact "key:value" filter
// syntax into an equality filter. The value is matched as a string.
func ParseFilterParam(param string) (Filter, error) {
	key, value, found := strings.Cut(param, ":")
	if !found || key == "" {
		return Filter{}, fmt.Errorf("malformed filter %q, want key:value", param)
	}
	return Filter{Key: key, Op: OpEqual, Value: String(value)}, nil
}

package applier

import (
	"reflect"
	"strconv"
	"strings"

	"k8s.io/apimachinery/pkg/api/resource"
)

// serverMetadata lists metadata fields owned by the API server. They are
// ignored when a descriptor exported from a live cluster is applied again.
var serverMetadata = []string{
	"resourceVersion",
	"uid",
	"creationTimestamp",
	"generation",
	"managedFields",
	"selfLink",
	"deletionTimestamp",
	"deletionGracePeriodSeconds",
}

// declaredFields returns the part of a descriptor that is compared with and
// written to the live object. Status and server-owned metadata are dropped.
func declaredFields(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		if k == "status" {
			continue
		}
		out[k] = v
	}
	if md, ok := obj["metadata"].(map[string]any); ok {
		trimmed := make(map[string]any, len(md))
		for k, v := range md {
			trimmed[k] = v
		}
		for _, k := range serverMetadata {
			delete(trimmed, k)
		}
		out["metadata"] = trimmed
	}
	return out
}

// contains reports whether every declared value is present in live with an
// equal value. Maps are compared key by key; lists must have the same length
// and each declared element must be contained in the live element at the
// same index, so fields defaulted by the server do not count as drift.
// Declared empty maps and lists match a missing key, since the API server
// drops them on write.
func contains(live, declared any) bool {
	switch d := declared.(type) {
	case map[string]any:
		l, ok := live.(map[string]any)
		if !ok {
			return len(d) == 0 && live == nil
		}
		for k, dv := range d {
			lv, present := l[k]
			if !present {
				if isEmpty(dv) {
					continue
				}
				return false
			}
			if !contains(lv, dv) {
				return false
			}
		}
		return true
	case []any:
		l, ok := live.([]any)
		if !ok || len(l) != len(d) {
			return len(d) == 0 && live == nil
		}
		for i := range d {
			if !contains(l[i], d[i]) {
				return false
			}
		}
		return true
	default:
		return scalarEqual(live, declared)
	}
}

// isEmpty reports whether a declared value carries nothing to write.
func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

// scalarEqual compares leaf values. Numbers compare by value across types.
// Resource quantities compare after parsing, so a declared cpu: 0.5 matches
// the "500m" the API server stores.
func scalarEqual(a, b any) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum && bNum {
		return fa == fb
	}
	if reflect.DeepEqual(a, b) {
		return true
	}
	return quantityEqual(a, b)
}

func quantityEqual(a, b any) bool {
	sa, aStr := a.(string)
	sb, bStr := b.(string)
	switch {
	case aStr && bStr:
		// Plain numeric strings are compared literally; only values with a
		// unit suffix are normalized.
		if !hasSuffix(sa) && !hasSuffix(sb) {
			return false
		}
	case aStr:
		sb, bStr = numberString(b)
	case bStr:
		sa, aStr = numberString(a)
	}
	if !aStr || !bStr {
		return false
	}

	qa, err := resource.ParseQuantity(sa)
	if err != nil {
		return false
	}
	qb, err := resource.ParseQuantity(sb)
	if err != nil {
		return false
	}
	return qa.Cmp(qb) == 0
}

func hasSuffix(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	}) >= 0
}

func numberString(v any) (string, bool) {
	f, ok := toFloat(v)
	if !ok {
		return "", false
	}
	return strconv.FormatFloat(f, 'f', -1, 64), true
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// overlay writes every declared value into live. Nested maps are merged,
// lists and scalars are replaced, and fields absent from declared are kept.
func overlay(live, declared map[string]any) {
	for k, dv := range declared {
		dm, dIsMap := dv.(map[string]any)
		lm, lIsMap := live[k].(map[string]any)
		if dIsMap && lIsMap {
			overlay(lm, dm)
			continue
		}
		live[k] = dv
	}
}

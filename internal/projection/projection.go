// Package projection implements the attribute inclusion/exclusion rules
// from 4.2: `attributes` and `excludedAttributes` walk a resource already
// rendered to its generic JSON form, not its typed Go struct, because the
// dotted-path / sub-object-survival rules operate on arbitrary nesting
// that the static SCIMUser/SCIMGroup shapes don't expose uniformly.
package projection

import "strings"

// alwaysKept attributes survive any inclusion/exclusion list, per 4.2.
var alwaysKept = map[string]bool{
	"id": true, "schemas": true, "meta": true,
}

// Apply projects doc (a map produced by marshaling a SCIMUser/SCIMGroup and
// unmarshaling back to interface{}) according to the inclusion list
// (attributes) and exclusion list (excludedAttributes). Inclusion is
// applied before exclusion when both are supplied.
func Apply(doc map[string]interface{}, attributes, excludedAttributes []string) map[string]interface{} {
	out := doc
	if len(attributes) > 0 {
		out = includeOnly(out, normalizeList(attributes))
	}
	if len(excludedAttributes) > 0 {
		out = exclude(out, normalizeList(excludedAttributes))
	}
	return out
}

func normalizeList(attrs []string) [][]string {
	paths := make([][]string, 0, len(attrs))
	for _, a := range attrs {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		paths = append(paths, strings.Split(a, "."))
	}
	return paths
}

// includeOnly keeps top-level always-kept keys plus any key reachable by a
// prefix of one of the requested dotted paths.
func includeOnly(doc map[string]interface{}, paths [][]string) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		if alwaysKept[k] {
			out[k] = v
			continue
		}
		if kept, sub := matchInclude(k, v, paths); kept {
			out[k] = sub
		}
	}
	return out
}

// matchInclude reports whether key (with value v) survives inclusion, and
// the (possibly narrowed) value to keep for it.
func matchInclude(key string, v interface{}, paths [][]string) (bool, interface{}) {
	var nested [][]string
	exact := false
	for _, p := range paths {
		if len(p) == 0 {
			continue
		}
		if !strings.EqualFold(p[0], key) {
			continue
		}
		if len(p) == 1 {
			exact = true
			continue
		}
		nested = append(nested, p[1:])
	}
	if exact {
		return true, v
	}
	if len(nested) == 0 {
		return false, nil
	}
	// A sub-object survives projection iff at least one of its leaves is
	// included (4.2): recurse into objects/object-arrays only.
	switch val := v.(type) {
	case map[string]interface{}:
		sub := includeOnly(val, nested)
		if len(sub) == 0 {
			return false, nil
		}
		return true, sub
	case []interface{}:
		var kept []interface{}
		for _, elem := range val {
			if m, ok := elem.(map[string]interface{}); ok {
				sub := includeOnly(m, nested)
				if len(sub) > 0 {
					kept = append(kept, sub)
				}
			}
		}
		if len(kept) == 0 {
			return false, nil
		}
		return true, kept
	default:
		return false, nil
	}
}

func exclude(doc map[string]interface{}, paths [][]string) map[string]interface{} {
	out := make(map[string]interface{}, len(doc))
	for k, v := range doc {
		if alwaysKept[k] {
			out[k] = v
			continue
		}
		drop, nested := matchExclude(k, paths)
		if drop {
			continue
		}
		if len(nested) > 0 {
			switch val := v.(type) {
			case map[string]interface{}:
				v = exclude(val, nested)
			case []interface{}:
				var mapped []interface{}
				for _, elem := range val {
					if m, ok := elem.(map[string]interface{}); ok {
						mapped = append(mapped, exclude(m, nested))
					} else {
						mapped = append(mapped, elem)
					}
				}
				v = mapped
			}
		}
		out[k] = v
	}
	return out
}

func matchExclude(key string, paths [][]string) (drop bool, nested [][]string) {
	for _, p := range paths {
		if len(p) == 0 {
			continue
		}
		if !strings.EqualFold(p[0], key) {
			continue
		}
		if len(p) == 1 {
			return true, nil
		}
		nested = append(nested, p[1:])
	}
	return false, nested
}

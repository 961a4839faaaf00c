package filter

import (
	"strconv"
	"strings"
)

// Eval walks the AST over a materialised JSON value (decoded via
// encoding/json into map[string]interface{} / []interface{} / scalars),
// short-circuiting and/or. It is used for PATCH value-selectors and
// projection filters. attrs resolves per-attribute case-sensitivity the
// same way SQLTranslator does, so the in-memory and SQL evaluators agree
// on case-exact attributes (externalId, members.value, ...); pass nil to
// fall back to case-insensitive comparison everywhere.
func Eval(f *Filter, doc map[string]interface{}, attrs map[string]AttrMeta) bool {
	return evalAttr(f, doc, attrs, "")
}

// evalAttr is Eval with the enclosing multi-valued attribute name (e.g.
// "emails" while evaluating inside an emails[...] value-path), used to
// qualify sub-attribute lookups like "value" into "emails.value" against
// attrs.
func evalAttr(f *Filter, doc map[string]interface{}, attrs map[string]AttrMeta, prefix string) bool {
	switch f.Kind {
	case KindAnd:
		for _, sub := range f.List {
			if !evalAttr(sub, doc, attrs, prefix) {
				return false
			}
		}
		return true
	case KindOr:
		for _, sub := range f.List {
			if evalAttr(sub, doc, attrs, prefix) {
				return true
			}
		}
		return false
	case KindNot:
		return !evalAttr(f.Inner, doc, attrs, prefix)
	case KindPresent:
		v, ok := resolvePath(doc, f.Attr)
		return ok && !isAbsent(v)
	case KindCompare:
		v, ok := resolvePath(doc, f.Attr)
		if !ok {
			if f.Value.Kind == ValNull {
				return f.Op == OpEq
			}
			return f.Op == OpNe
		}
		return compareValue(v, f.Op, f.Value, caseRuleFor(attrs, prefix, f.Attr))
	case KindValuePath:
		items, ok := resolvePath(doc, f.Attr)
		if !ok {
			return false
		}
		arr, ok := items.([]interface{})
		if !ok {
			return false
		}
		for _, item := range arr {
			if m, ok := item.(map[string]interface{}); ok {
				if evalAttr(f.ValueFilter, m, attrs, f.Attr) {
					return true
				}
			}
		}
		return false
	}
	return false
}

// caseRuleFor looks up the case rule for attr, first qualified by prefix
// (e.g. "members.value") and then bare, defaulting to case-insensitive
// when attrs is nil or has no entry for either form.
func caseRuleFor(attrs map[string]AttrMeta, prefix, attr string) CaseRule {
	if attrs == nil {
		return CaseInsensitive
	}
	if prefix != "" {
		if meta, ok := LookupAttr(attrs, prefix+"."+attr); ok {
			return meta.Case
		}
	}
	if meta, ok := LookupAttr(attrs, attr); ok {
		return meta.Case
	}
	return CaseInsensitive
}

// MatchElements returns the indices of elements in a multi-valued
// attribute (addressed by path) that satisfy filter f, used by the PATCH
// engine to find which array elements a value-path selects. attr is the
// enclosing attribute name (e.g. "emails") so sub-attribute compares
// inside f resolve their case rule from attrs the same way the SQL
// translator's existentialSQL does.
func MatchElements(arr []interface{}, f *Filter, attrs map[string]AttrMeta, attr string) []int {
	var idx []int
	for i, item := range arr {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if evalAttr(f, m, attrs, attr) {
			idx = append(idx, i)
		}
	}
	return idx
}

func isAbsent(v interface{}) bool {
	if v == nil {
		return true
	}
	switch t := v.(type) {
	case string:
		return false
	case []interface{}:
		return len(t) == 0
	}
	return false
}

// resolvePath walks a dotted attribute path (after stripping any schema
// URN prefix) through a decoded JSON document.
func resolvePath(doc map[string]interface{}, attr string) (interface{}, bool) {
	attr = stripSchemaURN(attr)
	parts := strings.Split(attr, ".")
	var cur interface{} = doc
	for _, p := range parts {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		v, exists := resolveCaseInsensitiveKey(m, p)
		if !exists {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func resolveCaseInsensitiveKey(m map[string]interface{}, key string) (interface{}, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

func stripSchemaURN(attr string) string {
	idx := lastColon(attr)
	if idx < 0 {
		return attr
	}
	return attr[idx+1:]
}

func compareValue(v interface{}, op CompareOp, want CompValue, caseRule CaseRule) bool {
	switch want.Kind {
	case ValNull:
		isNull := v == nil
		if op == OpEq {
			return isNull
		}
		if op == OpNe {
			return !isNull
		}
		return false
	case ValBool:
		b, ok := v.(bool)
		if !ok {
			return false
		}
		switch op {
		case OpEq:
			return b == want.Bool
		case OpNe:
			return b != want.Bool
		}
		return false
	case ValNumber:
		n, ok := toNumber(v)
		if !ok {
			return false
		}
		return compareNumbers(n, op, want.Num)
	case ValString:
		s, ok := toStringVal(v)
		if !ok {
			return false
		}
		return compareStrings(s, op, want.Str, caseRule)
	}
	return false
}

func toNumber(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		n, err := strconv.ParseFloat(t, 64)
		return n, err == nil
	}
	return 0, false
}

func toStringVal(v interface{}) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func compareNumbers(a float64, op CompareOp, b float64) bool {
	switch op {
	case OpEq:
		return a == b
	case OpNe:
		return a != b
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	}
	return false
}

func compareStrings(a string, op CompareOp, b string, c CaseRule) bool {
	if c == CaseInsensitive {
		a = strings.ToLower(a)
		b = strings.ToLower(b)
	}
	switch op {
	case OpEq:
		return a == b
	case OpNe:
		return a != b
	case OpCo:
		return strings.Contains(a, b)
	case OpSw:
		return strings.HasPrefix(a, b)
	case OpEw:
		return strings.HasSuffix(a, b)
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	}
	return false
}

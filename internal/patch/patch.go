// Package patch implements the SCIM PATCH apply-operation engine (RFC
// 7644 3.5.2) over a materialised JSON document, reusing the PATCH path
// grammar and in-memory filter evaluator from internal/filter.
package patch

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scimkit/scimserver/internal/filter"
	"github.com/scimkit/scimserver/internal/models"
)

// CompatFlags are the per-tenant compatibility quirks that gate a subset
// of replace semantics.
type CompatFlags struct {
	SupportPatchReplaceEmptyArray bool
	SupportPatchReplaceEmptyValue bool
}

// PathError carries the SCIM scimType for a malformed path or value, so
// the handler layer can render the correct 400 response.
type PathError struct {
	ScimType string
	Detail   string
}

func (e *PathError) Error() string { return e.Detail }

func pathErr(scimType, format string, args ...interface{}) error {
	return &PathError{ScimType: scimType, Detail: fmt.Sprintf(format, args...)}
}

// Apply runs every operation against a deep copy of doc, in order. If any
// operation fails, it returns nil and the error; doc itself is never
// modified ("abort with no side effects"). attrs is the resource's attribute
// metadata table (filter.UserAttrs / filter.GroupAttrs), used to resolve
// case-sensitivity for value-path matching the same way the SQL
// translator does.
func Apply(doc map[string]interface{}, ops []models.SCIMPatchOperation, attrs map[string]filter.AttrMeta, flags CompatFlags) (map[string]interface{}, error) {
	work, err := deepCopy(doc)
	if err != nil {
		return nil, err
	}
	for _, op := range ops {
		if err := applyOne(work, op, attrs, flags); err != nil {
			return nil, err
		}
	}
	return work, nil
}

func deepCopy(doc map[string]interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func applyOne(doc map[string]interface{}, op models.SCIMPatchOperation, attrs map[string]filter.AttrMeta, flags CompatFlags) error {
	verb := strings.ToLower(op.Op)
	switch verb {
	case "add", "replace", "remove":
	default:
		return pathErr("invalidPath", "unknown PATCH operator %q", op.Op)
	}

	if op.Path == "" {
		// No path: value is an object whose top-level keys are themselves
		// attribute names to add/replace in bulk.
		if verb == "remove" {
			return pathErr("noTarget", "remove requires a path")
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(op.Value, &fields); err != nil {
			return pathErr("invalidValue", "pathless %s value must be an object", verb)
		}
		for k, v := range fields {
			var decoded interface{}
			if err := json.Unmarshal(v, &decoded); err != nil {
				return pathErr("invalidValue", "invalid value for %q", k)
			}
			setTopLevel(doc, k, decoded, flags)
		}
		return nil
	}

	p, err := filter.ParsePath(op.Path)
	if err != nil {
		return pathErr("invalidPath", "%v", err)
	}

	attrKey, container := resolveContainer(doc, p)

	if p.ValueFilter == nil {
		return applySimplePath(container, attrKey, p.SubAttr, verb, op.Value, flags)
	}
	return applyValuePath(container, attrKey, p, verb, op.Value, attrs, flags)
}

// resolveContainer returns the map that directly holds the attribute
// named by p.Attr, handling the schema-URN-qualified extension case by
// nesting into (or creating) the extension object.
func resolveContainer(doc map[string]interface{}, p *filter.Path) (string, map[string]interface{}) {
	if p.SchemaURN == "" {
		return lowerFirstKnownKey(doc, p.Attr), doc
	}
	ext, ok := doc[p.SchemaURN].(map[string]interface{})
	if !ok {
		ext = map[string]interface{}{}
		doc[p.SchemaURN] = ext
	}
	return p.Attr, ext
}

func lowerFirstKnownKey(doc map[string]interface{}, attr string) string {
	if _, ok := doc[attr]; ok {
		return attr
	}
	for k := range doc {
		if strings.EqualFold(k, attr) {
			return k
		}
	}
	return attr
}

func setTopLevel(doc map[string]interface{}, key string, value interface{}, flags CompatFlags) {
	doc[key] = value
}

func applySimplePath(container map[string]interface{}, attr, subAttr, verb string, rawValue json.RawMessage, flags CompatFlags) error {
	switch verb {
	case "remove":
		if subAttr != "" {
			obj, _ := container[attr].(map[string]interface{})
			if obj != nil {
				delete(obj, subAttr)
			}
			return nil
		}
		if arr, isArr := container[attr].([]interface{}); isArr && len(rawValue) > 0 {
			var matchers []interface{}
			if err := json.Unmarshal(rawValue, &matchers); err == nil && len(matchers) > 0 {
				container[attr] = removeMatchingElements(arr, matchers)
				return nil
			}
		}
		delete(container, attr)
		return nil

	case "add", "replace":
		var decoded interface{}
		if len(rawValue) > 0 {
			if err := json.Unmarshal(rawValue, &decoded); err != nil {
				return pathErr("invalidValue", "invalid JSON value")
			}
		}

		if subAttr != "" {
			obj, ok := container[attr].(map[string]interface{})
			if !ok {
				obj = map[string]interface{}{}
			}
			obj[subAttr] = decoded
			container[attr] = obj
			return nil
		}

		if verb == "replace" && isEmptyValueClear(decoded) {
			if !flags.SupportPatchReplaceEmptyValue {
				return pathErr("unsupported", "tenant does not allow replace with an empty value marker")
			}
			container[attr] = []interface{}{}
			return nil
		}

		if arr, isArr := decoded.([]interface{}); isArr {
			if verb == "replace" && len(arr) == 0 {
				if !flags.SupportPatchReplaceEmptyArray {
					return pathErr("unsupported", "tenant does not allow replace with an empty array")
				}
				container[attr] = []interface{}{}
				return nil
			}
			if verb == "replace" {
				container[attr] = arr
				return nil
			}
			existing, _ := container[attr].([]interface{})
			existing = appendMultiValued(existing, arr)
			container[attr] = existing
			return nil
		}

		if existingObj, ok := container[attr].(map[string]interface{}); ok {
			if newObj, ok := decoded.(map[string]interface{}); ok && verb == "add" {
				for k, v := range newObj {
					existingObj[k] = v
				}
				container[attr] = existingObj
				return nil
			}
		}
		container[attr] = decoded
		return nil
	}
	return nil
}

// isEmptyValueClear detects the `replace [{value:""}]` convention some
// clients use to mean "clear this multi-valued attribute".
func isEmptyValueClear(v interface{}) bool {
	arr, ok := v.([]interface{})
	if !ok || len(arr) != 1 {
		return false
	}
	m, ok := arr[0].(map[string]interface{})
	if !ok {
		return false
	}
	val, ok := m["value"].(string)
	return ok && val == ""
}

// appendMultiValued appends new elements to existing, clearing primary on
// prior elements whenever an appended element sets primary=true.
func appendMultiValued(existing []interface{}, add []interface{}) []interface{} {
	addsPrimary := false
	for _, item := range add {
		if m, ok := item.(map[string]interface{}); ok {
			if p, ok := m["primary"].(bool); ok && p {
				addsPrimary = true
			}
		}
	}
	if addsPrimary {
		for _, item := range existing {
			if m, ok := item.(map[string]interface{}); ok {
				if p, ok := m["primary"].(bool); ok && p {
					m["primary"] = false
				}
			}
		}
	}
	return append(existing, add...)
}

func applyValuePath(container map[string]interface{}, attr string, p *filter.Path, verb string, rawValue json.RawMessage, attrs map[string]filter.AttrMeta, flags CompatFlags) error {
	arrVal, ok := container[attr]
	if !ok {
		arrVal = []interface{}{}
	}
	arr, ok := arrVal.([]interface{})
	if !ok {
		return pathErr("invalidValue", "value-path applied to a non-array attribute %q", attr)
	}

	idx := filter.MatchElements(arr, p.ValueFilter, attrs, attr)

	switch verb {
	case "remove":
		if len(idx) == 0 {
			container[attr] = arr
			return nil
		}
		if p.SubAttr != "" {
			for _, i := range idx {
				if m, ok := arr[i].(map[string]interface{}); ok {
					delete(m, p.SubAttr)
				}
			}
			container[attr] = arr
			return nil
		}
		container[attr] = removeIndices(arr, idx)
		return nil

	case "add", "replace":
		var decoded interface{}
		if len(rawValue) > 0 {
			if err := json.Unmarshal(rawValue, &decoded); err != nil {
				return pathErr("invalidValue", "invalid JSON value")
			}
		}

		if len(idx) == 0 {
			if verb == "add" {
				newElem, ok := decoded.(map[string]interface{})
				if !ok {
					return pathErr("invalidValue", "add via value-path requires an object value")
				}
				container[attr] = appendMultiValued(arr, []interface{}{newElem})
				return nil
			}
			// replace with no match is a no-op per RFC 7644 guidance; nothing
			// to overwrite.
			container[attr] = arr
			return nil
		}

		for _, i := range idx {
			m, ok := arr[i].(map[string]interface{})
			if !ok {
				continue
			}
			if p.SubAttr != "" {
				m[p.SubAttr] = decoded
				continue
			}
			if newObj, ok := decoded.(map[string]interface{}); ok {
				if verb == "add" {
					for k, v := range newObj {
						m[k] = v
					}
				} else {
					for k := range m {
						delete(m, k)
					}
					for k, v := range newObj {
						m[k] = v
					}
				}
			}
		}
		container[attr] = arr
		return nil
	}
	return nil
}

func removeIndices(arr []interface{}, idx []int) []interface{} {
	remove := make(map[int]bool, len(idx))
	for _, i := range idx {
		remove[i] = true
	}
	out := make([]interface{}, 0, len(arr))
	for i, v := range arr {
		if !remove[i] {
			out = append(out, v)
		}
	}
	return out
}

// removeMatchingElements drops every element of arr that matches any of
// the matcher objects, per the "remove only the elements matching any
// matcher (match by value or by all shared scalar fields)" rule for a
// bare-path remove against a multi-valued attribute.
func removeMatchingElements(arr []interface{}, matchers []interface{}) []interface{} {
	out := make([]interface{}, 0, len(arr))
	for _, item := range arr {
		m, ok := item.(map[string]interface{})
		if !ok || !matchesAnyMatcher(m, matchers) {
			out = append(out, item)
		}
	}
	return out
}

func matchesAnyMatcher(elem map[string]interface{}, matchers []interface{}) bool {
	for _, raw := range matchers {
		matcher, ok := raw.(map[string]interface{})
		if !ok || len(matcher) == 0 {
			continue
		}
		if matchesAllFields(elem, matcher) {
			return true
		}
	}
	return false
}

func matchesAllFields(elem, matcher map[string]interface{}) bool {
	for k, want := range matcher {
		if !scalarEqual(elem[k], want) {
			return false
		}
	}
	return true
}

func scalarEqual(a, b interface{}) bool {
	switch bt := b.(type) {
	case string:
		at, ok := a.(string)
		return ok && at == bt
	case bool:
		at, ok := a.(bool)
		return ok && at == bt
	case float64:
		at, ok := a.(float64)
		return ok && at == bt
	}
	return false
}

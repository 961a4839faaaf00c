package filter

import (
	"fmt"
	"strings"
)

// SQLTranslator lowers a Filter AST to a parameterised Postgres predicate
// against a hybrid typed-column + jsonb `data` table, using the
// attribute metadata table to decide column vs JSON-path access. Args are
// returned in emission order for use as bun query bindings (`?`
// placeholders).
type SQLTranslator struct {
	Attrs map[string]AttrMeta
}

// ToSQL renders the filter into a WHERE-clause fragment. jsonColumn is the
// name of the jsonb column (typically "data").
func (t *SQLTranslator) ToSQL(f *Filter, jsonColumn string) (string, []interface{}, error) {
	switch f.Kind {
	case KindAnd:
		return t.joinLogic(f.List, "AND", jsonColumn)
	case KindOr:
		return t.joinLogic(f.List, "OR", jsonColumn)
	case KindNot:
		inner, args, err := t.ToSQL(f.Inner, jsonColumn)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + inner + ")", args, nil
	case KindPresent:
		meta, ok := LookupAttr(t.Attrs, f.Attr)
		if !ok {
			return "", nil, fmt.Errorf("invalidFilter: unknown attribute %q", f.Attr)
		}
		if meta.Storage == StorageColumn {
			return fmt.Sprintf("%s IS NOT NULL", meta.Column), nil, nil
		}
		return fmt.Sprintf("%s #>> '{%s}' IS NOT NULL", jsonColumn, strings.Join(meta.JSONPath, ",")), nil, nil
	case KindCompare:
		return t.compareSQL(f, jsonColumn)
	case KindValuePath:
		return t.valuePathSQL(f, jsonColumn)
	}
	return "", nil, fmt.Errorf("invalidFilter: unsupported node")
}

func (t *SQLTranslator) joinLogic(list []*Filter, op, jsonColumn string) (string, []interface{}, error) {
	var parts []string
	var args []interface{}
	for _, sub := range list {
		clause, subArgs, err := t.ToSQL(sub, jsonColumn)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, "("+clause+")")
		args = append(args, subArgs...)
	}
	return strings.Join(parts, " "+op+" "), args, nil
}

func (t *SQLTranslator) compareSQL(f *Filter, jsonColumn string) (string, []interface{}, error) {
	meta, ok := LookupAttr(t.Attrs, f.Attr)
	if !ok {
		return "", nil, fmt.Errorf("invalidFilter: unknown attribute %q", f.Attr)
	}
	if meta.MultiValued {
		key := NormalizeAttr(f.Attr)
		return t.existentialSQL(meta, key[strings.LastIndex(key, ".")+1:], f.Op, f.Value, jsonColumn)
	}

	var expr string
	if meta.Storage == StorageColumn {
		expr = meta.Column
	} else {
		expr = fmt.Sprintf("%s #>> '{%s}'", jsonColumn, strings.Join(meta.JSONPath, ","))
	}

	sqlOp, err := sqlOperator(f.Op)
	if err != nil {
		return "", nil, err
	}

	switch f.Value.Kind {
	case ValNull:
		if f.Op == OpEq {
			return expr + " IS NULL", nil, nil
		}
		if f.Op == OpNe {
			return expr + " IS NOT NULL", nil, nil
		}
		return "", nil, fmt.Errorf("invalidFilter: null only supports eq/ne")
	case ValBool:
		return fmt.Sprintf("(%s)::boolean %s ?", expr, sqlOp), []interface{}{f.Value.Bool}, nil
	case ValNumber:
		return fmt.Sprintf("(%s)::numeric %s ?", expr, sqlOp), []interface{}{f.Value.Num}, nil
	case ValString:
		return t.stringCompareSQL(expr, f.Op, f.Value.Str, meta.Case)
	}
	return "", nil, fmt.Errorf("invalidFilter: unsupported comparison value")
}

func (t *SQLTranslator) stringCompareSQL(expr string, op CompareOp, value string, caseRule CaseRule) (string, []interface{}, error) {
	lhs := expr
	rhs := "?"
	if caseRule == CaseInsensitive {
		lhs = "lower(" + expr + ")"
		rhs = "lower(?)"
	}
	switch op {
	case OpEq:
		return fmt.Sprintf("%s = %s", lhs, rhs), []interface{}{value}, nil
	case OpNe:
		return fmt.Sprintf("%s <> %s", lhs, rhs), []interface{}{value}, nil
	case OpCo:
		return fmt.Sprintf("%s LIKE %s", lhs, likeRHS(caseRule)), []interface{}{"%" + escapeLike(value) + "%"}, nil
	case OpSw:
		return fmt.Sprintf("%s LIKE %s", lhs, likeRHS(caseRule)), []interface{}{escapeLike(value) + "%"}, nil
	case OpEw:
		return fmt.Sprintf("%s LIKE %s", lhs, likeRHS(caseRule)), []interface{}{"%" + escapeLike(value)}, nil
	case OpGt, OpGe, OpLt, OpLe:
		sqlOp, err := sqlOperator(op)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s %s %s", lhs, sqlOp, rhs), []interface{}{value}, nil
	}
	return "", nil, fmt.Errorf("invalidFilter: unsupported string operator %q", op)
}

func likeRHS(c CaseRule) string {
	if c == CaseInsensitive {
		return "lower(?)"
	}
	return "?"
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "%", "\\%")
	s = strings.ReplaceAll(s, "_", "\\_")
	return s
}

// existentialSQL handles attributes like emails.value, where leaf is the
// sub-attribute after the dot: `EXISTS (SELECT 1 FROM
// jsonb_array_elements(data #> '{emails}') elem WHERE elem->>'value' op ?)`.
func (t *SQLTranslator) existentialSQL(meta AttrMeta, leaf string, op CompareOp, value CompValue, jsonColumn string) (string, []interface{}, error) {
	if value.Kind != ValString {
		return "", nil, fmt.Errorf("invalidFilter: multi-valued comparisons support string values only")
	}
	if len(meta.JSONPath) == 0 {
		return "", nil, fmt.Errorf("invalidFilter: missing JSON path for multi-valued attribute")
	}
	elemExpr := "elem->>'" + leaf + "'"
	lhs := elemExpr
	rhs := "?"
	if meta.Case == CaseInsensitive {
		lhs = "lower(" + elemExpr + ")"
		rhs = "lower(?)"
	}
	var cmp string
	var arg interface{} = value.Str
	switch op {
	case OpEq:
		cmp = fmt.Sprintf("%s = %s", lhs, rhs)
	case OpNe:
		cmp = fmt.Sprintf("%s <> %s", lhs, rhs)
	case OpCo:
		cmp = fmt.Sprintf("%s LIKE %s", lhs, likeRHS(meta.Case))
		arg = "%" + escapeLike(value.Str) + "%"
	case OpSw:
		cmp = fmt.Sprintf("%s LIKE %s", lhs, likeRHS(meta.Case))
		arg = escapeLike(value.Str) + "%"
	case OpEw:
		cmp = fmt.Sprintf("%s LIKE %s", lhs, likeRHS(meta.Case))
		arg = "%" + escapeLike(value.Str)
	default:
		return "", nil, fmt.Errorf("invalidFilter: unsupported multi-valued operator %q", op)
	}
	q := fmt.Sprintf(
		"EXISTS (SELECT 1 FROM jsonb_array_elements(%s #> '{%s}') elem WHERE %s)",
		jsonColumn, strings.Join(meta.JSONPath, ","), cmp,
	)
	return q, []interface{}{arg}, nil
}

// valuePathSQL handles top-level `emails[type eq "work"]` filters: an
// existential over the JSON array with the inner filter applied per
// element.
func (t *SQLTranslator) valuePathSQL(f *Filter, jsonColumn string) (string, []interface{}, error) {
	meta, ok := LookupAttr(t.Attrs, f.Attr)
	if !ok || len(meta.JSONPath) == 0 {
		return "", nil, fmt.Errorf("invalidFilter: unknown multi-valued attribute %q", f.Attr)
	}
	innerClause, args, err := t.elementFilterSQL(f.ValueFilter, f.Attr)
	if err != nil {
		return "", nil, err
	}
	q := fmt.Sprintf(
		"EXISTS (SELECT 1 FROM jsonb_array_elements(%s #> '{%s}') elem WHERE %s)",
		jsonColumn, strings.Join(meta.JSONPath, ","), innerClause,
	)
	return q, args, nil
}

// elementFilterSQL renders a filter whose attrPaths are relative to a
// single `elem` jsonb row value (used inside value-path existentials).
// prefix is the enclosing multi-valued attribute, used to look up the case
// rule of "prefix.sub" in the attribute table.
func (t *SQLTranslator) elementFilterSQL(f *Filter, prefix string) (string, []interface{}, error) {
	switch f.Kind {
	case KindAnd, KindOr:
		op := "AND"
		if f.Kind == KindOr {
			op = "OR"
		}
		var parts []string
		var args []interface{}
		for _, sub := range f.List {
			clause, subArgs, err := t.elementFilterSQL(sub, prefix)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, "("+clause+")")
			args = append(args, subArgs...)
		}
		return strings.Join(parts, " "+op+" "), args, nil
	case KindNot:
		clause, args, err := t.elementFilterSQL(f.Inner, prefix)
		if err != nil {
			return "", nil, err
		}
		return "NOT (" + clause + ")", args, nil
	case KindPresent:
		return fmt.Sprintf("elem->>'%s' IS NOT NULL", f.Attr), nil, nil
	case KindCompare:
		if f.Value.Kind != ValString && f.Value.Kind != ValBool {
			return "", nil, fmt.Errorf("invalidFilter: unsupported value-path comparison value")
		}
		expr := fmt.Sprintf("elem->>'%s'", f.Attr)
		if f.Value.Kind == ValBool {
			sqlOp, err := sqlOperator(f.Op)
			if err != nil {
				return "", nil, err
			}
			return fmt.Sprintf("(%s)::boolean %s ?", expr, sqlOp), []interface{}{f.Value.Bool}, nil
		}
		caseRule := CaseInsensitive
		if meta, ok := LookupAttr(t.Attrs, prefix+"."+f.Attr); ok {
			caseRule = meta.Case
		}
		return t.stringCompareSQL(expr, f.Op, f.Value.Str, caseRule)
	}
	return "", nil, fmt.Errorf("invalidFilter: unsupported value-path node")
}

func sqlOperator(op CompareOp) (string, error) {
	switch op {
	case OpEq:
		return "=", nil
	case OpNe:
		return "<>", nil
	case OpGt:
		return ">", nil
	case OpGe:
		return ">=", nil
	case OpLt:
		return "<", nil
	case OpLe:
		return "<=", nil
	}
	return "", fmt.Errorf("invalidFilter: operator %q has no direct SQL equivalent here", op)
}

// Package filter implements the SCIM filter grammar (RFC 7644 3.4.2.2)
// and the PATCH path grammar (RFC 7644 3.5.2), shared by search, PATCH
// value-selectors and attribute projection.
package filter

// CompareOp is one of the RFC 7644 comparison operators.
type CompareOp string

const (
	OpEq CompareOp = "eq"
	OpNe CompareOp = "ne"
	OpCo CompareOp = "co"
	OpSw CompareOp = "sw"
	OpEw CompareOp = "ew"
	OpGt CompareOp = "gt"
	OpGe CompareOp = "ge"
	OpLt CompareOp = "lt"
	OpLe CompareOp = "le"
)

// Filter is a tagged-union AST node. Exactly one field is meaningful for
// a given Kind; both executors (SQL and in-memory) consume this same
// tree, avoiding dynamic-dispatch inheritance.
type Kind int

const (
	KindAnd Kind = iota
	KindOr
	KindNot
	KindCompare
	KindPresent
	KindValuePath
)

type Filter struct {
	Kind Kind

	// KindAnd / KindOr
	List []*Filter

	// KindNot
	Inner *Filter

	// KindCompare / KindPresent / KindValuePath
	Attr string // attrPath, e.g. "emails.value" or "name.givenName"

	// KindCompare
	Op    CompareOp
	Value CompValue

	// KindValuePath: the filter applied to elements of the multi-valued Attr
	ValueFilter *Filter
}

// CompValue is a parsed comparison literal: exactly one field is set,
// selected by Kind.
type ValueKind int

const (
	ValString ValueKind = iota
	ValNumber
	ValBool
	ValNull
)

type CompValue struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
}

func And(list ...*Filter) *Filter   { return &Filter{Kind: KindAnd, List: list} }
func Or(list ...*Filter) *Filter    { return &Filter{Kind: KindOr, List: list} }
func Not(f *Filter) *Filter         { return &Filter{Kind: KindNot, Inner: f} }
func Present(attr string) *Filter   { return &Filter{Kind: KindPresent, Attr: attr} }
func Compare(attr string, op CompareOp, v CompValue) *Filter {
	return &Filter{Kind: KindCompare, Attr: attr, Op: op, Value: v}
}
func ValuePath(attr string, inner *Filter) *Filter {
	return &Filter{Kind: KindValuePath, Attr: attr, ValueFilter: inner}
}

// Path is a parsed PATCH path: attrPath, optionally with a value-path
// filter selecting elements of a multi-valued attribute, optionally
// followed by a sub-attribute.
type Path struct {
	Attr        string // top-level (or schema-URN-qualified) attribute name
	SchemaURN   string // set when Attr was qualified by a schema URN prefix
	ValueFilter *Filter
	SubAttr     string
}

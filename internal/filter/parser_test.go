package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SimpleCompare(t *testing.T) {
	f, err := Parse(`userName eq "john"`)
	require.NoError(t, err)
	assert.Equal(t, KindCompare, f.Kind)
	assert.Equal(t, "userName", f.Attr)
	assert.Equal(t, OpEq, f.Op)
	assert.Equal(t, "john", f.Value.Str)
}

func TestParse_AndOrPrecedence(t *testing.T) {
	f, err := Parse(`userName co "john" and active eq true or externalId pr`)
	require.NoError(t, err)
	require.Equal(t, KindOr, f.Kind)
	require.Len(t, f.List, 2)
	assert.Equal(t, KindAnd, f.List[0].Kind)
	assert.Equal(t, KindPresent, f.List[1].Kind)
}

func TestParse_NotGroup(t *testing.T) {
	f, err := Parse(`not (active eq false)`)
	require.NoError(t, err)
	assert.Equal(t, KindNot, f.Kind)
	assert.Equal(t, KindCompare, f.Inner.Kind)
}

func TestParse_ValuePath(t *testing.T) {
	f, err := Parse(`emails[type eq "work" and value co "@example.com"]`)
	require.NoError(t, err)
	require.Equal(t, KindValuePath, f.Kind)
	assert.Equal(t, "emails", f.Attr)
	assert.Equal(t, KindAnd, f.ValueFilter.Kind)
}

func TestParse_UnclosedBracket(t *testing.T) {
	_, err := Parse(`emails[type eq "work"`)
	assert.Error(t, err)
}

func TestParsePath_Simple(t *testing.T) {
	p, err := ParsePath(`name.givenName`)
	require.NoError(t, err)
	assert.Equal(t, "name", p.Attr)
	assert.Equal(t, "givenName", p.SubAttr)
}

func TestParsePath_ValuePathWithSubAttr(t *testing.T) {
	p, err := ParsePath(`emails[type eq "work"].value`)
	require.NoError(t, err)
	assert.Equal(t, "emails", p.Attr)
	require.NotNil(t, p.ValueFilter)
	assert.Equal(t, "value", p.SubAttr)
}

func TestParsePath_SchemaURN(t *testing.T) {
	p, err := ParsePath(`urn:ietf:params:scim:schemas:extension:enterprise:2.0:User:department`)
	require.NoError(t, err)
	assert.Equal(t, "urn:ietf:params:scim:schemas:extension:enterprise:2.0:User", p.SchemaURN)
	assert.Equal(t, "department", p.Attr)
}

func TestEval_CompareAndValuePath(t *testing.T) {
	doc := map[string]interface{}{
		"userName": "john.doe",
		"active":   true,
		"emails": []interface{}{
			map[string]interface{}{"value": "john@work.example.com", "type": "work"},
			map[string]interface{}{"value": "john@home.example.com", "type": "home"},
		},
	}

	f, err := Parse(`userName co "john" and active eq true`)
	require.NoError(t, err)
	assert.True(t, Eval(f, doc, UserAttrs))

	vp, err := Parse(`emails[type eq "work" and value co "@work."]`)
	require.NoError(t, err)
	assert.True(t, Eval(vp, doc, UserAttrs))

	vp2, err := Parse(`emails[type eq "personal"]`)
	require.NoError(t, err)
	assert.False(t, Eval(vp2, doc, UserAttrs))
}

func TestEval_CaseExactAttributeMatchesSQLTranslatorSemantics(t *testing.T) {
	doc := map[string]interface{}{"externalId": "ABC-123"}

	f, err := Parse(`externalId eq "abc-123"`)
	require.NoError(t, err)
	assert.False(t, Eval(f, doc, UserAttrs), "externalId is case-exact per attrs metadata")

	f2, err := Parse(`externalId eq "ABC-123"`)
	require.NoError(t, err)
	assert.True(t, Eval(f2, doc, UserAttrs))
}

func TestEval_ValuePath_CaseExactSubAttribute(t *testing.T) {
	doc := map[string]interface{}{
		"members": []interface{}{
			map[string]interface{}{"value": "User-1", "display": "Alice"},
		},
	}

	exact, err := Parse(`members[value eq "user-1"]`)
	require.NoError(t, err)
	assert.False(t, Eval(exact, doc, GroupAttrs), "members.value is case-exact")

	insensitive, err := Parse(`members[display eq "alice"]`)
	require.NoError(t, err)
	assert.True(t, Eval(insensitive, doc, GroupAttrs), "members.display is case-insensitive")
}

func TestSQLTranslator_ColumnAndJSON(t *testing.T) {
	tr := &SQLTranslator{Attrs: UserAttrs}

	f, err := Parse(`userName eq "john"`)
	require.NoError(t, err)
	clause, args, err := tr.ToSQL(f, "data")
	require.NoError(t, err)
	assert.Contains(t, clause, "lower(user_name)")
	assert.Equal(t, []interface{}{"john"}, args)

	f2, err := Parse(`name.givenName co "jo"`)
	require.NoError(t, err)
	clause2, args2, err := tr.ToSQL(f2, "data")
	require.NoError(t, err)
	assert.Contains(t, clause2, "data #>> '{name,givenName}'")
	assert.Equal(t, []interface{}{"%jo%"}, args2)
}

func TestSQLTranslator_ExistentialMultiValued(t *testing.T) {
	tr := &SQLTranslator{Attrs: UserAttrs}
	f, err := Parse(`emails.value eq "a@example.com"`)
	require.NoError(t, err)
	clause, args, err := tr.ToSQL(f, "data")
	require.NoError(t, err)
	assert.Contains(t, clause, "jsonb_array_elements")
	assert.Equal(t, []interface{}{"a@example.com"}, args)
}

func TestSQLTranslator_UnknownAttribute(t *testing.T) {
	tr := &SQLTranslator{Attrs: UserAttrs}
	f, err := Parse(`bogusAttr eq "x"`)
	require.NoError(t, err)
	_, _, err = tr.ToSQL(f, "data")
	assert.Error(t, err)
}

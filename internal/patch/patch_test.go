package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scimkit/scimserver/internal/filter"
	"github.com/scimkit/scimserver/internal/models"
)

func TestApply_AddSimpleAttribute(t *testing.T) {
	doc := map[string]interface{}{"userName": "bjensen"}
	out, err := Apply(doc, []models.SCIMPatchOperation{
		{Op: "add", Path: "displayName", Value: []byte(`"Barbara Jensen"`)},
	}, filter.UserAttrs, CompatFlags{})
	require.NoError(t, err)
	assert.Equal(t, "Barbara Jensen", out["displayName"])
	assert.NotContains(t, doc, "displayName", "original doc must be left untouched")
}

func TestApply_RemoveSimpleAttribute(t *testing.T) {
	doc := map[string]interface{}{"userName": "bjensen", "nickName": "bj"}
	out, err := Apply(doc, []models.SCIMPatchOperation{
		{Op: "remove", Path: "nickName"},
	}, filter.UserAttrs, CompatFlags{})
	require.NoError(t, err)
	assert.NotContains(t, out, "nickName")
}

func TestApply_RemoveWholeMultiValued_NoMatcher(t *testing.T) {
	doc := map[string]interface{}{
		"emails": []interface{}{map[string]interface{}{"value": "a@example.com"}},
	}
	out, err := Apply(doc, []models.SCIMPatchOperation{
		{Op: "remove", Path: "emails"},
	}, filter.UserAttrs, CompatFlags{})
	require.NoError(t, err)
	assert.NotContains(t, out, "emails")
}

func TestApply_RemoveMultiValued_WithValueMatcher_RemovesOnlyMatchingElements(t *testing.T) {
	doc := map[string]interface{}{
		"emails": []interface{}{
			map[string]interface{}{"value": "primary@x", "type": "work"},
			map[string]interface{}{"value": "other@x", "type": "home"},
		},
	}
	out, err := Apply(doc, []models.SCIMPatchOperation{
		{Op: "remove", Path: "emails", Value: []byte(`[{"value":"primary@x"}]`)},
	}, filter.UserAttrs, CompatFlags{})
	require.NoError(t, err)

	emails := out["emails"].([]interface{})
	require.Len(t, emails, 1)
	assert.Equal(t, "other@x", emails[0].(map[string]interface{})["value"])
}

func TestApply_RemoveMultiValued_WithMultiFieldMatcher_MatchesAllSharedFields(t *testing.T) {
	doc := map[string]interface{}{
		"emails": []interface{}{
			map[string]interface{}{"value": "a@x", "type": "work"},
			map[string]interface{}{"value": "a@x", "type": "home"},
		},
	}
	out, err := Apply(doc, []models.SCIMPatchOperation{
		{Op: "remove", Path: "emails", Value: []byte(`[{"value":"a@x","type":"home"}]`)},
	}, filter.UserAttrs, CompatFlags{})
	require.NoError(t, err)

	emails := out["emails"].([]interface{})
	require.Len(t, emails, 1)
	assert.Equal(t, "work", emails[0].(map[string]interface{})["type"])
}

func TestApply_ReplaceEmptyArray_RequiresCompatFlag(t *testing.T) {
	doc := map[string]interface{}{"emails": []interface{}{map[string]interface{}{"value": "a@example.com"}}}

	_, err := Apply(doc, []models.SCIMPatchOperation{
		{Op: "replace", Path: "emails", Value: []byte(`[]`)},
	}, filter.UserAttrs, CompatFlags{SupportPatchReplaceEmptyArray: false})
	require.Error(t, err)
	pathErr, ok := err.(*PathError)
	require.True(t, ok)
	assert.Equal(t, "unsupported", pathErr.ScimType)

	out, err := Apply(doc, []models.SCIMPatchOperation{
		{Op: "replace", Path: "emails", Value: []byte(`[]`)},
	}, filter.UserAttrs, CompatFlags{SupportPatchReplaceEmptyArray: true})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{}, out["emails"])
}

func TestApply_AddMultiValued_ClearsPriorPrimary(t *testing.T) {
	doc := map[string]interface{}{
		"emails": []interface{}{
			map[string]interface{}{"value": "old@example.com", "primary": true},
		},
	}
	out, err := Apply(doc, []models.SCIMPatchOperation{
		{Op: "add", Path: "emails", Value: []byte(`[{"value":"new@example.com","primary":true}]`)},
	}, filter.UserAttrs, CompatFlags{})
	require.NoError(t, err)

	emails := out["emails"].([]interface{})
	require.Len(t, emails, 2)
	assert.False(t, emails[0].(map[string]interface{})["primary"].(bool))
	assert.True(t, emails[1].(map[string]interface{})["primary"].(bool))
}

func TestApply_ValuePath_ReplacesMatchingElement(t *testing.T) {
	doc := map[string]interface{}{
		"emails": []interface{}{
			map[string]interface{}{"value": "old@example.com", "type": "work"},
			map[string]interface{}{"value": "home@example.com", "type": "home"},
		},
	}
	out, err := Apply(doc, []models.SCIMPatchOperation{
		{Op: "replace", Path: `emails[type eq "work"].value`, Value: []byte(`"updated@example.com"`)},
	}, filter.UserAttrs, CompatFlags{})
	require.NoError(t, err)

	emails := out["emails"].([]interface{})
	assert.Equal(t, "updated@example.com", emails[0].(map[string]interface{})["value"])
	assert.Equal(t, "home@example.com", emails[1].(map[string]interface{})["value"])
}

func TestApply_ValuePath_RemovesMatchingElement(t *testing.T) {
	doc := map[string]interface{}{
		"emails": []interface{}{
			map[string]interface{}{"value": "old@example.com", "type": "work"},
			map[string]interface{}{"value": "home@example.com", "type": "home"},
		},
	}
	out, err := Apply(doc, []models.SCIMPatchOperation{
		{Op: "remove", Path: `emails[type eq "home"]`},
	}, filter.UserAttrs, CompatFlags{})
	require.NoError(t, err)

	emails := out["emails"].([]interface{})
	require.Len(t, emails, 1)
	assert.Equal(t, "old@example.com", emails[0].(map[string]interface{})["value"])
}

func TestApply_ValuePath_CaseExactSubAttribute_AgreesWithSQLTranslator(t *testing.T) {
	doc := map[string]interface{}{
		"members": []interface{}{
			map[string]interface{}{"value": "User-1", "display": "Alice"},
		},
	}

	out, err := Apply(doc, []models.SCIMPatchOperation{
		{Op: "remove", Path: `members[value eq "user-1"]`},
	}, filter.GroupAttrs, CompatFlags{})
	require.NoError(t, err)
	assert.Len(t, out["members"].([]interface{}), 1, "members.value is case-exact, lowercase must not match")

	out, err = Apply(doc, []models.SCIMPatchOperation{
		{Op: "remove", Path: `members[value eq "User-1"]`},
	}, filter.GroupAttrs, CompatFlags{})
	require.NoError(t, err)
	assert.Empty(t, out["members"], "exact-case value must match and remove the element")
}

func TestApply_UnknownOperator_ReturnsPathError(t *testing.T) {
	doc := map[string]interface{}{}
	_, err := Apply(doc, []models.SCIMPatchOperation{{Op: "upsert", Path: "userName"}}, filter.UserAttrs, CompatFlags{})
	require.Error(t, err)
	pathErr, ok := err.(*PathError)
	require.True(t, ok)
	assert.Equal(t, "invalidPath", pathErr.ScimType)
}

func TestApply_ExtensionSchemaURN_NestsIntoExtensionObject(t *testing.T) {
	doc := map[string]interface{}{}
	out, err := Apply(doc, []models.SCIMPatchOperation{
		{
			Op:    "add",
			Path:  "urn:ietf:params:scim:schemas:extension:enterprise:2.0:User:department",
			Value: []byte(`"Engineering"`),
		},
	}, filter.UserAttrs, CompatFlags{})
	require.NoError(t, err)

	ext, ok := out["urn:ietf:params:scim:schemas:extension:enterprise:2.0:User"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Engineering", ext["department"])
}

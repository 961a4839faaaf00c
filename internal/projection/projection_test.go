package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sampleDoc() map[string]interface{} {
	return map[string]interface{}{
		"id":      "1",
		"schemas": []interface{}{"urn:ietf:params:scim:schemas:core:2.0:User"},
		"meta":    map[string]interface{}{"resourceType": "User"},
		"userName": "bjensen",
		"name": map[string]interface{}{
			"givenName":  "Barbara",
			"familyName": "Jensen",
		},
		"emails": []interface{}{
			map[string]interface{}{"value": "bjensen@example.com", "type": "work"},
		},
	}
}

func TestApply_NoFilters_ReturnsDocUnchanged(t *testing.T) {
	doc := sampleDoc()
	out := Apply(doc, nil, nil)
	assert.Equal(t, doc, out)
}

func TestApply_Inclusion_KeepsAlwaysKeptAndRequested(t *testing.T) {
	out := Apply(sampleDoc(), []string{"userName"}, nil)
	assert.Contains(t, out, "id")
	assert.Contains(t, out, "schemas")
	assert.Contains(t, out, "meta")
	assert.Contains(t, out, "userName")
	assert.NotContains(t, out, "name")
	assert.NotContains(t, out, "emails")
}

func TestApply_Inclusion_SubObjectSurvivesOnlyWithMatchingLeaf(t *testing.T) {
	out := Apply(sampleDoc(), []string{"name.givenName"}, nil)
	name, ok := out["name"].(map[string]interface{})
	assert.True(t, ok)
	assert.Contains(t, name, "givenName")
	assert.NotContains(t, name, "familyName")
}

func TestApply_Exclusion_DropsRequestedKey(t *testing.T) {
	out := Apply(sampleDoc(), nil, []string{"emails"})
	assert.Contains(t, out, "id")
	assert.Contains(t, out, "userName")
	assert.NotContains(t, out, "emails")
}

func TestApply_Exclusion_NeverDropsAlwaysKept(t *testing.T) {
	out := Apply(sampleDoc(), nil, []string{"id", "schemas", "meta"})
	assert.Contains(t, out, "id")
	assert.Contains(t, out, "schemas")
	assert.Contains(t, out, "meta")
}

func TestApply_InclusionThenExclusion(t *testing.T) {
	out := Apply(sampleDoc(), []string{"userName", "name"}, []string{"name.familyName"})
	assert.Contains(t, out, "userName")
	name, ok := out["name"].(map[string]interface{})
	assert.True(t, ok)
	assert.Contains(t, name, "givenName")
	assert.NotContains(t, name, "familyName")
}

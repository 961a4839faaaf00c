package queryopt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scimkit/scimserver/internal/filter"
)

func TestBuildSearchOptions_Defaults(t *testing.T) {
	o := BuildSearchOptions()
	assert.Equal(t, 1, o.StartIndex)
	assert.Equal(t, 100, o.Count)
	assert.Equal(t, SortAscending, o.SortOrder)
	assert.Nil(t, o.Filter)
}

func TestBuildSearchOptions_ClampsStartIndexBelowOne(t *testing.T) {
	o := BuildSearchOptions(WithPage(0, 50))
	assert.Equal(t, 1, o.StartIndex)
	assert.Equal(t, 50, o.Count)

	o = BuildSearchOptions(WithPage(-10, 50))
	assert.Equal(t, 1, o.StartIndex)
}

func TestBuildSearchOptions_ClampsNegativeCountToZero(t *testing.T) {
	o := BuildSearchOptions(WithPage(1, -5))
	assert.Equal(t, 0, o.Count)
}

func TestBuildSearchOptions_WithSort(t *testing.T) {
	o := BuildSearchOptions(WithSort("userName", SortDescending))
	assert.Equal(t, "userName", o.SortBy)
	assert.Equal(t, SortDescending, o.SortOrder)
}

func TestBuildSearchOptions_WithAttributesAndExcluded(t *testing.T) {
	o := BuildSearchOptions(
		WithAttributes([]string{"userName", "emails"}),
		WithExcludedAttributes([]string{"groups"}),
	)
	assert.Equal(t, []string{"userName", "emails"}, o.Attributes)
	assert.Equal(t, []string{"groups"}, o.ExcludedAttributes)
}

func TestBuildSearchOptions_WithFilter(t *testing.T) {
	f := &filter.Filter{}
	o := BuildSearchOptions(WithFilter(f))
	assert.Same(t, f, o.Filter)
}

// Package queryopt provides the functional-options pattern used by the
// resource store for search parameters, so new optional knobs never
// force a signature change on ResourceStore.SearchUsers/SearchGroups.
package queryopt

import "github.com/scimkit/scimserver/internal/filter"

// SortOrder controls SCIM sortOrder semantics.
type SortOrder string

const (
	SortAscending  SortOrder = "ascending"
	SortDescending SortOrder = "descending"
)

// SearchOptions holds the parameters common to both User and Group search.
type SearchOptions struct {
	Filter             *filter.Filter
	SortBy             string
	SortOrder          SortOrder
	StartIndex         int
	Count              int
	Attributes         []string
	ExcludedAttributes []string
}

// SearchOption configures SearchOptions.
type SearchOption func(*SearchOptions)

func WithFilter(f *filter.Filter) SearchOption {
	return func(o *SearchOptions) { o.Filter = f }
}

func WithSort(by string, order SortOrder) SearchOption {
	return func(o *SearchOptions) { o.SortBy = by; o.SortOrder = order }
}

func WithPage(startIndex, count int) SearchOption {
	return func(o *SearchOptions) { o.StartIndex = startIndex; o.Count = count }
}

func WithAttributes(attrs []string) SearchOption {
	return func(o *SearchOptions) { o.Attributes = attrs }
}

func WithExcludedAttributes(attrs []string) SearchOption {
	return func(o *SearchOptions) { o.ExcludedAttributes = attrs }
}

// BuildSearchOptions applies defaults (1-based startIndex, count<0 -> 0)
// then folds in every option.
func BuildSearchOptions(opts ...SearchOption) SearchOptions {
	o := SearchOptions{StartIndex: 1, Count: 100, SortOrder: SortAscending}
	for _, fn := range opts {
		fn(&o)
	}
	if o.StartIndex < 1 {
		o.StartIndex = 1
	}
	if o.Count < 0 {
		o.Count = 0
	}
	return o
}

// UserSearchOption and GroupSearchOption are type aliases kept distinct so
// call sites read as resource-specific even though they share one
// underlying options struct.
type UserSearchOption = SearchOption
type GroupSearchOption = SearchOption

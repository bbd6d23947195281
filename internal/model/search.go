package model

// SearchFilters pins facet dimensions. Empty fields are not applied.
type SearchFilters struct {
	RollNumber string `json:"roll_number,omitempty"`
	RollDate   string `json:"roll_date,omitempty"`
	BatchName  string `json:"batch_name,omitempty"`
	DateSource string `json:"date_source,omitempty"`
}

// FacetValue is a (value, count) pair within one facet dimension.
type FacetValue struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// SearchResult is one page of a text search with facet counts over the
// whole filtered result set.
type SearchResult struct {
	Results []*Scene                `json:"results"`
	Total   int                     `json:"total"`
	Facets  map[string][]FacetValue `json:"facets"`
}

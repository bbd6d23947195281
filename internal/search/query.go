// Package search holds the query language of the scene text index: how free
// text becomes an FTS5 match expression, how filters pin facet dimensions,
// and how pages are bounded.
package search

import (
	"strings"

	"github.com/leca/scene-archive/internal/model"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000

	// FacetLimit caps the values returned per facet dimension.
	FacetLimit = 20
)

// Terms splits free text on whitespace. Double-quoted runs are kept together
// as one phrase term.
func Terms(query string) []string {
	var (
		terms   []string
		current strings.Builder
		quoted  bool
	)
	flush := func() {
		if t := strings.TrimSpace(current.String()); t != "" {
			terms = append(terms, t)
		}
		current.Reset()
	}
	for _, r := range query {
		switch {
		case r == '"':
			flush()
			quoted = !quoted
		case !quoted && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return terms
}

// MatchExpression builds the FTS5 MATCH argument for query. Several terms
// are OR-ed together; a single term or phrase is matched as given. Every term
// is emitted as an FTS5 string so user punctuation cannot break the syntax.
// A trailing '*' on a term becomes a prefix query. Returns "" when query has
// no terms.
func MatchExpression(query string) string {
	terms := Terms(query)
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		if p := quoteTerm(t); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " OR ")
}

func quoteTerm(term string) string {
	prefix := strings.HasSuffix(term, "*")
	term = strings.TrimRight(term, "*")
	if term == "" {
		return ""
	}
	q := `"` + strings.ReplaceAll(term, `"`, `""`) + `"`
	if prefix {
		q += "*"
	}
	return q
}

// EscapeLike escapes LIKE wildcards in s for use with ESCAPE '\'.
func EscapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Page clamps a limit/offset pair to sane bounds.
func Page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Dimension is one filterable, facetable scene column.
type Dimension struct {
	Key    string // facet key in responses
	Column string
	// Dates break count ties newest first; everything else ascending.
	DescendingTies bool
}

// Dimensions lists the facet dimensions in response order.
var Dimensions = []Dimension{
	{Key: "roll_numbers", Column: "roll_number"},
	{Key: "roll_dates", Column: "roll_date", DescendingTies: true},
	{Key: "batch_names", Column: "batch_name"},
	{Key: "date_sources", Column: "date_source"},
}

// Value returns the filter value pinning d, or "" when d is unfiltered.
func (d Dimension) Value(f model.SearchFilters) string {
	switch d.Column {
	case "roll_number":
		return f.RollNumber
	case "roll_date":
		return f.RollDate
	case "batch_name":
		return f.BatchName
	case "date_source":
		return f.DateSource
	}
	return ""
}

// Pinned reports whether an active filter fixes d.
func (d Dimension) Pinned(f model.SearchFilters) bool {
	return d.Value(f) != ""
}

// FilterClauses returns the AND-ed equality clauses for the active filters.
func FilterClauses(f model.SearchFilters) ([]string, []any) {
	var (
		clauses []string
		args    []any
	)
	for _, d := range Dimensions {
		if v := d.Value(f); v != "" {
			clauses = append(clauses, d.Column+" = ?")
			args = append(args, v)
		}
	}
	return clauses, args
}

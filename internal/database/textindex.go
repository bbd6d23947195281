package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/leca/scene-archive/internal/model"
	"github.com/leca/scene-archive/internal/search"
)

// suggestColumns are searched, in order, for autocomplete suggestions.
var suggestColumns = []string{
	"base_filename",
	"roll_number",
	"index_book_number",
	"roll_comment",
	"index_book_comment",
}

// Search runs a text query through the FTS5 index, narrows the matches by
// the active filters and computes facets for every unpinned dimension over
// the whole filtered set.
func (c *catalog) Search(ctx context.Context, query string, f model.SearchFilters, limit, offset int) (*model.SearchResult, error) {
	limit, offset = search.Page(limit, offset)

	var (
		where []string
		args  []any
	)
	if match := search.MatchExpression(query); match != "" {
		where = append(where, `seq IN (SELECT rowid FROM scenes_fts WHERE scenes_fts MATCH ?)`)
		args = append(args, match)
	}
	clauses, filterArgs := search.FilterClauses(f)
	where = append(where, clauses...)
	args = append(args, filterArgs...)

	whereSQL := "1 = 1"
	if len(where) > 0 {
		whereSQL = strings.Join(where, " AND ")
	}

	rows, err := c.q.QueryContext(ctx, `
		SELECT `+sceneColumns+` FROM scenes
		WHERE `+whereSQL+`
		ORDER BY updated_at DESC, scene_id ASC
		LIMIT ? OFFSET ?`,
		append(append([]any{}, args...), limit, offset)...,
	)
	if err != nil {
		return nil, fmt.Errorf("search scenes: %w", err)
	}
	results, err := scanScenes(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	res := &model.SearchResult{
		Results: results,
		Facets:  map[string][]model.FacetValue{},
	}
	if err := c.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM scenes WHERE `+whereSQL, args...).Scan(&res.Total); err != nil {
		return nil, fmt.Errorf("count search results: %w", err)
	}

	for _, d := range search.Dimensions {
		if d.Pinned(f) {
			continue
		}
		values, err := c.facet(ctx, d, whereSQL, args)
		if err != nil {
			return nil, err
		}
		res.Facets[d.Key] = values
	}
	return res, nil
}

func (c *catalog) facet(ctx context.Context, d search.Dimension, whereSQL string, args []any) ([]model.FacetValue, error) {
	tie := "ASC"
	if d.DescendingTies {
		tie = "DESC"
	}
	rows, err := c.q.QueryContext(ctx, fmt.Sprintf(`
		SELECT %[1]s, COUNT(*) AS n FROM scenes
		WHERE %[2]s AND %[1]s IS NOT NULL
		GROUP BY %[1]s
		ORDER BY n DESC, %[1]s %[3]s
		LIMIT %[4]d`, d.Column, whereSQL, tie, search.FacetLimit),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("facet %s: %w", d.Key, err)
	}
	defer rows.Close()

	values := []model.FacetValue{}
	for rows.Next() {
		var fv model.FacetValue
		if err := rows.Scan(&fv.Value, &fv.Count); err != nil {
			return nil, fmt.Errorf("scan facet %s: %w", d.Key, err)
		}
		values = append(values, fv)
	}
	return values, rows.Err()
}

// Suggest returns distinct substring matches from filename, number and
// comment columns, de-duplicated in first-seen order.
func (c *catalog) Suggest(ctx context.Context, partial string, limit int) ([]string, error) {
	suggestions := []string{}
	partial = strings.TrimSpace(partial)
	if partial == "" {
		return suggestions, nil
	}
	if limit <= 0 {
		limit = 10
	}

	pattern := "%" + search.EscapeLike(partial) + "%"
	seen := make(map[string]bool)
	for _, col := range suggestColumns {
		if len(suggestions) >= limit {
			break
		}
		rows, err := c.q.QueryContext(ctx, fmt.Sprintf(`
			SELECT DISTINCT %[1]s FROM scenes
			WHERE %[1]s IS NOT NULL AND %[1]s LIKE ? ESCAPE '\'
			ORDER BY %[1]s ASC
			LIMIT ?`, col),
			pattern, limit,
		)
		if err != nil {
			return nil, fmt.Errorf("suggest %s: %w", col, err)
		}
		for rows.Next() {
			var v string
			if err := rows.Scan(&v); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan suggestion: %w", err)
			}
			if v == "" || seen[v] || len(suggestions) >= limit {
				continue
			}
			seen[v] = true
			suggestions = append(suggestions, v)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("suggest %s: %w", col, err)
		}
	}
	return suggestions, nil
}

// Stats counts scenes and versions by liveness and hash coverage.
func (c *catalog) Stats(ctx context.Context) (*model.CatalogStats, error) {
	st := &model.CatalogStats{}
	if err := c.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM scenes`).Scan(&st.TotalScenes); err != nil {
		return nil, fmt.Errorf("count scenes: %w", err)
	}
	err := c.q.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(storage_key),
			COUNT(perceptual_hash),
			COALESCE(SUM(is_current), 0),
			COALESCE(SUM(CASE WHEN is_current = 1 AND perceptual_hash IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM image_versions`,
	).Scan(&st.TotalVersions, &st.LiveVersions, &st.VersionsWithHash, &st.CurrentVersions, &st.CurrentVersionsWithHash)
	if err != nil {
		return nil, fmt.Errorf("count versions: %w", err)
	}
	return st, nil
}

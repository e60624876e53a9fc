// Package search filters a transcript by case-insensitive substring.
package search

import (
	"strings"

	"github.com/capitalize-ai/weather-chat/internal/model"
)

// Filter returns the entries whose content contains query. A blank query
// matches everything.
func Filter(entries []model.Entry, query string) []model.Entry {
	if strings.TrimSpace(query) == "" {
		return entries
	}

	needle := strings.ToLower(query)
	matched := make([]model.Entry, 0)
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Content), needle) {
			matched = append(matched, e)
		}
	}
	return matched
}

// Results returns matching entries with their transcript index. A blank
// query has no results.
func Results(entries []model.Entry, query string) []model.SearchResult {
	results := make([]model.SearchResult, 0)
	if strings.TrimSpace(query) == "" {
		return results
	}

	needle := strings.ToLower(query)
	for i, e := range entries {
		if strings.Contains(strings.ToLower(e.Content), needle) {
			results = append(results, model.SearchResult{Index: i, Entry: e})
		}
	}
	return results
}

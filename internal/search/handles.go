// Package search ranks cached authors against a typed query for the
// widgets panel's handle lookup.
package search

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/perchapp/perch/internal/store"
)

// Match is an author paired with its distance to the query.
type Match struct {
	Author   store.Author
	Distance int
}

// Handles ranks authors by levenshtein distance between the query and
// the handle (or display name, whichever is closer). Substring hits
// rank ahead of everything else. Empty query returns nothing.
func Handles(query string, authors []store.Author, limit int) []Match {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" || limit <= 0 {
		return nil
	}

	matches := make([]Match, 0, len(authors))
	for _, a := range authors {
		handle := strings.ToLower(a.Handle)
		name := strings.ToLower(a.DisplayName)

		d := levenshtein.ComputeDistance(query, handle)
		if name != "" {
			if nd := levenshtein.ComputeDistance(query, name); nd < d {
				d = nd
			}
		}
		// substring match beats raw edit distance
		if strings.Contains(handle, query) || (name != "" && strings.Contains(name, query)) {
			d = 0
		}
		matches = append(matches, Match{Author: a, Distance: d})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Distance != matches[j].Distance {
			return matches[i].Distance < matches[j].Distance
		}
		return matches[i].Author.Handle < matches[j].Author.Handle
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

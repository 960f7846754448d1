package template

import "github.com/sahilm/fuzzy"

// Match is a template ranked against a search query.
type Match struct {
	Template *Template
	Score    int
	// Indexes are the byte offsets in the name that matched the query.
	Indexes []int
}

type templateNames []*Template

func (t templateNames) String(i int) string { return t[i].Name }
func (t templateNames) Len() int            { return len(t) }

// Search ranks the templates visible from search by fuzzy-matching query
// against their names, best match first. An empty query returns every
// visible template in name order.
func (r *Registry) Search(query string, search Search) []Match {
	visible := r.Templates(search)
	if query == "" {
		out := make([]Match, len(visible))
		for i, t := range visible {
			out[i] = Match{Template: t}
		}
		return out
	}

	found := fuzzy.FindFrom(query, templateNames(visible))
	out := make([]Match, len(found))
	for i, m := range found {
		out[i] = Match{
			Template: visible[m.Index],
			Score:    m.Score,
			Indexes:  m.MatchedIndexes,
		}
	}
	return out
}

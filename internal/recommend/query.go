// Package recommend implements candidate selection and scoring for episode
// discovery: a fallback ladder that widens sparse tag queries until a minimum
// candidate count is reached, and two interchangeable scoring strategies
// (tag-weighted and embedding-similarity) behind one interface.
package recommend

// Query is a validated discovery query. Tag values are expected to be
// vocabulary-filtered before the query reaches this package.
type Query struct {
	Philosophers []string
	Themes       []string
	SearchText   string
}

// IsEmpty reports whether the query carries no usable criteria at all.
func (q Query) IsEmpty() bool {
	return len(q.Philosophers) == 0 && len(q.Themes) == 0 && q.SearchText == ""
}

// HasTags reports whether at least one tag set is non-empty.
func (q Query) HasTags() bool {
	return len(q.Philosophers) > 0 || len(q.Themes) > 0
}

// HasBothTagSets reports whether both tag sets are non-empty.
func (q Query) HasBothTagSets() bool {
	return len(q.Philosophers) > 0 && len(q.Themes) > 0
}

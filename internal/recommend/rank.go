package recommend

import "sort"

// Rank orders scored candidates by total score descending and truncates to
// topK. Equal scores are broken by episode ID ascending: the upstream stages
// make no ordering promise of their own, so the secondary key keeps result
// order deterministic across runs.
func Rank(scored []Scored, topK int) []Scored {
	out := make([]Scored, len(scored))
	copy(out, scored)

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Episode.ID < out[j].Episode.ID
	})

	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

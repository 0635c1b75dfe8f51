package recommend

import "github.com/soretetsu/discovery-go/internal/models"

// DefaultMinResults is the candidate count below which the selector
// escalates to a broader level.
const DefaultMinResults = 5

// Level indicates how far candidate selection escalated beyond the
// strictest filter. Higher levels are progressively broader.
type Level int

const (
	// LevelStrict requires a philosopher match AND a theme match.
	LevelStrict Level = iota
	// LevelRelaxed requires a philosopher match OR a theme match.
	LevelRelaxed
	// LevelKeyword drops tag filtering and matches the search text against
	// title and summary.
	LevelKeyword
	// LevelUniversal returns the entire catalog.
	LevelUniversal
)

// levelMessages carries the fixed degradation notice per level. The strict
// level has none.
var levelMessages = map[Level]string{
	LevelRelaxed:   "Few exact matches were found, so related episodes are included.",
	LevelKeyword:   "Few tag matches were found, so keyword search results are shown.",
	LevelUniversal: "Few matches were found, so the latest episodes are shown.",
}

// Message returns the human-readable degradation notice for the level,
// or nil for the strict level.
func (l Level) Message() *string {
	msg, ok := levelMessages[l]
	if !ok {
		return nil
	}
	return &msg
}

// Select applies the fallback ladder to the episode catalog and returns the
// candidate set together with the level in effect when escalation stopped.
//
// The ladder, in order:
//
//	0 strict:    philosopher AND theme intersection (both tag sets supplied)
//	1 relaxed:   philosopher OR theme intersection (at least one set supplied)
//	2 keyword:   case-insensitive substring of title or summary
//	3 universal: the whole catalog
//
// Selection escalates while the candidate count stays below minResults.
// Queries with a single tag set filter by that set alone and still report
// the strict level when filled; their escalation skips the relaxed level.
// Queries with no tags enter at level 2. The final level is returned even
// when still under-filled: a catalog smaller than minResults is not an
// error.
func Select(episodes []models.Episode, q Query, minResults int) ([]models.Episode, Level) {
	if minResults <= 0 {
		minResults = DefaultMinResults
	}

	var candidates []models.Episode
	level := LevelStrict

	switch {
	case q.HasBothTagSets():
		candidates = filterEpisodes(episodes, func(ep *models.Episode) bool {
			return intersectsAny(ep.Philosophers, q.Philosophers) && intersectsAny(ep.Themes, q.Themes)
		})
		if len(candidates) < minResults {
			level = LevelRelaxed
			candidates = filterTagsOr(episodes, q)
		}
	case q.HasTags():
		// A single tag set has no stricter variant to relax from; a filled
		// result is not a degradation.
		candidates = filterTagsOr(episodes, q)
	default:
		// Tag-less query: keyword is the entry point.
		level = LevelKeyword
	}

	if len(candidates) < minResults && q.SearchText != "" && level < LevelUniversal {
		level = LevelKeyword
		candidates = filterEpisodes(episodes, func(ep *models.Episode) bool {
			return ep.MatchesKeyword(q.SearchText)
		})
	}

	if len(candidates) < minResults {
		level = LevelUniversal
		candidates = make([]models.Episode, len(episodes))
		copy(candidates, episodes)
	}

	return candidates, level
}

func filterTagsOr(episodes []models.Episode, q Query) []models.Episode {
	return filterEpisodes(episodes, func(ep *models.Episode) bool {
		return intersectsAny(ep.Philosophers, q.Philosophers) || intersectsAny(ep.Themes, q.Themes)
	})
}

func filterEpisodes(episodes []models.Episode, keep func(*models.Episode) bool) []models.Episode {
	out := make([]models.Episode, 0, len(episodes))
	for i := range episodes {
		if keep(&episodes[i]) {
			out = append(out, episodes[i])
		}
	}
	return out
}

// intersectsAny reports whether any query value occurs in the episode's tags.
func intersectsAny(tags, queried []string) bool {
	if len(queried) == 0 {
		return false
	}
	for _, q := range queried {
		for _, t := range tags {
			if q == t {
				return true
			}
		}
	}
	return false
}

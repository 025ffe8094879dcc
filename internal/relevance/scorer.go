package relevance

import "time"

// Recency bonus windows. A post published within a day of the run earns
// the full bonus, within three days a reduced one.
const (
	recentWindow = 24 * time.Hour
	recencyBonus = 2
	staleWindow  = 72 * time.Hour
	staleBonus   = 1
)

// ScorePost scores one post body against a keyword set. The score is the
// number of body tokens present in the set (every occurrence counts, not
// just distinct matches) plus a recency bonus derived from postedAt
// relative to now. An empty body scores zero regardless of recency; a nil
// postedAt earns no bonus. The result is never negative.
func ScorePost(content string, keywords map[string]struct{}, postedAt *time.Time, now time.Time) int {
	if content == "" {
		return 0
	}

	overlap := 0
	for _, token := range Tokenize(content) {
		if _, ok := keywords[token]; ok {
			overlap++
		}
	}

	boost := 0
	if postedAt != nil {
		age := now.Sub(*postedAt)
		switch {
		case age <= recentWindow:
			boost = recencyBonus
		case age <= staleWindow:
			boost = staleBonus
		}
	}

	return overlap + boost
}

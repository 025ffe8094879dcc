// Package brief turns a client's narrative profile and a pool of recent
// posts into an ordered highlight list and a composed plain-text summary.
package brief

import (
	"sort"
	"strings"
	"time"

	"briefme/internal/core"
	"briefme/internal/narrative"
	"briefme/internal/relevance"
)

// maxHighlights bounds every brief to its top signals.
const maxHighlights = 3

// ClientKeywords derives the keyword set for a client by tokenizing the
// positioning statement, the freeform narrative text (tags stripped), the
// GOALS and DO sections, and the risks field, concatenated with spaces.
func ClientKeywords(client core.Client) map[string]struct{} {
	parts := []string{
		client.Positioning,
		narrative.StripTaggedSections(client.Narratives),
		narrative.ExtractTaggedSection(client.Narratives, narrative.TagGoals),
		narrative.ExtractTaggedSection(client.Narratives, narrative.TagDo),
		client.Risks,
	}
	var nonEmpty []string
	for _, part := range parts {
		if part != "" {
			nonEmpty = append(nonEmpty, part)
		}
	}
	return relevance.KeywordSet(strings.Join(nonEmpty, " "))
}

// SelectHighlights scores every candidate post against the keyword set,
// keeps the posts scoring above zero sorted by descending score, and
// returns at most three of them. Ties keep the candidate order, which the
// post query already has most-recent-first. When nothing scores above
// zero the first three candidates are returned unranked with score zero,
// so a brief always has material to talk about while monitoring is
// active.
func SelectHighlights(posts []core.Post, keywords map[string]struct{}, now time.Time) []core.Highlight {
	scored := make([]core.Highlight, 0, len(posts))
	for _, post := range posts {
		score := relevance.ScorePost(post.Content, keywords, post.PostedAt, now)
		if score <= 0 {
			continue
		}
		scored = append(scored, highlightFromPost(post, score))
	}

	if len(scored) == 0 {
		for _, post := range posts {
			if len(scored) == maxHighlights {
				break
			}
			scored = append(scored, highlightFromPost(post, 0))
		}
		return scored
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > maxHighlights {
		scored = scored[:maxHighlights]
	}
	return scored
}

func highlightFromPost(post core.Post, score int) core.Highlight {
	return core.Highlight{
		AuthorName: post.AuthorName,
		Platform:   post.Platform,
		AuthorURL:  post.AuthorURL,
		PostURL:    post.PostURL,
		Content:    post.Content,
		PostedAt:   post.PostedAt,
		Score:      score,
	}
}

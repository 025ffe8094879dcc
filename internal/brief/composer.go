package brief

import (
	"fmt"
	"strings"

	"briefme/internal/core"
	"briefme/internal/narrative"
)

// contentPreviewLimit caps each "What changed" bullet.
const contentPreviewLimit = 180

// noSignalSummary is returned verbatim whenever a client has no
// highlights at all, including no fallback posts.
var noSignalSummary = strings.Join([]string{
	"What changed:",
	"- No new tracked updates matched this client today.",
	"",
	"Why it matters for this client:",
	"- Your monitoring is active, but there are no high-signal items to brief right now.",
	"",
	"Recommended action:",
	"- Keep monitoring.",
	"- Refresh sources and expand watchlist coverage if this repeats for 2+ days.",
}, "\n")

// Compose renders the three-section plain-text summary for one client.
// Given identical inputs the output is byte-identical; nothing here reads
// the clock or any other ambient state.
func Compose(client core.Client, highlights []core.Highlight) string {
	top := highlights
	if len(top) > maxHighlights {
		top = top[:maxHighlights]
	}

	if len(top) == 0 {
		return noSignalSummary
	}

	lines := make([]string, 0, len(top))
	for _, item := range top {
		short := truncateContent(item.Content, contentPreviewLimit)
		link := item.PostURL
		if link == "" {
			link = item.AuthorURL
		}
		if link != "" {
			lines = append(lines, fmt.Sprintf("- %s (%s): %s [Source: %s]", item.AuthorName, item.Platform, short, link))
		} else {
			lines = append(lines, fmt.Sprintf("- %s (%s): %s", item.AuthorName, item.Platform, short))
		}
	}

	goals := narrative.ExtractTaggedSection(client.Narratives, narrative.TagGoals)
	doGuidance := narrative.ExtractTaggedSection(client.Narratives, narrative.TagDo)
	dontGuidance := narrative.ExtractTaggedSection(client.Narratives, narrative.TagDont)
	baseNarratives := narrative.StripTaggedSections(client.Narratives)

	need := goals
	if need == "" {
		need = client.Risks
	}
	var focusParts []string
	for _, part := range []string{client.Positioning, need, baseNarratives} {
		if part != "" {
			focusParts = append(focusParts, part)
		}
	}
	strategyFocus := strings.Join(focusParts, " | ")

	first := top[0]
	actionHook := fmt.Sprintf("%s conversation from %s", first.Platform, first.AuthorName)

	out := []string{"What changed:"}
	out = append(out, lines...)
	out = append(out, "", "Why it matters for this client:")
	if strategyFocus != "" {
		out = append(out, "- Priority context (positioning + client needs): "+strategyFocus)
	} else {
		out = append(out, "- Add client priorities in Clients to improve matching and recommendations.")
	}
	out = append(out, "- This signal can shape messaging, positioning, or response timing today.")
	out = append(out, "", "Recommended action:")
	out = append(out, fmt.Sprintf("- Draft a short POV tied to %s.", actionHook))
	if doGuidance != "" {
		out = append(out, "- Use this guidance: "+doGuidance)
	} else {
		out = append(out, "- Anchor the response in one clear proof point for this client.")
	}
	if dontGuidance != "" {
		out = append(out, "- Avoid: "+dontGuidance)
	} else {
		out = append(out, "")
	}

	return strings.Join(out, "\n")
}

// truncateContent collapses runs of whitespace to single spaces and cuts
// the result at limit characters with a trailing ellipsis.
func truncateContent(content string, limit int) string {
	cleaned := strings.Join(strings.Fields(content), " ")
	runes := []rune(cleaned)
	if len(runes) <= limit {
		return cleaned
	}
	return string(runes[:limit]) + "..."
}

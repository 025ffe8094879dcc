// Package narrative parses the bracket-tagged sub-sections a client's
// narrative free text may embed: [GOALS]...[/GOALS], [DO]...[/DO] and
// [DONT]...[/DONT]. Tags are case-insensitive and must not be nested.
//
// The two operations are deliberately asymmetric: ExtractTaggedSection
// returns only the first occurrence of a tag, while StripTaggedSections
// removes every occurrence. Duplicate tags therefore contribute once to
// extraction but disappear entirely from the freeform remainder.
package narrative

import (
	"regexp"
	"strings"
)

// TagGoals, TagDo and TagDont are the recognized section tags.
const (
	TagGoals = "GOALS"
	TagDo    = "DO"
	TagDont  = "DONT"
)

var sectionRe = map[string]*regexp.Regexp{
	TagGoals: regexp.MustCompile(`(?is)\[GOALS\](.*?)\[/GOALS\]`),
	TagDo:    regexp.MustCompile(`(?is)\[DO\](.*?)\[/DO\]`),
	TagDont:  regexp.MustCompile(`(?is)\[DONT\](.*?)\[/DONT\]`),
}

// ExtractTaggedSection returns the trimmed inner text of the first
// [tag]...[/tag] block in text, or "" when the tag is absent or unknown.
// A malformed or unclosed tag simply does not match; no error is raised.
func ExtractTaggedSection(text, tag string) string {
	if text == "" {
		return ""
	}
	re, ok := sectionRe[strings.ToUpper(tag)]
	if !ok {
		return ""
	}
	match := re.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return strings.TrimSpace(match[1])
}

// StripTaggedSections removes every occurrence of every recognized tag
// block from text and returns the trimmed remainder. Unclosed blocks are
// left in place.
func StripTaggedSections(text string) string {
	if text == "" {
		return ""
	}
	for _, re := range sectionRe {
		text = re.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}

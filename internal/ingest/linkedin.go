package ingest

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LinkedIn has no public read API, so posts arrive as forwarded
// notification emails. ParseNotificationEmail recovers the author, the
// post URL and a short content excerpt from the email subject and body
// with best-effort heuristics; missing fields stay empty and the caller
// decides what to do with a partial row.

// ParsedPost is the result of parsing one forwarded notification email.
type ParsedPost struct {
	AuthorName string
	AuthorURL  string
	PostURL    string
	Content    string
}

var (
	profileLinkRe   = regexp.MustCompile(`(?i)https?://(?:www\.)?linkedin\.com/in/[^\s>"')]+`)
	postLinkRe      = regexp.MustCompile(`(?i)https?://(?:www\.)?linkedin\.com/posts/[^\s>"')]+`)
	feedUpdateRe    = regexp.MustCompile(`(?i)https?://(?:www\.)?linkedin\.com/feed/update/[^\s>"')]+`)
	subjectAuthorRe = regexp.MustCompile(`(?i)^(.+?)\s+(posted|shared|commented|published)\b`)
	bodyAuthorRe    = regexp.MustCompile(`([A-Z][a-z]+(?:\s+[A-Z][a-z]+){0,2})\s+(posted|shared|commented)\b`)
)

// boilerplate lines dropped from notification email bodies.
var boilerplateRe = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^view post$`),
	regexp.MustCompile(`(?i)^linkedin$`),
	regexp.MustCompile(`(?i)^you (might|may) know`),
	regexp.MustCompile(`(?i)^manage your`),
}

// contentLineLimit bounds the excerpt to the first meaningful lines.
const contentLineLimit = 4

// ParseNotificationEmail parses a forwarded LinkedIn notification email.
// When htmlBody is non-empty it is converted to text first and takes the
// place of textBody.
func ParseNotificationEmail(subject, textBody, htmlBody string) ParsedPost {
	if htmlBody != "" {
		if text := htmlToText(htmlBody); text != "" {
			textBody = text
		}
	}

	full := strings.TrimSpace(subject + "\n" + textBody)
	if full == "" {
		return ParsedPost{}
	}

	parsed := ParsedPost{}

	if match := profileLinkRe.FindString(full); match != "" {
		parsed.AuthorURL = cleanURL(match)
	}
	postMatch := postLinkRe.FindString(full)
	if postMatch == "" {
		postMatch = feedUpdateRe.FindString(full)
	}
	if postMatch != "" {
		parsed.PostURL = cleanURL(postMatch)
	}

	if match := subjectAuthorRe.FindStringSubmatch(subject); match != nil {
		parsed.AuthorName = strings.TrimSpace(match[1])
	} else if match := bodyAuthorRe.FindStringSubmatch(full); match != nil {
		parsed.AuthorName = strings.TrimSpace(match[1])
	}

	parsed.Content = extractContent(textBody)
	return parsed
}

// extractContent keeps the first few body lines that are not
// notification boilerplate or link noise.
func extractContent(body string) string {
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.Contains(line, "linkedin.com") {
			continue
		}
		skip := false
		for _, re := range boilerplateRe {
			if re.MatchString(line) {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		lines = append(lines, line)
		if len(lines) == contentLineLimit {
			break
		}
	}
	return strings.Join(lines, " ")
}

// htmlToText extracts visible text from an HTML email body, one line per
// block-ish element.
func htmlToText(htmlBody string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return ""
	}
	doc.Find("script,style").Remove()

	var lines []string
	doc.Find("p,div,td,li,h1,h2,h3,a,span").Each(func(_ int, sel *goquery.Selection) {
		// Leaf nodes only, so nested wrappers do not duplicate text.
		if sel.Children().Length() > 0 {
			return
		}
		if text := strings.TrimSpace(sel.Text()); text != "" {
			lines = append(lines, text)
		}
	})
	if len(lines) == 0 {
		return strings.TrimSpace(doc.Text())
	}
	return strings.Join(lines, "\n")
}

// cleanURL strips trailing punctuation that email clients glue onto
// links.
func cleanURL(value string) string {
	return strings.TrimSpace(strings.TrimRight(value, "),.;"))
}

package brief

import (
	"testing"
	"time"

	"briefme/internal/core"
)

func post(author, content string, postedAt *time.Time) core.Post {
	return core.Post{
		AuthorName: author,
		Platform:   core.PlatformBluesky,
		PostURL:    "https://bsky.app/profile/" + author + "/post/1",
		Content:    content,
		PostedAt:   postedAt,
	}
}

func TestClientKeywords(t *testing.T) {
	client := core.Client{
		Positioning: "cloud security platform",
		Narratives:  "baseline narrative [GOALS]enterprise expansion[/GOALS] [DO]customer proof[/DO] [DONT]competitor bashing[/DONT]",
		Risks:       "churn pressure",
	}

	keywords := ClientKeywords(client)

	for _, want := range []string{"cloud", "security", "platform", "baseline", "narrative", "enterprise", "expansion", "customer", "proof", "churn", "pressure"} {
		if _, ok := keywords[want]; !ok {
			t.Errorf("Expected keyword %q in client keyword set", want)
		}
	}

	// The DONT section never feeds matching.
	for _, banned := range []string{"competitor", "bashing"} {
		if _, ok := keywords[banned]; ok {
			t.Errorf("Did not expect DONT keyword %q in client keyword set", banned)
		}
	}
}

func TestClientKeywordsEmptyProfile(t *testing.T) {
	if got := ClientKeywords(core.Client{}); len(got) != 0 {
		t.Errorf("Expected empty keyword set for empty profile, got %v", got)
	}
}

func TestSelectHighlightsRanksByScore(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour)
	keywords := ClientKeywords(core.Client{Positioning: "security platform"})

	posts := []core.Post{
		post("alice", "random weekend notes", &recent),
		post("bob", "security platform launch", &recent),
		post("carol", "security matters", nil),
	}

	got := SelectHighlights(posts, keywords, now)

	if len(got) != 2 {
		t.Fatalf("Expected 2 highlights, got %d", len(got))
	}
	// bob: 2 overlaps + 2 recency; carol: 1 overlap, no bonus.
	if got[0].AuthorName != "bob" || got[0].Score != 4 {
		t.Errorf("Expected bob with score 4 first, got %s with score %d", got[0].AuthorName, got[0].Score)
	}
	if got[1].AuthorName != "carol" || got[1].Score != 1 {
		t.Errorf("Expected carol with score 1 second, got %s with score %d", got[1].AuthorName, got[1].Score)
	}
}

func TestSelectHighlightsCapsAtThree(t *testing.T) {
	now := time.Now()
	keywords := ClientKeywords(core.Client{Positioning: "security"})

	var posts []core.Post
	for _, author := range []string{"a", "b", "c", "d", "e"} {
		posts = append(posts, post(author, "security update", nil))
	}

	got := SelectHighlights(posts, keywords, now)
	if len(got) != 3 {
		t.Fatalf("Expected highlight cap of 3, got %d", len(got))
	}
}

func TestSelectHighlightsTiesKeepCandidateOrder(t *testing.T) {
	now := time.Now()
	keywords := ClientKeywords(core.Client{Positioning: "security"})

	posts := []core.Post{
		post("first", "security update", nil),
		post("second", "security update", nil),
		post("third", "security update", nil),
	}

	got := SelectHighlights(posts, keywords, now)
	for i, want := range []string{"first", "second", "third"} {
		if got[i].AuthorName != want {
			t.Errorf("Position %d: expected %s, got %s", i, want, got[i].AuthorName)
		}
	}
}

func TestSelectHighlightsFallback(t *testing.T) {
	now := time.Now()
	keywords := ClientKeywords(core.Client{Positioning: "quantum computing"})

	posts := []core.Post{
		post("a", "breakfast thoughts", nil),
		post("b", "weather report", nil),
		post("c", "travel diary", nil),
		post("d", "garden update", nil),
	}

	got := SelectHighlights(posts, keywords, now)

	if len(got) != 3 {
		t.Fatalf("Expected 3 fallback highlights, got %d", len(got))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got[i].AuthorName != want {
			t.Errorf("Fallback position %d: expected %s, got %s", i, want, got[i].AuthorName)
		}
		if got[i].Score != 0 {
			t.Errorf("Fallback highlight %d: expected score 0, got %d", i, got[i].Score)
		}
	}
}

func TestSelectHighlightsEmptyPool(t *testing.T) {
	if got := SelectHighlights(nil, ClientKeywords(core.Client{Positioning: "security"}), time.Now()); len(got) != 0 {
		t.Errorf("Expected no highlights from empty pool, got %d", len(got))
	}
}

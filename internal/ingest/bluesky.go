// Package ingest talks to the external social read APIs and normalizes
// their payloads into post rows.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"briefme/internal/config"
)

// Profile is the subset of a social profile used for voice backfill.
type Profile struct {
	Handle      string
	DisplayName string
	AvatarURL   string
}

// FeedPost is one post as returned by a social read API, before it is
// bound to a workspace and voice.
type FeedPost struct {
	AuthorName string
	AuthorURL  string
	PostURL    string
	Content    string
	PostedAt   *time.Time
}

// profileURLRe pulls the handle out of a bsky.app profile URL.
var profileURLRe = regexp.MustCompile(`(?i)bsky\.app/profile/([^/]+)`)

// BlueskyClient reads public profiles and author feeds from the Bluesky
// XRPC API. No credentials are needed; the public endpoint is rate
// limited, which is why ingestion stays sequential per workspace.
type BlueskyClient struct {
	baseURL    string
	pageSize   int
	httpClient *http.Client
}

// NewBlueskyClient creates a client from ingest configuration.
func NewBlueskyClient(cfg config.Ingest) *BlueskyClient {
	baseURL := cfg.BlueskyBaseURL
	if baseURL == "" {
		baseURL = "https://public.api.bsky.app"
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 5
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &BlueskyClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		pageSize:   pageSize,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NormalizeHandle accepts a bsky.app profile URL, an @-prefixed handle,
// or a bare handle, and returns the bare handle. Returns "" when nothing
// usable is found.
func NormalizeHandle(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "http") {
		match := profileURLRe.FindStringSubmatch(trimmed)
		if match == nil {
			return ""
		}
		return match[1]
	}
	return strings.TrimPrefix(trimmed, "@")
}

// buildPostURL converts an AT-URI into the public web URL for the post.
func buildPostURL(handle, uri string) string {
	parts := strings.Split(uri, "/")
	rkey := parts[len(parts)-1]
	return fmt.Sprintf("https://bsky.app/profile/%s/post/%s", handle, rkey)
}

type blueskyProfilePayload struct {
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar"`
}

// FetchProfile fetches display name and avatar for a handle or profile
// URL. Returns nil without error when the handle cannot be resolved, so
// callers skip backfill instead of failing ingestion.
func (c *BlueskyClient) FetchProfile(ctx context.Context, handleOrURL string) (*Profile, error) {
	handle := NormalizeHandle(handleOrURL)
	if handle == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/xrpc/app.bsky.actor.getProfile?actor=%s", c.baseURL, url.QueryEscape(handle))
	var payload blueskyProfilePayload
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	return &Profile{
		Handle:      handle,
		DisplayName: payload.DisplayName,
		AvatarURL:   payload.Avatar,
	}, nil
}

type blueskyFeedPayload struct {
	Feed []struct {
		Post struct {
			URI    string `json:"uri"`
			Record struct {
				Text string `json:"text"`
			} `json:"record"`
			Author struct {
				DisplayName string `json:"displayName"`
				Handle      string `json:"handle"`
			} `json:"author"`
			IndexedAt string `json:"indexedAt"`
		} `json:"post"`
	} `json:"feed"`
}

// FetchRecentPosts fetches the latest page of the author feed for a
// handle or profile URL. An unresolvable handle yields an empty slice.
func (c *BlueskyClient) FetchRecentPosts(ctx context.Context, handleOrURL string) ([]FeedPost, error) {
	handle := NormalizeHandle(handleOrURL)
	if handle == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/xrpc/app.bsky.feed.getAuthorFeed?actor=%s&limit=%d",
		c.baseURL, url.QueryEscape(handle), c.pageSize)
	var payload blueskyFeedPayload
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	posts := make([]FeedPost, 0, len(payload.Feed))
	for _, item := range payload.Feed {
		post := item.Post
		authorHandle := post.Author.Handle
		if authorHandle == "" {
			authorHandle = handle
		}
		authorName := post.Author.DisplayName
		if authorName == "" {
			authorName = authorHandle
		}

		var postedAt *time.Time
		if post.IndexedAt != "" {
			if ts, err := time.Parse(time.RFC3339, post.IndexedAt); err == nil {
				postedAt = &ts
			}
		}

		posts = append(posts, FeedPost{
			AuthorName: authorName,
			AuthorURL:  "https://bsky.app/profile/" + authorHandle,
			PostURL:    buildPostURL(authorHandle, post.URI),
			Content:    post.Record.Text,
			PostedAt:   postedAt,
		})
	}
	return posts, nil
}

func (c *BlueskyClient) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("bluesky request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bluesky returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode bluesky response: %w", err)
	}
	return nil
}

// Package runner sequences the daily pipeline for a workspace: per-source
// ingestion, per-client brief generation, digest persistence, and email
// dispatch. Workspaces in a batch run are processed one at a time; the
// social read API is rate limited and the run log must reflect
// processing order.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"briefme/internal/brief"
	"briefme/internal/core"
	"briefme/internal/email"
	"briefme/internal/ingest"
	"briefme/internal/logger"
	"briefme/internal/persistence"
)

// ownerDigestItems is how many briefs the workspace owner summary email
// covers.
const ownerDigestItems = 2

// ownerSummaryLimit truncates each brief summary inside the owner email.
const ownerSummaryLimit = 800

// signupWindow is how far back the admin signup summary looks.
const signupWindow = 24 * time.Hour

// SocialReader reads public profiles and recent posts from a social
// platform.
type SocialReader interface {
	FetchProfile(ctx context.Context, handleOrURL string) (*ingest.Profile, error)
	FetchRecentPosts(ctx context.Context, handleOrURL string) ([]ingest.FeedPost, error)
}

// Mailer sends the emails a run produces. Send failures are counted,
// never retried, and never abort a run.
type Mailer interface {
	SendOwnerDigest(ctx context.Context, to, workspaceName string, items []email.BriefItem) error
	SendClientDigest(ctx context.Context, recipients []string, clientName, workspaceName, summary string) error
	SendSignupSummary(ctx context.Context, signups []core.BetaSignup, since time.Time) error
}

// Runner executes daily runs against one backing store.
type Runner struct {
	db         persistence.Database
	social     SocialReader
	mailer     Mailer
	log        *slog.Logger
	postWindow int
	now        func() time.Time
}

// Option customizes a Runner.
type Option func(*Runner)

// WithClock overrides the clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// WithPostWindow overrides how many recent posts feed brief generation.
func WithPostWindow(window int) Option {
	return func(r *Runner) { r.postWindow = window }
}

// New creates a Runner.
func New(db persistence.Database, social SocialReader, mailer Mailer, opts ...Option) *Runner {
	r := &Runner{
		db:         db,
		social:     social,
		mailer:     mailer,
		log:        logger.Get(),
		postWindow: 120,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// preparedBrief carries one client's generated brief plus its delivery
// routing until persistence and dispatch.
type preparedBrief struct {
	clientID   string
	clientName string
	enabled    bool
	recipients []string
	title      string
	summary    string
}

// RunWorkspace executes the full pipeline for one workspace and returns
// its counters. Ingestion fully completes before brief generation reads
// posts, and all briefs are composed before any row is persisted. A
// digest persistence failure is fatal to the run: no partial credit.
func (r *Runner) RunWorkspace(ctx context.Context, workspace core.Workspace) (core.RunResult, error) {
	var result core.RunResult

	inserted, err := r.ingestSources(ctx, workspace)
	if err != nil {
		return result, err
	}
	result.PostsInserted = inserted

	prepared, err := r.generateBriefs(ctx, workspace)
	if err != nil {
		return result, err
	}
	if len(prepared) == 0 {
		return result, nil
	}

	digests := make([]core.Digest, len(prepared))
	createdAt := r.now().UTC()
	for i, item := range prepared {
		digests[i] = core.Digest{
			ID:          uuid.NewString(),
			WorkspaceID: workspace.ID,
			Title:       item.title,
			Summary:     item.summary,
			CreatedAt:   createdAt,
		}
	}
	if err := r.db.Digests().CreateBatch(ctx, digests); err != nil {
		return result, fmt.Errorf("failed to persist digests: %w", err)
	}
	result.BriefsCreated = len(digests)

	result.EmailsSent = r.dispatchEmails(ctx, workspace, prepared)
	return result, nil
}

// ingestSources pulls the latest posts for every linked source of the
// workspace. A source that cannot be fetched contributes zero posts and
// the pipeline moves on.
func (r *Runner) ingestSources(ctx context.Context, workspace core.Workspace) (int, error) {
	sources, err := r.db.Voices().ListSourcesByPlatform(ctx, workspace.ID, core.PlatformBluesky)
	if err != nil {
		return 0, fmt.Errorf("failed to list sources: %w", err)
	}

	inserted := 0
	for _, source := range sources {
		if source.SourceURL == "" {
			continue
		}

		r.backfillVoiceProfile(ctx, source)

		feedPosts, err := r.social.FetchRecentPosts(ctx, source.SourceURL)
		if err != nil {
			r.log.Warn("Source fetch failed, skipping",
				"workspace_id", workspace.ID, "source_url", source.SourceURL, "error", err.Error())
			continue
		}
		if len(feedPosts) == 0 {
			continue
		}

		count, err := r.insertNewPosts(ctx, workspace.ID, source, feedPosts)
		if err != nil {
			r.log.Warn("Post insert failed, skipping source",
				"workspace_id", workspace.ID, "source_url", source.SourceURL, "error", err.Error())
			continue
		}
		inserted += count
	}
	return inserted, nil
}

// backfillVoiceProfile fills in the voice's avatar, and its display name
// while it is still the "Unknown" placeholder, from the source profile.
// Only attempted while the avatar is unset; failures are ignored.
func (r *Runner) backfillVoiceProfile(ctx context.Context, source core.VoiceSource) {
	if source.VoiceAvatarURL != "" {
		return
	}

	profile, err := r.social.FetchProfile(ctx, source.SourceURL)
	if err != nil || profile == nil {
		return
	}

	if profile.AvatarURL != "" {
		if err := r.db.Voices().UpdateAvatar(ctx, source.VoiceID, profile.AvatarURL); err != nil {
			r.log.Warn("Avatar backfill failed", "voice_id", source.VoiceID, "error", err.Error())
		}
	}
	if profile.DisplayName != "" && source.VoiceName == "Unknown" {
		if err := r.db.Voices().UpdateName(ctx, source.VoiceID, profile.DisplayName); err != nil {
			r.log.Warn("Name backfill failed", "voice_id", source.VoiceID, "error", err.Error())
		}
	}
}

// insertNewPosts deduplicates fetched posts against stored post URLs and
// inserts the remainder. Posts without a URL have no identity to dedupe
// on and are always inserted.
func (r *Runner) insertNewPosts(ctx context.Context, workspaceID string, source core.VoiceSource, feedPosts []ingest.FeedPost) (int, error) {
	createdAt := r.now().UTC()
	var withURL, withoutURL []core.Post
	var urls []string
	for _, fp := range feedPosts {
		post := core.Post{
			ID:          uuid.NewString(),
			WorkspaceID: workspaceID,
			VoiceID:     source.VoiceID,
			Platform:    source.Platform,
			AuthorName:  fp.AuthorName,
			AuthorURL:   fp.AuthorURL,
			PostURL:     fp.PostURL,
			Content:     fp.Content,
			PostedAt:    fp.PostedAt,
			CreatedAt:   createdAt,
		}
		if post.PostURL != "" {
			withURL = append(withURL, post)
			urls = append(urls, post.PostURL)
		} else {
			withoutURL = append(withoutURL, post)
		}
	}

	existing, err := r.db.Posts().ExistingURLs(ctx, workspaceID, urls)
	if err != nil {
		return 0, fmt.Errorf("failed to query existing post urls: %w", err)
	}

	var toInsert []core.Post
	for _, post := range withURL {
		if _, dup := existing[post.PostURL]; !dup {
			toInsert = append(toInsert, post)
		}
	}
	toInsert = append(toInsert, withoutURL...)

	if len(toInsert) == 0 {
		return 0, nil
	}
	if err := r.db.Posts().CreateBatch(ctx, toInsert); err != nil {
		return 0, err
	}
	return len(toInsert), nil
}

// generateBriefs composes one brief per client from the freshly ingested
// post pool. Nothing is persisted here; the caller owns the atomic
// insert.
func (r *Runner) generateBriefs(ctx context.Context, workspace core.Workspace) ([]preparedBrief, error) {
	clients, err := r.db.Clients().ListByWorkspace(ctx, workspace.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	if len(clients) == 0 {
		return nil, nil
	}

	posts, err := r.db.Posts().ListRecent(ctx, workspace.ID, r.postWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	links, err := r.db.Clients().ListVoiceLinks(ctx, workspace.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list client voice links: %w", err)
	}
	linksByClient := make(map[string]map[string]struct{})
	for _, link := range links {
		if link.ClientID == "" || link.VoiceID == "" {
			continue
		}
		if linksByClient[link.ClientID] == nil {
			linksByClient[link.ClientID] = make(map[string]struct{})
		}
		linksByClient[link.ClientID][link.VoiceID] = struct{}{}
	}

	now := r.now()
	// The digest title embeds the run date once, so every brief of one
	// run carries the same date even across midnight.
	runDate := now.Format("1/2/2006")

	prepared := make([]preparedBrief, 0, len(clients))
	for _, client := range clients {
		scoped := posts
		if linked := linksByClient[client.ID]; len(linked) > 0 {
			scoped = nil
			for _, post := range posts {
				if post.VoiceID == "" {
					continue
				}
				if _, ok := linked[post.VoiceID]; ok {
					scoped = append(scoped, post)
				}
			}
		}

		keywords := brief.ClientKeywords(client)
		highlights := brief.SelectHighlights(scoped, keywords, now)
		summary := brief.Compose(client, highlights)

		prepared = append(prepared, preparedBrief{
			clientID:   client.ID,
			clientName: client.Name,
			enabled:    client.DigestEnabled,
			recipients: client.DigestRecipients,
			title:      fmt.Sprintf("%s brief · %s", client.Name, runDate),
			summary:    summary,
		})
	}
	return prepared, nil
}

// dispatchEmails runs both delivery paths and returns the number of
// successful sends. One successful send counts once, regardless of how
// many recipients it reached.
func (r *Runner) dispatchEmails(ctx context.Context, workspace core.Workspace, prepared []preparedBrief) int {
	sent := 0

	items := make([]email.BriefItem, 0, ownerDigestItems)
	for _, item := range prepared {
		if len(items) == ownerDigestItems {
			break
		}
		items = append(items, email.BriefItem{
			Title:   item.title,
			Summary: truncate(item.summary, ownerSummaryLimit),
		})
	}
	if len(items) > 0 {
		if err := r.mailer.SendOwnerDigest(ctx, workspace.OwnerEmail, workspace.Name, items); err != nil {
			r.logSendFailure("owner digest", workspace.ID, err)
		} else {
			sent++
		}
	}

	for _, item := range prepared {
		if !item.enabled || len(item.recipients) == 0 {
			continue
		}
		err := r.mailer.SendClientDigest(ctx, item.recipients, item.clientName, workspace.Name, item.summary)
		if err != nil {
			r.logSendFailure("client digest", workspace.ID, err)
			continue
		}
		sent++
	}
	return sent
}

func (r *Runner) logSendFailure(kind, workspaceID string, err error) {
	if errors.Is(err, email.ErrNotConfigured) || errors.Is(err, email.ErrNoRecipients) {
		r.log.Debug("Email skipped", "kind", kind, "workspace_id", workspaceID, "reason", err.Error())
		return
	}
	r.log.Warn("Email send failed", "kind", kind, "workspace_id", workspaceID, "error", err.Error())
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit])
}

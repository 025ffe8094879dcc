// Package persistence defines typed repositories over the entities the
// brief pipeline reads and writes. Each interface exposes only the query
// shapes the core needs, which keeps the pipeline unit-testable against
// in-memory fakes.
package persistence

import (
	"context"
	"time"

	"briefme/internal/core"
)

// WorkspaceRepository handles workspace rows.
type WorkspaceRepository interface {
	// List returns every workspace, in creation order. Batch runs
	// process workspaces in exactly this order.
	List(ctx context.Context) ([]core.Workspace, error)

	// Get retrieves a workspace by id, or nil when absent.
	Get(ctx context.Context, id string) (*core.Workspace, error)

	// GetByOwner retrieves the workspace owned by the given identity,
	// or nil when the owner has none yet.
	GetByOwner(ctx context.Context, ownerUserID string) (*core.Workspace, error)

	// Create inserts a new workspace.
	Create(ctx context.Context, workspace *core.Workspace) error
}

// VoiceRepository handles tracked voices and their platform sources.
type VoiceRepository interface {
	// ListSourcesByPlatform returns every source of the given platform
	// across the workspace, joined with its voice.
	ListSourcesByPlatform(ctx context.Context, workspaceID string, platform core.Platform) ([]core.VoiceSource, error)

	// FindSourceByURL resolves a source by platform and exact source
	// URL, or nil when no voice tracks it.
	FindSourceByURL(ctx context.Context, platform core.Platform, sourceURL string) (*core.VoiceSource, error)

	// UpdateAvatar sets the avatar URL for a voice.
	UpdateAvatar(ctx context.Context, voiceID, avatarURL string) error

	// UpdateName sets the display name for a voice.
	UpdateName(ctx context.Context, voiceID, name string) error
}

// PostRepository handles ingested posts.
type PostRepository interface {
	// CreateBatch inserts posts in one statement. All or nothing.
	CreateBatch(ctx context.Context, posts []core.Post) error

	// ExistingURLs returns which of the given post URLs already exist
	// in the workspace. Used to deduplicate ingestion.
	ExistingURLs(ctx context.Context, workspaceID string, urls []string) (map[string]struct{}, error)

	// ExistsByURL reports whether a post with the URL exists in the
	// workspace.
	ExistsByURL(ctx context.Context, workspaceID, postURL string) (bool, error)

	// ListRecent returns up to limit posts for the workspace, most
	// recent first by posted_at.
	ListRecent(ctx context.Context, workspaceID string, limit int) ([]core.Post, error)
}

// ClientRepository handles client profiles and voice links.
type ClientRepository interface {
	// ListByWorkspace returns the workspace's clients, newest first.
	ListByWorkspace(ctx context.Context, workspaceID string) ([]core.Client, error)

	// ListVoiceLinks returns every client-voice link in the workspace.
	ListVoiceLinks(ctx context.Context, workspaceID string) ([]core.ClientVoiceLink, error)
}

// DigestRepository handles generated briefs. Digest rows are append-only.
type DigestRepository interface {
	// CreateBatch inserts all digests of one run in a single
	// transaction; a failure persists none of them.
	CreateBatch(ctx context.Context, digests []core.Digest) error

	// ListRecent returns up to limit digests for the workspace, newest
	// first.
	ListRecent(ctx context.Context, workspaceID string, limit int) ([]core.Digest, error)
}

// RunLogRepository handles the append-only run audit trail.
type RunLogRepository interface {
	// Create appends one run log row.
	Create(ctx context.Context, runLog *core.RunLog) error

	// ListRecent returns up to limit run logs for the workspace,
	// newest first.
	ListRecent(ctx context.Context, workspaceID string, limit int) ([]core.RunLog, error)
}

// SignupRepository handles beta signup records feeding the admin report.
type SignupRepository interface {
	// Upsert records a signup, keyed by user id.
	Upsert(ctx context.Context, signup core.BetaSignup) error

	// ListSince returns signups created after the given time, newest
	// first.
	ListSince(ctx context.Context, since time.Time) ([]core.BetaSignup, error)
}

// Database aggregates the repositories over one backing store.
type Database interface {
	Workspaces() WorkspaceRepository
	Voices() VoiceRepository
	Posts() PostRepository
	Clients() ClientRepository
	Digests() DigestRepository
	RunLogs() RunLogRepository
	Signups() SignupRepository

	// Ping verifies connectivity.
	Ping(ctx context.Context) error

	// Close releases the underlying connections.
	Close() error
}

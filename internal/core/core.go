package core

import "time"

// Platform identifies the social platform a source or post belongs to.
type Platform string

const (
	PlatformLinkedIn  Platform = "LinkedIn"
	PlatformBluesky   Platform = "Bluesky"
	PlatformInstagram Platform = "Instagram"
	PlatformThreads   Platform = "Threads"
	PlatformOther     Platform = "Other"
)

// Workspace is the tenant boundary. One workspace exists per subscribing
// user and owns all voices, posts, clients and digests beneath it.
type Workspace struct {
	ID          string    `json:"id"`            // Unique identifier for the workspace
	OwnerUserID string    `json:"owner_user_id"` // Identity-provider user id of the owner
	OwnerEmail  string    `json:"owner_email"`   // Contact email for the owner digest
	Name        string    `json:"name"`          // Display name
	CreatedAt   time.Time `json:"created_at"`    // Timestamp when the workspace was created
}

// Voice is a monitored person or identity (a watchlist entry).
type Voice struct {
	ID          string    `json:"id"`           // Unique identifier for the voice
	WorkspaceID string    `json:"workspace_id"` // Owning workspace
	Name        string    `json:"name"`         // Display name ("Unknown" until backfilled)
	AvatarURL   string    `json:"avatar_url"`   // Avatar image URL, empty until backfilled
	Cadence     string    `json:"cadence"`      // Polling cadence label (e.g. "daily")
	Tags        []string  `json:"tags"`         // Free-form tag set
	CreatedAt   time.Time `json:"created_at"`   // Timestamp when the voice was added
}

// Source is one external platform profile belonging to a Voice.
type Source struct {
	ID        string    `json:"id"`         // Unique identifier for the source
	VoiceID   string    `json:"voice_id"`   // Owning voice
	Platform  Platform  `json:"platform"`   // Platform this source lives on
	SourceURL string    `json:"source_url"` // Profile URL or handle on the platform
	CreatedAt time.Time `json:"created_at"` // Timestamp when the source was linked
}

// VoiceSource is a source joined with the voice it belongs to, as the
// ingestion step reads it. Carries just enough of the voice to decide
// whether profile backfill is needed.
type VoiceSource struct {
	Source
	WorkspaceID    string `json:"workspace_id"`     // Workspace owning the voice
	VoiceName      string `json:"voice_name"`       // Current display name of the voice
	VoiceAvatarURL string `json:"voice_avatar_url"` // Current avatar of the voice, empty if unset
}

// Post is one ingested unit of content from a tracked voice.
type Post struct {
	ID          string     `json:"id"`           // Unique identifier for the post
	WorkspaceID string     `json:"workspace_id"` // Owning workspace
	VoiceID     string     `json:"voice_id"`     // Voice the post came from, empty for unmatched manual ingest
	Platform    Platform   `json:"platform"`     // Platform the post was published on
	AuthorName  string     `json:"author_name"`  // Display name of the author
	AuthorURL   string     `json:"author_url"`   // Profile URL of the author, may be empty
	PostURL     string     `json:"post_url"`     // Canonical post URL; empty when the platform gives none
	Content     string     `json:"content"`      // Body text
	PostedAt    *time.Time `json:"posted_at"`    // Publication time, nil when unknown
	CreatedAt   time.Time  `json:"created_at"`   // Timestamp when the row was inserted
}

// Client is a subscriber's downstream client, the subject of generated
// briefs. The Narratives field may embed [GOALS], [DO] and [DONT] tagged
// sections; see the narrative package for their semantics.
type Client struct {
	ID               string    `json:"id"`                // Unique identifier for the client
	WorkspaceID      string    `json:"workspace_id"`      // Owning workspace
	Name             string    `json:"name"`              // Display name
	Positioning      string    `json:"positioning"`       // Free-text positioning statement
	Narratives       string    `json:"narratives"`        // Free text, may embed tagged sections
	Risks            string    `json:"risks"`             // Free-text risks/needs
	DigestEnabled    bool      `json:"digest_enabled"`    // Whether per-client digest emails go out
	DigestRecipients []string  `json:"digest_recipients"` // Recipient emails for the client digest
	CreatedAt        time.Time `json:"created_at"`        // Timestamp when the client was created
}

// ClientVoiceLink scopes a client to a subset of the workspace's voices.
// A client with no links sees the whole workspace post pool.
type ClientVoiceLink struct {
	ClientID string `json:"client_id"`
	VoiceID  string `json:"voice_id"`
}

// Highlight is one scored post selected for inclusion in a brief.
type Highlight struct {
	AuthorName string     `json:"author_name"` // Display name of the post author
	Platform   Platform   `json:"platform"`    // Platform the post came from
	AuthorURL  string     `json:"author_url"`  // Author profile URL, may be empty
	PostURL    string     `json:"post_url"`    // Post URL, may be empty
	Content    string     `json:"content"`     // Body text of the post
	PostedAt   *time.Time `json:"posted_at"`   // Publication time, nil when unknown
	Score      int        `json:"score"`       // Relevance score; 0 on the fallback path
}

// Digest is a generated, client-scoped brief. Rows are append-only and
// never mutated after creation.
type Digest struct {
	ID          string    `json:"id"`           // Unique identifier for the digest
	WorkspaceID string    `json:"workspace_id"` // Owning workspace
	Title       string    `json:"title"`        // Client name plus generation date
	Summary     string    `json:"summary"`      // Composed plain-text summary
	CreatedAt   time.Time `json:"created_at"`   // Timestamp when the digest was generated
}

// RunStatus is the outcome of one orchestrator run for one workspace.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
)

// RunLog is the append-only audit record of one daily run for one
// workspace.
type RunLog struct {
	ID            string     `json:"id"`             // Unique identifier for the log row
	WorkspaceID   string     `json:"workspace_id"`   // Workspace the run covered
	StartedAt     time.Time  `json:"started_at"`     // When the run began
	CompletedAt   *time.Time `json:"completed_at"`   // When the run finished, nil while in flight
	Status        RunStatus  `json:"status"`         // success or failed
	PostsInserted int        `json:"posts_inserted"` // Posts newly stored during ingestion
	BriefsCreated int        `json:"briefs_created"` // Digest rows persisted
	EmailsSent    int        `json:"emails_sent"`    // Successful email sends (one per send call)
	ErrorMessage  string     `json:"error_message"`  // Failure message, empty on success
}

// RunResult is the counter set returned by one workspace run.
type RunResult struct {
	PostsInserted int `json:"posts_inserted"`
	BriefsCreated int `json:"briefs_created"`
	EmailsSent    int `json:"emails_sent"`
}

// RunFailure records one workspace that failed inside a batch run.
type RunFailure struct {
	WorkspaceID string `json:"workspace_id"`
	Message     string `json:"message"`
}

// BatchResult aggregates a batch run across every workspace.
type BatchResult struct {
	WorkspacesProcessed int          `json:"workspaces_processed"`
	TotalPosts          int          `json:"total_posts"`
	TotalBriefs         int          `json:"total_briefs"`
	TotalEmails         int          `json:"total_emails"`
	NewSignups          int          `json:"new_signups"`
	SignupSummarySent   bool         `json:"signup_summary_sent"`
	Failures            []RunFailure `json:"failures"`
}

// BetaSignup records one user who has created a workspace, feeding the
// admin signup summary email.
type BetaSignup struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	WorkspaceID string    `json:"workspace_id"`
	CreatedAt   time.Time `json:"created_at"`
}

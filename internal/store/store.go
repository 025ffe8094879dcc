// Package store is the SQLite-backed implementation of the persistence
// repositories, used for local single-operator deployments where running
// Postgres is overkill. The schema mirrors the Postgres migrations with
// list-valued columns stored as JSON.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"briefme/internal/core"
	"briefme/internal/persistence"
)

// Store implements persistence.Database on SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (and initializes if needed) the SQLite database under
// dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "briefme.db")
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS workspaces (
			id TEXT PRIMARY KEY,
			owner_user_id TEXT NOT NULL UNIQUE,
			owner_email TEXT NOT NULL,
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS voices (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT 'Unknown',
			avatar_url TEXT,
			cadence TEXT NOT NULL DEFAULT 'daily',
			tags TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS voice_sources (
			id TEXT PRIMARY KEY,
			voice_id TEXT NOT NULL,
			platform TEXT NOT NULL,
			source_url TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			voice_id TEXT,
			platform TEXT NOT NULL,
			author_name TEXT NOT NULL,
			author_url TEXT,
			post_url TEXT,
			content TEXT NOT NULL DEFAULT '',
			posted_at DATETIME,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS clients (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			name TEXT NOT NULL,
			positioning TEXT,
			narratives TEXT,
			risks TEXT,
			digest_enabled INTEGER NOT NULL DEFAULT 0,
			digest_recipients TEXT NOT NULL DEFAULT '[]',
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS client_voice_links (
			client_id TEXT NOT NULL,
			voice_id TEXT NOT NULL,
			PRIMARY KEY (client_id, voice_id)
		)`,
		`CREATE TABLE IF NOT EXISTS digests (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			title TEXT NOT NULL,
			summary TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS run_logs (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			completed_at DATETIME,
			status TEXT NOT NULL,
			posts_inserted INTEGER NOT NULL DEFAULT 0,
			briefs_created INTEGER NOT NULL DEFAULT 0,
			emails_sent INTEGER NOT NULL DEFAULT 0,
			error_message TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS beta_signups (
			user_id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			workspace_id TEXT,
			created_at DATETIME NOT NULL
		)`,
	}

	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Workspaces() persistence.WorkspaceRepository { return &workspaceRepo{db: s.db} }
func (s *Store) Voices() persistence.VoiceRepository         { return &voiceRepo{db: s.db} }
func (s *Store) Posts() persistence.PostRepository           { return &postRepo{db: s.db} }
func (s *Store) Clients() persistence.ClientRepository       { return &clientRepo{db: s.db} }
func (s *Store) Digests() persistence.DigestRepository       { return &digestRepo{db: s.db} }
func (s *Store) RunLogs() persistence.RunLogRepository       { return &runLogRepo{db: s.db} }
func (s *Store) Signups() persistence.SignupRepository       { return &signupRepo{db: s.db} }

type workspaceRepo struct {
	db *sql.DB
}

func (r *workspaceRepo) List(ctx context.Context) ([]core.Workspace, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner_user_id, owner_email, name, created_at FROM workspaces ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workspaces []core.Workspace
	for rows.Next() {
		var ws core.Workspace
		if err := rows.Scan(&ws.ID, &ws.OwnerUserID, &ws.OwnerEmail, &ws.Name, &ws.CreatedAt); err != nil {
			return nil, err
		}
		workspaces = append(workspaces, ws)
	}
	return workspaces, rows.Err()
}

func (r *workspaceRepo) Get(ctx context.Context, id string) (*core.Workspace, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_user_id, owner_email, name, created_at FROM workspaces WHERE id = ?`, id)
	return scanWorkspace(row)
}

func (r *workspaceRepo) GetByOwner(ctx context.Context, ownerUserID string) (*core.Workspace, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner_user_id, owner_email, name, created_at FROM workspaces WHERE owner_user_id = ?`, ownerUserID)
	return scanWorkspace(row)
}

func scanWorkspace(row *sql.Row) (*core.Workspace, error) {
	var ws core.Workspace
	err := row.Scan(&ws.ID, &ws.OwnerUserID, &ws.OwnerEmail, &ws.Name, &ws.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ws, nil
}

func (r *workspaceRepo) Create(ctx context.Context, workspace *core.Workspace) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO workspaces (id, owner_user_id, owner_email, name, created_at) VALUES (?, ?, ?, ?, ?)`,
		workspace.ID, workspace.OwnerUserID, workspace.OwnerEmail, workspace.Name, workspace.CreatedAt)
	return err
}

type voiceRepo struct {
	db *sql.DB
}

const voiceSourceSelect = `
	SELECT s.id, s.voice_id, s.platform, s.source_url, s.created_at,
	       v.workspace_id, v.name, COALESCE(v.avatar_url, '')
	FROM voice_sources s
	JOIN voices v ON v.id = s.voice_id`

func (r *voiceRepo) ListSourcesByPlatform(ctx context.Context, workspaceID string, platform core.Platform) ([]core.VoiceSource, error) {
	rows, err := r.db.QueryContext(ctx,
		voiceSourceSelect+` WHERE v.workspace_id = ? AND s.platform = ? ORDER BY s.created_at`,
		workspaceID, string(platform))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []core.VoiceSource
	for rows.Next() {
		vs, err := scanVoiceSource(rows)
		if err != nil {
			return nil, err
		}
		sources = append(sources, *vs)
	}
	return sources, rows.Err()
}

func (r *voiceRepo) FindSourceByURL(ctx context.Context, platform core.Platform, sourceURL string) (*core.VoiceSource, error) {
	rows, err := r.db.QueryContext(ctx,
		voiceSourceSelect+` WHERE s.platform = ? AND s.source_url = ? LIMIT 1`,
		string(platform), sourceURL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanVoiceSource(rows)
}

func scanVoiceSource(rows *sql.Rows) (*core.VoiceSource, error) {
	var vs core.VoiceSource
	var platform string
	err := rows.Scan(&vs.ID, &vs.VoiceID, &platform, &vs.SourceURL, &vs.CreatedAt,
		&vs.WorkspaceID, &vs.VoiceName, &vs.VoiceAvatarURL)
	if err != nil {
		return nil, err
	}
	vs.Platform = core.Platform(platform)
	return &vs, nil
}

func (r *voiceRepo) UpdateAvatar(ctx context.Context, voiceID, avatarURL string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE voices SET avatar_url = ? WHERE id = ?`, avatarURL, voiceID)
	return err
}

func (r *voiceRepo) UpdateName(ctx context.Context, voiceID, name string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE voices SET name = ? WHERE id = ?`, name, voiceID)
	return err
}

type postRepo struct {
	db *sql.DB
}

func (r *postRepo) CreateBatch(ctx context.Context, posts []core.Post) error {
	if len(posts) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO posts (id, workspace_id, voice_id, platform, author_name, author_url, post_url, content, posted_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, post := range posts {
		_, err := tx.ExecContext(ctx, query,
			post.ID, post.WorkspaceID, nullString(post.VoiceID), string(post.Platform),
			post.AuthorName, nullString(post.AuthorURL), nullString(post.PostURL),
			post.Content, nullTime(post.PostedAt), post.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert post: %w", err)
		}
	}
	return tx.Commit()
}

func (r *postRepo) ExistingURLs(ctx context.Context, workspaceID string, urls []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(urls) == 0 {
		return existing, nil
	}

	placeholders := strings.Repeat("?,", len(urls))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(urls)+1)
	args = append(args, workspaceID)
	for _, url := range urls {
		args = append(args, url)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT post_url FROM posts WHERE workspace_id = ? AND post_url IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		existing[url] = struct{}{}
	}
	return existing, rows.Err()
}

func (r *postRepo) ExistsByURL(ctx context.Context, workspaceID, postURL string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM posts WHERE workspace_id = ? AND post_url = ?)`,
		workspaceID, postURL).Scan(&exists)
	return exists, err
}

func (r *postRepo) ListRecent(ctx context.Context, workspaceID string, limit int) ([]core.Post, error) {
	query := `
		SELECT id, workspace_id, COALESCE(voice_id, ''), platform, author_name,
		       COALESCE(author_url, ''), COALESCE(post_url, ''), content, posted_at, created_at
		FROM posts
		WHERE workspace_id = ?
		ORDER BY posted_at IS NULL, posted_at DESC
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, workspaceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []core.Post
	for rows.Next() {
		var post core.Post
		var platform string
		var postedAt sql.NullTime
		err := rows.Scan(&post.ID, &post.WorkspaceID, &post.VoiceID, &platform, &post.AuthorName,
			&post.AuthorURL, &post.PostURL, &post.Content, &postedAt, &post.CreatedAt)
		if err != nil {
			return nil, err
		}
		post.Platform = core.Platform(platform)
		if postedAt.Valid {
			ts := postedAt.Time
			post.PostedAt = &ts
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

type clientRepo struct {
	db *sql.DB
}

func (r *clientRepo) ListByWorkspace(ctx context.Context, workspaceID string) ([]core.Client, error) {
	query := `
		SELECT id, workspace_id, name, COALESCE(positioning, ''), COALESCE(narratives, ''),
		       COALESCE(risks, ''), digest_enabled, digest_recipients, created_at
		FROM clients
		WHERE workspace_id = ?
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []core.Client
	for rows.Next() {
		var client core.Client
		var recipientsJSON string
		err := rows.Scan(&client.ID, &client.WorkspaceID, &client.Name, &client.Positioning,
			&client.Narratives, &client.Risks, &client.DigestEnabled, &recipientsJSON, &client.CreatedAt)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(recipientsJSON), &client.DigestRecipients); err != nil {
			return nil, fmt.Errorf("failed to unmarshal digest recipients: %w", err)
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

func (r *clientRepo) ListVoiceLinks(ctx context.Context, workspaceID string) ([]core.ClientVoiceLink, error) {
	query := `
		SELECT l.client_id, l.voice_id
		FROM client_voice_links l
		JOIN clients c ON c.id = l.client_id
		WHERE c.workspace_id = ?`
	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []core.ClientVoiceLink
	for rows.Next() {
		var link core.ClientVoiceLink
		if err := rows.Scan(&link.ClientID, &link.VoiceID); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

type digestRepo struct {
	db *sql.DB
}

func (r *digestRepo) CreateBatch(ctx context.Context, digests []core.Digest) error {
	if len(digests) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO digests (id, workspace_id, title, summary, created_at) VALUES (?, ?, ?, ?, ?)`
	for _, digest := range digests {
		_, err := tx.ExecContext(ctx, query,
			digest.ID, digest.WorkspaceID, digest.Title, digest.Summary, digest.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert digest: %w", err)
		}
	}
	return tx.Commit()
}

func (r *digestRepo) ListRecent(ctx context.Context, workspaceID string, limit int) ([]core.Digest, error) {
	query := `
		SELECT id, workspace_id, title, summary, created_at
		FROM digests
		WHERE workspace_id = ?
		ORDER BY created_at DESC
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, workspaceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var digests []core.Digest
	for rows.Next() {
		var digest core.Digest
		err := rows.Scan(&digest.ID, &digest.WorkspaceID, &digest.Title, &digest.Summary, &digest.CreatedAt)
		if err != nil {
			return nil, err
		}
		digests = append(digests, digest)
	}
	return digests, rows.Err()
}

type runLogRepo struct {
	db *sql.DB
}

func (r *runLogRepo) Create(ctx context.Context, runLog *core.RunLog) error {
	query := `
		INSERT INTO run_logs (id, workspace_id, started_at, completed_at, status, posts_inserted, briefs_created, emails_sent, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		runLog.ID, runLog.WorkspaceID, runLog.StartedAt, nullTime(runLog.CompletedAt),
		string(runLog.Status), runLog.PostsInserted, runLog.BriefsCreated, runLog.EmailsSent,
		nullString(runLog.ErrorMessage))
	return err
}

func (r *runLogRepo) ListRecent(ctx context.Context, workspaceID string, limit int) ([]core.RunLog, error) {
	query := `
		SELECT id, workspace_id, started_at, completed_at, status, posts_inserted, briefs_created, emails_sent, COALESCE(error_message, '')
		FROM run_logs
		WHERE workspace_id = ?
		ORDER BY started_at DESC
		LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, workspaceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []core.RunLog
	for rows.Next() {
		var runLog core.RunLog
		var status string
		var completedAt sql.NullTime
		err := rows.Scan(&runLog.ID, &runLog.WorkspaceID, &runLog.StartedAt, &completedAt,
			&status, &runLog.PostsInserted, &runLog.BriefsCreated, &runLog.EmailsSent,
			&runLog.ErrorMessage)
		if err != nil {
			return nil, err
		}
		runLog.Status = core.RunStatus(status)
		if completedAt.Valid {
			ts := completedAt.Time
			runLog.CompletedAt = &ts
		}
		logs = append(logs, runLog)
	}
	return logs, rows.Err()
}

type signupRepo struct {
	db *sql.DB
}

func (r *signupRepo) Upsert(ctx context.Context, signup core.BetaSignup) error {
	query := `
		INSERT INTO beta_signups (user_id, email, workspace_id, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET email = excluded.email, workspace_id = excluded.workspace_id`
	_, err := r.db.ExecContext(ctx, query, signup.UserID, signup.Email, signup.WorkspaceID, signup.CreatedAt)
	return err
}

func (r *signupRepo) ListSince(ctx context.Context, since time.Time) ([]core.BetaSignup, error) {
	query := `
		SELECT user_id, email, workspace_id, created_at
		FROM beta_signups
		WHERE created_at >= ?
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signups []core.BetaSignup
	for rows.Next() {
		var signup core.BetaSignup
		if err := rows.Scan(&signup.UserID, &signup.Email, &signup.WorkspaceID, &signup.CreatedAt); err != nil {
			return nil, err
		}
		signups = append(signups, signup)
	}
	return signups, rows.Err()
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *value, Valid: true}
}

package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"briefme/internal/core"
)

// postgresWorkspaceRepo implements WorkspaceRepository for PostgreSQL.
type postgresWorkspaceRepo struct {
	db *sql.DB
}

func (r *postgresWorkspaceRepo) List(ctx context.Context) ([]core.Workspace, error) {
	query := `SELECT id, owner_user_id, owner_email, name, created_at FROM workspaces ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query)
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

func (r *postgresWorkspaceRepo) Get(ctx context.Context, id string) (*core.Workspace, error) {
	query := `SELECT id, owner_user_id, owner_email, name, created_at FROM workspaces WHERE id = $1`
	return scanWorkspace(r.db.QueryRowContext(ctx, query, id))
}

func (r *postgresWorkspaceRepo) GetByOwner(ctx context.Context, ownerUserID string) (*core.Workspace, error) {
	query := `SELECT id, owner_user_id, owner_email, name, created_at FROM workspaces WHERE owner_user_id = $1`
	return scanWorkspace(r.db.QueryRowContext(ctx, query, ownerUserID))
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

func (r *postgresWorkspaceRepo) Create(ctx context.Context, workspace *core.Workspace) error {
	query := `INSERT INTO workspaces (id, owner_user_id, owner_email, name, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query,
		workspace.ID, workspace.OwnerUserID, workspace.OwnerEmail, workspace.Name, workspace.CreatedAt)
	return err
}

// postgresVoiceRepo implements VoiceRepository for PostgreSQL.
type postgresVoiceRepo struct {
	db *sql.DB
}

const voiceSourceColumns = `s.id, s.voice_id, s.platform, s.source_url, s.created_at, v.workspace_id, v.name, COALESCE(v.avatar_url, '')`

func (r *postgresVoiceRepo) ListSourcesByPlatform(ctx context.Context, workspaceID string, platform core.Platform) ([]core.VoiceSource, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM voice_sources s
		JOIN voices v ON v.id = s.voice_id
		WHERE v.workspace_id = $1 AND s.platform = $2
		ORDER BY s.created_at`, voiceSourceColumns)
	rows, err := r.db.QueryContext(ctx, query, workspaceID, string(platform))
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

func (r *postgresVoiceRepo) FindSourceByURL(ctx context.Context, platform core.Platform, sourceURL string) (*core.VoiceSource, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM voice_sources s
		JOIN voices v ON v.id = s.voice_id
		WHERE s.platform = $1 AND s.source_url = $2
		LIMIT 1`, voiceSourceColumns)
	rows, err := r.db.QueryContext(ctx, query, string(platform), sourceURL)
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

func (r *postgresVoiceRepo) UpdateAvatar(ctx context.Context, voiceID, avatarURL string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE voices SET avatar_url = $2 WHERE id = $1`, voiceID, avatarURL)
	return err
}

func (r *postgresVoiceRepo) UpdateName(ctx context.Context, voiceID, name string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE voices SET name = $2 WHERE id = $1`, voiceID, name)
	return err
}

// postgresPostRepo implements PostRepository for PostgreSQL.
type postgresPostRepo struct {
	db *sql.DB
}

func (r *postgresPostRepo) CreateBatch(ctx context.Context, posts []core.Post) error {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
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

func (r *postgresPostRepo) ExistingURLs(ctx context.Context, workspaceID string, urls []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})
	if len(urls) == 0 {
		return existing, nil
	}

	query := `SELECT post_url FROM posts WHERE workspace_id = $1 AND post_url = ANY($2)`
	rows, err := r.db.QueryContext(ctx, query, workspaceID, pq.Array(urls))
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

func (r *postgresPostRepo) ExistsByURL(ctx context.Context, workspaceID, postURL string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM posts WHERE workspace_id = $1 AND post_url = $2)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, workspaceID, postURL).Scan(&exists)
	return exists, err
}

func (r *postgresPostRepo) ListRecent(ctx context.Context, workspaceID string, limit int) ([]core.Post, error) {
	query := `
		SELECT id, workspace_id, COALESCE(voice_id, ''), platform, author_name,
		       COALESCE(author_url, ''), COALESCE(post_url, ''), content, posted_at, created_at
		FROM posts
		WHERE workspace_id = $1
		ORDER BY posted_at DESC NULLS LAST
		LIMIT $2`
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

// postgresClientRepo implements ClientRepository for PostgreSQL.
type postgresClientRepo struct {
	db *sql.DB
}

func (r *postgresClientRepo) ListByWorkspace(ctx context.Context, workspaceID string) ([]core.Client, error) {
	query := `
		SELECT id, workspace_id, name, COALESCE(positioning, ''), COALESCE(narratives, ''),
		       COALESCE(risks, ''), digest_enabled, digest_recipients, created_at
		FROM clients
		WHERE workspace_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []core.Client
	for rows.Next() {
		var client core.Client
		err := rows.Scan(&client.ID, &client.WorkspaceID, &client.Name, &client.Positioning,
			&client.Narratives, &client.Risks, &client.DigestEnabled,
			pq.Array(&client.DigestRecipients), &client.CreatedAt)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

func (r *postgresClientRepo) ListVoiceLinks(ctx context.Context, workspaceID string) ([]core.ClientVoiceLink, error) {
	query := `
		SELECT l.client_id, l.voice_id
		FROM client_voice_links l
		JOIN clients c ON c.id = l.client_id
		WHERE c.workspace_id = $1`
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

// postgresDigestRepo implements DigestRepository for PostgreSQL.
type postgresDigestRepo struct {
	db *sql.DB
}

func (r *postgresDigestRepo) CreateBatch(ctx context.Context, digests []core.Digest) error {
	if len(digests) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO digests (id, workspace_id, title, summary, created_at) VALUES ($1, $2, $3, $4, $5)`
	for _, digest := range digests {
		_, err := tx.ExecContext(ctx, query,
			digest.ID, digest.WorkspaceID, digest.Title, digest.Summary, digest.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert digest: %w", err)
		}
	}
	return tx.Commit()
}

func (r *postgresDigestRepo) ListRecent(ctx context.Context, workspaceID string, limit int) ([]core.Digest, error) {
	query := `
		SELECT id, workspace_id, title, summary, created_at
		FROM digests
		WHERE workspace_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
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

// postgresRunLogRepo implements RunLogRepository for PostgreSQL.
type postgresRunLogRepo struct {
	db *sql.DB
}

func (r *postgresRunLogRepo) Create(ctx context.Context, runLog *core.RunLog) error {
	query := `
		INSERT INTO run_logs (id, workspace_id, started_at, completed_at, status, posts_inserted, briefs_created, emails_sent, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		runLog.ID, runLog.WorkspaceID, runLog.StartedAt, nullTime(runLog.CompletedAt),
		string(runLog.Status), runLog.PostsInserted, runLog.BriefsCreated, runLog.EmailsSent,
		nullString(runLog.ErrorMessage))
	return err
}

func (r *postgresRunLogRepo) ListRecent(ctx context.Context, workspaceID string, limit int) ([]core.RunLog, error) {
	query := `
		SELECT id, workspace_id, started_at, completed_at, status, posts_inserted, briefs_created, emails_sent, COALESCE(error_message, '')
		FROM run_logs
		WHERE workspace_id = $1
		ORDER BY started_at DESC
		LIMIT $2`
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

// postgresSignupRepo implements SignupRepository for PostgreSQL.
type postgresSignupRepo struct {
	db *sql.DB
}

func (r *postgresSignupRepo) Upsert(ctx context.Context, signup core.BetaSignup) error {
	query := `
		INSERT INTO beta_signups (user_id, email, workspace_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET email = EXCLUDED.email, workspace_id = EXCLUDED.workspace_id`
	_, err := r.db.ExecContext(ctx, query, signup.UserID, signup.Email, signup.WorkspaceID, signup.CreatedAt)
	return err
}

func (r *postgresSignupRepo) ListSince(ctx context.Context, since time.Time) ([]core.BetaSignup, error) {
	query := `
		SELECT user_id, email, workspace_id, created_at
		FROM beta_signups
		WHERE created_at >= $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signups []core.BetaSignup
	for rows.Next() {
		var signup core.BetaSignup
		err := rows.Scan(&signup.UserID, &signup.Email, &signup.WorkspaceID, &signup.CreatedAt)
		if err != nil {
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

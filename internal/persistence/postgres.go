package persistence

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // Postgres driver
)

// PostgresDB implements Database for PostgreSQL.
type PostgresDB struct {
	db         *sql.DB
	workspaces WorkspaceRepository
	voices     VoiceRepository
	posts      PostRepository
	clients    ClientRepository
	digests    DigestRepository
	runLogs    RunLogRepository
	signups    SignupRepository
}

// NewPostgresDB opens a connection pool for the given DSN.
func NewPostgresDB(connStr string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pg := &PostgresDB{db: db}
	pg.workspaces = &postgresWorkspaceRepo{db: db}
	pg.voices = &postgresVoiceRepo{db: db}
	pg.posts = &postgresPostRepo{db: db}
	pg.clients = &postgresClientRepo{db: db}
	pg.digests = &postgresDigestRepo{db: db}
	pg.runLogs = &postgresRunLogRepo{db: db}
	pg.signups = &postgresSignupRepo{db: db}
	return pg, nil
}

func (p *PostgresDB) Workspaces() WorkspaceRepository { return p.workspaces }
func (p *PostgresDB) Voices() VoiceRepository         { return p.voices }
func (p *PostgresDB) Posts() PostRepository           { return p.posts }
func (p *PostgresDB) Clients() ClientRepository       { return p.clients }
func (p *PostgresDB) Digests() DigestRepository       { return p.digests }
func (p *PostgresDB) RunLogs() RunLogRepository       { return p.runLogs }
func (p *PostgresDB) Signups() SignupRepository       { return p.signups }

// Ping verifies connectivity.
func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the connection pool.
func (p *PostgresDB) Close() error {
	return p.db.Close()
}

// DB exposes the raw handle for the migration manager.
func (p *PostgresDB) DB() *sql.DB {
	return p.db
}

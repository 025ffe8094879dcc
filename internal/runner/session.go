package runner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"briefme/internal/core"
	"briefme/internal/logger"
	"briefme/internal/persistence"
)

// Session binds an authenticated owner identity to their workspace. The
// workspace is resolved at most once per session and cached on the
// session itself, so two sessions never share resolution state.
type Session struct {
	db persistence.Database

	userID      string
	email       string
	displayName string

	mu        sync.Mutex
	workspace *core.Workspace
}

// NewSession creates a session for one owner identity.
func NewSession(db persistence.Database, userID, email, displayName string) *Session {
	return &Session{
		db:          db,
		userID:      userID,
		email:       email,
		displayName: displayName,
	}
}

// Workspace returns the owner's workspace, creating it on first use. A
// freshly created workspace also records the owner as a beta signup so
// the admin summary picks them up.
func (s *Session) Workspace(ctx context.Context) (*core.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.workspace != nil {
		return s.workspace, nil
	}

	existing, err := s.db.Workspaces().GetByOwner(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up workspace: %w", err)
	}
	if existing != nil {
		s.workspace = existing
		return existing, nil
	}

	workspace := &core.Workspace{
		ID:          uuid.NewString(),
		OwnerUserID: s.userID,
		OwnerEmail:  s.email,
		Name:        workspaceName(s.displayName),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.db.Workspaces().Create(ctx, workspace); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	signup := core.BetaSignup{
		UserID:      s.userID,
		Email:       s.email,
		WorkspaceID: workspace.ID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.db.Signups().Upsert(ctx, signup); err != nil {
		// The workspace exists either way; the signup row only feeds
		// the admin report.
		logger.Warn("Failed to record signup", "user_id", s.userID, "error", err.Error())
	}

	s.workspace = workspace
	return workspace, nil
}

// Invalidate drops the cached workspace so the next call re-resolves it.
func (s *Session) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workspace = nil
}

func workspaceName(displayName string) string {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return "My Workspace"
	}
	return name + "'s Workspace"
}

package runner

import (
	"context"
	"testing"
)

func TestSessionCreatesWorkspaceOnFirstUse(t *testing.T) {
	db := newFakeDB()
	s := NewSession(db, "user-1", "owner@example.com", "Jamie")

	ws, err := s.Workspace(context.Background())
	if err != nil {
		t.Fatalf("Workspace failed: %v", err)
	}

	if ws.Name != "Jamie's Workspace" {
		t.Errorf("Unexpected workspace name %q", ws.Name)
	}
	if ws.OwnerUserID != "user-1" || ws.OwnerEmail != "owner@example.com" {
		t.Errorf("Unexpected owner fields %+v", ws)
	}
	if len(db.workspaces) != 1 {
		t.Fatalf("Expected 1 workspace created, got %d", len(db.workspaces))
	}
	if len(db.signups) != 1 || db.signups[0].UserID != "user-1" {
		t.Errorf("Expected a signup record for the new owner, got %+v", db.signups)
	}
	if db.signups[0].WorkspaceID != ws.ID {
		t.Errorf("Expected signup bound to the new workspace, got %+v", db.signups[0])
	}
}

func TestSessionDefaultWorkspaceName(t *testing.T) {
	db := newFakeDB()
	s := NewSession(db, "user-1", "owner@example.com", "  ")

	ws, err := s.Workspace(context.Background())
	if err != nil {
		t.Fatalf("Workspace failed: %v", err)
	}
	if ws.Name != "My Workspace" {
		t.Errorf("Unexpected default workspace name %q", ws.Name)
	}
}

func TestSessionReusesExistingWorkspace(t *testing.T) {
	db := newFakeDB()
	existing := seedWorkspace(db)

	s := NewSession(db, existing.OwnerUserID, existing.OwnerEmail, "Whoever")
	ws, err := s.Workspace(context.Background())
	if err != nil {
		t.Fatalf("Workspace failed: %v", err)
	}

	if ws.ID != existing.ID {
		t.Errorf("Expected existing workspace %s, got %s", existing.ID, ws.ID)
	}
	if len(db.workspaces) != 1 {
		t.Errorf("Expected no new workspace, got %d", len(db.workspaces))
	}
	if len(db.signups) != 0 {
		t.Errorf("Expected no signup record for an existing workspace, got %d", len(db.signups))
	}
}

func TestSessionCachesResolution(t *testing.T) {
	db := newFakeDB()
	s := NewSession(db, "user-1", "owner@example.com", "Jamie")

	first, err := s.Workspace(context.Background())
	if err != nil {
		t.Fatalf("Workspace failed: %v", err)
	}
	second, err := s.Workspace(context.Background())
	if err != nil {
		t.Fatalf("Workspace failed: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("Expected cached workspace, got %s then %s", first.ID, second.ID)
	}
	if len(db.workspaces) != 1 {
		t.Errorf("Expected a single workspace, got %d", len(db.workspaces))
	}
}

func TestSessionInvalidate(t *testing.T) {
	db := newFakeDB()
	s := NewSession(db, "user-1", "owner@example.com", "Jamie")

	first, err := s.Workspace(context.Background())
	if err != nil {
		t.Fatalf("Workspace failed: %v", err)
	}

	s.Invalidate()

	second, err := s.Workspace(context.Background())
	if err != nil {
		t.Fatalf("Workspace failed: %v", err)
	}
	// Re-resolution finds the workspace created before.
	if second.ID != first.ID {
		t.Errorf("Expected re-resolved workspace %s, got %s", first.ID, second.ID)
	}
	if len(db.workspaces) != 1 {
		t.Errorf("Expected no duplicate workspace, got %d", len(db.workspaces))
	}
}

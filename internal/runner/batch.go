package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"briefme/internal/core"
	"briefme/internal/email"
)

// RunWorkspaceLogged executes one workspace run and appends a RunLog row
// recording its outcome. The returned error is the run's own failure;
// run log persistence problems are only logged.
func (r *Runner) RunWorkspaceLogged(ctx context.Context, workspace core.Workspace) (core.RunResult, error) {
	startedAt := r.now().UTC()
	result, runErr := r.RunWorkspace(ctx, workspace)
	completedAt := r.now().UTC()

	entry := &core.RunLog{
		ID:            uuid.NewString(),
		WorkspaceID:   workspace.ID,
		StartedAt:     startedAt,
		CompletedAt:   &completedAt,
		Status:        core.RunStatusSuccess,
		PostsInserted: result.PostsInserted,
		BriefsCreated: result.BriefsCreated,
		EmailsSent:    result.EmailsSent,
	}
	if runErr != nil {
		entry.Status = core.RunStatusFailed
		entry.ErrorMessage = runErr.Error()
	}
	if err := r.db.RunLogs().Create(ctx, entry); err != nil {
		r.log.Error("Failed to persist run log", "workspace_id", workspace.ID, "error", err.Error())
	}
	return result, runErr
}

// RunOne resolves a workspace by id and executes a logged run for it.
func (r *Runner) RunOne(ctx context.Context, workspaceID string) (core.RunResult, error) {
	workspace, err := r.db.Workspaces().Get(ctx, workspaceID)
	if err != nil {
		return core.RunResult{}, fmt.Errorf("failed to load workspace: %w", err)
	}
	if workspace == nil {
		return core.RunResult{}, fmt.Errorf("workspace %s not found", workspaceID)
	}
	return r.RunWorkspaceLogged(ctx, *workspace)
}

// RunAll executes a logged run for every workspace in creation order. A
// workspace failure is recorded and the batch moves on; it never aborts
// the remaining workspaces. After the batch, the admin signup summary
// covering the last day goes out.
func (r *Runner) RunAll(ctx context.Context) (core.BatchResult, error) {
	var batch core.BatchResult

	workspaces, err := r.db.Workspaces().List(ctx)
	if err != nil {
		return batch, fmt.Errorf("failed to list workspaces: %w", err)
	}

	for _, workspace := range workspaces {
		result, err := r.RunWorkspaceLogged(ctx, workspace)
		batch.WorkspacesProcessed++
		batch.TotalPosts += result.PostsInserted
		batch.TotalBriefs += result.BriefsCreated
		batch.TotalEmails += result.EmailsSent
		if err != nil {
			r.log.Error("Workspace run failed", "workspace_id", workspace.ID, "error", err.Error())
			batch.Failures = append(batch.Failures, core.RunFailure{
				WorkspaceID: workspace.ID,
				Message:     err.Error(),
			})
			continue
		}
		r.log.Info("Workspace run complete",
			"workspace_id", workspace.ID,
			"posts_inserted", result.PostsInserted,
			"briefs_created", result.BriefsCreated,
			"emails_sent", result.EmailsSent)
	}

	batch.NewSignups, batch.SignupSummarySent = r.sendSignupSummary(ctx)
	return batch, nil
}

// sendSignupSummary emails the admin report of recent signups. Failures
// are non-fatal to the batch.
func (r *Runner) sendSignupSummary(ctx context.Context) (int, bool) {
	since := r.now().Add(-signupWindow)
	signups, err := r.db.Signups().ListSince(ctx, since)
	if err != nil {
		r.log.Warn("Failed to list recent signups", "error", err.Error())
		return 0, false
	}

	if err := r.mailer.SendSignupSummary(ctx, signups, since); err != nil {
		if !errors.Is(err, email.ErrNotConfigured) {
			r.log.Warn("Signup summary send failed", "error", err.Error())
		}
		return len(signups), false
	}
	return len(signups), true
}

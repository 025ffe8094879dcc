package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"briefme/internal/config"
	"briefme/internal/core"
	"briefme/internal/email"
	"briefme/internal/ingest"
	"briefme/internal/runner"
)

var (
	reportTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	reportLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Width(22)
	reportValueStyle = lipgloss.NewStyle().Bold(true)
	reportFailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	reportOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// NewRunCmd creates the run command for executing daily brief runs.
func NewRunCmd() *cobra.Command {
	var workspaceID string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the daily brief pipeline",
		Long: `Execute the daily brief pipeline: ingest recent posts for every
tracked voice, compose one brief per client, persist the briefs as
digests, and send owner and client digest emails.

Without flags the run covers every workspace in creation order and
finishes with the admin signup summary email. With --workspace only
that workspace runs.

Examples:
  # Run all workspaces (what the daily cron does)
  briefme run

  # Run a single workspace on demand
  briefme run --workspace 4f6b7c2a-...`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaily(cmd.Context(), workspaceID)
		},
	}

	cmd.Flags().StringVar(&workspaceID, "workspace", "", "run a single workspace by id")

	return cmd
}

func runDaily(ctx context.Context, workspaceID string) error {
	cfg := config.Get()

	db, err := getDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	social := ingest.NewBlueskyClient(cfg.Ingest)
	mailer := email.New(cfg.Email, cfg.App.SiteURL)
	r := runner.New(db, social, mailer, runner.WithPostWindow(cfg.Ingest.PostWindow))

	if workspaceID != "" {
		result, err := r.RunOne(ctx, workspaceID)
		if err != nil {
			return fmt.Errorf("workspace run failed: %w", err)
		}
		fmt.Println(renderRunReport(workspaceID, result))
		return nil
	}

	batch, err := r.RunAll(ctx)
	if err != nil {
		return fmt.Errorf("batch run failed: %w", err)
	}
	fmt.Println(renderBatchReport(batch))
	return nil
}

func renderRunReport(workspaceID string, result core.RunResult) string {
	var b strings.Builder
	b.WriteString(reportTitleStyle.Render("Daily run complete"))
	b.WriteString("\n")
	writeReportLine(&b, "Workspace", workspaceID)
	writeReportLine(&b, "Posts inserted", fmt.Sprintf("%d", result.PostsInserted))
	writeReportLine(&b, "Briefs created", fmt.Sprintf("%d", result.BriefsCreated))
	writeReportLine(&b, "Emails sent", fmt.Sprintf("%d", result.EmailsSent))
	return b.String()
}

func renderBatchReport(batch core.BatchResult) string {
	var b strings.Builder
	b.WriteString(reportTitleStyle.Render("Daily batch complete"))
	b.WriteString("\n")
	writeReportLine(&b, "Workspaces processed", fmt.Sprintf("%d", batch.WorkspacesProcessed))
	writeReportLine(&b, "Posts inserted", fmt.Sprintf("%d", batch.TotalPosts))
	writeReportLine(&b, "Briefs created", fmt.Sprintf("%d", batch.TotalBriefs))
	writeReportLine(&b, "Emails sent", fmt.Sprintf("%d", batch.TotalEmails))
	writeReportLine(&b, "New signups (24h)", fmt.Sprintf("%d", batch.NewSignups))

	if batch.SignupSummarySent {
		writeReportLine(&b, "Signup summary", reportOKStyle.Render("sent"))
	} else {
		writeReportLine(&b, "Signup summary", "skipped")
	}

	if len(batch.Failures) > 0 {
		b.WriteString(reportFailStyle.Render(fmt.Sprintf("\n%d workspace(s) failed:", len(batch.Failures))))
		b.WriteString("\n")
		for _, failure := range batch.Failures {
			b.WriteString(fmt.Sprintf("  %s: %s\n", failure.WorkspaceID, failure.Message))
		}
	}
	return b.String()
}

func writeReportLine(b *strings.Builder, label, value string) {
	b.WriteString(reportLabelStyle.Render(label))
	b.WriteString(" ")
	b.WriteString(reportValueStyle.Render(value))
	b.WriteString("\n")
}

package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"briefme/internal/logger"
	"briefme/internal/persistence"
)

// NewMigrateCmd creates the migrate command for database migrations.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
		Long: `Manage database schema migrations for the PostgreSQL backend.

The SQLite backend initializes its own schema on open and does not use
this command.

Examples:
  # Apply all pending migrations
  briefme migrate up

  # Check migration status
  briefme migrate status`,
	}

	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateStatusCmd())

	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateUp(cmd.Context())
		},
	}
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateStatus(cmd.Context())
		},
	}
}

func getMigrator() (*persistence.MigrationManager, func() error, error) {
	db, err := getDatabase()
	if err != nil {
		return nil, nil, err
	}

	pgDB, ok := db.(*persistence.PostgresDB)
	if !ok {
		db.Close()
		return nil, nil, fmt.Errorf("migrations are only supported for the postgres driver")
	}

	return persistence.NewMigrationManager(pgDB), db.Close, nil
}

func runMigrateUp(ctx context.Context) error {
	log := logger.Get()
	log.Info("Starting database migration")

	migrator, closeDB, err := getMigrator()
	if err != nil {
		return err
	}
	defer closeDB()

	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Println("All migrations applied successfully")
	return nil
}

func runMigrateStatus(ctx context.Context) error {
	migrator, closeDB, err := getMigrator()
	if err != nil {
		return err
	}
	defer closeDB()

	status, err := migrator.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	if len(status) == 0 {
		fmt.Println("No migrations found")
		return nil
	}

	applied := 0
	fmt.Printf("%-10s %-10s %s\n", "Version", "Status", "Description")
	for _, m := range status {
		state := "pending"
		if m.Applied {
			state = "applied"
			applied++
		}
		fmt.Printf("%-10d %-10s %s\n", m.Version, state, m.Description)
	}
	fmt.Printf("\nApplied: %d | Pending: %d | Total: %d\n", applied, len(status)-applied, len(status))

	if applied < len(status) {
		fmt.Println("\nRun 'briefme migrate up' to apply pending migrations")
	}

	return nil
}

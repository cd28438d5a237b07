package app

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stacklok/fitness-sync-server/database"
	"github.com/stacklok/fitness-sync-server/internal/config"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tool",
		Long:  `Manage the database schema. Use with the 'up' or 'down' subcommands.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}
	cmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to all questions")

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending database migrations",
		RunE:  runMigrateUp,
	}

	down := &cobra.Command{
		Use:   "down",
		Short: "Revert database migrations",
		Long: `Revert database migrations.
WARNING: This operation can result in data loss.

Examples:
  # Migrate down by 1 step
  fitness-sync migrate down --config config.yaml --num-steps 1 --yes

  # Migrate down all the way (destroys all data)
  fitness-sync migrate down --config config.yaml --yes`,
		RunE: runMigrateDown,
	}
	down.Flags().UintP("num-steps", "n", 0, "Number of steps to revert (0 = all)")

	cmd.AddCommand(up, down)
	return cmd
}

// migrationTarget returns the connection string of the configured database
func migrationTarget(cmd *cobra.Command) (*config.Config, string, error) {
	v, err := newViper(cmd)
	if err != nil {
		return nil, "", err
	}
	cfg, err := loadConfig(v)
	if err != nil {
		return nil, "", err
	}
	if cfg.GetStorageType() != config.StorageTypeDatabase || cfg.Database == nil {
		return nil, "", fmt.Errorf("migrations require storage.type %s and a database section", config.StorageTypeDatabase)
	}
	connString, err := cfg.Database.GetConnectionString()
	if err != nil {
		return nil, "", fmt.Errorf("failed to build connection string: %w", err)
	}
	return cfg, connString, nil
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	cfg, connString, err := migrationTarget(cmd)
	if err != nil {
		return err
	}

	prompt := fmt.Sprintf("About to apply migrations to %s@%s:%d/%s. Continue?",
		cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)
	if !confirmed(cmd, prompt) {
		slog.Info("Migration cancelled by user")
		return nil
	}

	slog.Info("Applying database migrations")
	version, err := database.MigrateUp(connString)
	if err != nil {
		return err
	}
	slog.Info("Migrations applied successfully", "version", version)
	return nil
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	_, connString, err := migrationTarget(cmd)
	if err != nil {
		return err
	}

	numSteps, err := cmd.Flags().GetUint("num-steps")
	if err != nil {
		return fmt.Errorf("failed to get num-steps flag: %w", err)
	}

	prompt := "WARNING: This will migrate down ALL steps and may result in complete data loss. Continue?"
	if numSteps > 0 {
		prompt = fmt.Sprintf("WARNING: This will migrate down %d step(s) and may result in data loss. Continue?", numSteps)
	}
	if !confirmed(cmd, prompt) {
		return fmt.Errorf("migration cancelled by user")
	}

	version, err := database.MigrateDown(connString, int(numSteps)) // #nosec G115 -- step counts are small
	if err != nil {
		return err
	}
	slog.Info("Migration completed successfully", "version", version)
	return nil
}

// confirmed reports whether --yes was given or the user answered yes
func confirmed(cmd *cobra.Command, prompt string) bool {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true
	}
	return ask(cmd.InOrStdin(), cmd.OutOrStdout(), prompt)
}

func ask(in io.Reader, out io.Writer, prompt string) bool {
	_, _ = fmt.Fprintf(out, "%s (yes/no): ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "yes" || answer == "y"
}

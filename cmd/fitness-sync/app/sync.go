package app

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stacklok/fitness-sync-server/internal/app"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync for a user in the foreground",
		Long: `Run a manual sync for a single user and exit. The run takes the user's
sync lock and follows the configured retry policy.`,
		RunE: runSync,
	}
	cmd.Flags().String("user", "", "ID of the user to sync (required)")
	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	v, err := newViper(cmd)
	if err != nil {
		return err
	}
	userID := v.GetString("user")
	if userID == "" {
		return fmt.Errorf("--user is required")
	}
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	syncApp, err := app.NewFitnessSyncApp(cmd.Context(), app.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer syncApp.Close()

	if err := syncApp.SyncNow(cmd.Context(), userID); err != nil {
		return err
	}
	slog.Info("Sync finished", "user", userID)
	return nil
}

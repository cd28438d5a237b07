package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stacklok/fitness-sync-server/internal/app/storage"
	"github.com/stacklok/fitness-sync-server/internal/sync/state"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage registered users",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}

	add := &cobra.Command{
		Use:   "add",
		Short: "Register a user or replace their upstream credentials",
		Long: `Register a user with the OAuth2 tokens obtained from the fitness API.
Tokens can also be passed as FITSYNC_ACCESS_TOKEN and FITSYNC_REFRESH_TOKEN.
An existing user keeps their sync cursor and status.`,
		RunE: runUserAdd,
	}
	add.Flags().String("id", "", "User ID (required)")
	add.Flags().String("name", "", "Display name")
	add.Flags().String("access-token", "", "OAuth2 access token")
	add.Flags().String("refresh-token", "", "OAuth2 refresh token")

	cmd.AddCommand(add)
	return cmd
}

func runUserAdd(cmd *cobra.Command, _ []string) error {
	v, err := newViper(cmd)
	if err != nil {
		return err
	}
	id := v.GetString("id")
	if id == "" {
		return fmt.Errorf("--id is required")
	}
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	factory, err := storage.NewStorageFactory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create storage factory: %w", err)
	}
	defer factory.Cleanup()

	users, err := factory.CreateUserStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to create user store: %w", err)
	}

	user, err := users.GetUser(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, state.ErrUserNotFound):
		user = &state.User{ID: id}
	default:
		return fmt.Errorf("failed to load user %s: %w", id, err)
	}

	if name := v.GetString("name"); name != "" {
		user.Name = name
	}
	if token := v.GetString("access-token"); token != "" {
		user.AccessToken = token
	}
	if token := v.GetString("refresh-token"); token != "" {
		user.RefreshToken = token
	}
	if !user.HasCredentials() {
		slog.Warn("User has no upstream credentials and will not be synced", "user", id)
	}

	if err := users.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("failed to save user %s: %w", id, err)
	}
	slog.Info("User saved", "user", id)
	return nil
}

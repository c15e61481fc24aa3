package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/civicmitra/backend/internal/auth"
	"github.com/civicmitra/backend/internal/db"
	"github.com/civicmitra/backend/internal/service"
)

var adminFlags struct {
	name     string
	email    string
	password string
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		store, err := db.New(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect db: %w", err)
		}
		defer store.Close()

		users := &service.UserService{
			Users:       store,
			Departments: store,
			Tokens:      auth.NewTokens(cfg.Secret(), cfg.TokenTTL),
			Logger:      logger,
		}
		_, err = users.Bootstrap(cmd.Context(), adminFlags.name, adminFlags.email, adminFlags.password)
		return err
	},
}

func init() {
	f := createAdminCmd.Flags()
	f.StringVar(&adminFlags.name, "name", "Administrator", "display name")
	f.StringVar(&adminFlags.email, "email", "", "login email")
	f.StringVar(&adminFlags.password, "password", "", "initial password")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
}

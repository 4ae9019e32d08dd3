package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/erazemk/nabava/internal/auth"
	"github.com/erazemk/nabava/internal/db"
	"github.com/erazemk/nabava/internal/model"
	"github.com/erazemk/nabava/internal/store"
)

var (
	userRole     string
	userPassword string
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage operator accounts",
}

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add an operator account",
	Long: `Add an operator account. Roles:
  user    - read the dashboard
  manager - upload catalogs and drive negotiations
  admin   - everything, including account management

A random password is generated and printed when --password is not given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !model.ValidRole(userRole) {
			return fmt.Errorf("invalid role %q", userRole)
		}

		password := userPassword
		generated := password == ""
		if generated {
			var err error
			if password, err = generatePassword(16); err != nil {
				return fmt.Errorf("generating password: %w", err)
			}
		}
		if err := model.ValidatePassword(password); err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		database, err := db.Open(cfg.DB.Path)
		if err != nil {
			return err
		}
		defer database.Close()

		ctx := cmd.Context()
		if err := db.Migrate(ctx, database); err != nil {
			return err
		}

		existing, err := store.GetUserByUsername(ctx, database, args[0])
		if err != nil {
			return err
		}
		if existing != nil && existing.DeletedAt == nil {
			return fmt.Errorf("user %s already exists", args[0])
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		user, err := store.CreateUser(ctx, database, args[0], hash, userRole)
		if err != nil {
			return err
		}

		fmt.Printf("User %s created with role %s.\n", user.Username, user.Role)
		if generated {
			fmt.Printf("  Password: %s\n", password)
		}
		return nil
	},
}

func init() {
	userAddCmd.Flags().StringVarP(&userRole, "role", "r", model.RoleUser, "role: user, manager or admin")
	userAddCmd.Flags().StringVarP(&userPassword, "password", "p", "", "password (generated when empty)")
}

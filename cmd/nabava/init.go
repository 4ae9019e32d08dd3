package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/nabava/internal/auth"
	"github.com/erazemk/nabava/internal/config"
	"github.com/erazemk/nabava/internal/db"
	"github.com/erazemk/nabava/internal/model"
	"github.com/erazemk/nabava/internal/store"
)

var adminUser string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the database and the first admin account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if _, err := os.Stat(cfg.DB.Path); err == nil {
			return fmt.Errorf("database file %s already exists", cfg.DB.Path)
		}

		database, password, err := initDatabase(cmd.Context(), cfg.DB.Path, adminUser)
		if err != nil {
			return err
		}
		database.Close()

		printInitResult(cfg.DB.Path, adminUser, password)
		return nil
	},
}

func init() {
	initCmd.Flags().StringVarP(&adminUser, "user", "u", "admin", "admin username")
}

// loadConfig reads the environment and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if addr != "" {
		cfg.App.Addr = addr
	}
	return cfg, nil
}

// initDatabase creates a new database, applies migrations and creates the
// admin user. The file is removed again if any step fails.
func initDatabase(ctx context.Context, path, username string) (*sql.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", err
	}

	fail := func(err error) (*sql.DB, string, error) {
		database.Close()
		os.Remove(path)
		return nil, "", err
	}

	if err := db.Migrate(ctx, database); err != nil {
		return fail(fmt.Errorf("running migrations: %w", err))
	}

	password, err := generatePassword(16)
	if err != nil {
		return fail(fmt.Errorf("generating password: %w", err))
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fail(err)
	}
	if _, err := store.CreateUser(ctx, database, username, hash, model.RoleAdmin); err != nil {
		return fail(fmt.Errorf("creating admin user: %w", err))
	}

	return database, password, nil
}

func printInitResult(path, username, password string) {
	fmt.Printf("Database created: %s\n", path)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}

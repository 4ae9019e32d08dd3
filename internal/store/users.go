package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/nabava/internal/model"
)

const userColumns = `id, username, password_hash, role, created_at, deleted_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.DeletedAt); err != nil {
		return nil, err
	}
	return u, nil
}

// queryUser runs a single-row user query. No match yields (nil, nil).
func queryUser(ctx context.Context, db *sql.DB, what, query string, args ...any) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by %s: %w", what, err)
	}
	return u, nil
}

// CreateUser inserts an operator account and returns it.
func CreateUser(ctx context.Context, db *sql.DB, username, passwordHash, role string) (*model.User, error) {
	var id int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?) RETURNING id`,
		username, passwordHash, role,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("creating user %q: %w", username, err)
	}
	return GetUser(ctx, db, id)
}

// GetUser returns a user by id, including soft-deleted ones.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	return queryUser(ctx, db, "id",
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByUsername returns a user by username. An active account is
// preferred over soft-deleted ones with the same name.
func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (*model.User, error) {
	return queryUser(ctx, db, "username",
		`SELECT `+userColumns+` FROM users WHERE username = ?
		 ORDER BY deleted_at IS NULL DESC, id DESC LIMIT 1`, username)
}

// ListUsers returns active users ordered by id.
func ListUsers(ctx context.Context, db *sql.DB) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of active users.
func CountUsers(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// updateActiveUser applies a SET clause to an active user.
func updateActiveUser(ctx context.Context, db *sql.DB, id int64, set string, args ...any) error {
	args = append(args, id)
	if _, err := db.ExecContext(ctx,
		`UPDATE users SET `+set+` WHERE id = ? AND deleted_at IS NULL`, args...,
	); err != nil {
		return fmt.Errorf("updating user %d: %w", id, err)
	}
	return nil
}

// UpdateUser changes a user's role.
func UpdateUser(ctx context.Context, db *sql.DB, id int64, role string) error {
	return updateActiveUser(ctx, db, id, `role = ?`, role)
}

// UpdateUserPassword replaces a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	return updateActiveUser(ctx, db, id, `password_hash = ?`, passwordHash)
}

// DeleteUser soft-deletes a user; the row stays for audit.
func DeleteUser(ctx context.Context, db *sql.DB, id int64) error {
	return updateActiveUser(ctx, db, id, `deleted_at = CURRENT_TIMESTAMP`)
}

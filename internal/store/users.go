package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/prelovedtoys/marketplace-api/internal/database"
	"github.com/prelovedtoys/marketplace-api/internal/models"
)

// CreateUser registers a user record; OTP verification of the mobile number
// happens in the external auth service before this is called.
func CreateUser(ctx context.Context, db *sql.DB, mobile, name, email, role string) (*models.User, error) {
	if role == "" {
		role = models.RoleUser
	}

	user := &models.User{Mobile: mobile, Name: name, Email: email, Role: role}
	err := db.QueryRowContext(ctx,
		`INSERT INTO users (mobile, name, email, role, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())
		 RETURNING id, is_active, created_at, updated_at`,
		mobile, name, email, role).Scan(&user.ID, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func GetUser(ctx context.Context, db *sql.DB, id int64) (*models.User, error) {
	user := &models.User{}

	var name, email sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT id, mobile, name, email, role, is_active, created_at, updated_at
		 FROM users
		 WHERE id = $1`,
		id).Scan(
		&user.ID,
		&user.Mobile,
		&name,
		&email,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, database.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	user.Name = name.String
	user.Email = email.String

	return user, nil
}

// ListUsers is the admin view: user and seller accounts only, newest-first.
func ListUsers(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	roles := []string{models.RoleUser, models.RoleSeller}

	var total int64
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = ANY($1)`, pq.Array(roles)).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	offset := (page - 1) * pageSize
	rows, err := db.QueryContext(ctx,
		`SELECT id, mobile, name, email, role, is_active, created_at, updated_at
		 FROM users
		 WHERE role = ANY($1)
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		pq.Array(roles), pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		var name, email sql.NullString
		err := rows.Scan(
			&user.ID,
			&user.Mobile,
			&name,
			&email,
			&user.Role,
			&user.IsActive,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		user.Name = name.String
		user.Email = email.String
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return NewOffsetPage(users, total, page, pageSize), nil
}

// SetUserActive bans or unbans an account.
func SetUserActive(ctx context.Context, db *sql.DB, userID int64, active bool) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2`,
		active, userID)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrUserNotFound
	}

	return nil
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/shoeshelf/internal/models"
)

// CreateAnonymousUser inserts a newly issued identity into the database.
func (s *SQLiteStore) CreateAnonymousUser(ctx context.Context, user *models.AnonymousUser) error {
	query := `
		INSERT INTO anonymous_users (id, created_at, expires_at)
		VALUES (?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.CreatedAt,
		user.ExpiresAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create anonymous user: %w", err)
	}

	return nil
}

// GetAnonymousUser retrieves an issued identity by its ID.
func (s *SQLiteStore) GetAnonymousUser(ctx context.Context, id string) (*models.AnonymousUser, error) {
	query := `
		SELECT id, created_at, expires_at
		FROM anonymous_users
		WHERE id = ?
	`

	user := &models.AnonymousUser{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.CreatedAt,
		&user.ExpiresAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil // Never issued
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get anonymous user: %w", err)
	}

	return user, nil
}

// RenewAnonymousUser records the expiry of a re-issued token.
func (s *SQLiteStore) RenewAnonymousUser(ctx context.Context, id string, expiresAt int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE anonymous_users SET expires_at = ? WHERE id = ?`,
		expiresAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to renew anonymous user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to renew anonymous user: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("anonymous user not found: %s", id)
	}

	return nil
}

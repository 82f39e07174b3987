package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SaveOAuthToken stores the serialized OAuth token for a provider
// (gmail or calendar), replacing any previous one.
func (db *DB) SaveOAuthToken(ctx context.Context, provider string, tokenJSON []byte) error {
	query := `INSERT OR REPLACE INTO oauth_tokens (provider, token_json, created_at) VALUES (?, ?, ?)`
	_, err := db.ExecContext(ctx, query, provider, string(tokenJSON), time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save oauth token for %s: %w", provider, err)
	}

	db.triggerChange(ctx)
	return nil
}

// GetOAuthToken returns the stored token for a provider, or nil, nil
// when no token has been stored.
func (db *DB) GetOAuthToken(ctx context.Context, provider string) ([]byte, error) {
	var tokenJSON string
	err := db.QueryRowContext(ctx, `SELECT token_json FROM oauth_tokens WHERE provider = ?`, provider).Scan(&tokenJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get oauth token for %s: %w", provider, err)
	}
	return []byte(tokenJSON), nil
}

// DeleteOAuthToken removes the stored token for a provider.
func (db *DB) DeleteOAuthToken(ctx context.Context, provider string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM oauth_tokens WHERE provider = ?`, provider)
	if err != nil {
		return fmt.Errorf("failed to delete oauth token for %s: %w", provider, err)
	}

	db.triggerChange(ctx)
	return nil
}

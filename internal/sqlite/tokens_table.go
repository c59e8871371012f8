package sqlite

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/coinwatch/pkg/types"
)

// TokensTable maps bearer tokens to user ids.
type TokensTable struct {
	backend *Backend
}

// Issue stores token for userID, generating one when token is empty, and
// returns it. Re-issuing an existing token moves it to userID.
func (tt *TokensTable) Issue(userID, token string) (string, error) {
	if err := requireUser(userID); err != nil {
		return "", err
	}
	if token == "" {
		token = types.NewServerID()
	}

	db, release, err := tt.backend.conn()
	if err != nil {
		return "", err
	}
	defer release()

	_, err = db.Exec(`
		INSERT INTO users_tokens (token, user_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET user_id = excluded.user_id`,
		token, userID, formatTime(tt.backend.now()))
	if err != nil {
		return "", fmt.Errorf("issuing token: %w", err)
	}
	return token, nil
}

// UserFor returns the user that owns token, or types.ErrUnauthorized.
func (tt *TokensTable) UserFor(token string) (string, error) {
	if token == "" {
		return "", types.ErrUnauthorized
	}

	db, release, err := tt.backend.conn()
	if err != nil {
		return "", err
	}
	defer release()

	var userID string
	err = db.QueryRow("SELECT user_id FROM users_tokens WHERE token = ?", token).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", types.ErrUnauthorized
	}
	if err != nil {
		return "", fmt.Errorf("looking up token: %w", err)
	}
	return userID, nil
}

// Revoke deletes token. Revoking an unknown token is not an error.
func (tt *TokensTable) Revoke(token string) error {
	db, release, err := tt.backend.conn()
	if err != nil {
		return err
	}
	defer release()

	if _, err := db.Exec("DELETE FROM users_tokens WHERE token = ?", token); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}
	return nil
}

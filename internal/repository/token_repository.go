package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// TokenRepo keeps refresh tokens as SHA-256 hashes. A token is live while
// it is unrevoked, unexpired and owned by an active user.
type TokenRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewTokenRepo(db *sql.DB) *TokenRepo {
	return &TokenRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Store saves the hash of a newly issued refresh token.
func (r *TokenRepo) Store(ctx context.Context, userID uint64, hash string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)",
		userID, hash, exp.UTC())
	return err
}

const liveToken = `FROM refresh_tokens t JOIN users u ON u.id = t.user_id
	WHERE t.token_hash = ? AND t.revoked_at IS NULL AND t.expires_at > ? AND u.is_active = 1`

// Owner returns the user behind a live token, or ErrNotFound.
func (r *TokenRepo) Owner(ctx context.Context, hash string) (uint64, error) {
	var userID uint64
	err := r.db.QueryRowContext(ctx, "SELECT t.user_id "+liveToken, hash, r.now()).Scan(&userID)
	return userID, notFound(err)
}

// Rotate revokes the live token oldHash and stores newHash for the same
// user in one transaction. The old row is locked first, so of two
// concurrent rotations of one token only the first succeeds; the other
// gets ErrNotFound.
func (r *TokenRepo) Rotate(ctx context.Context, oldHash, newHash string, exp time.Time) (uint64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin rotation: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	now := r.now()
	var userID uint64
	err = tx.QueryRowContext(ctx, "SELECT t.user_id "+liveToken+" FOR UPDATE", oldHash, now).Scan(&userID)
	if err != nil {
		return 0, notFound(err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ?", now, oldHash); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)",
		userID, newHash, exp.UTC()); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit rotation: %w", err)
	}
	committed = true
	return userID, nil
}

// Revoke ends one session. It reports false when the token was not live.
func (r *TokenRepo) Revoke(ctx context.Context, hash string) (bool, error) {
	now := r.now()
	res, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = ? WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > ?",
		now, hash, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RevokeAll ends every session of userID.
func (r *TokenRepo) RevokeAll(ctx context.Context, userID uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL",
		r.now(), userID)
	return err
}

package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"teleshop/db"
)

const linkCodeLength = 8

// NewLinkCode returns a fresh upper-case code cut from a random UUID.
func NewLinkCode() string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(s[:linkCodeLength])
}

// NormalizeLinkCode trims and upper-cases a code typed by a user.
func NormalizeLinkCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IssueLinkCode stores a new binding code on the user, replacing any previous one.
func IssueLinkCode(ctx context.Context, userID int64) (string, bool, error) {
	code := NewLinkCode()
	tag, err := db.Pool.Exec(ctx, `UPDATE users SET link_code = $1 WHERE id = $2`, code, userID)
	if err != nil {
		return "", false, err
	}
	if tag.RowsAffected() == 0 {
		return "", false, nil
	}
	return code, true, nil
}

// RedeemLinkCode binds identity to the user holding code and clears the code.
// Any other user bound to the same identity is unbound in the same
// transaction, so a chat always resolves to exactly one account.
// ok is false for an unknown code.
func RedeemLinkCode(ctx context.Context, code, identity string) (int64, bool, error) {
	code = NormalizeLinkCode(code)
	identity = strings.TrimSpace(identity)
	if len(code) != linkCodeLength || identity == "" {
		return 0, false, nil
	}
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, false, err
	}
	defer tx.Rollback(ctx)

	var userID int64
	err = tx.QueryRow(ctx, `
		UPDATE users SET telegram_id = $1, link_code = NULL
		WHERE link_code = $2
		RETURNING id`,
		identity, code,
	).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE users SET telegram_id = NULL
		WHERE telegram_id = $1 AND id <> $2`,
		identity, userID,
	); err != nil {
		return 0, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, false, err
	}
	return userID, true, nil
}

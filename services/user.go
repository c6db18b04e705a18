package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"teleshop/db"
	"teleshop/models"
)

const userColumns = `id, username, COALESCE(telegram_id, ''), is_staff`

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.TelegramID, &u.IsStaff)
	return u, err
}

func GetUser(ctx context.Context, id int64) (models.User, bool, error) {
	u, err := scanUser(db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, err
	}
	return u, true, nil
}

// GetUserByTelegramID finds the user bound to a chat identity.
func GetUserByTelegramID(ctx context.Context, identity string) (models.User, bool, error) {
	u, err := scanUser(db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1 ORDER BY id LIMIT 1`, identity))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, err
	}
	return u, true, nil
}

// ListStaff returns all staff users ordered by id, bound or not.
func ListStaff(ctx context.Context) ([]models.User, error) {
	rows, err := db.Pool.Query(ctx, `SELECT `+userColumns+` FROM users WHERE is_staff ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var staff []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		staff = append(staff, u)
	}
	return staff, rows.Err()
}

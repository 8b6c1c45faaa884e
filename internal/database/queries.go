package database

import (
	"time"

	"pixelboard/internal/cooldown"
)

func (db *PgPixelBoardRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO accounts (username, email, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $4) RETURNING id, username, email, created_at, updated_at",
		params.Username,
		params.EmailAddress,
		params.PasswordHash,
		db.clock.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgPixelBoardRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE accounts SET username = $2, password_hash = $3, updated_at = $4 "+
			"WHERE id = $1 RETURNING id, username, email, created_at, updated_at",
		params.UserId,
		params.Username,
		params.PasswordHash,
		db.clock.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Username,
		&u.EmailAddress,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgPixelBoardRepository) GetAccountById(accountId int) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, is_admin, banned, last_pixel_placed, created_at, updated_at "+
			"FROM accounts WHERE id = $1 LIMIT 1",
		accountId,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.PasswordHash,
		&user.IsAdmin,
		&user.Banned,
		&user.LastPixelPlaced,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgPixelBoardRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, email, password_hash, is_admin, banned, last_pixel_placed, created_at, updated_at "+
			"FROM accounts WHERE email = $1 LIMIT 1",
		email,
	)

	var user User
	err := row.Scan(
		&user.Id,
		&user.Username,
		&user.EmailAddress,
		&user.PasswordHash,
		&user.IsAdmin,
		&user.Banned,
		&user.LastPixelPlaced,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	return user, err
}

func (db *PgPixelBoardRepository) SetAccountBanned(accountId int, banned bool) error {
	_, err := db.conn.Exec(
		"UPDATE accounts SET banned = $2, updated_at = $3 WHERE id = $1",
		accountId,
		banned,
		db.clock.Now().UTC(),
	)

	return err
}

func (db *PgPixelBoardRepository) DeleteAccount(accountId int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec("DELETE FROM pixel_actions WHERE account_id = $1", accountId)
	if err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM accounts WHERE id = $1", accountId)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// PlacePixel records one placement for the account. The account row is locked
// for the duration of the transaction, so the cooldown re-check and the two
// writes are serialized per user: concurrent placements inside the same window
// commit at most once, the loser sees a CooldownError.
func (db *PgPixelBoardRepository) PlacePixel(params PlacePixelParams) (PixelAction, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return PixelAction{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var (
		banned     bool
		lastPlaced *time.Time
	)
	err = tx.QueryRow(
		"SELECT banned, last_pixel_placed FROM accounts WHERE id = $1 FOR UPDATE",
		params.AccountId,
	).Scan(&banned, &lastPlaced)
	if err != nil {
		return PixelAction{}, err
	}

	if banned {
		err = ErrAccountBanned
		return PixelAction{}, err
	}

	now := db.clock.Now().UTC()
	if remaining := cooldown.Remaining(lastPlaced, now); remaining > 0 {
		err = &CooldownError{Remaining: remaining}
		return PixelAction{}, err
	}

	_, err = tx.Exec(
		"UPDATE accounts SET last_pixel_placed = $2, updated_at = $2 WHERE id = $1",
		params.AccountId,
		now,
	)
	if err != nil {
		return PixelAction{}, err
	}

	res := tx.QueryRow(
		"INSERT INTO pixel_actions (x, y, color, account_id, created_at) "+
			"VALUES ($1, $2, $3, $4, $5) RETURNING id, x, y, color, account_id, created_at",
		params.X,
		params.Y,
		params.Color,
		params.AccountId,
		now,
	)

	var action PixelAction
	err = res.Scan(
		&action.Id,
		&action.X,
		&action.Y,
		&action.Color,
		&action.AccountId,
		&action.CreatedAt,
	)
	if err != nil {
		return PixelAction{}, err
	}

	if err = tx.Commit(); err != nil {
		return PixelAction{}, err
	}

	return action, nil
}

// CanvasPixels returns the latest placement for every painted coordinate.
func (db *PgPixelBoardRepository) CanvasPixels() ([]PixelAction, error) {
	rows, err := db.conn.Query(
		"SELECT DISTINCT ON (x, y) id, x, y, color, account_id, created_at FROM pixel_actions " +
			"ORDER BY x, y, created_at DESC, id DESC",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pixels = make([]PixelAction, 0)
	for rows.Next() {
		var p PixelAction
		if err = rows.Scan(&p.Id, &p.X, &p.Y, &p.Color, &p.AccountId, &p.CreatedAt); err != nil {
			break
		}

		pixels = append(pixels, p)
	}

	return pixels, err
}

func (db *PgPixelBoardRepository) CountPaintedPixels() (int, error) {
	row := db.conn.QueryRow(
		"SELECT COUNT(*) FROM (SELECT DISTINCT x, y FROM pixel_actions) painted",
	)

	var count int
	err := row.Scan(&count)

	return count, err
}

func (db *PgPixelBoardRepository) GetPixelHistory(x, y, limit int) ([]PixelAction, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(
		"SELECT id, x, y, color, account_id, created_at FROM pixel_actions "+
			"WHERE x = $1 AND y = $2 ORDER BY created_at DESC, id DESC LIMIT $3",
		x,
		y,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions = make([]PixelAction, 0, limit)
	for rows.Next() {
		var a PixelAction
		if err = rows.Scan(&a.Id, &a.X, &a.Y, &a.Color, &a.AccountId, &a.CreatedAt); err != nil {
			break
		}

		actions = append(actions, a)
	}

	return actions, err
}

package store

import (
	"database/sql"
	"time"

	"github.com/matheus3301/chatdock/internal/chat"
)

const upsertUserSQL = `
	INSERT INTO users (id, name, image, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = CASE WHEN excluded.name != '' THEN excluded.name ELSE users.name END,
		image = CASE WHEN excluded.image != '' THEN excluded.image ELSE users.image END,
		updated_at = excluded.updated_at`

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// UpsertUser inserts or updates a user. Empty fields never overwrite known values.
func (db *DB) UpsertUser(u chat.User) error {
	return upsertUser(db, u)
}

func upsertUser(ex execer, u chat.User) error {
	if u.ID == "" {
		return nil
	}
	_, err := ex.Exec(upsertUserSQL, u.ID, u.Name, u.Image, time.Now().UnixMilli())
	return err
}

// GetUser returns a user by id, or nil when unknown.
func (db *DB) GetUser(id string) (*chat.User, error) {
	var u chat.User
	err := db.QueryRow(`SELECT id, name, image FROM users WHERE id = ?`, id).Scan(&u.ID, &u.Name, &u.Image)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

package database

import (
	"database/sql"

	"github.com/jonboulle/clockwork"
)

type PgPixelBoardRepository struct {
	conn  *sql.DB
	clock clockwork.Clock
}

func NewPgPixelBoardRepository(dsn string, clock clockwork.Clock) (*PgPixelBoardRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgPixelBoardRepository{conn: db, clock: clock}, nil
}

func (db *PgPixelBoardRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgPixelBoardRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

package sqlxstore

import (
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/educloud/core"
)

const schema = `CREATE TABLE IF NOT EXISTS client_state (
	key        VARCHAR(128) PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

type entry struct {
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Store is a core.Storage kept in a SQL table; works with sqlite3 and postgres.
type Store struct {
	db *sqlx.DB
}

var _ core.Storage = (*Store)(nil)

// NewStore creates the state table if needed.
func NewStore(db *sqlx.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "creating client_state table")
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(key string) (string, bool, error) {
	var e entry
	err := s.db.Get(&e, s.db.Rebind(`SELECT key, value, updated_at FROM client_state WHERE key = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "getting %q", key)
	}
	return e.Value, true, nil
}

func (s *Store) Set(key, value string) error {
	q := s.db.Rebind(`INSERT INTO client_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	_, err := s.db.Exec(q, key, value, time.Now().UTC())
	return errors.Wrapf(err, "setting %q", key)
}

func (s *Store) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM client_state WHERE key IN (?)`, keys)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	_, err = s.db.Exec(s.db.Rebind(q), args...)
	return errors.Wrap(err, "deleting keys")
}

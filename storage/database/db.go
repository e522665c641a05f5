package database

import (
	"io"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/trezcool/educloud/core"
	"github.com/trezcool/educloud/storage/database/inmem"
	"github.com/trezcool/educloud/storage/database/sqlx"
	"github.com/trezcool/educloud/storage/filestore"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open returns the client state storage selected by conf.Storage.Driver:
// "file" (default, conf.StateFile), "memory", "sqlite3" or "postgres" (conf.Storage.DSN).
// The returned io.Closer releases the underlying resources.
func Open(conf *core.Config) (core.Storage, io.Closer, error) {
	switch conf.Storage.Driver {
	case "", "file":
		store, err := filestore.Open(conf.StateFile)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening state file")
		}
		return store, nopCloser{}, nil
	case "memory":
		return inmemdb.NewStore(), nopCloser{}, nil
	case "sqlite3", "postgres":
		if conf.Storage.DSN == "" {
			return nil, nil, errors.Errorf("storage driver %q requires a DSN", conf.Storage.Driver)
		}
		db, err := sqlx.Open(conf.Storage.Driver, conf.Storage.DSN)
		if err != nil {
			return nil, nil, errors.Wrap(err, "opening database")
		}
		if err := ping(db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		store, err := sqlxstore.NewStore(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return store, db, nil
	}
	return nil, nil, errors.Errorf("unknown storage driver %q", conf.Storage.Driver)
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 10
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

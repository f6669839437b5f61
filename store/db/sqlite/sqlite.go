package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	// Import the pure Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/usedigest/digest/internal/profile"
	"github.com/usedigest/digest/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a SQLite database for the given profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	// Connect to the database with some sane settings:
	// - Single connection: SQLite serializes writes anyway, and a single
	//   connection avoids SQLITE_BUSY under concurrent requests.
	// - WAL: readers are not blocked by the writer.
	db, err := sql.Open("sqlite", profile.DSN+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrapf(err, "failed to ping database: %s", profile.DSN)
	}

	return &DB{db: db, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS user (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	token TEXT NOT NULL UNIQUE,
	created_ts BIGINT NOT NULL,
	background TEXT NOT NULL DEFAULT '',
	interests TEXT NOT NULL DEFAULT '',
	learning_style TEXT NOT NULL DEFAULT '',
	technical_level TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS concept (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL UNIQUE,
	user_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	domain TEXT NOT NULL DEFAULT 'General',
	explanation TEXT NOT NULL,
	analogy TEXT NOT NULL DEFAULT '',
	source_url TEXT NOT NULL,
	source_title TEXT NOT NULL DEFAULT '',
	learned_ts BIGINT NOT NULL,
	embedding TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_concept_user_id ON concept (user_id);

CREATE TABLE IF NOT EXISTS article (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL UNIQUE,
	user_id INTEGER NOT NULL,
	title TEXT NOT NULL,
	source_url TEXT NOT NULL,
	filename TEXT NOT NULL,
	created_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_article_user_id ON article (user_id);
`

// Migrate creates the schema if it does not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}

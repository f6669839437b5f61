package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/usedigest/digest/internal/profile"
	"github.com/usedigest/digest/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL connection for the given profile.
// Requires the pgvector extension for concept similarity search.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	// Small pool: the pipeline issues at most a handful of queries per run.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	return &DB{db: db, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the schema if it does not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	dims := d.profile.AIEmbeddingDims
	if dims == 0 {
		dims = 1536
	}

	schema := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS "user" (
	id SERIAL PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	token TEXT NOT NULL UNIQUE,
	created_ts BIGINT NOT NULL,
	background TEXT NOT NULL DEFAULT '',
	interests TEXT NOT NULL DEFAULT '',
	learning_style TEXT NOT NULL DEFAULT '',
	technical_level TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS concept (
	id BIGSERIAL PRIMARY KEY,
	uid TEXT NOT NULL UNIQUE,
	user_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	domain TEXT NOT NULL DEFAULT 'General',
	explanation TEXT NOT NULL,
	analogy TEXT NOT NULL DEFAULT '',
	source_url TEXT NOT NULL,
	source_title TEXT NOT NULL DEFAULT '',
	learned_ts BIGINT NOT NULL,
	embedding vector(%d)
);
CREATE INDEX IF NOT EXISTS idx_concept_user_id ON concept (user_id);

CREATE TABLE IF NOT EXISTS article (
	id BIGSERIAL PRIMARY KEY,
	uid TEXT NOT NULL UNIQUE,
	user_id INTEGER NOT NULL,
	title TEXT NOT NULL,
	source_url TEXT NOT NULL,
	filename TEXT NOT NULL,
	created_ts BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_article_user_id ON article (user_id);
`, dims)

	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}

// placeholder returns the n-th parameter placeholder for PostgreSQL.
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns n placeholders starting at $1.
func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

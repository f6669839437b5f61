package db

import (
	"github.com/pkg/errors"

	"github.com/usedigest/digest/internal/profile"
	"github.com/usedigest/digest/store"
	"github.com/usedigest/digest/store/db/postgres"
	"github.com/usedigest/digest/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
//
// SQLite is the default and is fully functional: embeddings are stored as
// JSON blobs and nearest-neighbor search runs in process. PostgreSQL uses
// the pgvector extension and is preferred for larger deployments.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'sqlite' and 'postgres' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}

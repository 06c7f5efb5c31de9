package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	log "github.com/sirupsen/logrus"
)

//go:embed migrations/*/*.sql
var fs embed.FS

func migrator(opts Options) (*migrate.Migrate, error) {
	var databaseURL string
	switch opts.Backend {
	case BackendSQLite:
		databaseURL = "sqlite://" + opts.Database
	case BackendPostgres:
		databaseURL = opts.DSN
	default:
		return nil, fmt.Errorf("backend %q has no migrations", opts.Backend)
	}

	d, err := iofs.New(fs, "migrations/"+opts.Backend)
	if err != nil {
		return nil, err
	}

	return migrate.NewWithSourceInstance("iofs", d, databaseURL)
}

// Migrate runs the embedded migrations for a SQL backend
func Migrate(opts Options) error {
	log.WithFields(log.Fields{
		"backend": opts.Backend,
	}).Info("Running migrations")

	m, err := migrator(opts)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// Rollback reverts the last migration of a SQL backend
func Rollback(opts Options) error {
	m, err := migrator(opts)
	if err != nil {
		return err
	}
	defer m.Close()

	return m.Steps(-1)
}

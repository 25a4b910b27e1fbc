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

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var fs embed.FS

func migrator(dsn string) (*migrate.Migrate, error) {
	dir, url := "migrations/sqlite", "sqlite://"+dsn
	if IsPostgres(dsn) {
		dir, url = "migrations/postgres", dsn
	}

	d, err := iofs.New(fs, dir)
	if err != nil {
		return nil, err
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, url)
	if err != nil {
		return nil, fmt.Errorf("error creating migrate instance: %w", err)
	}
	return m, nil
}

// Migrate brings the schema at dsn up to date. The SQLite file is created
// when it does not exist.
func Migrate(dsn string) error {
	log.Info("Running migrations")
	m, err := migrator(dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Rollback reverts the most recent migration.
func Rollback(dsn string) error {
	log.Info("Rolling back last migration")
	m, err := migrator(dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

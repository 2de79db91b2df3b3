package storage

import (
	"context"
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/IshaanNene/radarbr/internal/types"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies every pending embedded migration. An up-to-date schema is
// not an error.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	m, closeDB, err := s.migrator()
	if err != nil {
		return err
	}
	defer closeDB()

	done := make(chan error, 1)
	go func() { done <- m.Up() }()
	select {
	case <-ctx.Done():
		m.GracefulStop <- true
		<-done
		return ctx.Err()
	case err := <-done:
		if errors.Is(err, migrate.ErrNoChange) {
			s.logger.Info("schema up to date")
			return nil
		}
		if err != nil {
			return &types.StorageError{Backend: BackendPostgres, Op: "migrate", Err: err}
		}
	}
	version, dirty, _ := m.Version()
	s.logger.Info("schema migrated", "version", version, "dirty", dirty)
	return nil
}

// MigrationVersion reports the applied schema version.
func (s *PostgresStore) MigrationVersion() (uint, bool, error) {
	m, closeDB, err := s.migrator()
	if err != nil {
		return 0, false, err
	}
	defer closeDB()
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (s *PostgresStore) migrator() (*migrate.Migrate, func(), error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, nil, &types.StorageError{Backend: BackendPostgres, Op: "migrate", Err: err}
	}
	db := stdlib.OpenDBFromPool(s.pool)
	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		db.Close()
		return nil, nil, &types.StorageError{Backend: BackendPostgres, Op: "migrate", Err: err}
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		db.Close()
		return nil, nil, &types.StorageError{Backend: BackendPostgres, Op: "migrate", Err: err}
	}
	return m, func() {
		m.Close()
		db.Close()
	}, nil
}

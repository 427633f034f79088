package migrations

import (
	"github.com/cfuentes/bidroom/internal/shared/logger"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// RunMigrations applies every pending SQL migration against the database at dsn.
func RunMigrations(dsn string) error {
	log.Info("RunMigrations", zap.String("source", "internal/shared/db/migrations/sql"))
	m, err := migrate.New(
		"file://internal/shared/db/migrations/sql",
		dsn,
	)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

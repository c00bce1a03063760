package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const pgDriverName = "postgres"

var ErrDirty = errors.New("schema is dirty")

// Migrate applies every pending migration in folderPath and returns the schema
// version it leaves behind. An up to date schema is not an error, a dirty one is.
func Migrate(dsn, folderPath string) (uint, error) {
	folder, err := filepath.Abs(folderPath)
	if err != nil {
		return 0, err
	}
	db, err := sql.Open(pgDriverName, dsn)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return 0, fmt.Errorf("open migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(folder), pgDriverName, driver)
	if err != nil {
		return 0, fmt.Errorf("load migrations from %s: %w", folder, err)
	}
	m.Log = logger{zap.L().Named("migrate")}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate up: %w", err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return version, fmt.Errorf("%w: version %d", ErrDirty, version)
	}
	zap.L().Info("database schema up to date", zap.Uint("version", version))
	return version, nil
}

// logger routes migrate output through zap.
type logger struct {
	l *zap.Logger
}

func (l logger) Printf(format string, v ...any) {
	l.l.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l logger) Verbose() bool {
	return false
}

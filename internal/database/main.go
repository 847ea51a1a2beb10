package database

import (
	"database/sql"
	"embed"
	"errors"
	"log/slog"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrations embed.FS

var ErrNotFound = errors.New("leaderboard not found")

type DatabaseInst struct {
	db     *sql.DB
	dbLock sync.Mutex
	logger *slog.Logger
}

func InitDatabase(filePath string, logger *slog.Logger) (*DatabaseInst, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", filePath+"?_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, err
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "aocstats", driver)
	if err != nil {
		return nil, err
	}

	err = migrator.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return nil, err
	}

	return &DatabaseInst{
		db:     db,
		logger: logger,
	}, nil
}

func (d *DatabaseInst) Close() error {
	d.dbLock.Lock()
	defer d.dbLock.Unlock()
	return d.db.Close()
}

package store

import (
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/muurk/tramesniff/internal/logging"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// goose keeps its filesystem and dialect in package globals.
var migrationMutex sync.Mutex

// gooseZapAdapter sends goose output to the application logger instead of
// stdout.
type gooseZapAdapter struct{}

func (gooseZapAdapter) Printf(format string, v ...any) {
	logging.GetLogger().Sugar().Debugf(format, v...)
}

func (gooseZapAdapter) Fatalf(format string, v ...any) {
	logging.GetLogger().Sugar().Fatalf(format, v...)
}

// MigrateUp applies every pending migration found in dir of files.
func MigrateUp(db *sql.DB, files embed.FS, dir string) error {
	migrationMutex.Lock()
	defer migrationMutex.Unlock()

	goose.SetLogger(gooseZapAdapter{})
	goose.SetBaseFS(files)

	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	logging.Debug("Running migrations", zap.String("dir", dir))
	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

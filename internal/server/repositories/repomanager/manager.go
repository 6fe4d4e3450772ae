// Package repomanager picks the store implementation for a DSN, opens the
// database and runs the embedded goose migrations for its dialect.
package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/authkeeper/internal/dbx"
	"github.com/dmitrijs2005/authkeeper/internal/filex"
	"github.com/dmitrijs2005/authkeeper/internal/server/migrations"
	"github.com/dmitrijs2005/authkeeper/internal/server/repositories/users"
)

var ErrUnsupportedDSN = errors.New("unsupported database DSN")

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// goose keeps base FS and dialect in package globals.
var gooseMu sync.Mutex

func runGoose(ctx context.Context, db *sql.DB, dialect, dir string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, dir); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// sqlOpen is a seam for testing.
var sqlOpen = sql.Open

// Open connects to the database named by dsn and returns the matching
// manager.
//
//	postgres://... postgresql://...   PostgreSQL through pgx
//	sqlite:path    sqlite::memory:    SQLite (modernc, pure Go)
//	file:path?...                     SQLite URI filename
func Open(ctx context.Context, dsn string) (*sql.DB, RepositoryManager, error) {
	driver, source, m, err := resolve(dsn)
	if err != nil {
		return nil, nil, err
	}

	if driver == sqliteDriver && source != ":memory:" && !strings.HasPrefix(strings.ToLower(source), "file:") {
		if err := filex.EnsureParentDir(source); err != nil {
			return nil, nil, err
		}
	}

	db, err := sqlOpen(driver, source)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == sqliteDriver {
		// a single writer avoids SQLITE_BUSY and keeps :memory: databases alive
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return db, m, nil
}

func resolve(dsn string) (driver, source string, m RepositoryManager, err error) {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return pgxDriver, dsn, NewPostgresRepositoryManager(), nil
	case strings.HasPrefix(lower, "sqlite:"):
		source = dsn[len("sqlite:"):]
		if source == "" {
			return "", "", nil, fmt.Errorf("%w: empty sqlite path", ErrUnsupportedDSN)
		}
		return sqliteDriver, source, NewSQLiteRepositoryManager(), nil
	case strings.HasPrefix(lower, "file:"):
		return sqliteDriver, dsn, NewSQLiteRepositoryManager(), nil
	default:
		return "", "", nil, ErrUnsupportedDSN
	}
}

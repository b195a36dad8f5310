package persistence

import (
	"context"
	"embed"
	"io/fs"
	"time"

	"github.com/go-faster/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
	_ "modernc.org/sqlite"

	"github.com/sennetconsortium/senotype-editor/pkg/configuration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Open connects to the configured senlib database and verifies it answers.
func Open(ctx context.Context, opts configuration.DatabaseOptions) (*sqlx.DB, error) {
	db, err := sqlx.Open(opts.Driver, opts.ConnectionString())
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", opts.Driver)
	}
	if opts.Driver == "sqlite" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping database")
	}
	return db, nil
}

func dialect(driver string) database.Dialect {
	if driver == "sqlite" {
		return database.DialectSQLite3
	}
	return database.DialectPostgres
}

// Migrate applies the embedded schema migrations and returns the applied versions.
func Migrate(ctx context.Context, db *sqlx.DB) ([]int64, error) {
	fsys, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(dialect(db.DriverName()), db.DB, fsys)
	if err != nil {
		return nil, errors.Wrap(err, "migration provider")
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "migrate up")
	}
	applied := make([]int64, 0, len(results))
	for _, r := range results {
		applied = append(applied, r.Source.Version)
	}
	return applied, nil
}

package repository

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver           string
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
	PingAttempts     uint64
}

// DB is the ledger database handle. pool is set only for PostgreSQL.
type DB struct {
	*sqlx.DB
	Driver string
	pool   *pgxpool.Pool
}

// Open connects to the configured ledger database, pings it and applies migrations.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to ledger database", "driver", cfg.Driver)

	var (
		db  *DB
		err error
	)
	switch cfg.Driver {
	case DriverSQLite, "":
		db, err = openSQLite(cfg)
	case DriverPostgres:
		db, err = openPostgres(ctx, cfg)
	default:
		err = fmt.Errorf("unsupported ledger driver %q", cfg.Driver)
	}
	if err != nil {
		logger.Error("failed to connect to ledger database", "error", err)
		return nil, err
	}

	if err := HealthCheck(ctx, db, cfg.DialTimeout, cfg.PingAttempts, logger); err != nil {
		db.Close(logger)
		return nil, err
	}
	if err := Migrate(ctx, db); err != nil {
		logger.Error("ledger migration failed", "error", err)
		db.Close(logger)
		return nil, err
	}

	logger.Info("successfully connected to ledger database", "driver", db.Driver)
	return db, nil
}

func openSQLite(cfg Config) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", sqliteDSN(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; also keeps ":memory:" databases on a single connection
	sqlDB.SetMaxOpenConns(1)
	return &DB{DB: sqlx.NewDb(sqlDB, "sqlite"), Driver: DriverSQLite}, nil
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

// openPostgres creates a pgx pool and wraps it as *sql.DB for sqlx.
func openPostgres(ctx context.Context, cfg Config) (*DB, error) {
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "caseflow"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = fmt.Sprintf("%d", cfg.StatementTimeout.Milliseconds())
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		return nil, err
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	return &DB{DB: sqlx.NewDb(sqlDB, "pgx"), Driver: DriverPostgres, pool: pool}, nil
}

// Close closes the database connections gracefully
func (d *DB) Close(logger *slog.Logger) {
	if d == nil {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("closing ledger database")
	if err := d.DB.Close(); err != nil {
		logger.Error("failed to close ledger database", "error", err)
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

// HealthCheck pings the database, retrying with exponential backoff up to attempts times.
func HealthCheck(ctx context.Context, db *DB, timeout time.Duration, attempts uint64, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("pinging ledger database")

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = 0

	var policy backoff.BackOff = bo
	if attempts > 0 {
		policy = backoff.WithMaxRetries(bo, attempts-1)
	}

	err := backoff.Retry(func() error {
		pctx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			pctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		if err := db.PingContext(pctx); err != nil {
			logger.Warn("ledger ping failed", "error", err)
			return err
		}
		return nil
	}, backoff.WithContext(policy, ctx))
	if err != nil {
		return fmt.Errorf("ping ledger database: %w", err)
	}
	logger.Debug("ledger ping successful")
	return nil
}

// Migrate applies the embedded goose migrations for the database dialect.
func Migrate(ctx context.Context, db *DB) error {
	dialect := goose.DialectSQLite3
	dir := "migrations/sqlite"
	if db.Driver == DriverPostgres {
		dialect = goose.DialectPostgres
		dir = "migrations/postgres"
	}
	fsys, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(dialect, db.DB.DB, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

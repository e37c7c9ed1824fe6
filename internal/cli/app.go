package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/caseflow/internal/common"
	"github.com/joseph-ayodele/caseflow/internal/repository"
)

// app bundles what every command needs: configuration, logger and the ledger.
type app struct {
	cfg    *common.Config
	logger *slog.Logger
	db     *repository.DB
	ledger repository.LedgerRepository
	out    io.Writer
}

// newLogger returns a JSON logger for batch runs and a text logger without
// time and level for interactive commands. Logs go to stderr.
func newLogger(w io.Writer, level slog.Level, jsonLogs bool) *slog.Logger {
	if jsonLogs {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func openApp(ctx context.Context, cmd *cobra.Command, jsonLogs bool) (*app, error) {
	cfg, err := common.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.SlogLevel(), jsonLogs)
	slog.SetDefault(logger)

	db, err := repository.Open(ctx, repository.Config{
		Driver:           cfg.Database.Driver,
		DSN:              cfg.Database.DSN,
		MaxConns:         cfg.Database.MaxConns,
		MinConns:         cfg.Database.MinConns,
		MaxConnLifetime:  cfg.Database.MaxConnLifetime,
		MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
		DialTimeout:      cfg.Database.DialTimeout,
		StatementTimeout: cfg.Database.StatementTimeout,
		PingAttempts:     cfg.Database.PingAttempts,
	}, logger)
	if err != nil {
		return nil, common.PersistenceError("open ledger", err)
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		ledger: repository.NewLedgerRepository(db.DB, logger),
		out:    cmd.OutOrStdout(),
	}, nil
}

func (a *app) Close() {
	a.db.Close(a.logger)
}

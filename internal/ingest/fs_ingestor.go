package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/joseph-ayodele/caseflow/constants"
	"github.com/joseph-ayodele/caseflow/internal/common"
	"github.com/joseph-ayodele/caseflow/internal/repository"
)

// FSIngestor reads batch files from the local filesystem into the ledger.
type FSIngestor struct {
	Ledger repository.LedgerRepository
	logger *slog.Logger
}

func NewFSIngestor(ledger repository.LedgerRepository, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{Ledger: ledger, logger: logger}
}

// IngestFile upserts every valid record of path. Invalid records are reported
// per line and skipped; a ledger failure stops the ingest.
func (i *FSIngestor) IngestFile(ctx context.Context, path string) ([]IngestionResult, Stats, error) {
	var stats Stats

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, stats, err
	}
	if !AllowedExt(filepath.Ext(abs)) {
		i.logger.Warn("ingest.file.unsupported", "path", abs)
		return nil, stats, fmt.Errorf("%s: unsupported or missing extension: %w", abs, common.ErrInvalidInput)
	}

	records, err := ReadFile(abs)
	if err != nil {
		i.logger.Error("ingest.file.read_failed", "path", abs, "err", err)
		return nil, stats, err
	}

	results := make([]IngestionResult, 0, len(records))
	for _, rec := range records {
		stats.Records++
		res := IngestionResult{SourcePath: abs, Line: rec.Line, CaseNumber: rec.Request.CaseNumber}

		if err := Validate(rec.Request); err != nil {
			res.Err = err.Error()
			stats.Invalid++
			results = append(results, res)
			i.logger.Warn("ingest.record.invalid", "path", abs, "line", rec.Line, "err", err)
			continue
		}

		inserted, err := i.Ledger.UpsertRequest(ctx, rec.Request)
		if err != nil {
			return results, stats, err
		}
		res.Inserted = inserted
		if inserted {
			stats.Inserted++
		} else {
			stats.Updated++
		}
		results = append(results, res)
	}

	i.logger.Info("ingest.file.done",
		"path", abs,
		"format", constants.MapExtToFormat(filepath.Ext(abs)),
		"records", stats.Records,
		"inserted", stats.Inserted,
		"updated", stats.Updated,
		"invalid", stats.Invalid,
	)
	return results, stats, nil
}

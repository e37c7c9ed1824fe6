package ingest

import (
	"context"

	"github.com/joseph-ayodele/caseflow/internal/entity"
)

// Record is one input line or spreadsheet row. Line is 1-based in the source.
type Record struct {
	Line    int
	Request entity.TransferRequest
}

// IngestionResult is the per-record ingest outcome.
type IngestionResult struct {
	SourcePath string
	Line       int
	CaseNumber string
	Inserted   bool
	Err        string
}

// Stats summarizes a file ingest.
type Stats struct {
	Records  uint32
	Inserted uint32
	Updated  uint32
	Invalid  uint32
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Failed    uint32
	Records   Stats
}

func (s *Stats) add(o Stats) {
	s.Records += o.Records
	s.Inserted += o.Inserted
	s.Updated += o.Updated
	s.Invalid += o.Invalid
}

// Ingestor is the behavior the CLI depends on.
type Ingestor interface {
	// IngestFile reads one batch file into the ledger.
	IngestFile(ctx context.Context, path string) ([]IngestionResult, Stats, error)
	// IngestDirectory ingests all batch files under root.
	IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}

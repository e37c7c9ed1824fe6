package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/caseflow/internal/common"
)

// IngestDirectory walks root, skips hidden entries if requested, and ingests every
// batch file in lexical path order. A failing file is reported and the walk goes on;
// ledger failures stop it.
func (i *FSIngestor) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	var stats DirStats
	if strings.TrimSpace(root) == "" {
		return nil, stats, errors.New("root path is required")
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		stats.Scanned++
		if walkErr != nil {
			return walkErr
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("walk: %w", err)
	}
	sort.Strings(files)

	var results []IngestionResult
	for _, path := range files {
		rs, st, err := i.IngestFile(ctx, path)
		results = append(results, rs...)
		stats.Records.add(st)
		if err != nil {
			if errors.Is(err, common.ErrPersistence) {
				return results, stats, err
			}
			results = append(results, IngestionResult{SourcePath: path, Err: err.Error()})
			stats.Failed++
			continue
		}
		stats.Succeeded++
	}
	return results, stats, nil
}

package ingest

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/caseflow/internal/common"
	"github.com/joseph-ayodele/caseflow/internal/repository"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newLedger(t *testing.T) repository.LedgerRepository {
	t.Helper()
	db, err := repository.Open(context.Background(), repository.Config{
		Driver:       repository.DriverSQLite,
		DSN:          filepath.Join(t.TempDir(), "ledger.db"),
		PingAttempts: 1,
	}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(quietLogger()) })
	return repository.NewLedgerRepository(db.DB, quietLogger())
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestIngestFile_UpsertsValidRecords(t *testing.T) {
	ctx := context.Background()
	ledger := newLedger(t)
	ing := NewFSIngestor(ledger, quietLogger())
	dir := t.TempDir()

	path := writeFile(t, dir, "batch.txt", "S1,AZ1,AZ2\nS2,AZ3\nS3,AZ5,AZ6\n")
	results, stats, err := ing.IngestFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, Stats{Records: 3, Inserted: 2, Invalid: 1}, stats)
	require.Len(t, results, 3)
	assert.NotEmpty(t, results[1].Err)
	assert.Equal(t, 2, results[1].Line)

	path = writeFile(t, dir, "again.csv", "S1,AZ1,AZ9\n")
	_, stats, err = ing.IngestFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, Stats{Records: 1, Updated: 1}, stats)

	row, err := ledger.Get(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, "AZ9", row.NewOwnerID)
	assert.True(t, row.Pending())
}

func TestIngestFile_UnsupportedExtension(t *testing.T) {
	ing := NewFSIngestor(newLedger(t), quietLogger())
	path := writeFile(t, t.TempDir(), "batch.json", "{}")
	_, _, err := ing.IngestFile(context.Background(), path)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestIngestDirectory(t *testing.T) {
	ctx := context.Background()
	ing := NewFSIngestor(newLedger(t), quietLogger())
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "S1,AZ1,AZ2\n")
	writeFile(t, dir, "b.csv", "S2,AZ1,AZ2\nS1,AZ1,AZ3\n")
	writeFile(t, dir, ".hidden.txt", "S9,AZ1,AZ2\n")
	writeFile(t, dir, "notes.md", "ignored")
	writeFile(t, dir, "broken.xlsx", "not a zip")

	_, stats, err := ing.IngestDirectory(ctx, dir, true)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Matched)
	assert.EqualValues(t, 2, stats.Succeeded)
	assert.EqualValues(t, 1, stats.Failed)
	assert.Equal(t, Stats{Records: 3, Inserted: 2, Updated: 1}, stats.Records)
}

func TestWatch_EmitsNewBatchFiles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dir := t.TempDir()
	existing := writeFile(t, dir, "existing.txt", "S1,AZ1,AZ2\n")

	events, _, err := Watch(ctx, WatchConfig{Dir: dir, InitialScan: true, Debounce: 20 * time.Millisecond}, quietLogger())
	require.NoError(t, err)

	select {
	case p := <-events:
		assert.Equal(t, existing, p)
	case <-time.After(2 * time.Second):
		t.Fatal("no event for existing file")
	}

	writeFile(t, dir, "ignored.md", "x")
	created := writeFile(t, dir, "new.csv", "S2,AZ1,AZ2\n")
	select {
	case p := <-events:
		assert.Equal(t, created, p)
	case <-time.After(2 * time.Second):
		t.Fatal("no event for new file")
	}
}

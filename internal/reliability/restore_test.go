package reliability

import (
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestCheckSQLiteIntegrity_ValidDatabasePasses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "valid.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec("CREATE TABLE bars (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	assert.NoError(t, checkSQLiteIntegrity(path))
}

func TestCheckSQLiteIntegrity_NotASQLiteFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.db")
	require.NoError(t, os.WriteFile(path, []byte("not a sqlite file at all"), 0644))

	assert.Error(t, checkSQLiteIntegrity(path))
}

func TestStageAndApply_RoundTripsArchivedFiles(t *testing.T) {
	sourceDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "bars.db"), []byte("original-bars"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "aggregator_snapshot.msgpack"), []byte("original-snapshot"), 0644))

	backupSvc := NewService(nil, sourceDir, zerolog.New(io.Discard))
	metadata, err := backupSvc.buildMetadata(snapshotFiles)
	require.NoError(t, err)

	archivePath := filepath.Join(t.TempDir(), "backup.tar.gz")
	require.NoError(t, backupSvc.createArchive(archivePath, sourceDir, snapshotFiles, metadata))

	// Simulate a fresh data dir receiving a restore: manually stage (skip the
	// network download step, which Stage would otherwise perform).
	restoreDataDir := t.TempDir()
	restoreSvc := NewRestoreService(nil, restoreDataDir, zerolog.New(io.Discard))
	staging := restoreSvc.stagingDir()
	require.NoError(t, os.MkdirAll(staging, 0755))
	require.NoError(t, extractArchive(archivePath, staging))

	require.NoError(t, os.WriteFile(filepath.Join(restoreDataDir, "bars.db"), []byte("stale-current-bars"), 0644))

	require.NoError(t, restoreSvc.ApplyStaged(context.Background()))

	restored, err := os.ReadFile(filepath.Join(restoreDataDir, "bars.db"))
	require.NoError(t, err)
	assert.Equal(t, "original-bars", string(restored))

	restoredSnapshot, err := os.ReadFile(filepath.Join(restoreDataDir, "aggregator_snapshot.msgpack"))
	require.NoError(t, err)
	assert.Equal(t, "original-snapshot", string(restoredSnapshot))

	// The stale current bars.db should have been preserved, not silently discarded.
	entries, err := os.ReadDir(restoreDataDir)
	require.NoError(t, err)
	foundPreserved := false
	for _, e := range entries {
		if len(e.Name()) > len("bars.db.pre-restore-") && e.Name()[:len("bars.db.pre-restore-")] == "bars.db.pre-restore-" {
			foundPreserved = true
		}
	}
	assert.True(t, foundPreserved, "expected the pre-restore bars.db to be preserved under a timestamp suffix")
}

func TestValidateStaged_SizeMismatchFails(t *testing.T) {
	staging := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staging, "bars.db"), []byte("short"), 0644))

	svc := NewRestoreService(nil, t.TempDir(), zerolog.New(io.Discard))
	err := svc.validateStaged(staging, BackupMetadata{
		Files: []FileMetadata{{Name: "bars.db", SizeBytes: 9999}},
	})
	assert.Error(t, err)
}

func TestValidateStaged_MissingFileFails(t *testing.T) {
	staging := t.TempDir()
	svc := NewRestoreService(nil, t.TempDir(), zerolog.New(io.Discard))
	err := svc.validateStaged(staging, BackupMetadata{
		Files: []FileMetadata{{Name: "bars.db", SizeBytes: 1}},
	})
	assert.Error(t, err)
}

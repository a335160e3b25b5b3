package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// snapshotFiles lists the on-disk state that makes up one backup: the bar store and
// the aggregator's warm-start snapshot. The aggregator snapshot is optional — it may
// not exist yet on a fresh deployment — so its absence is not an error.
var snapshotFiles = []string{"bars.db", "aggregator_snapshot.msgpack"}

// FileMetadata describes one archived file.
type FileMetadata struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
	Checksum  string `json:"checksum"`
}

// BackupMetadata is the manifest stored alongside (and inside) each archive.
type BackupMetadata struct {
	Timestamp time.Time      `json:"timestamp"`
	Version   string         `json:"version"`
	Files     []FileMetadata `json:"files"`
}

// BackupInfo describes one backup object already present in the bucket.
type BackupInfo struct {
	Key       string
	Timestamp time.Time
	SizeBytes int64
}

const backupManifestVersion = "1.0.0"
const minBackupsToKeep = 3

// Service creates, uploads, lists, and prunes bar-store snapshot backups.
type Service struct {
	client  *Client
	dataDir string
	log     zerolog.Logger
}

// NewService builds a Service that archives files under dataDir and ships them
// through client.
func NewService(client *Client, dataDir string, log zerolog.Logger) *Service {
	return &Service{
		client:  client,
		dataDir: dataDir,
		log:     log.With().Str("component", "backup_service").Logger(),
	}
}

// CreateAndUpload archives every present snapshot file, uploads the archive, and
// returns the key it was stored under.
func (s *Service) CreateAndUpload(ctx context.Context) (string, error) {
	start := time.Now()
	key := fmt.Sprintf("marketpulse-backup-%s.tar.gz", time.Now().UTC().Format("20060102-150405"))
	archivePath := filepath.Join(os.TempDir(), key)
	defer os.Remove(archivePath)

	present := make([]string, 0, len(snapshotFiles))
	for _, name := range snapshotFiles {
		if _, err := os.Stat(filepath.Join(s.dataDir, name)); err == nil {
			present = append(present, name)
		}
	}
	if len(present) == 0 {
		return "", fmt.Errorf("reliability: no snapshot files present under %s", s.dataDir)
	}

	metadata, err := s.buildMetadata(present)
	if err != nil {
		return "", err
	}
	if err := s.createArchive(archivePath, s.dataDir, present, metadata); err != nil {
		return "", err
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("reliability: open archive: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("reliability: stat archive: %w", err)
	}

	if err := s.client.Upload(ctx, key, f, info.Size()); err != nil {
		return "", err
	}

	s.log.Info().
		Str("key", key).
		Int64("bytes", info.Size()).
		Dur("duration_ms", time.Since(start)).
		Int("files", len(present)).
		Msg("backup uploaded")

	return key, nil
}

func (s *Service) buildMetadata(files []string) (BackupMetadata, error) {
	metadata := BackupMetadata{
		Timestamp: time.Now().UTC(),
		Version:   backupManifestVersion,
		Files:     make([]FileMetadata, 0, len(files)),
	}
	for _, name := range files {
		path := filepath.Join(s.dataDir, name)
		info, err := os.Stat(path)
		if err != nil {
			return BackupMetadata{}, fmt.Errorf("reliability: stat %s: %w", name, err)
		}
		sum, err := s.calculateChecksum(path)
		if err != nil {
			return BackupMetadata{}, err
		}
		metadata.Files = append(metadata.Files, FileMetadata{
			Name:      name,
			SizeBytes: info.Size(),
			Checksum:  sum,
		})
	}
	return metadata, nil
}

// calculateChecksum returns the "sha256:<hex>"-prefixed digest of path's contents.
func (s *Service) calculateChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("reliability: open %s for checksum: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("reliability: hash %s: %w", path, err)
	}
	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}

// createArchive writes a gzip-compressed tar of files (relative to sourceDir) plus a
// backup-metadata.json manifest to destPath.
func (s *Service) createArchive(destPath, sourceDir string, files []string, metadata BackupMetadata) error {
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("reliability: create archive: %w", err)
	}
	defer out.Close()

	gz := gzip.NewWriter(out)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	for _, name := range files {
		if err := addFileToArchive(tw, filepath.Join(sourceDir, name), name); err != nil {
			return err
		}
	}

	manifest, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("reliability: marshal metadata: %w", err)
	}
	if err := tw.WriteHeader(&tar.Header{
		Name: "backup-metadata.json",
		Mode: 0644,
		Size: int64(len(manifest)),
	}); err != nil {
		return fmt.Errorf("reliability: write metadata header: %w", err)
	}
	if _, err := tw.Write(manifest); err != nil {
		return fmt.Errorf("reliability: write metadata: %w", err)
	}

	return nil
}

func addFileToArchive(tw *tar.Writer, path, archiveName string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reliability: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("reliability: stat %s: %w", path, err)
	}

	if err := tw.WriteHeader(&tar.Header{
		Name: archiveName,
		Mode: 0644,
		Size: info.Size(),
	}); err != nil {
		return fmt.Errorf("reliability: write tar header for %s: %w", archiveName, err)
	}
	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("reliability: write tar body for %s: %w", archiveName, err)
	}
	return nil
}

// backupTimestamp parses the timestamp embedded in a backup key produced by
// CreateAndUpload; a key of unrecognised shape sorts as the zero time.
func backupTimestamp(key string) time.Time {
	const prefix, layout = "marketpulse-backup-", "20060102-150405"
	if len(key) < len(prefix)+len(layout) {
		return time.Time{}
	}
	raw := key[len(prefix) : len(prefix)+len(layout)]
	t, err := time.Parse(layout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ListBackups returns every backup currently in the bucket, newest first.
func (s *Service) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.client.List(ctx, "marketpulse-backup-")
	if err != nil {
		return nil, err
	}
	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		if obj.Key == nil {
			continue
		}
		size := int64(0)
		if obj.Size != nil {
			size = *obj.Size
		}
		backups = append(backups, BackupInfo{
			Key:       *obj.Key,
			Timestamp: backupTimestamp(*obj.Key),
			SizeBytes: size,
		})
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].Timestamp.After(backups[j].Timestamp) })
	return backups, nil
}

// RotateOldBackups deletes backups older than retentionDays, always keeping at least
// minBackupsToKeep regardless of age. retentionDays <= 0 disables pruning entirely.
func (s *Service) RotateOldBackups(ctx context.Context, retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	backups, err := s.ListBackups(ctx)
	if err != nil {
		return err
	}
	if len(backups) <= minBackupsToKeep {
		return nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	deleted := 0
	for i := minBackupsToKeep; i < len(backups); i++ {
		b := backups[i]
		if b.Timestamp.IsZero() || b.Timestamp.After(cutoff) {
			continue
		}
		if err := s.client.Delete(ctx, b.Key); err != nil {
			s.log.Error().Err(err).Str("key", b.Key).Msg("failed to prune old backup")
			continue
		}
		deleted++
	}
	if deleted > 0 {
		s.log.Info().Int("deleted", deleted).Int("retained", len(backups)-deleted).Msg("pruned old backups")
	}
	return nil
}

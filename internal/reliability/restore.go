package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// RestoreService downloads a backup archive and stages it for restoration. Applying
// a staged restore requires a process restart (the bar store file must not be
// swapped out from under an open *sql.DB), so staging and applying are separate
// steps, mirroring the two-phase shape of the backup service it pairs with.
type RestoreService struct {
	client  *Client
	dataDir string
	log     zerolog.Logger
}

// NewRestoreService builds a RestoreService rooted at dataDir.
func NewRestoreService(client *Client, dataDir string, log zerolog.Logger) *RestoreService {
	return &RestoreService{
		client:  client,
		dataDir: dataDir,
		log:     log.With().Str("component", "restore_service").Logger(),
	}
}

func (s *RestoreService) stagingDir() string {
	return filepath.Join(s.dataDir, "restore-staging")
}

// Stage downloads key, extracts it, and validates every archived file against its
// recorded checksum and size before leaving it ready for ApplyStaged.
func (s *RestoreService) Stage(ctx context.Context, key string) error {
	staging := s.stagingDir()
	if err := os.RemoveAll(staging); err != nil {
		return fmt.Errorf("reliability: clean staging dir: %w", err)
	}
	if err := os.MkdirAll(staging, 0755); err != nil {
		return fmt.Errorf("reliability: create staging dir: %w", err)
	}

	archivePath := filepath.Join(staging, key)
	archiveFile, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("reliability: create archive file: %w", err)
	}
	if _, err := s.client.Download(ctx, key, archiveFile); err != nil {
		archiveFile.Close()
		os.RemoveAll(staging)
		return err
	}
	archiveFile.Close()

	if err := extractArchive(archivePath, staging); err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("reliability: extract archive: %w", err)
	}

	metadata, err := readMetadata(filepath.Join(staging, "backup-metadata.json"))
	if err != nil {
		os.RemoveAll(staging)
		return fmt.Errorf("reliability: read manifest: %w", err)
	}
	if err := s.validateStaged(staging, metadata); err != nil {
		os.RemoveAll(staging)
		return err
	}

	s.log.Info().Str("key", key).Int("files", len(metadata.Files)).Msg("restore staged, ready to apply")
	return nil
}

func (s *RestoreService) validateStaged(staging string, metadata BackupMetadata) error {
	for _, fm := range metadata.Files {
		path := filepath.Join(staging, fm.Name)
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("reliability: staged file %s missing: %w", fm.Name, err)
		}
		if info.Size() != fm.SizeBytes {
			return fmt.Errorf("reliability: staged file %s size mismatch: expected %d, got %d", fm.Name, fm.SizeBytes, info.Size())
		}
		if fm.Checksum != "" {
			sum, err := (&Service{}).calculateChecksum(path)
			if err != nil {
				return fmt.Errorf("reliability: checksum staged file %s: %w", fm.Name, err)
			}
			if sum != fm.Checksum {
				return fmt.Errorf("reliability: staged file %s checksum mismatch: expected %s, got %s", fm.Name, fm.Checksum, sum)
			}
		}
		if strings.HasSuffix(fm.Name, ".db") {
			if err := checkSQLiteIntegrity(path); err != nil {
				return fmt.Errorf("reliability: staged file %s failed integrity check: %w", fm.Name, err)
			}
		}
	}
	return nil
}

// ApplyStaged copies every staged file into dataDir, first moving the current copy
// aside with a timestamp suffix so a bad restore can still be recovered by hand.
// Callers must restart the process afterward so any already-open database handle
// reopens against the restored file.
func (s *RestoreService) ApplyStaged(ctx context.Context) error {
	staging := s.stagingDir()
	metadata, err := readMetadata(filepath.Join(staging, "backup-metadata.json"))
	if err != nil {
		return fmt.Errorf("reliability: no valid staged restore: %w", err)
	}

	suffix := time.Now().UTC().Format("20060102-150405")
	for _, fm := range metadata.Files {
		current := filepath.Join(s.dataDir, fm.Name)
		if _, err := os.Stat(current); err == nil {
			if err := os.Rename(current, current+".pre-restore-"+suffix); err != nil {
				return fmt.Errorf("reliability: preserve current %s: %w", fm.Name, err)
			}
		}
		if err := copyFile(filepath.Join(staging, fm.Name), current); err != nil {
			return fmt.Errorf("reliability: apply restored %s: %w", fm.Name, err)
		}
		s.log.Info().Str("file", fm.Name).Msg("restored")
	}

	if err := os.RemoveAll(staging); err != nil {
		s.log.Error().Err(err).Msg("failed to remove staging dir after restore")
	}
	return nil
}

func checkSQLiteIntegrity(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity_check query: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity_check reported %q", result)
	}
	return nil
}

func extractArchive(archivePath, destDir string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return err
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	cleanDest := filepath.Clean(destDir) + string(os.PathSeparator)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		target := filepath.Join(destDir, header.Name)
		if !strings.HasPrefix(target, cleanDest) {
			return fmt.Errorf("unsafe path in archive: %s", header.Name)
		}
		if header.Typeflag != tar.TypeReg {
			continue
		}
		out, err := os.Create(target)
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, tr); err != nil {
			out.Close()
			return err
		}
		out.Close()
	}
	return nil
}

func readMetadata(path string) (BackupMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return BackupMetadata{}, err
	}
	defer f.Close()

	var metadata BackupMetadata
	if err := json.NewDecoder(f).Decode(&metadata); err != nil {
		return BackupMetadata{}, err
	}
	return metadata, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

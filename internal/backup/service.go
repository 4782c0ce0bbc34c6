package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/2beens/calorietracker/internal/telemetry/tracing"
	"github.com/2beens/calorietracker/pkg"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/multierr"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=backup_test

const (
	archivePrefix = "calorietracker-backup-"
	archiveExt    = ".tar.gz"
)

type uploader interface {
	Upload(ctx context.Context, name string, content io.Reader) (fileId string, err error)
}

// Service archives the data directory (registry and all user logs).
type Service struct {
	dataDir   string
	backupDir string
	uploader  uploader
}

// NewService creates a backup service. A nil uploader keeps backups local only.
func NewService(dataDir, backupDir string, uploader uploader) *Service {
	return &Service{
		dataDir:   dataDir,
		backupDir: backupDir,
		uploader:  uploader,
	}
}

// ArchiveName is the file name of a backup taken at t.
func ArchiveName(t time.Time) string {
	return fmt.Sprintf("%s%d%s", archivePrefix, t.Unix(), archiveExt)
}

// Backup writes a new archive into the backup dir and uploads it, if an
// uploader is set. The path of the local archive is returned.
func (s *Service) Backup(ctx context.Context, now time.Time) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "backup.run")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	exists, err := pkg.PathExists(s.dataDir, true)
	if err != nil {
		return "", fmt.Errorf("check data dir: %w", err)
	}
	if !exists {
		return "", fmt.Errorf("data dir %s does not exist", s.dataDir)
	}

	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	archivePath := filepath.Join(s.backupDir, ArchiveName(now))
	span.SetAttributes(attribute.String("archive", archivePath))
	if err := s.writeArchive(archivePath); err != nil {
		return "", fmt.Errorf("write archive: %w", err)
	}
	log.Infof("backup: archive created [%s]", archivePath)

	if s.uploader == nil {
		return archivePath, nil
	}

	if err := s.upload(ctx, archivePath); err != nil {
		return archivePath, fmt.Errorf("upload archive: %w", err)
	}

	return archivePath, nil
}

func (s *Service) writeArchive(archivePath string) (err error) {
	f, err := os.OpenFile(archivePath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	return pkg.Compress(s.dataDir, f, isBackupArchive)
}

func (s *Service) upload(ctx context.Context, archivePath string) (err error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, f.Close())
	}()

	fileId, err := s.uploader.Upload(ctx, filepath.Base(archivePath), f)
	if err != nil {
		return err
	}
	log.Infof("backup: archive uploaded [%s]: %s", filepath.Base(archivePath), fileId)
	return nil
}

// isBackupArchive keeps earlier backups out of new ones when the backup dir
// lives inside the data dir.
func isBackupArchive(path string, _ os.FileInfo) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, archivePrefix) && strings.HasSuffix(name, archiveExt)
}

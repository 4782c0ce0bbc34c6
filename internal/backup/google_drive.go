package backup

import (
	"context"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const (
	rootBackupsFolderName = "calorietracker-backup"
	folderMimeType        = "application/vnd.google-apps.folder"
)

// GoogleDriveUploader stores backup archives in a single Google Drive folder.
type GoogleDriveUploader struct {
	service         *drive.Service
	backupsFolderId string
}

func NewGoogleDriveUploader(ctx context.Context, credentialsJson []byte) (*GoogleDriveUploader, error) {
	// https://github.com/googleapis/google-api-go-client/blob/master/drive/v3/drive-gen.go
	driveService, err := drive.NewService(ctx, option.WithCredentialsJSON(credentialsJson))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve drive client: %w", err)
	}

	u := &GoogleDriveUploader{
		service: driveService,
	}

	u.backupsFolderId, err = u.findOrCreateBackupsFolder(ctx)
	if err != nil {
		return nil, err
	}
	log.Debugf("backups folder ID: %s", u.backupsFolderId)

	return u, nil
}

func (u *GoogleDriveUploader) findOrCreateBackupsFolder(ctx context.Context) (string, error) {
	rootFolderQuery := fmt.Sprintf("mimeType = '%s' and trashed = false and name = '%s'", folderMimeType, rootBackupsFolderName)
	folders, err := u.service.
		Files.List().
		Q(rootFolderQuery).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve files: %w", err)
	}

	switch len(folders.Files) {
	case 0:
		log.Println("root backups folder not found, creating ...")
	case 1:
		return folders.Files[0].Id, nil
	default:
		rbf := folders.Files[0]
		log.Warnf("found %d root backups folders, will take the first one: %s", len(folders.Files), rbf.Id)
		return rbf.Id, nil
	}

	created, err := u.service.
		Files.Create(&drive.File{
			Name:     rootBackupsFolderName,
			MimeType: folderMimeType,
		}).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("create root backups folder: %w", err)
	}
	log.Printf("new root backups folder created: %s", created.Id)

	return created.Id, nil
}

func (u *GoogleDriveUploader) Upload(ctx context.Context, name string, content io.Reader) (string, error) {
	created, err := u.service.
		Files.Create(&drive.File{
			Name:     name,
			MimeType: "application/gzip",
			Parents:  []string{u.backupsFolderId},
		}).
		Fields("id, parents").
		Media(content).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	return created.Id, nil
}

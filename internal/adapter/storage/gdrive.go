package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/semmidev/custos/internal/config"
	"github.com/semmidev/custos/internal/domain"
)

type GDriveStorage struct {
	service  *drive.Service
	folderID string
}

func NewGDrive(cfg *config.DestinationConfig) (*GDriveStorage, error) {
	ctx := context.Background()

	service, err := drive.NewService(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &GDriveStorage{
		service:  service,
		folderID: cfg.FolderID,
	}, nil
}

func (g *GDriveStorage) findFile(ctx context.Context, name string) (*drive.File, error) {
	query := fmt.Sprintf("'%s' in parents and name='%s' and trashed=false", g.folderID, name)

	fileList, err := g.service.Files.List().
		Q(query).
		Fields("files(id, name, size, modifiedTime)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to find file: %w", err)
	}

	if len(fileList.Files) == 0 {
		return nil, nil
	}
	return fileList.Files[0], nil
}

func (g *GDriveStorage) Upload(ctx context.Context, localPath string, remoteName string) (*domain.UploadResult, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	fileMetadata := &drive.File{
		Name:    remoteName,
		Parents: []string{g.folderID},
	}

	_, err = g.service.Files.Create(fileMetadata).
		Media(file).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to upload to gdrive: %w", err)
	}

	return &domain.UploadResult{RemotePath: remoteName, Size: info.Size()}, nil
}

func (g *GDriveStorage) Download(ctx context.Context, remotePath string, localPath string) error {
	found, err := g.findFile(ctx, remotePath)
	if err != nil {
		return err
	}
	if found == nil {
		return fmt.Errorf("file not found: %s", remotePath)
	}

	resp, err := g.service.Files.Get(found.Id).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("failed to download from gdrive: %w", err)
	}
	defer resp.Body.Close()

	dest, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file: %w", err)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, resp.Body); err != nil {
		return fmt.Errorf("failed to copy: %w", err)
	}

	return nil
}

func (g *GDriveStorage) List(ctx context.Context) ([]domain.FileInfo, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false", g.folderID)

	var files []domain.FileInfo
	pageToken := ""
	for {
		call := g.service.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name, size, modifiedTime)").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		fileList, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("failed to list files: %w", err)
		}

		for _, f := range fileList.Files {
			modTime, err := time.Parse(time.RFC3339, f.ModifiedTime)
			if err != nil {
				modTime = time.Time{}
			}
			files = append(files, domain.FileInfo{
				Name:    f.Name,
				Path:    f.Name,
				Size:    f.Size,
				ModTime: modTime,
			})
		}

		pageToken = fileList.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return files, nil
}

func (g *GDriveStorage) Read(ctx context.Context, path string) ([]byte, error) {
	found, err := g.findFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, nil
	}

	resp, err := g.service.Files.Get(found.Id).Context(ctx).Download()
	if err != nil {
		if apiErr, ok := err.(*googleapi.Error); ok && apiErr.Code == 404 {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from gdrive: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gdrive file body: %w", err)
	}
	return data, nil
}

func (g *GDriveStorage) Write(ctx context.Context, path string, data []byte) error {
	// Drive has no in-place overwrite by name; drop the stale copy first.
	if found, err := g.findFile(ctx, path); err == nil && found != nil {
		_ = g.service.Files.Delete(found.Id).Context(ctx).Do()
	}

	fileMetadata := &drive.File{
		Name:    path,
		Parents: []string{g.folderID},
	}

	_, err := g.service.Files.Create(fileMetadata).
		Media(bytes.NewReader(data)).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write to gdrive: %w", err)
	}

	return nil
}

func (g *GDriveStorage) Delete(ctx context.Context, path string) error {
	found, err := g.findFile(ctx, path)
	if err != nil {
		return err
	}
	if found == nil {
		return fmt.Errorf("file not found: %s", path)
	}

	if err := g.service.Files.Delete(found.Id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

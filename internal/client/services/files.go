// Package services contains the CLI's application services. Files are
// sealed before they leave the process and opened only after the server
// has released the content key; plaintext never crosses the wire.
package services

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/gophshare/internal/client/client"
	"github.com/dmitrijs2005/gophshare/internal/client/models"
	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/cryptox"
	"github.com/dmitrijs2005/gophshare/internal/filex"
	"github.com/dmitrijs2005/gophshare/internal/logging"
)

// FilesAPI is the part of the server API used for file transfer.
type FilesAPI interface {
	Upload(ctx context.Context, in client.UploadRequest) (*models.File, error)
	ListFiles(ctx context.Context) ([]models.File, error)
	Download(ctx context.Context, fileID, linkToken string) (*models.Payload, error)
	Preview(ctx context.Context, fileID, linkToken string) (*models.Payload, error)
	DeleteFile(ctx context.Context, fileID string) error
}

// Plaintext is a decrypted file held in memory.
type Plaintext struct {
	FileName    string
	ContentType string
	Data        []byte
}

type FileService struct {
	api         FilesAPI
	downloadDir string
	logger      logging.Logger
}

func NewFileService(api FilesAPI, downloadDir string, logger logging.Logger) *FileService {
	return &FileService{api: api, downloadDir: downloadDir, logger: logger.With("module", "file_service")}
}

// Upload encrypts the file at path under a fresh content key and sends the
// envelope together with the key.
func (s *FileService) Upload(ctx context.Context, path string) (*models.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	defer common.WipeByteArray(data)

	key := cryptox.GenerateContentKey()
	defer key.Wipe()

	envelope, err := cryptox.Seal(data, key)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	raw := key.Bytes()
	defer common.WipeByteArray(raw)

	f, err := s.api.Upload(ctx, client.UploadRequest{
		FileName:    filepath.Base(path),
		ContentType: contentType(path, data),
		Size:        int64(len(data)),
		ContentKey:  raw,
		Envelope:    envelope,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug(ctx, "file uploaded", "file_id", f.ID, "size", f.FileSize)
	return f, nil
}

func (s *FileService) List(ctx context.Context) ([]models.File, error) {
	return s.api.ListFiles(ctx)
}

// Download fetches and decrypts a file, then writes it to out. An empty out
// means the configured download directory; an existing directory keeps the
// server-side file name. linkToken is optional.
func (s *FileService) Download(ctx context.Context, fileID, out, linkToken string) (string, error) {
	p, err := s.api.Download(ctx, fileID, linkToken)
	if err != nil {
		return "", err
	}

	plaintext, err := open(p)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(plaintext)

	dir, name := s.target(out, p.FileName)
	if dir, err = filex.EnsureDir(dir); err != nil {
		return "", err
	}
	path, err := filex.WriteFileAtomic(dir, name, plaintext)
	if err != nil {
		return "", err
	}
	s.logger.Debug(ctx, "file downloaded", "file_id", fileID, "path", path)
	return path, nil
}

// Preview decrypts a file into memory only.
func (s *FileService) Preview(ctx context.Context, fileID, linkToken string) (*Plaintext, error) {
	p, err := s.api.Preview(ctx, fileID, linkToken)
	if err != nil {
		return nil, err
	}
	plaintext, err := open(p)
	if err != nil {
		return nil, err
	}
	return &Plaintext{FileName: p.FileName, ContentType: p.ContentType, Data: plaintext}, nil
}

func (s *FileService) Delete(ctx context.Context, fileID string) error {
	return s.api.DeleteFile(ctx, fileID)
}

func (s *FileService) target(out, serverName string) (dir, name string) {
	if out == "" {
		return s.downloadDir, serverName
	}
	if fi, err := os.Stat(out); err == nil && fi.IsDir() {
		return out, serverName
	}
	return filepath.Dir(out), filepath.Base(out)
}

// open decrypts a payload and wipes the released key. An integrity failure
// never yields partial plaintext.
func open(p *models.Payload) ([]byte, error) {
	key, err := cryptox.ImportContentKey(p.ContentKey)
	common.WipeByteArray(p.ContentKey)
	if err != nil {
		return nil, err
	}
	defer key.Wipe()

	plaintext, err := cryptox.Open(p.Envelope, key)
	if err != nil {
		if errors.Is(err, common.ErrIntegrity) {
			return nil, err
		}
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

func contentType(path string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

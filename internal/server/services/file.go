package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/cryptox"
	"github.com/dmitrijs2005/gophshare/internal/logging"
	"github.com/dmitrijs2005/gophshare/internal/server/access"
	"github.com/dmitrijs2005/gophshare/internal/server/cache"
	"github.com/dmitrijs2005/gophshare/internal/server/models"
	"github.com/dmitrijs2005/gophshare/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophshare/internal/server/storage"
	"github.com/dmitrijs2005/gophshare/internal/timex"
	"github.com/google/uuid"
)

const defaultContentType = "application/octet-stream"

// UploadInput is a client-encrypted file as received by the server.
type UploadInput struct {
	FileName    string
	ContentType string
	Size        int64
	ContentKey  []byte
	// Envelope is nonce || ciphertext || tag.
	Envelope []byte
}

// FileService stores, lists and releases encrypted files.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       storage.BlobStore
	cache       *cache.FileCache
	clock       timex.Clock
	logger      logging.Logger
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, blobs storage.BlobStore, fc *cache.FileCache, logger logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: m,
		blobs:       blobs,
		cache:       fc,
		clock:       timex.RealClock{},
		logger:      logger,
	}
}

// Upload stores the envelope and records the file owned by caller.
func (s *FileService) Upload(ctx context.Context, caller *models.Principal, in UploadInput) (*models.File, error) {
	if err := access.CanUpload(caller); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.FileName)
	if name == "" {
		return nil, fmt.Errorf("%w: file name is required", common.ErrorValidation)
	}
	if _, err := cryptox.ImportContentKey(in.ContentKey); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	nonce, _, err := cryptox.SplitEnvelope(in.Envelope)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed envelope", common.ErrorValidation)
	}

	contentType := in.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	file := &models.File{
		ID:          uuid.NewString(),
		OwnerID:     caller.UserID,
		OwnerName:   caller.UserName,
		FileName:    name,
		ContentType: contentType,
		Size:        in.Size,
		StorageKey:  storage.NewStorageKey(caller.UserID, s.clock.Now()),
		ContentKey:  append([]byte(nil), in.ContentKey...),
		Nonce:       append([]byte(nil), nonce...),
	}

	if err := s.blobs.Put(ctx, file.StorageKey, in.Envelope, defaultContentType); err != nil {
		return nil, fmt.Errorf("error storing blob: %w", err)
	}

	if err := s.repomanager.Files(s.db).Create(ctx, file); err != nil {
		if delErr := s.blobs.Delete(ctx, file.StorageKey); delErr != nil {
			s.logger.Warn(ctx, "orphaned blob after failed insert", "storage_key", file.StorageKey, "error", delErr)
		}
		return nil, fmt.Errorf("error creating file: %w", err)
	}

	s.logger.Info(ctx, "file uploaded", "file_id", file.ID, "owner_id", file.OwnerID, "size", file.Size)
	return file, nil
}

// List returns the files visible to caller: admins see everything, regular
// users their own plus shared, guests only shared.
func (s *FileService) List(ctx context.Context, caller *models.Principal) ([]*models.FileAccess, error) {
	repo := s.repomanager.Files(s.db)

	var (
		list []*models.FileAccess
		err  error
	)
	switch access.ListScopeFor(caller.Role) {
	case access.ScopeAll:
		list, err = repo.ListAll(ctx)
	case access.ScopeOwnedAndShared:
		list, err = repo.ListOwnedOrShared(ctx, caller.UserID)
	default:
		list, err = repo.ListSharedWith(ctx, caller.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("error listing files: %w", err)
	}
	if list == nil {
		list = []*models.FileAccess{}
	}
	return list, nil
}

// Download releases envelope and content key when caller may download.
// linkToken, when set, scopes the request to a share link's permission.
func (s *FileService) Download(ctx context.Context, caller *models.Principal, fileID, linkToken string) (*models.FilePayload, error) {
	return s.fetch(ctx, caller, fileID, linkToken, models.ActionDownload)
}

// Preview is Download for the preview action; view permission suffices.
func (s *FileService) Preview(ctx context.Context, caller *models.Principal, fileID, linkToken string) (*models.FilePayload, error) {
	return s.fetch(ctx, caller, fileID, linkToken, models.ActionPreview)
}

// Delete removes the file, its grants, links and blob. Owner or admin only.
func (s *FileService) Delete(ctx context.Context, caller *models.Principal, fileID string) error {
	file, err := loadFile(ctx, s.repomanager.Files(s.db), s.cache, fileID)
	if err != nil {
		return err
	}
	if err := access.CanManage(caller, file); err != nil {
		return err
	}

	if err := s.repomanager.Files(s.db).Delete(ctx, fileID); err != nil {
		return fmt.Errorf("error deleting file: %w", err)
	}
	if s.cache != nil {
		s.cache.Delete(fileID)
	}
	if err := s.blobs.Delete(ctx, file.StorageKey); err != nil && !errors.Is(err, common.ErrorNotFound) {
		s.logger.Warn(ctx, "blob delete failed", "storage_key", file.StorageKey, "error", err)
	}

	s.logger.Info(ctx, "file deleted", "file_id", fileID, "by", caller.UserID)
	return nil
}

func (s *FileService) fetch(ctx context.Context, caller *models.Principal, fileID, linkToken string, action models.Action) (*models.FilePayload, error) {
	file, err := loadFile(ctx, s.repomanager.Files(s.db), s.cache, fileID)
	if err != nil {
		return nil, err
	}

	grant, err := s.permissionFor(ctx, caller, file, linkToken)
	if err != nil {
		return nil, err
	}

	if err := access.Authorize(caller, file, grant, action); err != nil {
		s.logger.Warn(ctx, "access denied", "file_id", fileID, "user_id", caller.UserID, "action", action.String())
		return nil, err
	}

	envelope, err := s.blobs.Get(ctx, file.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("error reading blob: %w", err)
	}

	return &models.FilePayload{
		File:       file,
		Envelope:   envelope,
		ContentKey: append([]byte(nil), file.ContentKey...),
	}, nil
}

// permissionFor finds the permission caller holds on file through a link
// (when linkToken is set) or a direct grant. Owners and admins need none.
func (s *FileService) permissionFor(ctx context.Context, caller *models.Principal, file *models.File, linkToken string) (*models.Permission, error) {
	if linkToken != "" {
		link, err := s.repomanager.ShareLinks(s.db).Find(ctx, linkToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return nil, common.ErrForbidden
			}
			return nil, fmt.Errorf("error loading share link: %w", err)
		}
		if link.FileID != file.ID {
			return nil, common.ErrForbidden
		}
		if !s.clock.Now().Before(link.ExpiresAt) {
			return nil, common.ErrExpiredLink
		}
		perm := link.Permission
		return &perm, nil
	}

	if caller.Role == models.RoleAdmin || caller.UserID == file.OwnerID {
		return nil, nil
	}

	g, err := s.repomanager.Shares(s.db).Find(ctx, file.ID, caller.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("error loading grant: %w", err)
	}
	perm := g.Permission
	return &perm, nil
}

type fileGetter interface {
	GetByID(ctx context.Context, id string) (*models.File, error)
}

// loadFile resolves a file by id. Ids that are not UUIDs cannot exist and
// are reported as not found without a repository round trip.
func loadFile(ctx context.Context, repo fileGetter, fc *cache.FileCache, id string) (*models.File, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}
	if fc != nil {
		if f, ok := fc.Get(id); ok {
			return f, nil
		}
	}
	f, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading file: %w", err)
	}
	if fc != nil {
		fc.Set(f)
	}
	return f, nil
}

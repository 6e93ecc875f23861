package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/logging"
	"github.com/dmitrijs2005/gophshare/internal/server/access"
	"github.com/dmitrijs2005/gophshare/internal/server/cache"
	"github.com/dmitrijs2005/gophshare/internal/server/models"
	"github.com/dmitrijs2005/gophshare/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophshare/internal/timex"
)

const (
	shareTokenBytes        = 32
	DefaultLinkExpiryHours = 24
)

// ShareService manages per-user grants and expiring share links.
type ShareService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cache       *cache.FileCache
	clock       timex.Clock
	logger      logging.Logger
}

func NewShareService(db *sql.DB, m repomanager.RepositoryManager, fc *cache.FileCache, logger logging.Logger) *ShareService {
	return &ShareService{
		db:          db,
		repomanager: m,
		cache:       fc,
		clock:       timex.RealClock{},
		logger:      logger,
	}
}

// GrantShare gives the user with granteeEmail perm on the file. Granting
// again updates the permission; there is never more than one grant per
// (file, grantee). Only the owner or an admin may grant.
func (s *ShareService) GrantShare(ctx context.Context, caller *models.Principal, fileID, granteeEmail string, perm models.Permission) (*models.ShareGrant, error) {
	if _, err := models.ParsePermission(string(perm)); err != nil || perm == "" {
		return nil, fmt.Errorf("%w: invalid permission", common.ErrorValidation)
	}

	file, err := s.managedFile(ctx, caller, fileID)
	if err != nil {
		return nil, err
	}

	grantee, err := s.repomanager.Users(s.db).GetByEmail(ctx, strings.TrimSpace(granteeEmail))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("grantee %w", common.ErrorNotFound)
		}
		return nil, fmt.Errorf("error loading grantee: %w", err)
	}
	if grantee.ID == file.OwnerID {
		return nil, fmt.Errorf("%w: cannot share a file with its owner", common.ErrorValidation)
	}

	grant, err := s.repomanager.Shares(s.db).Upsert(ctx, &models.ShareGrant{
		FileID:     file.ID,
		GranteeID:  grantee.ID,
		Permission: perm,
	})
	if err != nil {
		return nil, fmt.Errorf("error saving grant: %w", err)
	}
	grant.GranteeName = grantee.UserName
	grant.GranteeEmail = grantee.Email

	s.logger.Info(ctx, "file shared", "file_id", file.ID, "grantee_id", grantee.ID, "permission", string(perm))
	return grant, nil
}

// ListShares returns every grant on the file. Owner or admin only.
func (s *ShareService) ListShares(ctx context.Context, caller *models.Principal, fileID string) ([]*models.ShareGrant, error) {
	file, err := s.managedFile(ctx, caller, fileID)
	if err != nil {
		return nil, err
	}
	grants, err := s.repomanager.Shares(s.db).ListByFile(ctx, file.ID)
	if err != nil {
		return nil, fmt.Errorf("error listing grants: %w", err)
	}
	return grants, nil
}

// CreateShareLink mints an unguessable token conferring perm on the file
// until now + hours. hours <= 0 yields a link that is already expired.
func (s *ShareService) CreateShareLink(ctx context.Context, caller *models.Principal, fileID string, hours int, perm models.Permission) (*models.ShareLink, error) {
	if _, err := models.ParsePermission(string(perm)); err != nil || perm == "" {
		return nil, fmt.Errorf("%w: invalid permission", common.ErrorValidation)
	}

	file, err := s.managedFile(ctx, caller, fileID)
	if err != nil {
		return nil, err
	}

	token, err := common.MakeRandURLToken(shareTokenBytes)
	if err != nil {
		return nil, common.ErrorInternal
	}

	if hours < 0 {
		hours = 0
	}
	link := &models.ShareLink{
		Token:      token,
		FileID:     file.ID,
		CreatedBy:  caller.UserID,
		Permission: perm,
		ExpiresAt:  s.clock.Now().Add(time.Duration(hours) * time.Hour),
	}
	if err := s.repomanager.ShareLinks(s.db).Create(ctx, link); err != nil {
		return nil, fmt.Errorf("error saving share link: %w", err)
	}

	s.logger.Info(ctx, "share link created", "file_id", file.ID, "permission", string(perm), "expires_at", link.ExpiresAt)
	return link, nil
}

// ResolveShareLink redeems token for caller. Unknown tokens yield
// common.ErrorNotFound and expired ones common.ErrExpiredLink. The result
// carries file metadata and the link permission, never the content key.
//
// Redeeming records a grant for caller so the file appears in their
// listing. An existing download grant is not downgraded by a view link.
func (s *ShareService) ResolveShareLink(ctx context.Context, caller *models.Principal, token string) (*models.ResolvedLink, error) {
	link, err := s.repomanager.ShareLinks(s.db).Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error loading share link: %w", err)
	}
	if !s.clock.Now().Before(link.ExpiresAt) {
		return nil, common.ErrExpiredLink
	}

	file, err := loadFile(ctx, s.repomanager.Files(s.db), s.cache, link.FileID)
	if err != nil {
		return nil, err
	}

	if caller.Role != models.RoleAdmin && caller.UserID != file.OwnerID {
		if err := s.recordRedemption(ctx, caller, file, link.Permission); err != nil {
			return nil, err
		}
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, caller.UserID)
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	meta := *file
	meta.ContentKey = nil

	return &models.ResolvedLink{
		File:       &meta,
		Permission: link.Permission,
		ExpiresAt:  link.ExpiresAt,
		SharedWith: user,
	}, nil
}

// RevokeShareLink deletes a link before it expires. Owner or admin only.
func (s *ShareService) RevokeShareLink(ctx context.Context, caller *models.Principal, token string) error {
	repo := s.repomanager.ShareLinks(s.db)
	link, err := repo.Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error loading share link: %w", err)
	}
	if _, err := s.managedFile(ctx, caller, link.FileID); err != nil {
		return err
	}
	if err := repo.Delete(ctx, token); err != nil {
		return fmt.Errorf("error deleting share link: %w", err)
	}
	return nil
}

// PurgeExpiredLinks removes links past their expiry.
func (s *ShareService) PurgeExpiredLinks(ctx context.Context) (int64, error) {
	return s.repomanager.ShareLinks(s.db).DeleteExpired(ctx, s.clock.Now())
}

func (s *ShareService) managedFile(ctx context.Context, caller *models.Principal, fileID string) (*models.File, error) {
	file, err := loadFile(ctx, s.repomanager.Files(s.db), s.cache, fileID)
	if err != nil {
		return nil, err
	}
	if err := access.CanManage(caller, file); err != nil {
		return nil, err
	}
	return file, nil
}

func (s *ShareService) recordRedemption(ctx context.Context, caller *models.Principal, file *models.File, perm models.Permission) error {
	repo := s.repomanager.Shares(s.db)

	existing, err := repo.Find(ctx, file.ID, caller.UserID)
	switch {
	case err == nil:
		if existing.Permission == models.PermissionDownload || existing.Permission == perm {
			return nil
		}
	case !errors.Is(err, common.ErrorNotFound):
		return fmt.Errorf("error loading grant: %w", err)
	}

	if _, err := repo.Upsert(ctx, &models.ShareGrant{FileID: file.ID, GranteeID: caller.UserID, Permission: perm}); err != nil {
		return fmt.Errorf("error saving grant: %w", err)
	}
	return nil
}

package services

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/dmitrijs2005/gophshare/internal/client/models"
	"github.com/dmitrijs2005/gophshare/internal/common"
)

// SharesAPI is the part of the server API used for sharing.
type SharesAPI interface {
	GrantShare(ctx context.Context, fileID, email string, perm models.Permission) (*models.Grant, error)
	ListShares(ctx context.Context, fileID string) ([]models.Grant, error)
	CreateShareLink(ctx context.Context, fileID string, hours int, perm models.Permission) (*models.ShareLink, error)
	ResolveShareLink(ctx context.Context, token string) (*models.ResolvedLink, error)
	RevokeShareLink(ctx context.Context, token string) error
}

type ShareService struct {
	api SharesAPI
}

func NewShareService(api SharesAPI) *ShareService {
	return &ShareService{api: api}
}

// Grant shares fileID with the account registered under email.
func (s *ShareService) Grant(ctx context.Context, fileID, email, permission string) (*models.Grant, error) {
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email %q", common.ErrorValidation, email)
	}
	perm, err := models.ParsePermission(permission)
	if err != nil {
		return nil, err
	}
	return s.api.GrantShare(ctx, fileID, email, perm)
}

func (s *ShareService) List(ctx context.Context, fileID string) ([]models.Grant, error) {
	return s.api.ListShares(ctx, fileID)
}

// CreateLink issues a share link valid for hours. hours <= 0 issues a link
// that is already expired.
func (s *ShareService) CreateLink(ctx context.Context, fileID string, hours int, permission string) (*models.ShareLink, error) {
	perm, err := models.ParsePermission(permission)
	if err != nil {
		return nil, err
	}
	return s.api.CreateShareLink(ctx, fileID, hours, perm)
}

func (s *ShareService) Resolve(ctx context.Context, token string) (*models.ResolvedLink, error) {
	return s.api.ResolveShareLink(ctx, token)
}

func (s *ShareService) Revoke(ctx context.Context, token string) error {
	return s.api.RevokeShareLink(ctx, token)
}

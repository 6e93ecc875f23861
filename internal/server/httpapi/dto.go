package httpapi

import (
	"time"

	"github.com/dmitrijs2005/gophshare/internal/server/models"
	"github.com/dmitrijs2005/gophshare/internal/server/services"
)

type registerRequest struct {
	UserName string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	UserName string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type codeRequest struct {
	Code string `json:"code"`
}

type verifyLoginRequest struct {
	Code     string `json:"code"`
	UserName string `json:"username"`
	MFAToken string `json:"mfaToken"`
}

type shareRequest struct {
	Email      string `json:"email"`
	Permission string `json:"permission"`
}

type shareLinkRequest struct {
	ExpirationHours *int   `json:"expirationHours"`
	Permission      string `json:"permission"`
}

type userDTO struct {
	ID         string `json:"id"`
	UserName   string `json:"username"`
	Email      string `json:"email"`
	Role       string `json:"role,omitempty"`
	MFAEnabled bool   `json:"mfaEnabled"`
}

func toUserDTO(u *models.User) *userDTO {
	if u == nil {
		return nil
	}
	return &userDTO{ID: u.ID, UserName: u.UserName, Email: u.Email, Role: string(u.Role), MFAEnabled: u.MFAEnabled}
}

// sessionResponse covers both login outcomes: a full session or an MFA
// challenge.
type sessionResponse struct {
	MFARequired bool     `json:"mfaRequired,omitempty"`
	UserName    string   `json:"username,omitempty"`
	MFAToken    string   `json:"mfaToken,omitempty"`
	User        *userDTO `json:"user,omitempty"`
	Access      string   `json:"access,omitempty"`
	Refresh     string   `json:"refresh,omitempty"`
}

func toSessionResponse(u *models.User, pair *services.TokenPair) sessionResponse {
	return sessionResponse{User: toUserDTO(u), Access: pair.AccessToken, Refresh: pair.RefreshToken}
}

type accessResponse struct {
	Access string `json:"access"`
}

type mfaSetupResponse struct {
	Secret     string `json:"secret"`
	QRCode     string `json:"qrCode"`
	OTPAuthURL string `json:"otpauthUrl"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type ownerDTO struct {
	ID       string `json:"id"`
	UserName string `json:"username"`
}

type fileDTO struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	FileType   string    `json:"file_type"`
	FileSize   int64     `json:"file_size"`
	UploadedAt time.Time `json:"uploaded_at"`
	Owner      ownerDTO  `json:"user"`
	Permission string    `json:"permission,omitempty"`
}

func toFileDTO(f *models.File, perm models.Permission) fileDTO {
	return fileDTO{
		ID:         f.ID,
		FileName:   f.FileName,
		FileType:   f.ContentType,
		FileSize:   f.Size,
		UploadedAt: f.CreatedAt,
		Owner:      ownerDTO{ID: f.OwnerID, UserName: f.OwnerName},
		Permission: string(perm),
	}
}

type grantDTO struct {
	ID         string   `json:"id"`
	FileID     string   `json:"file_id"`
	SharedWith *userDTO `json:"shared_with"`
	Permission string   `json:"permission"`
}

func toGrantDTO(g *models.ShareGrant) grantDTO {
	return grantDTO{
		ID:         g.ID,
		FileID:     g.FileID,
		SharedWith: &userDTO{ID: g.GranteeID, UserName: g.GranteeName, Email: g.GranteeEmail},
		Permission: string(g.Permission),
	}
}

type shareLinkResponse struct {
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Permission string    `json:"permission"`
}

type resolvedLinkResponse struct {
	File       fileDTO   `json:"file"`
	Permission string    `json:"permission"`
	ExpiresAt  time.Time `json:"expiresAt"`
	SharedWith *userDTO  `json:"sharedWith"`
}

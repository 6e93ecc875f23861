// Package models defines client-side data models used by the GophShare CLI.
// The JSON tags mirror the server's wire format so the same types decode
// API responses.
package models

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophshare/internal/common"
)

// Role is the server-assigned role of a user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleRegular Role = "regular"
	RoleGuest   Role = "guest"
)

// Permission is the capability a grant or share link confers.
type Permission string

const (
	PermissionView     Permission = "view"
	PermissionDownload Permission = "download"
)

// ParsePermission validates s. An empty string yields PermissionView.
func ParsePermission(s string) (Permission, error) {
	switch Permission(s) {
	case "":
		return PermissionView, nil
	case PermissionView, PermissionDownload:
		return Permission(s), nil
	default:
		return "", fmt.Errorf("%w: unknown permission %q", common.ErrorValidation, s)
	}
}

// ParseRole validates s. An empty string yields RoleRegular.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "":
		return RoleRegular, nil
	case RoleAdmin, RoleRegular, RoleGuest:
		return Role(s), nil
	default:
		return "", fmt.Errorf("%w: unknown role %q", common.ErrorValidation, s)
	}
}

// User is the public profile returned by the server.
type User struct {
	ID         string `json:"id"`
	UserName   string `json:"username"`
	Email      string `json:"email"`
	Role       Role   `json:"role,omitempty"`
	MFAEnabled bool   `json:"mfaEnabled"`
}

// Identity is the caller as decoded from the access credential.
type Identity struct {
	UserID     string
	UserName   string
	Email      string
	Role       Role
	MFAEnabled bool
	ExpiresAt  time.Time
}

// Owner is the uploader of a file.
type Owner struct {
	ID       string `json:"id"`
	UserName string `json:"username"`
}

// File is the metadata of a stored file. Permission is set when access
// comes from a grant or link rather than ownership.
type File struct {
	ID         string     `json:"id"`
	FileName   string     `json:"file_name"`
	FileType   string     `json:"file_type"`
	FileSize   int64      `json:"file_size"`
	UploadedAt time.Time  `json:"uploaded_at"`
	Owner      Owner      `json:"user"`
	Permission Permission `json:"permission,omitempty"`
}

// Grant is a direct share of one file with one user.
type Grant struct {
	ID         string     `json:"id"`
	FileID     string     `json:"file_id"`
	SharedWith *User      `json:"shared_with"`
	Permission Permission `json:"permission"`
}

// ShareLink is a bearer token conferring a permission on one file until
// ExpiresAt.
type ShareLink struct {
	Token      string     `json:"token"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	Permission Permission `json:"permission"`
}

// ResolvedLink is the server's answer to a share link lookup.
type ResolvedLink struct {
	File       File       `json:"file"`
	Permission Permission `json:"permission"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	SharedWith *User      `json:"sharedWith"`
}

// Enrollment carries the pending TOTP secret during MFA setup.
type Enrollment struct {
	Secret          string `json:"secret"`
	QRCode          string `json:"qrCode"`
	ProvisioningURI string `json:"otpauthUrl"`
}

// Payload is a downloaded file: the raw envelope and the content key
// released by the server.
type Payload struct {
	FileName    string
	ContentType string
	ContentKey  []byte
	Envelope    []byte
}

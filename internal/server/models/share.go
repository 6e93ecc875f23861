package models

import (
	"fmt"
	"time"
)

// Permission is the capability a grant or link confers.
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
		return "", fmt.Errorf("unknown permission %q", s)
	}
}

// Action is an operation on a file that needs authorization.
type Action int

const (
	ActionPreview Action = iota
	ActionDownload
)

func (a Action) String() string {
	switch a {
	case ActionPreview:
		return "preview"
	case ActionDownload:
		return "download"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// ShareGrant is a persisted (file, grantee, permission) triple. There is at
// most one grant per (file, grantee).
type ShareGrant struct {
	ID           string
	FileID       string
	GranteeID    string
	GranteeName  string
	GranteeEmail string
	Permission   Permission
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ShareLink is a bearer token conferring a permission on one file until
// ExpiresAt.
type ShareLink struct {
	Token      string
	FileID     string
	CreatedBy  string
	Permission Permission
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// ResolvedLink is the result of redeeming a share link.
type ResolvedLink struct {
	File       *File
	Permission Permission
	ExpiresAt  time.Time
	SharedWith *User
}

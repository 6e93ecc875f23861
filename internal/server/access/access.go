// Package access holds the authorization decision table for files. It is
// pure: callers load the file and any grant, then ask for a decision.
package access

import (
	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/server/models"
)

// Authorize decides whether subject may perform action on file. grant is the
// permission subject holds through a share grant or a share link, or nil.
//
// Owners and admins are always allowed. A view permission allows preview
// only; download allows preview and download. Anything else is
// common.ErrForbidden.
func Authorize(subject *models.Principal, file *models.File, grant *models.Permission, action models.Action) error {
	if subject == nil || file == nil {
		return common.ErrForbidden
	}

	switch subject.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleRegular, models.RoleGuest:
	default:
		return common.ErrForbidden
	}

	if file.OwnerID == subject.UserID {
		return nil
	}

	if grant != nil && Permits(*grant, action) {
		return nil
	}

	return common.ErrForbidden
}

// Permits reports whether perm covers action.
func Permits(perm models.Permission, action models.Action) bool {
	switch perm {
	case models.PermissionView:
		return action == models.ActionPreview
	case models.PermissionDownload:
		return action == models.ActionPreview || action == models.ActionDownload
	default:
		return false
	}
}

// CanManage reports whether subject may share, list grants of, link or
// delete file. Only the owner and admins may; others get common.ErrNotOwner.
func CanManage(subject *models.Principal, file *models.File) error {
	if subject == nil || file == nil {
		return common.ErrNotOwner
	}
	if subject.Role == models.RoleAdmin || file.OwnerID == subject.UserID {
		return nil
	}
	return common.ErrNotOwner
}

// CanUpload reports whether subject may store new files. Guests may not.
func CanUpload(subject *models.Principal) error {
	if subject == nil {
		return common.ErrForbidden
	}
	switch subject.Role {
	case models.RoleAdmin, models.RoleRegular:
		return nil
	default:
		return common.ErrForbidden
	}
}

// ListScope describes which files a role sees in its listing.
type ListScope int

const (
	// ScopeAll lists every file.
	ScopeAll ListScope = iota
	// ScopeOwnedAndShared lists own files plus files shared with the caller.
	ScopeOwnedAndShared
	// ScopeSharedOnly lists only files shared with the caller.
	ScopeSharedOnly
)

func ListScopeFor(role models.Role) ListScope {
	switch role {
	case models.RoleAdmin:
		return ScopeAll
	case models.RoleRegular:
		return ScopeOwnedAndShared
	default:
		return ScopeSharedOnly
	}
}

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophshare/internal/client/client"
	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/filex"
)

type usageError string

func (u usageError) Error() string { return "usage: " + string(u) }

func usage(s string) error { return usageError(s) }

// messages maps the errors users can act on to short explanations. The
// first match wins, so more specific errors come first.
var messages = []struct {
	err error
	msg string
}{
	{common.ErrSessionExpired, "Your session has expired, please log in again."},
	{common.ErrMFAEnabled, "Two-factor authentication is already enabled."},
	{common.ErrInvalidState, "That command is not available right now."},
	{common.ErrAuth, "Invalid user name or password."},
	{common.ErrMFA, "Invalid verification code."},
	{common.ErrIntegrity, "The file failed its integrity check and was discarded."},
	{common.ErrInvalidKey, "The server returned an unusable content key."},
	{common.ErrNotOwner, "Only the file's owner or an admin can do that."},
	{common.ErrExpiredLink, "That share link has expired."},
	{common.ErrForbidden, "You do not have access to that file."},
	{common.ErrorNotFound, "Not found."},
	{common.ErrorAlreadyExists, "An account with that name or email already exists."},
	{client.ErrUnavailable, "The server is unreachable, try again later."},
	{filex.ErrUnsafeName, "Refusing to write a file with an unsafe name."},
	{context.DeadlineExceeded, "The request timed out."},
}

// describe turns err into a message for the user.
func describe(err error) string {
	var u usageError
	if errors.As(err, &u) {
		return u.Error()
	}
	if errors.Is(err, common.ErrorValidation) {
		return fmt.Sprintf("Invalid input: %v", err)
	}
	for _, m := range messages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return fmt.Sprintf("Error: %v", err)
}

func (a *App) report(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, common.ErrSessionExpired) && a.expiredNotified.Swap(false) {
		return
	}
	fmt.Fprintln(a.out, describe(err))
}

package cli

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophshare/internal/client/models"
	"github.com/dmitrijs2005/gophshare/internal/client/session"
	"github.com/dmitrijs2005/gophshare/internal/common"
	"github.com/dmitrijs2005/gophshare/internal/filex"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

const (
	maxMFAAttempts = 3
	qrFileName     = "gophshare-mfa.png"
)

// Register prompts for a user name, email, role and password and creates
// the account. A successful registration leaves the user logged in.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	roleText, err := getSimpleText(a.reader, "Enter role (admin, regular, guest) [regular]", a.out)
	if err != nil {
		return err
	}
	role, err := models.ParseRole(strings.ToLower(roleText))
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.session.Register(ctx, userName, email, string(password), role); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Welcome, %s!\n", userName)
	return nil
}

// Login prompts for credentials. When the account has MFA enabled the user
// gets maxMFAAttempts tries at the verification code before the challenge
// is abandoned.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter user name", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	state, err := a.session.Login(ctx, userName, string(password))
	if err != nil {
		return err
	}
	if state == session.StateMFAPending {
		if err := a.verifyMFA(ctx); err != nil {
			return err
		}
	}

	fmt.Fprintln(a.out, "Login successful")
	return nil
}

func (a *App) verifyMFA(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		code, err := getSimpleText(a.reader, "Enter verification code", a.out)
		if err != nil {
			a.session.CancelMFA()
			return err
		}

		err = a.session.VerifyMFA(ctx, code)
		if err == nil {
			return nil
		}
		if !errors.Is(err, common.ErrMFA) || attempt == maxMFAAttempts {
			a.session.CancelMFA()
			return err
		}
		fmt.Fprintf(a.out, "Invalid code, %d attempt(s) left\n", maxMFAAttempts-attempt)
	}
}

// SetupMFA starts TOTP enrollment: it prints the secret, saves the QR code
// to the download directory and asks for a first code. An empty answer
// leaves enrollment pending for "mfa-confirm".
func (a *App) SetupMFA(ctx context.Context) error {
	e, err := a.session.BeginEnrollment(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Secret: %s\nURI:    %s\n", e.Secret, e.ProvisioningURI)
	if path, err := a.saveQRCode(e.QRCode); err != nil {
		fmt.Fprintf(a.out, "Could not save QR code: %v\n", err)
	} else if path != "" {
		fmt.Fprintf(a.out, "QR code saved to %s\n", path)
	}

	code, err := getSimpleText(a.reader, "Enter the code from your authenticator app (empty to confirm later)", a.out)
	if err != nil || code == "" {
		return err
	}
	return a.confirmMFA(ctx, code)
}

// ConfirmMFA finishes a pending enrollment.
func (a *App) ConfirmMFA(ctx context.Context) error {
	code, err := getSimpleText(a.reader, "Enter verification code", a.out)
	if err != nil {
		return err
	}
	return a.confirmMFA(ctx, code)
}

func (a *App) confirmMFA(ctx context.Context, code string) error {
	if err := a.session.ConfirmEnrollment(ctx, code); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Two-factor authentication enabled")
	return nil
}

// saveQRCode writes a "data:image/png;base64," URL to disk.
func (a *App) saveQRCode(dataURL string) (string, error) {
	_, encoded, ok := strings.Cut(dataURL, ";base64,")
	if !ok {
		return "", nil
	}
	png, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	dir, err := filex.EnsureDir(a.config.DownloadDir)
	if err != nil {
		return "", err
	}
	return filex.WriteFileAtomic(dir, qrFileName, png)
}

func (a *App) WhoAmI(ctx context.Context) error {
	id, ok := a.session.Identity()
	if !ok {
		fmt.Fprintf(a.out, "Not logged in (%s)\n", a.session.State())
		return nil
	}
	mfa := "off"
	if id.MFAEnabled {
		mfa = "on"
	}
	fmt.Fprintf(a.out, "%s <%s> role=%s mfa=%s\n", id.UserName, id.Email, id.Role, mfa)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

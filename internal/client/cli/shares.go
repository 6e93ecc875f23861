package cli

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/dmitrijs2005/gophshare/internal/client/models"
)

// Share grants a registered user access to a file.
func (a *App) Share(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return usage("share <id> <email> [view|download]")
	}
	perm := ""
	if len(args) == 3 {
		perm = args[2]
	}
	g, err := a.shareService.Grant(ctx, args[0], args[1], perm)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Shared with %s (%s)\n", args[1], g.Permission)
	return nil
}

// Shares lists the grants on a file the caller owns.
func (a *App) Shares(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("shares <id>")
	}
	grants, err := a.shareService.List(ctx, args[0])
	if err != nil {
		return err
	}
	if len(grants) == 0 {
		fmt.Fprintln(a.out, "Not shared with anyone")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tEMAIL\tPERMISSION")
	for _, g := range grants {
		var u models.User
		if g.SharedWith != nil {
			u = *g.SharedWith
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", u.UserName, u.Email, g.Permission)
	}
	return tw.Flush()
}

// Link issues a share link: link <id> <hours> [view|download].
func (a *App) Link(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return usage("link <id> <hours> [view|download]")
	}
	hours, err := strconv.Atoi(args[1])
	if err != nil {
		return usage("link <id> <hours> [view|download]")
	}
	perm := ""
	if len(args) == 3 {
		perm = args[2]
	}
	l, err := a.shareService.CreateLink(ctx, args[0], hours, perm)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Link token: %s\nPermission: %s\nExpires:    %s\n",
		l.Token, l.Permission, l.ExpiresAt.Local().Format(timeLayout))
	return nil
}

// Open redeems a share link. A download link saves the file, a view link
// previews it.
func (a *App) Open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("open <token>")
	}
	token := args[0]

	r, err := a.shareService.Resolve(ctx, token)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s shared by %s (%s, expires %s)\n",
		r.File.FileName, r.File.Owner.UserName, r.Permission, r.ExpiresAt.Local().Format(timeLayout))

	if r.Permission == models.PermissionDownload {
		return a.download(ctx, r.File.ID, "", token)
	}
	return a.preview(ctx, r.File.ID, token)
}

func (a *App) Revoke(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("revoke <token>")
	}
	if err := a.shareService.Revoke(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Link revoked")
	return nil
}

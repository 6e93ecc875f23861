package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophshare/internal/client/services"
	"github.com/dmitrijs2005/gophshare/internal/common"
)

const (
	maxPreviewBytes = 4 << 10
	timeLayout      = "2006-01-02 15:04"
)

// Upload encrypts and uploads the file at args[0].
func (a *App) Upload(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("upload <path>")
	}
	f, err := a.fileService.Upload(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Uploaded %s as %s (%s)\n", f.FileName, f.ID, humanSize(f.FileSize))
	return nil
}

// List prints the files the caller owns or has been granted.
func (a *App) List(ctx context.Context) error {
	files, err := a.fileService.List(ctx)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Fprintln(a.out, "No files")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSIZE\tOWNER\tACCESS\tUPLOADED")
	for _, f := range files {
		access := string(f.Permission)
		if access == "" {
			access = "owner"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			f.ID, f.FileName, f.FileType, humanSize(f.FileSize), f.Owner.UserName, access, f.UploadedAt.Local().Format(timeLayout))
	}
	return tw.Flush()
}

// Download saves a decrypted copy of args[0], optionally to args[1].
func (a *App) Download(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return usage("download <id> [path]")
	}
	out := ""
	if len(args) == 2 {
		out = args[1]
	}
	return a.download(ctx, args[0], out, "")
}

func (a *App) download(ctx context.Context, fileID, out, linkToken string) error {
	path, err := a.fileService.Download(ctx, fileID, out, linkToken)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved to %s\n", path)
	return nil
}

// Preview decrypts args[0] in memory and prints it when it is text.
func (a *App) Preview(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("preview <id>")
	}
	return a.preview(ctx, args[0], "")
}

func (a *App) preview(ctx context.Context, fileID, linkToken string) error {
	p, err := a.fileService.Preview(ctx, fileID, linkToken)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(p.Data)
	a.printPlaintext(p)
	return nil
}

func (a *App) printPlaintext(p *services.Plaintext) {
	fmt.Fprintf(a.out, "%s (%s, %s)\n", p.FileName, p.ContentType, humanSize(int64(len(p.Data))))
	if !isText(p.ContentType, p.Data) {
		fmt.Fprintln(a.out, "[binary content not shown]")
		return
	}

	data := p.Data
	truncated := len(data) > maxPreviewBytes
	if truncated {
		data = data[:maxPreviewBytes]
	}
	fmt.Fprintln(a.out, strings.TrimRight(string(data), "\n"))
	if truncated {
		fmt.Fprintf(a.out, "[... %s more]\n", humanSize(int64(len(p.Data)-maxPreviewBytes)))
	}
}

// Delete removes args[0] after confirmation.
func (a *App) Delete(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("rm <id>")
	}
	ok, err := Confirm(a.reader, fmt.Sprintf("Delete file %s and all its shares?", args[0]), a.out)
	if err != nil || !ok {
		return err
	}
	if err := a.fileService.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted")
	return nil
}

func isText(contentType string, data []byte) bool {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "text/"),
		strings.HasPrefix(ct, "application/json"),
		strings.HasPrefix(ct, "application/xml"):
		return utf8.Valid(data)
	default:
		return false
	}
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

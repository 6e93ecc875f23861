package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	report(err error)

	Register(ctx context.Context) error
	Login(ctx context.Context) error
	SetupMFA(ctx context.Context) error
	ConfirmMFA(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error

	Upload(ctx context.Context, args []string) error
	List(ctx context.Context) error
	Download(ctx context.Context, args []string) error
	Preview(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error

	Share(ctx context.Context, args []string) error
	Shares(ctx context.Context, args []string) error
	Link(ctx context.Context, args []string) error
	Open(ctx context.Context, args []string) error
	Revoke(ctx context.Context, args []string) error
}

const (
	helpAnonymous = "Available commands: register, login, ping, whoami, exit"
	helpLoggedIn  = "Available commands: upload, (l)s, download, preview, rm, share, shares, link, open, revoke, " +
		"mfa-setup, mfa-confirm, whoami, ping, logout, exit"
)

// protected lists the commands that need an authenticated session.
var protected = map[string]bool{
	"upload": true, "l": true, "ls": true, "download": true, "preview": true, "rm": true,
	"share": true, "shares": true, "link": true, "open": true, "revoke": true,
	"mfa-setup": true, "mfa-confirm": true, "logout": true,
}

// runREPL starts a simple read–eval–print loop for the GophShare CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command and the rest as its arguments, and dispatches to methods on 'a'.
// The loop exits on scanner EOF or when the user types "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Always:
//	  help                              show available commands
//	  ping                              check that the server is up
//	  whoami                            show the current identity
//	  exit | quit                       leave the program
//
//	Not logged in:
//	  register                          create an account
//	  login                             authenticate (asks for a code when MFA is on)
//
//	Logged in:
//	  upload <path>                     encrypt and upload a file
//	  ls                                list accessible files
//	  download <id> [path]              decrypt a file to disk
//	  preview <id>                      decrypt a file in memory and show it
//	  rm <id>                           delete an owned file
//	  share <id> <email> [perm]         grant a user access
//	  shares <id>                       list grants on a file
//	  link <id> <hours> [perm]          issue a share link
//	  open <token>                      redeem a share link
//	  revoke <token>                    revoke a share link
//	  mfa-setup | mfa-confirm           enable two-factor authentication
//	  logout                            end the session
//
// Errors returned by command handlers are reported through a.report and
// never end the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("gs> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if protected[cmd] && !a.isLoggedIn() {
			printlnFn("Please log in first")
			continue
		}

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpAnonymous)
			}

		case "register":
			err = a.Register(ctx)

		case "login":
			err = a.Login(ctx)

		case "mfa-setup":
			err = a.SetupMFA(ctx)

		case "mfa-confirm":
			err = a.ConfirmMFA(ctx)

		case "whoami":
			err = a.WhoAmI(ctx)

		case "ping":
			err = a.Ping(ctx)

		case "upload":
			err = a.Upload(ctx, args)

		case "l", "ls":
			err = a.List(ctx)

		case "download":
			err = a.Download(ctx, args)

		case "preview":
			err = a.Preview(ctx, args)

		case "rm":
			err = a.Delete(ctx, args)

		case "share":
			err = a.Share(ctx, args)

		case "shares":
			err = a.Shares(ctx, args)

		case "link":
			err = a.Link(ctx, args)

		case "open":
			err = a.Open(ctx, args)

		case "revoke":
			err = a.Revoke(ctx, args)

		case "logout":
			err = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		a.report(err)
	}
}

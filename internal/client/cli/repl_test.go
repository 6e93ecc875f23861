package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool

	calls    []string
	args     map[string][]string
	reported []error
	failWith error
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) report(err error) {
	if err != nil {
		f.reported = append(f.reported, err)
	}
}

func (f *fakeExec) call(name string, args []string) error {
	f.calls = append(f.calls, name)
	if f.args == nil {
		f.args = map[string][]string{}
	}
	f.args[name] = args
	return f.failWith
}

func (f *fakeExec) Register(ctx context.Context) error { return f.call("register", nil) }
func (f *fakeExec) Login(ctx context.Context) error {
	f.loggedIn = true
	return f.call("login", nil)
}
func (f *fakeExec) SetupMFA(ctx context.Context) error   { return f.call("mfa-setup", nil) }
func (f *fakeExec) ConfirmMFA(ctx context.Context) error { return f.call("mfa-confirm", nil) }
func (f *fakeExec) WhoAmI(ctx context.Context) error     { return f.call("whoami", nil) }
func (f *fakeExec) Logout(ctx context.Context) error {
	f.loggedIn = false
	return f.call("logout", nil)
}
func (f *fakeExec) Ping(ctx context.Context) error { return f.call("ping", nil) }
func (f *fakeExec) Upload(ctx context.Context, args []string) error {
	return f.call("upload", args)
}
func (f *fakeExec) List(ctx context.Context) error { return f.call("ls", nil) }
func (f *fakeExec) Download(ctx context.Context, args []string) error {
	return f.call("download", args)
}
func (f *fakeExec) Preview(ctx context.Context, args []string) error {
	return f.call("preview", args)
}
func (f *fakeExec) Delete(ctx context.Context, args []string) error { return f.call("rm", args) }
func (f *fakeExec) Share(ctx context.Context, args []string) error  { return f.call("share", args) }
func (f *fakeExec) Shares(ctx context.Context, args []string) error {
	return f.call("shares", args)
}
func (f *fakeExec) Link(ctx context.Context, args []string) error   { return f.call("link", args) }
func (f *fakeExec) Open(ctx context.Context, args []string) error   { return f.call("open", args) }
func (f *fakeExec) Revoke(ctx context.Context, args []string) error { return f.call("revoke", args) }

func capturePrintln(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	origPrint := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })
	return &lines
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	lines := capturePrintln(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"upload report.pdf",
		"login",
		"help",
		"upload report.pdf",
		"ls",
		"download f1 /tmp/out.pdf",
		"preview f1",
		"share f1 bob@example.com download",
		"shares f1",
		"link f1 24 view",
		"open tok",
		"revoke tok",
		"rm f1",
		"mfa-setup",
		"mfa-confirm",
		"whoami",
		"ping",
		"foobar",
		"logout",
		"exit",
		"ls",
	}, "\n"))

	exec := &fakeExec{}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "status" }, sc)

	assert.Equal(t, []string{
		"login", "upload", "ls", "download", "preview", "share", "shares", "link",
		"open", "revoke", "rm", "mfa-setup", "mfa-confirm", "whoami", "ping", "logout",
	}, exec.calls)
	assert.Equal(t, []string{"f1", "/tmp/out.pdf"}, exec.args["download"])
	assert.Equal(t, []string{"f1", "bob@example.com", "download"}, exec.args["share"])
	assert.Equal(t, []string{"f1", "24", "view"}, exec.args["link"])

	assert.Contains(t, *lines, helpAnonymous)
	assert.Contains(t, *lines, helpLoggedIn)
	assert.Contains(t, *lines, "Please log in first")
	assert.Contains(t, *lines, "Unknown command: foobar")
	assert.Contains(t, *lines, "gs> status > ")
	assert.Equal(t, "Bye!", (*lines)[len(*lines)-1])
}

func TestRunREPL_ErrorsAreReportedAndLoopContinues(t *testing.T) {
	capturePrintln(t)

	boom := errors.New("boom")
	exec := &fakeExec{loggedIn: true, failWith: boom}
	sc := bufio.NewScanner(strings.NewReader("ls\n\npreview x\nquit\n"))

	runREPL(context.Background(), exec, func() string { return "s" }, sc)

	assert.Equal(t, []string{"ls", "preview"}, exec.calls)
	assert.Equal(t, []error{boom, boom}, exec.reported)
}

func TestRunREPL_EOFStops(t *testing.T) {
	capturePrintln(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewScanner(strings.NewReader("")))

	assert.Empty(t, exec.calls)
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/campusdesk/internal/client/api"
	"github.com/dmitrijs2005/campusdesk/internal/client/config"
	"github.com/dmitrijs2005/campusdesk/internal/common"
	"github.com/dmitrijs2005/campusdesk/internal/filex"
)

// ErrUnknownCommand is returned by Run for anything it does not recognise.
var ErrUnknownCommand = errors.New("unknown command")

// AuthClient is satisfied by *api.Client.
type AuthClient interface {
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
	Profile(ctx context.Context, token string) (*api.User, error)
}

type App struct {
	config *config.Config
	client AuthClient
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(cfg *config.Config) *App {
	return &App{
		config: cfg,
		client: api.NewClient(cfg.ServerURL, cfg.RequestTimeout),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}
}

// Run executes the command named by the first non-flag argument.
func (a *App) Run(ctx context.Context, args []string) error {
	cmd := firstCommand(args)

	switch cmd {
	case "register":
		return a.Register(ctx)
	case "login":
		return a.Login(ctx)
	case "whoami":
		return a.WhoAmI(ctx)
	case "logout":
		return a.Logout()
	case "", "help":
		a.usage()
		return nil
	default:
		a.usage()
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "Usage: portalctl <register|login|whoami|logout> [-a url] [-t seconds] [-f tokenfile] [-c config.json]")
}

func (a *App) Register(ctx context.Context) error {
	req, err := askRegistration(a.reader, a.out)
	if err != nil {
		return err
	}

	res, err := a.client.Register(ctx, req)
	if err != nil {
		return err
	}

	if err := a.saveToken(res.Token); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: %s <%s> as %s\n", res.Message, res.User.Name, res.User.Email, res.User.Role)
	return nil
}

func (a *App) Login(ctx context.Context) error {
	req, err := askCredentials(a.reader, a.out)
	if err != nil {
		return err
	}

	res, err := a.client.Login(ctx, req)
	if err != nil {
		return err
	}

	if err := a.saveToken(res.Token); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: %s (%s)\n", res.Message, res.User.Name, res.User.Role)
	return nil
}

func (a *App) WhoAmI(ctx context.Context) error {
	token, err := a.loadToken()
	if err != nil {
		return err
	}

	u, err := a.client.Profile(ctx, token)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "id:      %s\nname:    %s\nemail:   %s\nrole:    %s\n", u.ID, u.Name, u.Email, u.Role)
	if !u.CreatedAt.IsZero() {
		fmt.Fprintf(a.out, "created: %s\n", u.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	}
	return nil
}

func (a *App) Logout() error {
	if err := os.Remove(a.config.TokenFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) saveToken(token string) error {
	return filex.WritePrivateFile(a.config.TokenFile, []byte(token))
}

func (a *App) loadToken() (string, error) {
	b, err := os.ReadFile(a.config.TokenFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: run 'portalctl login' first", common.ErrMissingToken)
		}
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

// firstCommand skips flags and their values. Every portalctl flag takes a
// value, so "-x v" pairs are skipped together.
func firstCommand(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") {
			if !strings.Contains(arg, "=") {
				i++
			}
			continue
		}
		return arg
	}
	return ""
}

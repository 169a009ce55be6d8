// Package console is the terminal front end: every command is a page behind
// a route guard, run once from the command line or repeatedly from the
// interactive shell.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"affconsole/internal/config"
	"affconsole/internal/gateway"
	"affconsole/internal/guard"
	"affconsole/internal/i18n"
	"affconsole/internal/models"
	"affconsole/internal/notify"
	"affconsole/internal/session"
	"affconsole/internal/tokenstore"
)

var (
	ErrUsage          = errors.New("usage")
	ErrUnknownCommand = errors.New("unknown command")
)

// reported marks an error the user has already been told about.
type reported struct{ error }

func (r reported) Unwrap() error { return r.error }

type Options struct {
	Out      io.Writer
	In       io.Reader
	Store    tokenstore.Store
	Notifier notify.Notifier
	Logger   zerolog.Logger
	// RefreshInterval enables the silent refresh timer. One-shot commands
	// leave it at zero.
	RefreshInterval time.Duration
	Width           int
	ExportDir       string
}

type App struct {
	cfg       *config.AppConfig
	client    *gateway.Client
	session   *session.Manager
	router    *guard.Router
	commands  map[string]command
	notifier  notify.Notifier
	msgs      *i18n.Localizer
	out       io.Writer
	lines     *bufio.Scanner
	log       zerolog.Logger
	width     int
	exportDir string
	restored  bool
}

type command struct {
	route string
	usage string
	run   func(ctx context.Context, args []string) error
}

func New(cfg *config.AppConfig, opts Options) *App {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.In == nil {
		opts.In = os.Stdin
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NewWriter(opts.Out)
	}
	if opts.Width <= 0 {
		opts.Width = cfg.Listing.WidthBreakpoint
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}

	msgs := i18n.New(cfg.Locale)
	client := gateway.New(cfg.API, msgs, opts.Logger)
	sess := session.NewManager(client, session.Options{
		RefreshInterval: opts.RefreshInterval,
		Store:           opts.Store,
		Notifier:        opts.Notifier,
		Messages:        msgs,
		Logger:          opts.Logger,
	})
	client.UseTokens(sess)

	a := &App{
		cfg:       cfg,
		client:    client,
		session:   sess,
		notifier:  opts.Notifier,
		msgs:      msgs,
		out:       opts.Out,
		lines:     bufio.NewScanner(opts.In),
		log:       opts.Logger.With().Str("component", "console").Logger(),
		width:     opts.Width,
		exportDir: opts.ExportDir,
	}
	a.commands = a.buildCommands()

	routes := make([]guard.Route, 0, len(a.commands))
	for name, cmd := range a.commands {
		if cmd.route == "" {
			continue
		}
		routes = append(routes, guard.Route{
			Path:   cmd.route,
			Title:  name,
			Public: cmd.route == guard.LoginPath,
			Roles:  routeRoles(cmd.route),
		})
	}
	a.router = guard.NewRouter(routes...)
	return a
}

// routeRoles derives the allowed roles from the route prefix.
func routeRoles(path string) []models.Role {
	switch {
	case strings.HasPrefix(path, guard.AdminHome+"/"):
		return []models.Role{models.RoleAdmin}
	case strings.HasPrefix(path, guard.AffiliatorHome+"/"):
		return []models.Role{models.RoleAffiliator}
	}
	return nil
}

// Session exposes the session manager, mainly for the host to close it.
func (a *App) Session() *session.Manager {
	return a.session
}

func (a *App) Close() {
	a.session.Close()
}

// Run executes one command line. "shell" starts the interactive loop.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.usage()
		if len(args) == 0 {
			return ErrUsage
		}
		return nil
	}
	if args[0] == "shell" {
		return a.shell(ctx)
	}
	err := a.exec(ctx, args)
	a.report(err)
	return err
}

func (a *App) exec(ctx context.Context, args []string) error {
	cmd, ok := a.commands[args[0]]
	if !ok {
		a.notifier.Notify(notify.LevelError, a.msgs.T("console.unknownCommand", args[0]))
		return reported{fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])}
	}

	a.restore(ctx)

	if cmd.route != "" {
		_, decision, err := a.router.Resolve(cmd.route, a.session.CurrentUser())
		if err != nil {
			return err
		}
		if !decision.Allow {
			return a.deny(decision)
		}
	}
	return cmd.run(ctx, args[1:])
}

func (a *App) deny(d guard.Decision) error {
	switch {
	case errors.Is(d.Reason, guard.ErrLoginRequired):
		a.notifier.Notify(notify.LevelError, a.msgs.T("guard.loginRequired"))
	case errors.Is(d.Reason, guard.ErrForbidden):
		a.notifier.Notify(notify.LevelError, a.msgs.T("guard.forbidden"))
	default:
		user := a.session.CurrentUser()
		if user != nil {
			a.notifier.Notify(notify.LevelInfo, a.msgs.T("auth.alreadyLoggedIn", user.Username))
		}
		a.menu()
		return nil
	}
	a.log.Debug().Str("redirect", d.Redirect).Err(d.Reason).Msg("route denied")
	return reported{d.Reason}
}

// restore reuses the session persisted by an earlier invocation in the same
// shell. It runs once per App.
func (a *App) restore(ctx context.Context) {
	if a.restored {
		return
	}
	a.restored = true
	if a.session.CurrentUser() != nil {
		return
	}
	if _, err := a.session.Restore(ctx); err != nil && !errors.Is(err, session.ErrNoSession) {
		a.log.Debug().Err(err).Msg("restore session")
	}
}

func (a *App) report(err error) {
	if err == nil {
		return
	}
	var r reported
	if errors.As(err, &r) || errors.Is(err, gateway.ErrSessionExpired) {
		return
	}
	a.notifier.Notify(notify.LevelError, gateway.UserMessage(err))
}

func (a *App) shell(ctx context.Context) error {
	a.restore(ctx)
	unsubscribe := a.session.OnChange(func(s session.Snapshot) {
		a.log.Debug().Str("state", s.State.String()).Msg("session changed")
	})
	defer unsubscribe()

	a.prompt()
	for a.lines.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		args, err := splitArgs(a.lines.Text())
		if err != nil {
			a.notifier.Notify(notify.LevelError, err.Error())
			a.prompt()
			continue
		}
		if len(args) == 0 {
			a.prompt()
			continue
		}
		switch args[0] {
		case "exit", "quit":
			return nil
		case "shell":
		case "help":
			a.usage()
		default:
			a.report(a.exec(ctx, args))
		}
		a.prompt()
	}
	return a.lines.Err()
}

// readLine reads the next input line, used for prompts inside a command.
func (a *App) readLine(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	if !a.lines.Scan() {
		if err := a.lines.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(a.lines.Text()), nil
}

func (a *App) prompt() {
	if user := a.session.CurrentUser(); user != nil {
		fmt.Fprintf(a.out, "affconsole (%s)> ", user.Username)
		return
	}
	fmt.Fprint(a.out, "affconsole> ")
}

// menu lists the commands the current user may run.
func (a *App) menu() {
	fmt.Fprintln(a.out, a.msgs.T("console.menu"))
	for _, route := range a.router.Visible(a.session.CurrentUser()) {
		fmt.Fprintf(a.out, "  %-14s %s\n", route.Title, a.commands[route.Title].usage)
	}
}

func (a *App) usage() {
	names := make([]string, 0, len(a.commands))
	for name := range a.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(a.out, "usage: affconsole <command> [flags]")
	for _, name := range names {
		fmt.Fprintf(a.out, "  %-14s %s\n", name, a.commands[name].usage)
	}
	fmt.Fprintf(a.out, "  %-14s %s\n", "shell", "interactive session with silent token refresh")
}

// splitArgs splits a shell line on spaces, honouring single and double
// quotes.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quote   rune
		inWord  bool
	)
	for _, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, errors.New("unterminated quote")
	}
	if inWord {
		args = append(args, current.String())
	}
	return args, nil
}

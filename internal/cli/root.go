// Package cli implements the liqo command-line admin client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/jejakliqo/internal/access"
	"github.com/me/jejakliqo/internal/api"
	"github.com/me/jejakliqo/internal/apiclient"
	"github.com/me/jejakliqo/internal/auth"
	"github.com/me/jejakliqo/internal/config"
	"github.com/me/jejakliqo/internal/logging"
	"github.com/me/jejakliqo/internal/session"
	"github.com/me/jejakliqo/internal/storage"
	"github.com/me/jejakliqo/pkg/model"
)

var (
	// ErrNotLoggedIn is returned by commands that need a session.
	ErrNotLoggedIn = errors.New("belum login, jalankan 'liqo login' terlebih dahulu")

	// ErrForbidden is returned when the logged-in role may not use a command.
	ErrForbidden = errors.New("akses ditolak untuk peran Anda")
)

// app is the state shared by every command of one invocation.
type app struct {
	flagConfig    string
	flagServer    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string
	flagOutput    string

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	cfg      *config.Config
	logger   *slog.Logger
	kv       io.Closer
	sessions *session.Manager
	client   *apiclient.Client
	auth     *auth.Controller
	api      *api.API

	// route is the dashboard path the running command stands for. It
	// drives role gating and suppresses the login redirect during login.
	route string
}

// NewRootCmd creates the root cobra command for the liqo CLI.
func NewRootCmd() *cobra.Command {
	a := &app{in: os.Stdin, out: os.Stdout, errOut: os.Stderr}

	root := &cobra.Command{
		Use:   "liqo",
		Short: "Jejak Liqo admin client",
		Long:  "liqo manages mentoring groups, mentees, meetings and announcements on a Jejak Liqo backend.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.in = cmd.InOrStdin()
			a.out = cmd.OutOrStdout()
			a.errOut = cmd.ErrOrStderr()
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&a.flagConfig, "config", "", "Config file (default ~/.jejakliqo/config.yaml)")
	root.PersistentFlags().StringVar(&a.flagServer, "server", "", "Backend API URL (overrides api.base_url)")
	root.PersistentFlags().BoolVar(&a.flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&a.flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&a.flagLogFormat, "log-format", "", "Log format (text, json)")
	root.PersistentFlags().StringVarP(&a.flagOutput, "output", "o", formatTable, "Output format (table, json, yaml)")

	root.AddCommand(
		a.newLoginCmd(),
		a.newLogoutCmd(),
		a.newWhoamiCmd(),
		a.newDashboardCmd(),
		a.newActivitiesCmd(),
		a.newGroupsCmd(),
		a.newMenteesCmd(),
		a.newMeetingsCmd(),
		a.newAnnouncementsCmd(),
		a.newUsersCmd(model.RoleAdmin),
		a.newUsersCmd(model.RoleMentor),
		a.newProfileCmd(),
		a.newImportCmd(),
		a.newExportCmd(),
		a.newTemplateCmd(),
		a.newConfigCmd(),
	)

	return root
}

// setup loads the configuration and wires the session store, HTTP client
// and services.
func (a *app) setup(cmd *cobra.Command) error {
	if !validFormat(a.flagOutput) {
		return fmt.Errorf("unknown output format %q", a.flagOutput)
	}

	path := a.flagConfig
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.flagServer != "" {
		cfg.API.BaseURL = a.flagServer
	}
	if a.flagLogLevel != "" {
		cfg.Log.Level = a.flagLogLevel
	}
	if a.flagLogFormat != "" {
		cfg.Log.Format = a.flagLogFormat
	}
	if a.flagDebug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(logging.Options{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Writer: a.errOut,
	})

	opts := cfg.StorageOptions()
	if opts.Backend == storage.BackendSQLite && opts.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("find home directory: %w", err)
		}
		dir := filepath.Join(home, ".jejakliqo")
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
		opts.Path = filepath.Join(dir, "session.db")
	}
	kv, closer, err := storage.Open(cmd.Context(), opts, a.logger)
	if err != nil {
		return fmt.Errorf("open session storage: %w", err)
	}
	a.kv = closer
	a.logger.Debug("session storage ready", "backend", opts.Backend)

	a.sessions = session.NewManager(kv, session.WithLogger(a.logger))
	a.client = apiclient.New(cfg.ClientConfig(), a.sessions,
		apiclient.WithLogger(a.logger),
		apiclient.WithNotifier(&terminalNotifier{w: a.errOut}),
		apiclient.WithRouteFunc(func() string { return a.route }),
		// A terminal has nothing to show during the grace period.
		apiclient.WithScheduler(func(_ time.Duration, f func()) { f() }),
	)
	a.auth = auth.New(a.client, auth.WithLoginOptions(cfg.LoginOptions()), auth.WithLogger(a.logger))
	a.api = api.New(a.client)
	return nil
}

func (a *app) teardown() error {
	if a.kv == nil {
		return nil
	}
	err := a.kv.Close()
	a.kv = nil
	return err
}

// require enters route and checks that the stored session may use it.
func (a *app) require(ctx context.Context, route string) (*model.User, error) {
	a.route = route
	u, err := a.auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotLoggedIn
	}
	if !access.Allowed(u.Role, route) {
		a.logger.Debug("route denied", "role", u.Role, "route", route)
		return nil, fmt.Errorf("%w (%s)", ErrForbidden, u.Role.Label())
	}
	return u, nil
}

// terminalNotifier prints session events on stderr.
type terminalNotifier struct {
	w io.Writer
}

func (n *terminalNotifier) Notify(ev apiclient.Event) {
	switch ev.Reason {
	case apiclient.ReasonSessionExpired:
		fmt.Fprintln(n.w, "Sesi Anda telah berakhir. Silakan login kembali.")
	case apiclient.ReasonUnauthorized:
		fmt.Fprintln(n.w, "Sesi tidak valid. Data login lokal telah dihapus.")
	case apiclient.ReasonRedirectLogin:
		fmt.Fprintln(n.w, "Jalankan 'liqo login' untuk masuk kembali.")
	case apiclient.ReasonReload:
		fmt.Fprintln(n.w, "Halaman kedaluwarsa. Ulangi perintah Anda.")
	}
}

// describe wraps err for op, spelling out validation errors field by field.
func describe(op string, err error) error {
	var httpErr *apiclient.HTTPError
	if errors.As(err, &httpErr) && len(httpErr.Errors) > 0 {
		return fmt.Errorf("%s: %s\n  %s", op, httpErr.Message, strings.Join(httpErr.ErrorBody().FieldMessages(), "\n  "))
	}
	return fmt.Errorf("%s: %w", op, err)
}

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/jejakliqo/internal/access"
	"github.com/me/jejakliqo/internal/auth"
)

func (a *app) newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the backend",
		Long:  "Authenticate with email and password and store the session locally.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a.route = access.LoginPath
			reader := bufio.NewReader(a.in)
			var err error
			if email == "" {
				if email, err = a.prompt(reader, "Email: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = a.prompt(reader, "Password: "); err != nil {
					return err
				}
			}
			if email == "" || password == "" {
				return errors.New("email dan password wajib diisi")
			}

			res, err := a.auth.Login(cmd.Context(), email, password)
			if err != nil {
				a.logger.Debug("login failed", "kind", auth.KindOf(err), "error", err)
				return errors.New(auth.UserMessage(err))
			}

			fmt.Fprintf(a.out, "Selamat datang, %s (%s).\n", res.User.Name, res.User.Role.Label())
			fmt.Fprintf(a.out, "Sesi berlaku hingga %s.\n", res.ExpiresAt.Local().Format("02 Jan 2006 15:04"))
			fmt.Fprintf(a.out, "Halaman awal: %s\n", access.HomePath(res.User.Role))
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email (prompted if omitted)")
	cmd.Flags().StringVar(&password, "password", "", "Account password (prompted if omitted)")
	return cmd
}

func (a *app) prompt(r *bufio.Reader, label string) (string, error) {
	fmt.Fprint(a.out, label)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (a *app) newLogoutCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			logout := a.auth.Logout
			if all {
				logout = a.auth.LogoutAll
			}
			if err := logout(cmd.Context()); err != nil {
				return err
			}
			if all {
				fmt.Fprintln(a.out, "Berhasil logout dari semua perangkat.")
			} else {
				fmt.Fprintln(a.out, "Berhasil logout.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Log out from every device")
	return cmd
}

type whoami struct {
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Home         string    `json:"home"`
	ExpiresAt    time.Time `json:"expires_at"`
	RemainingMin int       `json:"remaining_minutes"`
	ExpiringSoon bool      `json:"expiring_soon"`
}

func (a *app) newWhoamiCmd() *cobra.Command {
	var verify bool

	cmd := &cobra.Command{
		Use:     "whoami",
		Aliases: []string{"status"},
		Short:   "Show the logged-in user and session lifetime",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if verify {
				if _, err := a.auth.ValidateToken(ctx); err != nil {
					return fmt.Errorf("validasi token: %w", err)
				}
			}
			sess, err := a.sessions.GetAuthData(ctx)
			if err != nil {
				return err
			}
			if sess == nil {
				return ErrNotLoggedIn
			}

			info := whoami{
				Name:         sess.User.Name,
				Email:        sess.User.Email,
				Role:         string(sess.User.Role),
				Home:         access.HomePath(sess.User.Role),
				ExpiresAt:    sess.ExpiresAt,
				RemainingMin: a.sessions.TokenRemainingTime(ctx),
				ExpiringSoon: a.sessions.IsTokenExpiringSoon(ctx),
			}
			if a.flagOutput != formatTable {
				return a.render(info, nil)
			}
			fmt.Fprintf(a.out, "Nama:    %s\n", info.Name)
			fmt.Fprintf(a.out, "Email:   %s\n", info.Email)
			fmt.Fprintf(a.out, "Peran:   %s\n", sess.User.Role.Label())
			fmt.Fprintf(a.out, "Sesi:    %d menit tersisa\n", info.RemainingMin)
			if info.ExpiringSoon {
				fmt.Fprintln(a.out, "Sesi akan segera berakhir. Silakan login kembali.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Check the token against the backend first")
	return cmd
}

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/me/jejakliqo/internal/api"
	"github.com/me/jejakliqo/internal/session"
)

func (a *app) newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "View and edit your own account",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.require(cmd.Context(), "/profile"); err != nil {
				return err
			}
			u, err := a.api.Profile.Get(cmd.Context())
			if err != nil {
				return fmt.Errorf("get profile: %w", err)
			}
			if a.flagOutput != formatTable {
				return a.render(u, nil)
			}
			fmt.Fprintf(a.out, "Nama:    %s\n", u.Name)
			fmt.Fprintf(a.out, "Email:   %s\n", u.Email)
			fmt.Fprintf(a.out, "Peran:   %s\n", u.Role.Label())
			if u.Phone != "" {
				fmt.Fprintf(a.out, "Telepon: %s\n", u.Phone)
			}
			if p := u.PicturePath(); p != "" {
				fmt.Fprintf(a.out, "Foto:    %s\n", a.client.AssetURL(p))
			}
			return nil
		},
	}

	var in api.ProfileInput
	update := &cobra.Command{
		Use:   "update",
		Short: "Update your profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.require(cmd.Context(), "/profile"); err != nil {
				return err
			}
			u, err := a.api.Profile.Update(cmd.Context(), in)
			if err != nil {
				return describe("update profile", err)
			}
			fmt.Fprintf(a.out, "Profil %s diperbarui.\n", u.Name)
			return nil
		},
	}
	update.Flags().StringVar(&in.Name, "name", "", "Name")
	update.Flags().StringVar(&in.Email, "email", "", "Email")
	update.Flags().StringVar(&in.Phone, "phone", "", "Phone number")
	update.Flags().StringVar(&in.Gender, "gender", "", "Gender (Ikhwan, Akhwat)")

	var pc api.PasswordChange
	password := &cobra.Command{
		Use:   "password",
		Short: "Change your password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.require(cmd.Context(), "/profile"); err != nil {
				return err
			}
			reader := bufio.NewReader(a.in)
			var err error
			if pc.Current == "" {
				if pc.Current, err = a.prompt(reader, "Password saat ini: "); err != nil {
					return err
				}
			}
			if pc.New == "" {
				if pc.New, err = a.prompt(reader, "Password baru: "); err != nil {
					return err
				}
			}
			if pc.Current == "" || pc.New == "" {
				return errors.New("password saat ini dan password baru wajib diisi")
			}
			if err := a.api.Profile.ChangePassword(cmd.Context(), pc); err != nil {
				return describe("change password", err)
			}
			fmt.Fprintln(a.out, "Password berhasil diubah.")
			return nil
		},
	}
	password.Flags().StringVar(&pc.Current, "current", "", "Current password (prompted if omitted)")
	password.Flags().StringVar(&pc.New, "new", "", "New password (prompted if omitted)")

	picture := &cobra.Command{
		Use:   "picture <file>",
		Short: "Upload a profile picture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.require(cmd.Context(), "/profile"); err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open picture: %w", err)
			}
			defer f.Close()
			u, err := a.api.Profile.UploadPicture(cmd.Context(), filepath.Base(args[0]), f)
			if err != nil {
				return describe("upload picture", err)
			}
			fmt.Fprintf(a.out, "Foto profil diperbarui: %s\n", a.client.AssetURL(u.PicturePath()))
			return nil
		},
	}

	theme := &cobra.Command{
		Use:   "theme [light|dark]",
		Short: "Show or set the display theme kept across logins",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if len(args) == 1 {
				if args[0] != "light" && args[0] != "dark" {
					return fmt.Errorf("unknown theme %q", args[0])
				}
				if err := a.sessions.SetPreference(ctx, session.KeyTheme, args[0]); err != nil {
					return err
				}
			}
			v, ok, err := a.sessions.Preference(ctx, session.KeyTheme)
			if err != nil {
				return err
			}
			if !ok {
				v = "light"
			}
			fmt.Fprintf(a.out, "Tema: %s\n", v)
			return nil
		},
	}

	cmd.AddCommand(show, update, password, picture, theme)
	return cmd
}

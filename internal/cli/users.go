package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/me/jejakliqo/internal/api"
	"github.com/me/jejakliqo/pkg/model"
)

// userCommands binds one account role to its endpoints.
type userCommands struct {
	route  string
	list   func(context.Context, model.ListOptions) (*model.Page[model.User], error)
	create func(context.Context, api.UserInput) (*model.User, error)
	update func(context.Context, int64, api.UserInput) (*model.User, error)
	delete func(context.Context, int64) error
}

func (a *app) userCommandsFor(role model.Role) userCommands {
	if role == model.RoleAdmin {
		return userCommands{
			route:  "/admin/admins",
			list:   a.api.Admin.ListAdmins,
			create: a.api.Admin.CreateAdmin,
			update: a.api.Admin.UpdateAdmin,
			delete: a.api.Admin.DeleteAdmin,
		}
	}
	return userCommands{
		route:  "/admin/mentors",
		list:   a.api.Admin.ListMentors,
		create: a.api.Admin.CreateMentor,
		update: a.api.Admin.UpdateMentor,
		delete: a.api.Admin.DeleteMentor,
	}
}

func userFlags(cmd *cobra.Command, in *api.UserInput) {
	cmd.Flags().StringVar(&in.Name, "name", "", "Name")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email")
	cmd.Flags().StringVar(&in.Password, "password", "", "Password")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "Phone number")
	cmd.Flags().StringVar(&in.Gender, "gender", "", "Gender (Ikhwan, Akhwat)")
}

// newUsersCmd builds the admins or mentors command tree. The services are
// resolved at run time because a.api only exists after setup.
func (a *app) newUsersCmd(role model.Role) *cobra.Command {
	use, label := "mentors", "Mentor"
	if role == model.RoleAdmin {
		use, label = "admins", "Admin"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: "Manage " + use,
	}

	var lf listFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List " + use,
		RunE: func(cmd *cobra.Command, args []string) error {
			uc := a.userCommandsFor(role)
			if _, err := a.require(cmd.Context(), uc.route); err != nil {
				return err
			}
			page, err := uc.list(cmd.Context(), lf.options())
			if err != nil {
				return fmt.Errorf("list %s: %w", use, err)
			}
			tbl := &table{header: []string{"ID", "NAMA", "EMAIL", "TELEPON", "STATUS"}, footer: pageFooter(page.Pagination, len(page.Items))}
			for _, u := range page.Items {
				tbl.add(strconv.FormatInt(u.ID, 10), u.Name, u.Email, u.Phone, u.Status)
			}
			return a.render(page.Items, tbl)
		},
	}
	lf.register(list)

	var in api.UserInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			uc := a.userCommandsFor(role)
			if _, err := a.require(cmd.Context(), uc.route); err != nil {
				return err
			}
			u, err := uc.create(cmd.Context(), in)
			if err != nil {
				return describe("create "+label, err)
			}
			fmt.Fprintf(a.out, "%s %q dibuat (#%d).\n", label, u.Name, u.ID)
			return nil
		},
	}
	userFlags(create, &in)

	var upd api.UserInput
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an account; empty fields are left unchanged",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			uc := a.userCommandsFor(role)
			if _, err := a.require(cmd.Context(), uc.route); err != nil {
				return err
			}
			u, err := uc.update(cmd.Context(), id, upd)
			if err != nil {
				return describe("update "+label, err)
			}
			fmt.Fprintf(a.out, "%s %q diperbarui.\n", label, u.Name)
			return nil
		},
	}
	userFlags(update, &upd)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			uc := a.userCommandsFor(role)
			if _, err := a.require(cmd.Context(), uc.route); err != nil {
				return err
			}
			if err := uc.delete(cmd.Context(), id); err != nil {
				return describe("delete "+label, err)
			}
			fmt.Fprintf(a.out, "%s #%d dihapus.\n", label, id)
			return nil
		},
	}

	cmd.AddCommand(list, create, update, del,
		a.newStatusCmd(role, "block", api.StatusBlocked),
		a.newStatusCmd(role, "unblock", api.StatusActive),
	)
	return cmd
}

func (a *app) newStatusCmd(role model.Role, use, status string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: "Set the account status to " + status,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			uc := a.userCommandsFor(role)
			if _, err := a.require(cmd.Context(), uc.route); err != nil {
				return err
			}
			change := a.api.Admin.Unblock
			if status == api.StatusBlocked {
				change = a.api.Admin.Block
			}
			if err := change(cmd.Context(), id); err != nil {
				return describe(use, err)
			}
			fmt.Fprintf(a.out, "Status akun #%d: %s.\n", id, status)
			return nil
		},
	}
}

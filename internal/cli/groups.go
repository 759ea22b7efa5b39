package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/me/jejakliqo/internal/api"
	"github.com/me/jejakliqo/pkg/model"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, s := range args {
		id, err := parseID(s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func groupTable(groups []model.Group, pg *model.Pagination) *table {
	tbl := &table{header: []string{"ID", "NAMA", "MENTOR", "BINAAN"}, footer: pageFooter(pg, len(groups))}
	for _, g := range groups {
		mentor := "-"
		if g.Mentor != nil {
			mentor = g.Mentor.Name
		}
		tbl.add(strconv.FormatInt(g.ID, 10), g.Name, mentor, strconv.Itoa(g.MenteeCount))
	}
	return tbl
}

func menteeTable(mentees []model.Mentee, pg *model.Pagination) *table {
	tbl := &table{header: []string{"ID", "NAMA", "JENIS KELAMIN", "KELAS", "KELOMPOK"}, footer: pageFooter(pg, len(mentees))}
	for _, m := range mentees {
		group := "-"
		if m.GroupID != nil {
			group = strconv.FormatInt(*m.GroupID, 10)
		}
		tbl.add(strconv.FormatInt(m.ID, 10), m.FullName, m.Gender, m.ActivityClass, group)
	}
	return tbl
}

func (a *app) newGroupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "groups",
		Aliases: []string{"kelompok"},
		Short:   "Manage mentee groups",
	}

	var lf listFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List groups (mentors see their own)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u, err := a.auth.CurrentUser(ctx)
			if err != nil {
				return err
			}
			if u != nil && u.IsMentor() {
				if _, err := a.require(ctx, "/mentor/groups"); err != nil {
					return err
				}
				groups, err := a.api.Mentor.Groups(ctx)
				if err != nil {
					return fmt.Errorf("list groups: %w", err)
				}
				return a.render(groups, groupTable(groups, nil))
			}
			if _, err := a.require(ctx, "/admin/groups"); err != nil {
				return err
			}
			page, err := a.api.Groups.List(ctx, lf.options())
			if err != nil {
				return fmt.Errorf("list groups: %w", err)
			}
			return a.render(page.Items, groupTable(page.Items, page.Pagination))
		},
	}
	lf.register(list)

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a group and its mentees",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			u, err := a.auth.CurrentUser(ctx)
			if err != nil {
				return err
			}
			var g *model.Group
			if u != nil && u.IsMentor() {
				if _, err := a.require(ctx, "/mentor/groups"); err != nil {
					return err
				}
				g, err = a.api.Mentor.Group(ctx, id)
			} else {
				if _, err := a.require(ctx, "/admin/groups"); err != nil {
					return err
				}
				g, err = a.api.Groups.Get(ctx, id)
			}
			if err != nil {
				return fmt.Errorf("get group: %w", err)
			}
			if a.flagOutput != formatTable {
				return a.render(g, nil)
			}
			fmt.Fprintf(a.out, "Kelompok: %s (#%d)\n", g.Name, g.ID)
			if g.Mentor != nil {
				fmt.Fprintf(a.out, "Mentor:   %s\n", g.Mentor.Name)
			}
			if g.Description != "" {
				fmt.Fprintf(a.out, "Catatan:  %s\n", g.Description)
			}
			fmt.Fprintln(a.out)
			return writeTable(a.out, menteeTable(g.Mentees, nil))
		},
	}

	var in api.GroupInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a group",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.require(cmd.Context(), "/admin/groups"); err != nil {
				return err
			}
			g, err := a.api.Groups.Create(cmd.Context(), in)
			if err != nil {
				return describe("create group", err)
			}
			fmt.Fprintf(a.out, "Kelompok %q dibuat (#%d).\n", g.Name, g.ID)
			return nil
		},
	}
	groupFlags(create, &in)

	var upd api.GroupInput
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.require(cmd.Context(), "/admin/groups"); err != nil {
				return err
			}
			g, err := a.api.Groups.Update(cmd.Context(), id, upd)
			if err != nil {
				return describe("update group", err)
			}
			fmt.Fprintf(a.out, "Kelompok %q diperbarui.\n", g.Name)
			return nil
		},
	}
	groupFlags(update, &upd)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.require(cmd.Context(), "/admin/groups"); err != nil {
				return err
			}
			if err := a.api.Groups.Delete(cmd.Context(), id); err != nil {
				return describe("delete group", err)
			}
			fmt.Fprintf(a.out, "Kelompok #%d dihapus.\n", id)
			return nil
		},
	}

	addMentees := &cobra.Command{
		Use:   "add-mentees <group-id> <mentee-id>...",
		Short: "Add mentees to a group",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if _, err := a.require(cmd.Context(), "/admin/groups"); err != nil {
				return err
			}
			if err := a.api.Groups.AddMentees(cmd.Context(), ids[0], ids[1:]); err != nil {
				return describe("add mentees", err)
			}
			fmt.Fprintf(a.out, "%d binaan ditambahkan ke kelompok #%d.\n", len(ids)-1, ids[0])
			return nil
		},
	}

	var target int64
	move := &cobra.Command{
		Use:   "move <mentee-id>...",
		Short: "Move mentees to another group",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			if target <= 0 {
				return fmt.Errorf("--to is required")
			}
			if _, err := a.require(cmd.Context(), "/admin/groups"); err != nil {
				return err
			}
			if err := a.api.Groups.MoveMentees(cmd.Context(), ids, target); err != nil {
				return describe("move mentees", err)
			}
			fmt.Fprintf(a.out, "%d binaan dipindahkan ke kelompok #%d.\n", len(ids), target)
			return nil
		},
	}
	move.Flags().Int64Var(&target, "to", 0, "Target group ID")

	cmd.AddCommand(list, get, create, update, del, addMentees, move)
	return cmd
}

func groupFlags(cmd *cobra.Command, in *api.GroupInput) {
	cmd.Flags().StringVar(&in.Name, "name", "", "Group name")
	cmd.Flags().StringVar(&in.Description, "description", "", "Description")
	cmd.Flags().Int64Var(&in.MentorID, "mentor-id", 0, "Mentor user ID")
	cmd.Flags().Int64SliceVar(&in.MenteeIDs, "mentee-id", nil, "Mentee IDs to add (repeatable)")
}

func (a *app) newMenteesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mentees",
		Aliases: []string{"binaan"},
		Short:   "Manage mentees",
	}

	var (
		lf     listFlags
		gender string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List mentees",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.require(cmd.Context(), "/admin/mentees"); err != nil {
				return err
			}
			opts := lf.options()
			if gender != "" {
				opts.Filters = map[string]string{"gender": gender}
			}
			page, err := a.api.Groups.ListMentees(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("list mentees: %w", err)
			}
			return a.render(page.Items, menteeTable(page.Items, page.Pagination))
		},
	}
	lf.register(list)
	list.Flags().StringVar(&gender, "gender", "", "Filter by gender (Ikhwan, Akhwat)")

	var (
		in      api.MenteeInput
		groupID int64
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Add a mentee",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.require(cmd.Context(), "/admin/mentees"); err != nil {
				return err
			}
			if groupID > 0 {
				in.GroupID = &groupID
			}
			m, err := a.api.Groups.CreateMentee(cmd.Context(), in)
			if err != nil {
				return describe("create mentee", err)
			}
			fmt.Fprintf(a.out, "Binaan %q ditambahkan (#%d).\n", m.FullName, m.ID)
			return nil
		},
	}
	menteeFlags(create, &in, &groupID)

	var (
		upd        api.MenteeInput
		updGroupID int64
	)
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a mentee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.require(cmd.Context(), "/admin/mentees"); err != nil {
				return err
			}
			if updGroupID > 0 {
				upd.GroupID = &updGroupID
			}
			m, err := a.api.Groups.UpdateMentee(cmd.Context(), id, upd)
			if err != nil {
				return describe("update mentee", err)
			}
			fmt.Fprintf(a.out, "Binaan %q diperbarui.\n", m.FullName)
			return nil
		},
	}
	menteeFlags(update, &upd, &updGroupID)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a mentee",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.require(cmd.Context(), "/admin/mentees"); err != nil {
				return err
			}
			if err := a.api.Groups.DeleteMentee(cmd.Context(), id); err != nil {
				return describe("delete mentee", err)
			}
			fmt.Fprintf(a.out, "Binaan #%d dihapus.\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, create, update, del)
	return cmd
}

func menteeFlags(cmd *cobra.Command, in *api.MenteeInput, groupID *int64) {
	cmd.Flags().StringVar(&in.FullName, "name", "", "Full name")
	cmd.Flags().StringVar(&in.Nickname, "nickname", "", "Nickname")
	cmd.Flags().StringVar(&in.Gender, "gender", "", "Gender (Ikhwan, Akhwat)")
	cmd.Flags().StringVar(&in.PhoneNumber, "phone", "", "Phone number")
	cmd.Flags().StringVar(&in.BirthDate, "birth-date", "", "Birth date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&in.ActivityClass, "class", "", "Class")
	cmd.Flags().StringVar(&in.Hobby, "hobby", "", "Hobby")
	cmd.Flags().StringVar(&in.Address, "address", "", "Address")
	cmd.Flags().StringVar(&in.Status, "status", "", "Status")
	cmd.Flags().Int64Var(groupID, "group-id", 0, "Group ID")
}

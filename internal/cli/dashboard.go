package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/me/jejakliqo/internal/access"
	"github.com/me/jejakliqo/pkg/model"
)

func (a *app) newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the dashboard counters for your role",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			u, err := a.auth.CurrentUser(ctx)
			if err != nil {
				return err
			}
			if u == nil {
				return ErrNotLoggedIn
			}
			if _, err := a.require(ctx, access.HomePath(u.Role)); err != nil {
				return err
			}

			tbl := &table{header: []string{"METRIK", "JUMLAH"}}
			if u.IsMentor() {
				st, err := a.api.Dashboard.MentorStats(ctx)
				if err != nil {
					return fmt.Errorf("dashboard: %w", err)
				}
				tbl.add("Kelompok", strconv.Itoa(st.TotalGroups))
				tbl.add("Binaan", strconv.Itoa(st.TotalMentees))
				tbl.add("Pertemuan", strconv.Itoa(st.TotalMeetings))
				tbl.add("Pertemuan bulan ini", strconv.Itoa(st.MeetingsThisMonth))
				return a.render(st, tbl)
			}

			st, err := a.api.Dashboard.Stats(ctx)
			if err != nil {
				return fmt.Errorf("dashboard: %w", err)
			}
			tbl.add("Binaan", strconv.Itoa(st.TotalMentees))
			tbl.add("Mentor", strconv.Itoa(st.TotalMentors))
			if u.IsSuperAdmin() {
				tbl.add("Admin", strconv.Itoa(st.TotalAdmins))
			}
			tbl.add("Kelompok", strconv.Itoa(st.TotalGroups))
			tbl.add("Pertemuan", strconv.Itoa(st.TotalMeetings))
			tbl.add("Pertemuan bulan ini", strconv.Itoa(st.MeetingsThisMonth))
			genders := make([]string, 0, len(st.GenderBreakdown))
			for g := range st.GenderBreakdown {
				genders = append(genders, g)
			}
			sort.Strings(genders)
			for _, g := range genders {
				tbl.add("Binaan "+g, strconv.Itoa(st.GenderBreakdown[g]))
			}
			return a.render(st, tbl)
		},
	}
}

func (a *app) newActivitiesCmd() *cobra.Command {
	var (
		lf     listFlags
		recent int
	)

	cmd := &cobra.Command{
		Use:   "activities",
		Short: "List the activity log",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if _, err := a.require(ctx, "/admin/activities"); err != nil {
				return err
			}

			var (
				items []model.Activity
				pg    *model.Pagination
			)
			if recent > 0 {
				acts, err := a.api.Activities.Recent(ctx, recent)
				if err != nil {
					return fmt.Errorf("list activities: %w", err)
				}
				items = acts
			} else {
				page, err := a.api.Activities.List(ctx, lf.options())
				if err != nil {
					return fmt.Errorf("list activities: %w", err)
				}
				items, pg = page.Items, page.Pagination
			}

			tbl := &table{header: []string{"WAKTU", "PENGGUNA", "AKSI", "KETERANGAN"}, footer: pageFooter(pg, len(items))}
			for _, act := range items {
				tbl.add(act.CreatedAt, act.UserName, act.Action, act.Description)
			}
			return a.render(items, tbl)
		},
	}

	lf.register(cmd)
	cmd.Flags().IntVar(&recent, "recent", 0, "Show only the N most recent entries")
	return cmd
}

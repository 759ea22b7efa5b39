package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/jejakliqo/internal/api"
	"github.com/me/jejakliqo/internal/apiclient"
	"github.com/me/jejakliqo/pkg/model"
)

// parseAttendance reads "mentee-id:status[:notes]".
func parseAttendance(s string) (model.Attendance, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) < 2 {
		return model.Attendance{}, fmt.Errorf("invalid attendance %q, want mentee-id:status", s)
	}
	id, err := parseID(parts[0])
	if err != nil {
		return model.Attendance{}, err
	}
	att := model.Attendance{MenteeID: id, Status: parts[1]}
	if len(parts) == 3 {
		att.Notes = parts[2]
	}
	return att, nil
}

// meetingForm collects the flags shared by create and update.
type meetingForm struct {
	in         api.MeetingInput
	attendance []string
	photos     []string
}

func (f *meetingForm) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.in.GroupID, "group-id", 0, "Group ID")
	cmd.Flags().StringVar(&f.in.MeetingDate, "date", "", "Meeting date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.in.Place, "place", "", "Place")
	cmd.Flags().StringVar(&f.in.Topic, "topic", "", "Topic")
	cmd.Flags().StringVar(&f.in.Notes, "notes", "", "Notes")
	cmd.Flags().StringVar(&f.in.MeetingType, "type", api.MeetingOffline, "Meeting type (Offline, Online, Assignment)")
	cmd.Flags().StringArrayVar(&f.attendance, "attendance", nil, "Attendance as mentee-id:status[:notes] (repeatable)")
	cmd.Flags().StringArrayVar(&f.photos, "photo", nil, "Photo file to attach (repeatable)")
}

// build resolves the input and opens the photo files. The returned closer
// releases them.
func (f *meetingForm) build() (api.MeetingInput, []apiclient.File, func(), error) {
	in := f.in
	in.Attendances = nil
	for _, s := range f.attendance {
		att, err := parseAttendance(s)
		if err != nil {
			return in, nil, func() {}, err
		}
		in.Attendances = append(in.Attendances, att)
	}

	var (
		files  []apiclient.File
		opened []*os.File
	)
	closeAll := func() {
		for _, fh := range opened {
			fh.Close()
		}
	}
	for _, p := range f.photos {
		fh, err := os.Open(p)
		if err != nil {
			closeAll()
			return in, nil, func() {}, fmt.Errorf("open photo: %w", err)
		}
		opened = append(opened, fh)
		files = append(files, apiclient.File{Name: filepath.Base(p), Reader: fh})
	}
	return in, files, closeAll, nil
}

func (a *app) meetingsRoute(cmd *cobra.Command) (*model.User, error) {
	u, err := a.auth.CurrentUser(cmd.Context())
	if err != nil {
		return nil, err
	}
	if u != nil && u.IsMentor() {
		return a.require(cmd.Context(), "/mentor/meetings")
	}
	return a.require(cmd.Context(), "/admin/meetings")
}

func (a *app) newMeetingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "meetings",
		Aliases: []string{"pertemuan"},
		Short:   "Record and review group meetings",
	}

	var lf listFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List meetings (mentors see their own)",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := a.meetingsRoute(cmd)
			if err != nil {
				return err
			}
			var page *model.Page[model.Meeting]
			if u.IsMentor() {
				page, err = a.api.Mentor.Meetings(cmd.Context(), lf.options())
			} else {
				page, err = a.api.Meetings.List(cmd.Context(), lf.options())
			}
			if err != nil {
				return fmt.Errorf("list meetings: %w", err)
			}
			tbl := &table{header: []string{"ID", "TANGGAL", "KELOMPOK", "TOPIK", "TEMPAT", "JENIS"}, footer: pageFooter(page.Pagination, len(page.Items))}
			for _, m := range page.Items {
				group := strconv.FormatInt(m.GroupID, 10)
				if m.Group != nil {
					group = m.Group.Name
				}
				tbl.add(strconv.FormatInt(m.ID, 10), m.MeetingDate, group, m.Topic, m.Place, m.MeetingType)
			}
			return a.render(page.Items, tbl)
		},
	}
	lf.register(list)

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a meeting with its attendance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.meetingsRoute(cmd); err != nil {
				return err
			}
			m, err := a.api.Meetings.Get(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get meeting: %w", err)
			}
			if a.flagOutput != formatTable {
				return a.render(m, nil)
			}
			fmt.Fprintf(a.out, "Pertemuan #%d: %s\n", m.ID, m.Topic)
			fmt.Fprintf(a.out, "Tanggal: %s  Tempat: %s  Jenis: %s\n", m.MeetingDate, m.Place, m.MeetingType)
			for _, p := range m.Photos {
				fmt.Fprintf(a.out, "Foto: %s\n", a.client.AssetURL(p))
			}
			fmt.Fprintln(a.out)
			tbl := &table{header: []string{"BINAAN", "STATUS", "CATATAN"}}
			for _, att := range m.Attendances {
				tbl.add(strconv.FormatInt(att.MenteeID, 10), att.Status, att.Notes)
			}
			return writeTable(a.out, tbl)
		},
	}

	var cf meetingForm
	create := &cobra.Command{
		Use:   "create",
		Short: "Record a meeting",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.meetingsRoute(cmd); err != nil {
				return err
			}
			in, photos, done, err := cf.build()
			if err != nil {
				return err
			}
			defer done()
			m, err := a.api.Meetings.Create(cmd.Context(), in, photos)
			if err != nil {
				return describe("create meeting", err)
			}
			fmt.Fprintf(a.out, "Pertemuan #%d dicatat (%d kehadiran, %d foto).\n", m.ID, len(m.Attendances), len(m.Photos))
			return nil
		},
	}
	cf.register(create)

	var uf meetingForm
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a meeting; photos are appended",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.meetingsRoute(cmd); err != nil {
				return err
			}
			in, photos, done, err := uf.build()
			if err != nil {
				return err
			}
			defer done()
			m, err := a.api.Meetings.Update(cmd.Context(), id, in, photos)
			if err != nil {
				return describe("update meeting", err)
			}
			fmt.Fprintf(a.out, "Pertemuan #%d diperbarui.\n", m.ID)
			return nil
		},
	}
	uf.register(update)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a meeting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.require(cmd.Context(), "/admin/meetings"); err != nil {
				return err
			}
			if err := a.api.Meetings.Delete(cmd.Context(), id); err != nil {
				return describe("delete meeting", err)
			}
			fmt.Fprintf(a.out, "Pertemuan #%d dihapus.\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, get, create, update, del)
	return cmd
}

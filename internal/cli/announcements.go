package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/me/jejakliqo/internal/api"
	"github.com/me/jejakliqo/internal/apiclient"
)

// openAttachment opens path as an upload, or returns nil for "".
func openAttachment(path string) (*apiclient.File, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, func() {}, fmt.Errorf("open attachment: %w", err)
	}
	return &apiclient.File{Name: filepath.Base(path), Reader: f}, func() { f.Close() }, nil
}

func announcementFlags(cmd *cobra.Command, in *api.AnnouncementInput, file *string) {
	cmd.Flags().StringVar(&in.Title, "title", "", "Title")
	cmd.Flags().StringVar(&in.Content, "content", "", "Content")
	cmd.Flags().StringVar(&in.EventAt, "event-at", "", "Event date and time")
	cmd.Flags().StringVar(&in.Location, "location", "", "Location")
	cmd.Flags().StringVar(&in.Status, "status", "", "Status (published, archived)")
	cmd.Flags().StringVar(file, "file", "", "Attachment to upload")
}

func (a *app) newAnnouncementsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "announcements",
		Aliases: []string{"pengumuman"},
		Short:   "Read and publish announcements",
	}

	var lf listFlags
	list := &cobra.Command{
		Use:   "list",
		Short: "List announcements",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.require(cmd.Context(), "/announcements"); err != nil {
				return err
			}
			page, err := a.api.Announcements.List(cmd.Context(), lf.options())
			if err != nil {
				return fmt.Errorf("list announcements: %w", err)
			}
			tbl := &table{header: []string{"ID", "JUDUL", "WAKTU", "LOKASI", "STATUS"}, footer: pageFooter(page.Pagination, len(page.Items))}
			for _, ann := range page.Items {
				tbl.add(strconv.FormatInt(ann.ID, 10), ann.Title, ann.EventAt, ann.Location, ann.Status)
			}
			return a.render(page.Items, tbl)
		},
	}
	lf.register(list)

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show an announcement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.require(cmd.Context(), "/announcements"); err != nil {
				return err
			}
			ann, err := a.api.Announcements.Get(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("get announcement: %w", err)
			}
			if a.flagOutput != formatTable {
				return a.render(ann, nil)
			}
			fmt.Fprintf(a.out, "%s\n\n%s\n", ann.Title, ann.Content)
			if ann.EventAt != "" || ann.Location != "" {
				fmt.Fprintf(a.out, "\nWaktu: %s  Lokasi: %s\n", ann.EventAt, ann.Location)
			}
			if ann.File != "" {
				fmt.Fprintf(a.out, "Lampiran: %s\n", a.client.AssetURL(ann.File))
			}
			return nil
		},
	}

	var (
		in   api.AnnouncementInput
		file string
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Publish an announcement",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.require(cmd.Context(), "/admin/announcements"); err != nil {
				return err
			}
			att, done, err := openAttachment(file)
			if err != nil {
				return err
			}
			defer done()
			ann, err := a.api.Announcements.Create(cmd.Context(), in, att)
			if err != nil {
				return describe("create announcement", err)
			}
			fmt.Fprintf(a.out, "Pengumuman %q diterbitkan (#%d).\n", ann.Title, ann.ID)
			return nil
		},
	}
	announcementFlags(create, &in, &file)

	var (
		upd     api.AnnouncementInput
		updFile string
	)
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update an announcement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.require(cmd.Context(), "/admin/announcements"); err != nil {
				return err
			}
			att, done, err := openAttachment(updFile)
			if err != nil {
				return err
			}
			defer done()
			ann, err := a.api.Announcements.Update(cmd.Context(), id, upd, att)
			if err != nil {
				return describe("update announcement", err)
			}
			fmt.Fprintf(a.out, "Pengumuman %q diperbarui.\n", ann.Title)
			return nil
		},
	}
	announcementFlags(update, &upd, &updFile)

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an announcement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.require(cmd.Context(), "/admin/announcements"); err != nil {
				return err
			}
			if err := a.api.Announcements.Delete(cmd.Context(), id); err != nil {
				return describe("delete announcement", err)
			}
			fmt.Fprintf(a.out, "Pengumuman #%d dihapus.\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, get, create, update, del)
	return cmd
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/me/jejakliqo/internal/api"
	"github.com/me/jejakliqo/internal/apiclient"
)

func (a *app) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <mentees|mentors|groups|meetings> <file>",
		Short: "Import a spreadsheet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := api.ParseImportKind(args[0])
			if err != nil {
				return err
			}
			if _, err := a.require(cmd.Context(), "/admin/import"); err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()

			res, err := a.api.Imports.Upload(cmd.Context(), kind, filepath.Base(args[1]), f)
			if err != nil {
				return describe("import "+string(kind), err)
			}
			if a.flagOutput != formatTable {
				return a.render(res, nil)
			}
			fmt.Fprintf(a.out, "%d data diimpor, %d dilewati.\n", res.Imported, res.Skipped)
			for _, e := range res.Errors {
				fmt.Fprintf(a.out, "  - %s\n", e)
			}
			return nil
		},
	}
}

func (a *app) newExportCmd() *cobra.Command {
	var (
		format string
		out    string
		gender string
	)

	cmd := &cobra.Command{
		Use:   "export <mentees|mentors|groups|meetings>",
		Short: "Download an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := api.ParseImportKind(args[0])
			if err != nil {
				return err
			}
			if _, err := a.require(cmd.Context(), "/admin/export"); err != nil {
				return err
			}
			var filters map[string]string
			if gender != "" {
				filters = map[string]string{"gender": gender}
			}
			d, err := a.api.Imports.Export(cmd.Context(), kind, format, filters)
			if err != nil {
				return describe("export "+string(kind), err)
			}
			return a.save(d, out, fmt.Sprintf("%s.%s", kind, format))
		},
	}

	cmd.Flags().StringVar(&format, "format", api.FormatCSV, "File format (csv, xlsx, pdf)")
	cmd.Flags().StringVar(&out, "out", "", "Output path (defaults to the server-suggested name)")
	cmd.Flags().StringVar(&gender, "gender", "", "Filter by gender (Ikhwan, Akhwat)")
	return cmd
}

func (a *app) newTemplateCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "template <mentees|mentors|groups|meetings>",
		Short: "Download an import template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := api.ParseImportKind(args[0])
			if err != nil {
				return err
			}
			if _, err := a.require(cmd.Context(), "/admin/import"); err != nil {
				return err
			}
			d, err := a.api.Imports.Template(cmd.Context(), kind)
			if err != nil {
				return describe("template "+string(kind), err)
			}
			return a.save(d, out, "template-"+string(kind))
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output path (defaults to the server-suggested name)")
	return cmd
}

// save writes d to out, falling back to the server's filename and then to
// fallback. "-" writes to stdout.
func (a *app) save(d *apiclient.Download, out, fallback string) error {
	if out == "-" {
		_, err := a.out.Write(d.Data)
		return err
	}
	if out == "" {
		out = filepath.Base(d.Filename)
		if d.Filename == "" || out == "." || out == "/" {
			out = fallback
		}
	}
	if err := os.WriteFile(out, d.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Fprintf(a.out, "Disimpan ke %s (%d byte).\n", out, len(d.Data))
	return nil
}

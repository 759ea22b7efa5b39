package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/me/jejakliqo/pkg/model"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func validFormat(f string) bool {
	return f == formatTable || f == formatJSON || f == formatYAML
}

// table is a rendered listing for the table format.
type table struct {
	header []string
	rows   [][]string
	footer string
}

func (t *table) add(cols ...string) {
	t.rows = append(t.rows, cols)
}

// render writes v in the selected format. tbl is used for the table format
// and may be nil when v has no tabular form, in which case v is printed as
// YAML.
func (a *app) render(v any, tbl *table) error {
	switch {
	case a.flagOutput == formatJSON:
		return writeJSON(a.out, v)
	case a.flagOutput == formatYAML || tbl == nil:
		return writeYAML(a.out, v)
	default:
		return writeTable(a.out, tbl)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeYAML encodes v with its JSON field names.
func writeYAML(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

func writeTable(w io.Writer, t *table) error {
	if len(t.rows) == 0 {
		_, err := fmt.Fprintln(w, "Tidak ada data.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.header, "\t"))
	for _, row := range t.rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if t.footer != "" {
		_, err := fmt.Fprintf(w, "\n%s\n", t.footer)
		return err
	}
	return nil
}

// pageFooter summarizes a paginated listing.
func pageFooter(p *model.Pagination, shown int) string {
	if p == nil || p.LastPage <= 1 {
		return ""
	}
	return fmt.Sprintf("(%d dari %d ditampilkan, halaman %d/%d)", shown, p.Total, p.CurrentPage, p.LastPage)
}

// listFlags are the paging flags shared by list commands.
type listFlags struct {
	page    int
	perPage int
	search  string
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.page, "page", 1, "Page number")
	cmd.Flags().IntVar(&f.perPage, "per-page", 10, "Items per page (max 100)")
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "Search text")
}

func (f *listFlags) options() model.ListOptions {
	opts := model.ListOptions{Page: f.page, PerPage: f.perPage, Search: f.search}
	opts.Clamp()
	return opts
}

package listing

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Render picks the table layout when width reaches the breakpoint and the
// card layout otherwise.
func (t *Table[R]) Render(w io.Writer, width int) error {
	if width >= t.opts.Breakpoint {
		return t.RenderTable(w)
	}
	return t.RenderCards(w)
}

func (t *Table[R]) RenderTable(w io.Writer) error {
	visible := t.Visible()
	if len(visible) == 0 {
		return t.renderEmpty(w)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := make([]string, 0, len(t.columns)+2)
	header = append(header, "#")
	for _, col := range t.columns {
		header = append(header, col.Label)
	}
	if t.opts.Actions != nil {
		header = append(header, t.msgs.T("listing.actions"))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	offset := (t.Page() - 1) * t.pageSize
	for i, row := range visible {
		cells := make([]string, 0, len(header))
		cells = append(cells, fmt.Sprint(offset+i+1))
		for _, col := range t.columns {
			cells = append(cells, cell(col.Text(row)))
		}
		if t.opts.Actions != nil {
			cells = append(cells, cell(t.opts.Actions(row)))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return t.renderFooter(w)
}

// RenderCards prints the first two columns of each row and the rest only for
// expanded rows.
func (t *Table[R]) RenderCards(w io.Writer) error {
	visible := t.Visible()
	if len(visible) == 0 {
		return t.renderEmpty(w)
	}

	offset := (t.Page() - 1) * t.pageSize
	for i, row := range visible {
		fmt.Fprintf(w, "[%d]\n", offset+i+1)
		for j, col := range t.columns {
			if j >= 2 && !t.expanded[i] {
				fmt.Fprintf(w, "  ... (+%d)\n", len(t.columns)-2)
				break
			}
			fmt.Fprintf(w, "  %s: %s\n", col.Label, cell(col.Text(row)))
		}
		if t.opts.Actions != nil {
			fmt.Fprintf(w, "  %s: %s\n", t.msgs.T("listing.actions"), cell(t.opts.Actions(row)))
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return t.renderFooter(w)
}

func (t *Table[R]) renderEmpty(w io.Writer) error {
	_, err := fmt.Fprintln(w, t.msgs.T("listing.empty"))
	return err
}

func (t *Table[R]) renderFooter(w io.Writer) error {
	_, err := fmt.Fprintln(w, t.msgs.T("listing.pageInfo", t.Page(), t.TotalPages(), len(t.Filtered())))
	return err
}

func cell(s string) string {
	s = strings.NewReplacer("\t", " ", "\n", " ", "\r", "").Replace(s)
	if s == "" {
		return "-"
	}
	return s
}

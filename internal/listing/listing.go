// Package listing renders any homogeneous collection with search,
// pagination, export and two layouts.
//
// A Table borrows its rows: filtering and pagination always produce new
// slices and never reorder or modify the caller's collection.
package listing

import (
	"errors"
	"fmt"
	"strings"

	"affconsole/internal/i18n"
)

// PageSizes are the selectable page sizes.
var PageSizes = []int{10, 25, 50}

const DefaultBreakpoint = 100

var (
	ErrSearchDisabled = errors.New("listing: search is disabled")
	ErrExportDisabled = errors.New("listing: export is disabled")
	ErrPageSize       = errors.New("listing: unsupported page size")
	ErrRowIndex       = errors.New("listing: row index out of range")
)

// Column describes one column. Value returns the raw value used for search
// and export; Render, when set, formats it for display.
type Column[R any] struct {
	Key    string
	Label  string
	Value  func(R) any
	Render func(R) string
}

// Raw is the string form of the column's raw value.
func (c Column[R]) Raw(row R) string {
	if c.Value == nil {
		return ""
	}
	v := c.Value(row)
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Text is what the layouts print for the column.
func (c Column[R]) Text(row R) string {
	if c.Render != nil {
		return c.Render(row)
	}
	return c.Raw(row)
}

type Options[R any] struct {
	Searchable bool
	Exportable bool
	// Actions renders the per-row action cell.
	Actions    func(R) string
	OnRowClick func(R)
	// OnExport receives the filtered, unpaginated rows.
	OnExport   func(rows []R, columns []Column[R]) error
	PageSize   int
	Breakpoint int
	Messages   *i18n.Localizer
}

type Table[R any] struct {
	rows     []R
	columns  []Column[R]
	opts     Options[R]
	msgs     *i18n.Localizer
	search   string
	page     int
	pageSize int
	expanded map[int]bool
}

func New[R any](rows []R, columns []Column[R], opts Options[R]) *Table[R] {
	if opts.Breakpoint <= 0 {
		opts.Breakpoint = DefaultBreakpoint
	}
	msgs := opts.Messages
	if msgs == nil {
		msgs = i18n.New(i18n.DefaultLanguage)
	}
	t := &Table[R]{
		rows:     rows,
		columns:  columns,
		opts:     opts,
		msgs:     msgs,
		page:     1,
		pageSize: PageSizes[0],
		expanded: make(map[int]bool),
	}
	if validPageSize(opts.PageSize) {
		t.pageSize = opts.PageSize
	}
	return t
}

func (t *Table[R]) Columns() []Column[R] {
	return t.columns
}

// SetRows replaces the collection, keeping search and clamping the page.
func (t *Table[R]) SetRows(rows []R) {
	t.rows = rows
	t.page = t.Page()
	t.resetExpanded()
}

// SetSearch changes the search term and returns to the first page.
func (t *Table[R]) SetSearch(term string) error {
	if !t.opts.Searchable {
		return ErrSearchDisabled
	}
	if term != t.search {
		t.search = term
		t.page = 1
		t.resetExpanded()
	}
	return nil
}

func (t *Table[R]) Search() string {
	return t.search
}

// SetPageSize accepts one of PageSizes and returns to the first page.
func (t *Table[R]) SetPageSize(size int) error {
	if !validPageSize(size) {
		return fmt.Errorf("%w: %d", ErrPageSize, size)
	}
	if size != t.pageSize {
		t.pageSize = size
		t.page = 1
		t.resetExpanded()
	}
	return nil
}

func (t *Table[R]) PageSize() int {
	return t.pageSize
}

// SetPage moves to page n, clamped to [1, TotalPages].
func (t *Table[R]) SetPage(n int) {
	t.page = clamp(n, 1, t.TotalPages())
	t.resetExpanded()
}

func (t *Table[R]) NextPage() {
	t.SetPage(t.Page() + 1)
}

func (t *Table[R]) PrevPage() {
	t.SetPage(t.Page() - 1)
}

// Page is the current page, clamped to the filtered collection.
func (t *Table[R]) Page() int {
	return clamp(t.page, 1, t.TotalPages())
}

func (t *Table[R]) TotalPages() int {
	return TotalPages(len(t.Filtered()), t.pageSize)
}

// Filtered returns the rows matching the search term.
func (t *Table[R]) Filtered() []R {
	return Filter(t.rows, t.columns, t.search)
}

// Visible returns the rows of the current page.
func (t *Table[R]) Visible() []R {
	return Paginate(t.Filtered(), t.Page(), t.pageSize)
}

// ToggleExpand flips the card expansion of the i-th visible row.
func (t *Table[R]) ToggleExpand(i int) error {
	if i < 0 || i >= len(t.Visible()) {
		return ErrRowIndex
	}
	t.expanded[i] = !t.expanded[i]
	return nil
}

func (t *Table[R]) Expanded(i int) bool {
	return t.expanded[i]
}

// Click invokes the row-click handler for the i-th visible row.
func (t *Table[R]) Click(i int) error {
	visible := t.Visible()
	if i < 0 || i >= len(visible) {
		return ErrRowIndex
	}
	if t.opts.OnRowClick != nil {
		t.opts.OnRowClick(visible[i])
	}
	return nil
}

// Export hands the filtered, unpaginated rows to OnExport.
func (t *Table[R]) Export() error {
	if !t.opts.Exportable || t.opts.OnExport == nil {
		return ErrExportDisabled
	}
	return t.opts.OnExport(t.Filtered(), t.columns)
}

func (t *Table[R]) resetExpanded() {
	clear(t.expanded)
}

// Filter keeps the rows where the raw value of any column contains term,
// ignoring case. An empty term keeps every row.
func Filter[R any](rows []R, columns []Column[R], term string) []R {
	out := make([]R, 0, len(rows))
	needle := strings.ToLower(term)
	for _, row := range rows {
		if needle == "" || matches(row, columns, needle) {
			out = append(out, row)
		}
	}
	return out
}

func matches[R any](row R, columns []Column[R], needle string) bool {
	for _, col := range columns {
		if strings.Contains(strings.ToLower(col.Raw(row)), needle) {
			return true
		}
	}
	return false
}

// Paginate returns rows[(page-1)*size : (page-1)*size+size], bounded by the
// slice length.
func Paginate[R any](rows []R, page, size int) []R {
	if size <= 0 || page < 1 {
		return []R{}
	}
	start := (page - 1) * size
	if start >= len(rows) {
		return []R{}
	}
	end := min(start+size, len(rows))
	out := make([]R, end-start)
	copy(out, rows[start:end])
	return out
}

// TotalPages is never less than one, so an empty listing still has a page.
func TotalPages(n, size int) int {
	if size <= 0 || n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

func validPageSize(size int) bool {
	for _, s := range PageSizes {
		if s == size {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

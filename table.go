package eitc

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrFormat reports a file that is not a readable data table.
	ErrFormat = errors.New("malformed data file")

	// ErrMissingColumn reports a reference to a column the table
	// does not have.
	ErrMissingColumn = errors.New("missing column")
)

// A Table is an immutable collection of equal-length named columns.
// Methods that change the shape of a table return a new Table; the
// columns that are not affected are shared with the receiver.
type Table struct {
	cols  []*Series
	index map[string]int
	nrow  int
}

// NewTable returns a table holding the given columns.  Column names
// must be unique and all columns must have the same length.
func NewTable(cols ...*Series) (*Table, error) {

	t := &Table{
		cols:  make([]*Series, 0, len(cols)),
		index: make(map[string]int, len(cols)),
	}
	for j, c := range cols {
		if j == 0 {
			t.nrow = c.Length()
		} else if c.Length() != t.nrow {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Length(), t.nrow)
		}
		if _, ok := t.index[c.Name]; ok {
			return nil, fmt.Errorf("duplicate column %q", c.Name)
		}
		t.index[c.Name] = len(t.cols)
		t.cols = append(t.cols, c)
	}
	return t, nil
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return t.nrow
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for j, c := range t.cols {
		names[j] = c.Name
	}
	return names
}

// Columns returns the columns in order.
func (t *Table) Columns() []*Series {
	return append([]*Series(nil), t.cols...)
}

// Column returns the named column.  The error wraps ErrMissingColumn
// if there is no such column.
func (t *Table) Column(name string) (*Series, error) {
	j, ok := t.index[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, name)
	}
	return t.cols[j], nil
}

// Float64 returns the named numeric column as float64 values with
// its missing value mask.
func (t *Table) Float64(name string) ([]float64, []bool, error) {
	c, err := t.Column(name)
	if err != nil {
		return nil, nil, err
	}
	return c.Float64()
}

// Require checks that every named column is present and numeric.
func (t *Table) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		c, ok := t.index[n]
		if !ok {
			missing = append(missing, n)
			continue
		}
		if !t.cols[c].IsNumeric() {
			return fmt.Errorf("column %q is not numeric", n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// Numeric returns t with each named string column converted to
// float64, values that do not parse becoming missing.  A column none
// of whose values parse is left as it is, as are absent columns, so
// that Require still reports them.
func (t *Table) Numeric(names ...string) *Table {

	var cols []*Series
	for _, n := range names {
		c, err := t.Column(n)
		if err != nil || c.IsNumeric() {
			continue
		}
		f := c.ForceNumeric()
		if f == c || f.CountMissing() == f.Length() {
			continue
		}
		cols = append(cols, f)
	}
	if len(cols) == 0 {
		return t
	}

	out := t
	for _, c := range cols {
		// Same length and a new name never fail.
		out, _ = out.WithColumn(c)
	}
	return out
}

// WithColumn returns a table with c appended, or replacing the
// column of the same name.
func (t *Table) WithColumn(c *Series) (*Table, error) {

	if c.Length() != t.nrow && len(t.cols) > 0 {
		return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Length(), t.nrow)
	}

	cols := t.Columns()
	if j, ok := t.index[c.Name]; ok {
		cols[j] = c
	} else {
		cols = append(cols, c)
	}
	return NewTable(cols...)
}

// Filter returns a table holding the rows where keep is true.
func (t *Table) Filter(keep []bool) (*Table, error) {

	if len(keep) != t.nrow {
		return nil, fmt.Errorf("filter mask has length %d, want %d", len(keep), t.nrow)
	}

	cols := make([]*Series, len(t.cols))
	for j, c := range t.cols {
		s, err := c.Subset(keep)
		if err != nil {
			return nil, err
		}
		cols[j] = s
	}
	return NewTable(cols...)
}

// Load reads a data table from a Stata dta file or a CSV file,
// chosen by the file extension.  A path that does not exist gives
// an error matching fs.ErrNotExist; a file that cannot be parsed
// gives an error matching ErrFormat.
func Load(path string) (*Table, error) {

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".dta" && ext != ".csv" {
		return nil, fmt.Errorf("%w: %s: unknown file type %q", ErrFormat, path, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var t *Table
	if ext == ".dta" {
		t, err = LoadStata(f)
	} else {
		t, err = LoadCSV(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// LoadStata reads all rows of a Stata dta file.  Numeric columns are
// kept numeric: value labels are not inserted and dates are not
// converted.
func LoadStata(r io.ReadSeeker) (*Table, error) {

	rdr, err := NewStataReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if rdr.Nvar == 0 {
		return nil, fmt.Errorf("%w: no variables", ErrFormat)
	}
	rdr.InsertCategoryLabels = false
	rdr.ConvertDates = false

	if rdr.RowCount() == 0 {
		cols := make([]*Series, rdr.Nvar)
		for j, name := range rdr.ColumnNames() {
			cols[j], _ = NewSeries(name, []float64{}, nil)
		}
		return NewTable(cols...)
	}

	return readTable(rdr)
}

// LoadCSV reads a CSV file with a header row.
func LoadCSV(r io.Reader) (*Table, error) {
	return readTable(NewCSVReader(r))
}

func readTable(rdr StatfileReader) (*Table, error) {
	cols, err := rdr.Read(-1)
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: no data rows", ErrFormat)
	} else if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	t, err := NewTable(cols...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return t, nil
}

// WriteCSV writes the table as CSV with a header row.  Missing values
// are written as empty fields.
func WriteCSV(w io.Writer, t *Table) error {

	cw := csv.NewWriter(w)
	if err := cw.Write(t.Names()); err != nil {
		return err
	}

	row := make([]string, len(t.cols))
	for i := 0; i < t.nrow; i++ {
		for j, c := range t.cols {
			row[j] = c.String(i)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

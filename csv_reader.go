package eitc

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// sniffRows is the number of records used to infer column types.
const sniffRows = 100

// A CSVReader specifies how a data set in CSV format can be read from
// a text file.
type CSVReader struct {

	// Skip this number of rows before reading the header.
	SkipRows int

	// If true, there is a header to read, otherwise default column names are used
	HasHeader bool

	// The column names, in the order that they appear in the
	// file.  Can be set by caller.
	Names []string

	// User-specified data types (maps column name to type name).
	TypeHintsName map[string]string

	// User-specified data types (indexed by column number).
	TypeHintsPos []string

	// The data type for each column, "float64" or "string".
	DataTypes []string

	initRun bool

	// Records read while sniffing types, not yet returned.
	lines [][]string

	csvreader *csv.Reader
}

// NewCSVReader returns a CSVReader that reads CSV data from the given io.reader,
// with type inference and chunking.
func NewCSVReader(r io.Reader) *CSVReader {

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	return &CSVReader{
		HasHeader: true,
		csvreader: cr,
	}
}

func defaultName(k int) string {
	return fmt.Sprintf("Column %d", k+1)
}

func (rdr *CSVReader) setColumnNames() {

	if rdr.HasHeader {
		rdr.Names = rdr.lines[0]
		rdr.lines = rdr.lines[1:]
		return
	}

	rdr.Names = make([]string, len(rdr.lines[0]))
	for k := range rdr.Names {
		rdr.Names[k] = defaultName(k)
	}
}

func (rdr *CSVReader) sniffTypes() {

	nFloats, nObs := rdr.countFloats()

	rdr.DataTypes = make([]string, len(rdr.Names))
	for j, col := range rdr.Names {

		if t, ok := rdr.TypeHintsName[col]; ok {
			rdr.DataTypes[j] = t
			continue
		}
		if j < len(rdr.TypeHintsPos) && rdr.TypeHintsPos[j] != "" {
			rdr.DataTypes[j] = rdr.TypeHintsPos[j]
			continue
		}

		if j < len(nObs) && nObs[j] > 0 && nFloats[j] == nObs[j] {
			rdr.DataTypes[j] = "float64"
		} else {
			rdr.DataTypes[j] = "string"
		}
	}
}

// rectifyLines pads the cached records to a common width.
func (rdr *CSVReader) rectifyLines() {

	mx := 0
	for _, line := range rdr.lines {
		if len(line) > mx {
			mx = len(line)
		}
	}

	for i, line := range rdr.lines {
		for len(line) < mx {
			line = append(line, "")
		}
		rdr.lines[i] = line
	}
}

// init reads the first records, sets the column names and infers the
// column types.
func (rdr *CSVReader) init() error {

	rdr.lines = make([][]string, 0, sniffRows)
	for k := 0; k < sniffRows+rdr.SkipRows; k++ {
		v, err := rdr.csvreader.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return err
		}
		if k >= rdr.SkipRows {
			rdr.lines = append(rdr.lines, v)
		}
	}

	if len(rdr.lines) == 0 {
		return fmt.Errorf("file appears to be empty")
	}

	rdr.rectifyLines()

	if rdr.Names == nil {
		rdr.setColumnNames()
	}
	if rdr.DataTypes == nil {
		rdr.sniffTypes()
	}
	for _, t := range rdr.DataTypes {
		if t != "float64" && t != "string" {
			return fmt.Errorf("unsupported CSV column type %q", t)
		}
	}

	rdr.initRun = true
	return nil
}

// ColumnNames returns the column names, reading the start of the
// file if that has not happened yet.
func (rdr *CSVReader) ColumnNames() ([]string, error) {
	if !rdr.initRun {
		if err := rdr.init(); err != nil {
			return nil, err
		}
	}
	return rdr.Names, nil
}

// csvColumn accumulates the values of one column.
type csvColumn struct {
	floats  []float64
	strings []string
	miss    []bool
}

func (c *csvColumn) add(dtype, field string, present bool) {
	switch dtype {
	case "float64":
		x, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		c.floats = append(c.floats, x)
		c.miss = append(c.miss, !present || err != nil)
	default:
		c.strings = append(c.strings, field)
		c.miss = append(c.miss, !present)
	}
}

// Read reads up to lines rows of data and returns the results as an
// array of Series objects.  If lines is negative the whole file is
// read.  Data types of the Series objects are inferred from the file.
// Use type hints in the CSVReader struct to control the types
// directly.  Records wider than the header get default column names
// for their extra fields, with earlier rows marked missing.  Once
// the file is exhausted Read returns nil, io.EOF.
func (rdr *CSVReader) Read(lines int) ([]*Series, error) {

	if !rdr.initRun {
		if err := rdr.init(); err != nil {
			return nil, err
		}
	}

	cols := make([]*csvColumn, len(rdr.Names))
	for j := range cols {
		cols[j] = new(csvColumn)
	}

	nrow := 0
	for lines < 0 || nrow < lines {

		var line []string
		if len(rdr.lines) > 0 {
			line = rdr.lines[0]
			rdr.lines = rdr.lines[1:]
		} else {
			var err error
			line, err = rdr.csvreader.Read()
			if errors.Is(err, io.EOF) {
				break
			} else if err != nil {
				return nil, err
			}
		}

		// Widen to fit a long record.
		for k := len(rdr.Names); k < len(line); k++ {
			rdr.Names = append(rdr.Names, defaultName(k))
			rdr.DataTypes = append(rdr.DataTypes, "string")
			c := &csvColumn{strings: make([]string, nrow), miss: make([]bool, nrow)}
			for i := range c.miss {
				c.miss[i] = true
			}
			cols = append(cols, c)
		}

		for j, c := range cols {
			if j < len(line) {
				c.add(rdr.DataTypes[j], line[j], true)
			} else {
				c.add(rdr.DataTypes[j], "", false)
			}
		}
		nrow++
	}

	if nrow == 0 {
		return nil, io.EOF
	}

	result := make([]*Series, len(cols))
	for j, c := range cols {
		var data interface{} = c.strings
		if rdr.DataTypes[j] == "float64" {
			data = c.floats
		}
		s, err := NewSeries(rdr.Names[j], data, c.miss)
		if err != nil {
			return nil, err
		}
		result[j] = s
	}
	return result, nil
}

// countFloats returns, for each column of the cached records, the
// number of non-blank fields and how many of them parse as float64.
func (rdr *CSVReader) countFloats() ([]int, []int) {

	m := 0
	for _, v := range rdr.lines {
		if len(v) > m {
			m = len(v)
		}
	}

	numFloats := make([]int, m)
	numObs := make([]int, m)

	for _, x := range rdr.lines {
		for j, y := range x {
			y = strings.TrimSpace(y)
			if len(y) == 0 {
				continue
			}
			numObs[j]++
			if _, err := strconv.ParseFloat(y, 64); err == nil {
				numFloats[j]++
			}
		}
	}

	return numFloats, numObs
}

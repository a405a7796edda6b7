package eitc

import (
	"encoding/csv"
	"errors"
	"io"
)

// DefaultChunkSize is the number of records ConvertCSV reads at a time
// when no chunk size is given.
const DefaultChunkSize = 1000

// ConvertCSV copies every remaining record of rdr to w as CSV, reading
// chunk records at a time.  The header row holds the column names of
// the first chunk.  Missing values are written as empty fields and
// dates as "2006-01-02 15:04:05".  It returns the number of records
// written; a reader with no records or no columns writes nothing.
func ConvertCSV(w io.Writer, rdr StatfileReader, chunk int) (int, error) {

	if chunk <= 0 {
		chunk = DefaultChunkSize
	}

	cw := csv.NewWriter(w)
	nrows := 0
	var row []string

	for {
		cols, err := rdr.Read(chunk)
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nrows, err
		}
		if len(cols) == 0 {
			break
		}

		if row == nil {
			row = make([]string, len(cols))
			for j, c := range cols {
				row[j] = c.Name
			}
			if err := cw.Write(row); err != nil {
				return nrows, err
			}
		}

		for i := 0; i < cols[0].Length(); i++ {
			for j, c := range cols {
				row[j] = c.String(i)
			}
			if err := cw.Write(row); err != nil {
				return nrows, err
			}
			nrows++
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return nrows, err
		}
	}

	cw.Flush()
	return nrows, cw.Error()
}

package eitc

// A StatfileReader returns the columns of a data file in chunks of
// rows.  Read(-1) returns everything that remains; an exhausted
// reader returns nil, io.EOF.
type StatfileReader interface {
	Read(rows int) ([]*Series, error)
}

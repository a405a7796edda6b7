package eitc

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// A Series is a fixed-type one-dimensional sequence of data
// values, with an optional mask for missing values.
type Series struct {

	// A name describing what is in this series.
	Name string

	// The length of the series.
	length int

	// The data, must be a slice of primitives, e.g. []float64.
	data interface{}

	// Indicators that data values are missing.  If nil, there are
	// no missing values.
	missing []bool
}

type numeric interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint64 | ~float32 | ~float64
}

// ilen returns the length of a slice held in an interface value.  If
// the interface does not hold a slice of a supported type, an error
// is returned.
func ilen(data interface{}) (int, error) {
	switch x := data.(type) {
	case []float64:
		return len(x), nil
	case []float32:
		return len(x), nil
	case []int64:
		return len(x), nil
	case []int32:
		return len(x), nil
	case []int16:
		return len(x), nil
	case []int8:
		return len(x), nil
	case []uint64:
		return len(x), nil
	case []string:
		return len(x), nil
	case []time.Time:
		return len(x), nil
	default:
		return 0, fmt.Errorf("unsupported series data type %T", data)
	}
}

// NewSeries returns a new Series value with the given name and data
// contents.  The data slice parameter is not copied.
func NewSeries(name string, data interface{}, missing []bool) (*Series, error) {

	length, err := ilen(data)
	if err != nil {
		return nil, err
	}
	if missing != nil && len(missing) != length {
		return nil, fmt.Errorf("series %q: %d values but %d missing flags", name, length, len(missing))
	}

	return &Series{
		Name:    name,
		length:  length,
		data:    data,
		missing: missing,
	}, nil
}

// Data returns the data component of the Series.
func (ser *Series) Data() interface{} {
	return ser.data
}

// Missing returns the array of missing value indicators, which may
// be nil.
func (ser *Series) Missing() []bool {
	return ser.missing
}

// Length returns the number of elements in a Series.
func (ser *Series) Length() int {
	return ser.length
}

// IsMissing reports whether position i holds a missing value.
func (ser *Series) IsMissing(i int) bool {
	return ser.missing != nil && ser.missing[i]
}

// CountMissing returns the number of missing values in the Series.
func (ser *Series) CountMissing() int {
	m := 0
	for _, v := range ser.missing {
		if v {
			m++
		}
	}
	return m
}

// IsNumeric reports whether the series holds numbers.
func (ser *Series) IsNumeric() bool {
	switch ser.data.(type) {
	case []string, []time.Time:
		return false
	}
	return true
}

func toFloat[T numeric](x []T) []float64 {
	a := make([]float64, len(x))
	for i, v := range x {
		a[i] = float64(v)
	}
	return a
}

func copyMask(m []bool) []bool {
	if m == nil {
		return nil
	}
	c := make([]bool, len(m))
	copy(c, m)
	return c
}

// UpcastNumeric returns a Series in which numeric data are held as
// float64 values.  Non-numeric series, and series that already hold
// float64 values, are returned unchanged.  The receiver is never
// modified.
func (ser *Series) UpcastNumeric() *Series {

	var a []float64
	switch x := ser.data.(type) {
	default:
		return ser
	case []float32:
		a = toFloat(x)
	case []int64:
		a = toFloat(x)
	case []int32:
		a = toFloat(x)
	case []int16:
		a = toFloat(x)
	case []int8:
		a = toFloat(x)
	case []uint64:
		a = toFloat(x)
	}

	return &Series{Name: ser.Name, length: ser.length, data: a, missing: copyMask(ser.missing)}
}

// Float64 returns the values of a numeric series as float64, along
// with the missing value indicators.  The returned slice is shared
// with the series only when it already held float64 data.
func (ser *Series) Float64() ([]float64, []bool, error) {
	if !ser.IsNumeric() {
		return nil, nil, fmt.Errorf("series %q holds %T, not numbers", ser.Name, ser.data)
	}
	return ser.UpcastNumeric().data.([]float64), ser.missing, nil
}

// ForceNumeric converts string values to float64 values, creating
// missing values where the conversion is not possible.  If the data
// is not string type, the series is returned unchanged.
func (ser *Series) ForceNumeric() *Series {

	y, ok := ser.data.([]string)
	if !ok {
		return ser
	}

	miss := make([]bool, ser.length)
	if ser.missing != nil {
		copy(miss, ser.missing)
	}

	x := make([]float64, ser.length)
	for i, s := range y {
		if miss[i] {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			miss[i] = true
		} else {
			x[i] = v
		}
	}

	return &Series{Name: ser.Name, length: ser.length, data: x, missing: miss}
}

func subset[T any](x []T, keep []bool, n int) []T {
	y := make([]T, 0, n)
	for i, v := range x {
		if keep[i] {
			y = append(y, v)
		}
	}
	return y
}

// Subset returns a new Series holding the positions where keep is
// true.  keep must have the same length as the series.
func (ser *Series) Subset(keep []bool) (*Series, error) {

	if len(keep) != ser.length {
		return nil, fmt.Errorf("series %q: subset mask has length %d, want %d", ser.Name, len(keep), ser.length)
	}

	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}

	var data interface{}
	switch x := ser.data.(type) {
	case []float64:
		data = subset(x, keep, n)
	case []float32:
		data = subset(x, keep, n)
	case []int64:
		data = subset(x, keep, n)
	case []int32:
		data = subset(x, keep, n)
	case []int16:
		data = subset(x, keep, n)
	case []int8:
		data = subset(x, keep, n)
	case []uint64:
		data = subset(x, keep, n)
	case []string:
		data = subset(x, keep, n)
	case []time.Time:
		data = subset(x, keep, n)
	}

	var miss []bool
	if ser.missing != nil {
		miss = subset(ser.missing, keep, n)
	}

	return &Series{Name: ser.Name, length: n, data: data, missing: miss}, nil
}

// String formats the value at position i, or returns the empty
// string for a missing value.
func (ser *Series) String(i int) string {

	if ser.IsMissing(i) {
		return ""
	}

	switch x := ser.data.(type) {
	case []float64:
		return strconv.FormatFloat(x[i], 'g', -1, 64)
	case []float32:
		return strconv.FormatFloat(float64(x[i]), 'g', -1, 32)
	case []int64:
		return strconv.FormatInt(x[i], 10)
	case []int32:
		return strconv.FormatInt(int64(x[i]), 10)
	case []int16:
		return strconv.FormatInt(int64(x[i]), 10)
	case []int8:
		return strconv.FormatInt(int64(x[i]), 10)
	case []uint64:
		return strconv.FormatUint(x[i], 10)
	case []string:
		return x[i]
	case []time.Time:
		return x[i].UTC().Format("2006-01-02 15:04:05")
	}
	return ""
}

// AllClose returns true, 0 if the Series is within tol of the other
// series.  If the Series have different lengths, AllClose returns
// false, -1.  If the Series have different types, AllClose returns
// false, -2.  If the Series have the same type and the same length
// but are not equal, AllClose returns false, j, where j is the index
// of the first position where the two series differ.  Numeric series
// are compared after upcasting to float64.
func (ser *Series) AllClose(other *Series, tol float64) (bool, int) {

	if ser.length != other.length {
		return false, -1
	}

	for j := 0; j < ser.length; j++ {
		if ser.IsMissing(j) != other.IsMissing(j) {
			return false, j
		}
	}

	switch u := ser.UpcastNumeric().data.(type) {
	case []float64:
		v, ok := other.UpcastNumeric().data.([]float64)
		if !ok {
			return false, -2
		}
		for i := range u {
			if !ser.IsMissing(i) && math.Abs(u[i]-v[i]) > tol {
				return false, i
			}
		}
	case []string:
		v, ok := other.data.([]string)
		if !ok {
			return false, -2
		}
		for i := range u {
			if !ser.IsMissing(i) && u[i] != v[i] {
				return false, i
			}
		}
	case []time.Time:
		v, ok := other.data.([]time.Time)
		if !ok {
			return false, -2
		}
		for i := range u {
			if !ser.IsMissing(i) && !u[i].Equal(v[i]) {
				return false, i
			}
		}
	}

	return true, 0
}

// AllEqual is equivalent to AllClose with tol=0.
func (ser *Series) AllEqual(other *Series) (bool, int) {
	return ser.AllClose(other, 0.0)
}

// SeriesArray is an array of pointers to Series objects.  It can represent
// a dataset consisting of several variables.
type SeriesArray []*Series

// AllClose returns (true, 0, 0) if all values in corresponding
// columns of the two arrays are within the given tolerance.
// Otherwise it returns (false, j, i) where j is a column index and i
// is the code returned by Series.AllClose for that column.  If the
// arrays have different numbers of columns, returns (false, -1, -1).
func (sa SeriesArray) AllClose(other []*Series, tol float64) (bool, int, int) {

	if len(sa) != len(other) {
		return false, -1, -1
	}

	for j := range sa {
		if f, i := sa[j].AllClose(other[j], tol); !f {
			return false, j, i
		}
	}

	return true, 0, 0
}

// AllEqual is equivalent to AllClose with tol = 0.
func (sa SeriesArray) AllEqual(other []*Series) (bool, int, int) {
	return sa.AllClose(other, 0.0)
}

// DateFromDuration returns a new Series in which the data are dates,
// derived from a numeric duration since base.  Units must be "days"
// or "milliseconds".
func (ser *Series) DateFromDuration(base time.Time, units string) (*Series, error) {

	td, _, err := ser.Float64()
	if err != nil {
		return nil, err
	}

	var q time.Duration
	switch units {
	case "days":
		q = 24 * time.Hour
	case "milliseconds":
		q = time.Millisecond
	default:
		return nil, fmt.Errorf("unknown time unit %q", units)
	}

	dates := make([]time.Time, ser.length)
	for i, v := range td {
		if !ser.IsMissing(i) {
			dates[i] = base.Add(time.Duration(v) * q)
		}
	}

	return NewSeries(ser.Name, dates, copyMask(ser.missing))
}

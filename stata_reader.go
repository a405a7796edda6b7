package eitc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	xencoding "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Stata storage type codes, in the numbering used by dta 117 and
// later.  Older releases are translated on read.  Codes 1-2045 are
// fixed-width strings of that many bytes.
const (
	dtaStrL   = 32768
	dtaDouble = 65526
	dtaFloat  = 65527
	dtaLong   = 65528
	dtaInt    = 65529
	dtaByte   = 65530
)

// dtaLayout holds the field widths that differ between dta releases.
type dtaLayout struct {
	nvarWidth     int
	nobsWidth     int
	labelLenWidth int
	nameLen       int
	formatLen     int
	lblNameLen    int
	varLabelLen   int
	gsoKeyLen     int
}

var dtaLayouts = map[int]dtaLayout{
	113: {nvarWidth: 2, nobsWidth: 4, nameLen: 33, formatLen: 12, lblNameLen: 33, varLabelLen: 81},
	114: {nvarWidth: 2, nobsWidth: 4, nameLen: 33, formatLen: 49, lblNameLen: 33, varLabelLen: 81},
	115: {nvarWidth: 2, nobsWidth: 4, nameLen: 33, formatLen: 49, lblNameLen: 33, varLabelLen: 81},
	117: {nvarWidth: 2, nobsWidth: 4, labelLenWidth: 1, nameLen: 33, formatLen: 49, lblNameLen: 33, varLabelLen: 81, gsoKeyLen: 8},
	118: {nvarWidth: 2, nobsWidth: 8, labelLenWidth: 2, nameLen: 129, formatLen: 57, lblNameLen: 129, varLabelLen: 321, gsoKeyLen: 12},
	119: {nvarWidth: 4, nobsWidth: 8, labelLenWidth: 2, nameLen: 129, formatLen: 57, lblNameLen: 129, varLabelLen: 321, gsoKeyLen: 12},
}

var errTruncated = errors.New("stata file appears to be truncated")

// A StataReader reads Stata dta data files.  Format releases 113,
// 114, 115, 117, 118 and 119 can be read.
//
// The Read method reads and returns the data.  Several fields of the
// StataReader struct may also be of interest.
//
// Technical information about the file format can be found here:
// http://www.stata.com/help.cgi?dta
type StataReader struct {

	// If true, the strl numerical codes are replaced with their
	// string values when available.
	InsertStrls bool

	// If true, the categorial numerical codes are replaced with
	// their string labels when available.
	InsertCategoryLabels bool

	// If true, dates are converted to Go date format.
	ConvertDates bool

	// A short text label for the data set.
	DatasetLabel string

	// The time stamp for the data set
	TimeStamp string

	// Number of variables
	Nvar int

	// An additional text entry describing each variable
	ColumnLabels []string

	// String labels for categorical variables, keyed by label
	// name, and the label name attached to each variable.
	ValueLabels     map[string]map[int32]string
	ValueLabelNames []string

	// Format codes for each variable
	Formats []string

	// Maps from strl keys to values
	Strls      map[uint64]string
	StrlsBytes map[uint64][]byte

	// The format version of the dta file
	FormatVersion int

	// The endian-ness of the file
	ByteOrder binary.ByteOrder

	// A decoder for text in the file.  Releases before 118 store
	// text in Windows-1252 and get that decoder; later releases are
	// UTF-8 and get none.  Changing it affects later calls to Read.
	TextDecoder *xencoding.Decoder

	layout dtaLayout

	rowCount    int
	rowsRead    int
	varTypes    []int
	columnNames []string
	isDate      []bool

	// Offsets taken from the map of a 117+ file.
	seekVarTypes        int64
	seekVarNames        int64
	seekFormats         int64
	seekValueLabelNames int64
	seekVariableLabels  int64
	seekData            int64
	seekStrls           int64
	seekValueLabels     int64

	// Start of the first record and the width of one record.
	dataOffset int64
	rowWidth   int

	// Length of the stream in bytes.
	size int64

	reader io.ReadSeeker
}

// NewStataReader returns a StataReader for reading from the given io channel.
func NewStataReader(r io.ReadSeeker) (*StataReader, error) {

	rdr := &StataReader{
		reader:               r,
		InsertStrls:          true,
		InsertCategoryLabels: true,
		ConvertDates:         true,
	}

	if err := rdr.init(); err != nil {
		return nil, err
	}
	return rdr, nil
}

// RowCount returns the number of rows in the data set.
func (rdr *StataReader) RowCount() int {
	return rdr.rowCount
}

// ColumnNames returns the names of the columns in the data file.
func (rdr *StataReader) ColumnNames() []string {
	return rdr.columnNames
}

// ColumnTypes returns integer codes corresponding to the data types
// in the Stata file, using the dta 117 numbering for all releases.
func (rdr *StataReader) ColumnTypes() []int {
	return rdr.varTypes
}

func (rdr *StataReader) newFormat() bool {
	return rdr.FormatVersion >= 117
}

func (rdr *StataReader) init() error {

	end, err := rdr.reader.Seek(0, io.SeekEnd)
	if err != nil {
		return err
	}
	rdr.size = end
	if _, err := rdr.reader.Seek(0, io.SeekStart); err != nil {
		return err
	}

	c := make([]byte, 1)
	if _, err := io.ReadFull(rdr.reader, c); err != nil {
		return fmt.Errorf("reading signature: %w", err)
	}
	if _, err := rdr.reader.Seek(0, io.SeekStart); err != nil {
		return err
	}

	if c[0] == '<' {
		err = rdr.readNewHeader()
	} else {
		err = rdr.readOldHeader()
	}
	if err != nil {
		return err
	}

	steps := []func() error{
		rdr.readVarTypes,
		rdr.readVarNames,
		rdr.readFormats,
		rdr.readValueLabelNames,
		rdr.readVariableLabels,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}

	rdr.rowWidth = 0
	for _, t := range rdr.varTypes {
		rdr.rowWidth += typeWidth(t)
	}

	if rdr.newFormat() {
		rdr.dataOffset = rdr.seekData + 6
		if err := rdr.checkSize(); err != nil {
			return err
		}
		if err := rdr.readStrls(); err != nil {
			return err
		}
		return rdr.readValueLabels(rdr.seekValueLabels + 14)
	}

	if err := rdr.readExpansionFields(); err != nil {
		return err
	}
	pos, err := rdr.reader.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	rdr.dataOffset = pos
	if err := rdr.checkSize(); err != nil {
		return err
	}

	// Old releases keep the value labels after the data.
	return rdr.readValueLabels(rdr.dataOffset + int64(rdr.rowCount)*int64(rdr.rowWidth))
}

// checkSize confirms that the stream holds every record the header
// claims.
func (rdr *StataReader) checkSize() error {
	avail := rdr.size - rdr.dataOffset
	if rdr.rowCount < 0 || avail < 0 {
		return errTruncated
	}
	if rdr.rowWidth > 0 && int64(rdr.rowCount) > avail/int64(rdr.rowWidth) {
		return errTruncated
	}
	return nil
}

// bounded returns errTruncated if fewer than n bytes remain after the
// current position.
func (rdr *StataReader) bounded(n uint64) error {
	pos, err := rdr.reader.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if n > uint64(rdr.size-pos) {
		return errTruncated
	}
	return nil
}

func typeWidth(t int) int {
	switch t {
	case dtaStrL, dtaDouble:
		return 8
	case dtaFloat, dtaLong:
		return 4
	case dtaInt:
		return 2
	case dtaByte:
		return 1
	}
	return t
}

func (rdr *StataReader) readFull(buf []byte) error {
	if _, err := io.ReadFull(rdr.reader, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return errTruncated
		}
		return err
	}
	return nil
}

func (rdr *StataReader) skip(n int64) error {
	_, err := rdr.reader.Seek(n, io.SeekCurrent)
	return err
}

// seekSection positions the reader past the opening tag of a section
// in a 117+ file.  For older files the sections are contiguous and
// nothing is done.
func (rdr *StataReader) seekSection(offset int64, tagLen int) error {
	if !rdr.newFormat() {
		return nil
	}
	_, err := rdr.reader.Seek(offset+int64(tagLen), io.SeekStart)
	return err
}

// readUint reads an unsigned integer of the given width in bytes.
func (rdr *StataReader) readUint(width int) (uint64, error) {
	buf := make([]byte, width)
	if err := rdr.readFull(buf); err != nil {
		return 0, err
	}
	return decodeUint(rdr.ByteOrder, buf)
}

func decodeUint(bo binary.ByteOrder, buf []byte) (uint64, error) {
	switch len(buf) {
	case 1:
		return uint64(buf[0]), nil
	case 2:
		return uint64(bo.Uint16(buf)), nil
	case 4:
		return uint64(bo.Uint32(buf)), nil
	case 8:
		return bo.Uint64(buf), nil
	}
	return 0, fmt.Errorf("unsupported integer width %d", len(buf))
}

func (rdr *StataReader) setVersion(v int) error {
	layout, ok := dtaLayouts[v]
	if !ok {
		return fmt.Errorf("unsupported Stata dta format version %d", v)
	}
	rdr.FormatVersion = v
	rdr.layout = layout
	if v < 118 {
		rdr.TextDecoder = charmap.Windows1252.NewDecoder()
	}
	return nil
}

// readOldHeader reads the fixed 109 byte header used before release 117.
func (rdr *StataReader) readOldHeader() error {

	buf := make([]byte, 109)
	if err := rdr.readFull(buf); err != nil {
		return err
	}

	if err := rdr.setVersion(int(buf[0])); err != nil {
		return err
	}

	switch buf[1] {
	case 1:
		rdr.ByteOrder = binary.BigEndian
	case 2:
		rdr.ByteOrder = binary.LittleEndian
	default:
		return fmt.Errorf("invalid byte order flag %d", buf[1])
	}

	// buf[2:4] holds the file type and an unused byte.
	rdr.Nvar = int(rdr.ByteOrder.Uint16(buf[4:6]))
	rdr.rowCount = int(rdr.ByteOrder.Uint32(buf[6:10]))
	rdr.DatasetLabel = rdr.text(buf[10:91])
	rdr.TimeStamp = string(partition(buf[91:109]))

	return nil
}

// expectTag reads len(tag) bytes and checks that they match.
func (rdr *StataReader) expectTag(tag string) error {
	buf := make([]byte, len(tag))
	if err := rdr.readFull(buf); err != nil {
		return err
	}
	if string(buf) != tag {
		return fmt.Errorf("expected %q, found %q", tag, buf)
	}
	return nil
}

// readNewHeader reads the tagged header and map of releases 117+.
func (rdr *StataReader) readNewHeader() error {

	if err := rdr.expectTag("<stata_dta><header><release>"); err != nil {
		return err
	}

	buf := make([]byte, 3)
	if err := rdr.readFull(buf); err != nil {
		return err
	}
	v, err := strconv.Atoi(string(buf))
	if err != nil {
		return fmt.Errorf("invalid release %q", buf)
	}
	if err := rdr.setVersion(v); err != nil {
		return err
	}

	if err := rdr.expectTag("</release><byteorder>"); err != nil {
		return err
	}
	if err := rdr.readFull(buf); err != nil {
		return err
	}
	switch string(buf) {
	case "MSF":
		rdr.ByteOrder = binary.BigEndian
	case "LSF":
		rdr.ByteOrder = binary.LittleEndian
	default:
		return fmt.Errorf("invalid byte order %q", buf)
	}

	if err := rdr.expectTag("</byteorder><K>"); err != nil {
		return err
	}
	k, err := rdr.readUint(rdr.layout.nvarWidth)
	if err != nil {
		return err
	}
	rdr.Nvar = int(k)

	if err := rdr.expectTag("</K><N>"); err != nil {
		return err
	}
	n, err := rdr.readUint(rdr.layout.nobsWidth)
	if err != nil {
		return err
	}
	rdr.rowCount = int(n)

	if err := rdr.expectTag("</N><label>"); err != nil {
		return err
	}
	w, err := rdr.readUint(rdr.layout.labelLenWidth)
	if err != nil {
		return err
	}
	lbl := make([]byte, w)
	if err := rdr.readFull(lbl); err != nil {
		return err
	}
	rdr.DatasetLabel = rdr.text(lbl)

	if err := rdr.expectTag("</label><timestamp>"); err != nil {
		return err
	}
	w, err = rdr.readUint(1)
	if err != nil {
		return err
	}
	ts := make([]byte, w)
	if err := rdr.readFull(ts); err != nil {
		return err
	}
	rdr.TimeStamp = string(ts)

	if err := rdr.expectTag("</timestamp></header><map>"); err != nil {
		return err
	}

	// The map holds 14 offsets; the first two locate <stata_data>
	// and <map> themselves.
	offsets := make([]int64, 14)
	for j := range offsets {
		x, err := rdr.readUint(8)
		if err != nil {
			return err
		}
		offsets[j] = int64(x)
	}
	rdr.seekVarTypes = offsets[2]
	rdr.seekVarNames = offsets[3]
	rdr.seekFormats = offsets[5]
	rdr.seekValueLabelNames = offsets[6]
	rdr.seekVariableLabels = offsets[7]
	rdr.seekData = offsets[9]
	rdr.seekStrls = offsets[10]
	rdr.seekValueLabels = offsets[11]

	return nil
}

func (rdr *StataReader) readVarTypes() error {

	if err := rdr.bounded(uint64(rdr.Nvar)); err != nil {
		return err
	}
	rdr.varTypes = make([]int, rdr.Nvar)

	if rdr.newFormat() {
		if err := rdr.seekSection(rdr.seekVarTypes, len("<variable_types>")); err != nil {
			return err
		}
		for k := range rdr.varTypes {
			t, err := rdr.readUint(2)
			if err != nil {
				return err
			}
			rdr.varTypes[k] = int(t)
		}
		return nil
	}

	buf := make([]byte, rdr.Nvar)
	if err := rdr.readFull(buf); err != nil {
		return err
	}
	for k, b := range buf {
		switch {
		case b >= 1 && b <= 244:
			rdr.varTypes[k] = int(b)
		case b == 251:
			rdr.varTypes[k] = dtaByte
		case b == 252:
			rdr.varTypes[k] = dtaInt
		case b == 253:
			rdr.varTypes[k] = dtaLong
		case b == 254:
			rdr.varTypes[k] = dtaFloat
		case b == 255:
			rdr.varTypes[k] = dtaDouble
		default:
			return fmt.Errorf("unknown variable type %d for variable %d", b, k)
		}
	}
	return nil
}

// readStrings reads Nvar fixed width, null padded strings.
func (rdr *StataReader) readStrings(width int) ([]string, error) {
	buf := make([]byte, width*rdr.Nvar)
	if err := rdr.readFull(buf); err != nil {
		return nil, err
	}
	s := make([]string, rdr.Nvar)
	for k := range s {
		s[k] = rdr.text(buf[k*width : (k+1)*width])
	}
	return s, nil
}

func (rdr *StataReader) readVarNames() error {

	if err := rdr.seekSection(rdr.seekVarNames, len("<varnames>")); err != nil {
		return err
	}

	var err error
	rdr.columnNames, err = rdr.readStrings(rdr.layout.nameLen)
	if err != nil {
		return err
	}

	// Skip the sort list.
	if !rdr.newFormat() {
		return rdr.skip(int64(2 * (rdr.Nvar + 1)))
	}
	return nil
}

func (rdr *StataReader) readFormats() error {

	if err := rdr.seekSection(rdr.seekFormats, len("<formats>")); err != nil {
		return err
	}

	var err error
	rdr.Formats, err = rdr.readStrings(rdr.layout.formatLen)
	if err != nil {
		return err
	}

	rdr.isDate = make([]bool, rdr.Nvar)
	for k, f := range rdr.Formats {
		rdr.isDate[k] = strings.HasPrefix(f, "%td") || strings.HasPrefix(f, "%tc")
	}
	return nil
}

func (rdr *StataReader) readValueLabelNames() error {

	if err := rdr.seekSection(rdr.seekValueLabelNames, len("<value_label_names>")); err != nil {
		return err
	}

	var err error
	rdr.ValueLabelNames, err = rdr.readStrings(rdr.layout.lblNameLen)
	return err
}

func (rdr *StataReader) readVariableLabels() error {

	if err := rdr.seekSection(rdr.seekVariableLabels, len("<variable_labels>")); err != nil {
		return err
	}

	var err error
	rdr.ColumnLabels, err = rdr.readStrings(rdr.layout.varLabelLen)
	return err
}

// readExpansionFields skips the characteristics of a pre-117 file.
func (rdr *StataReader) readExpansionFields() error {

	buf := make([]byte, 5)
	for {
		if err := rdr.readFull(buf); err != nil {
			return err
		}
		n := rdr.ByteOrder.Uint32(buf[1:5])
		if buf[0] == 0 && n == 0 {
			return nil
		}
		if err := rdr.skip(int64(n)); err != nil {
			return err
		}
	}
}

// readValueLabels reads the value label tables starting at offset.
// A file without labels simply ends, or closes the section, at
// offset.
func (rdr *StataReader) readValueLabels(offset int64) error {

	rdr.ValueLabels = make(map[string]map[int32]string)

	if _, err := rdr.reader.Seek(offset, io.SeekStart); err != nil {
		return err
	}

	hdr := make([]byte, 5)
	name := make([]byte, rdr.layout.lblNameLen)

	for {
		if rdr.newFormat() {
			if err := rdr.readFull(hdr); err != nil || string(hdr) != "<lbl>" {
				return nil
			}
		}

		n, err := rdr.readUint(4)
		if err == errTruncated && !rdr.newFormat() {
			return nil
		} else if err != nil {
			return err
		}

		if err := rdr.readFull(name); err != nil {
			return err
		}
		if err := rdr.skip(3); err != nil {
			return err
		}

		if err := rdr.bounded(n); err != nil {
			return err
		}
		table := make([]byte, n)
		if err := rdr.readFull(table); err != nil {
			return err
		}
		labels, err := rdr.parseLabelTable(table)
		if err != nil {
			return err
		}
		rdr.ValueLabels[rdr.text(name)] = labels

		if rdr.newFormat() {
			if err := rdr.skip(int64(len("</lbl>"))); err != nil {
				return err
			}
		}
	}
}

// parseLabelTable decodes one value label table: a count, the text
// length, the text offsets, the values and the text itself.
func (rdr *StataReader) parseLabelTable(b []byte) (map[int32]string, error) {

	bo := rdr.ByteOrder

	if len(b) < 8 {
		return nil, errTruncated
	}
	n := int(bo.Uint32(b[0:4]))
	txtlen := int(bo.Uint32(b[4:8]))
	if len(b) < 8+8*n+txtlen {
		return nil, errTruncated
	}

	txt := b[8+8*n : 8+8*n+txtlen]
	labels := make(map[int32]string, n)
	for j := 0; j < n; j++ {
		off := int(bo.Uint32(b[8+4*j:]))
		val := int32(bo.Uint32(b[8+4*n+4*j:]))
		if off >= len(txt) {
			return nil, fmt.Errorf("value label offset %d out of range", off)
		}
		labels[val] = rdr.text(txt[off:])
	}
	return labels, nil
}

// strlKey converts the (v, o) key of a GSO record to the 8 byte
// pointer stored in the data section.
func (rdr *StataReader) strlKey(vo []byte) uint64 {
	if len(vo) == 8 {
		return rdr.ByteOrder.Uint64(vo)
	}

	// 118+: v is 4 bytes and o is 8 bytes in the GSO record, but
	// 2 and 6 bytes in the data.
	key := make([]byte, 8)
	if rdr.ByteOrder == binary.BigEndian {
		copy(key[0:2], vo[2:4])
		copy(key[2:8], vo[6:12])
	} else {
		copy(key[0:2], vo[0:2])
		copy(key[2:8], vo[4:10])
	}
	return rdr.ByteOrder.Uint64(key)
}

func (rdr *StataReader) readStrls() error {

	rdr.Strls = map[uint64]string{0: ""}
	rdr.StrlsBytes = make(map[uint64][]byte)

	if _, err := rdr.reader.Seek(rdr.seekStrls+int64(len("<strls>")), io.SeekStart); err != nil {
		return err
	}

	tag := make([]byte, 3)
	vo := make([]byte, rdr.layout.gsoKeyLen)
	for {
		if err := rdr.readFull(tag); err != nil || string(tag) != "GSO" {
			return nil
		}
		if err := rdr.readFull(vo); err != nil {
			return err
		}
		t, err := rdr.readUint(1)
		if err != nil {
			return err
		}
		length, err := rdr.readUint(4)
		if err != nil {
			return err
		}
		if err := rdr.bounded(length); err != nil {
			return err
		}
		buf := make([]byte, length)
		if err := rdr.readFull(buf); err != nil {
			return err
		}

		key := rdr.strlKey(vo)
		switch t {
		case 130:
			rdr.Strls[key] = rdr.text(buf)
		case 129:
			rdr.StrlsBytes[key] = buf
		default:
			return fmt.Errorf("unknown strl type %d", t)
		}
	}
}

// Returns everything before the first null byte.
func partition(b []byte) []byte {
	for i, v := range b {
		if v == 0 {
			return b[0:i]
		}
	}
	return b
}

// text returns the null terminated string at the start of b,
// decoded to UTF-8.
func (rdr *StataReader) text(b []byte) string {
	b = partition(b)
	if rdr.TextDecoder == nil {
		return string(b)
	}
	u, err := rdr.TextDecoder.Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(u)
}

// Read returns the given number of rows of data from the Stata data
// file, continuing after the rows returned by earlier calls.  The
// data are returned as an array of Series objects.  If rows is
// negative, the remainder of the file is read.  After the last row
// has been read, Read returns nil, io.EOF.
func (rdr *StataReader) Read(rows int) ([]*Series, error) {

	nval := rdr.rowCount - rdr.rowsRead
	if nval <= 0 {
		return nil, io.EOF
	}
	if rows >= 0 && nval > rows {
		nval = rows
	}

	data := make([]interface{}, rdr.Nvar)
	missing := make([][]bool, rdr.Nvar)
	for j, t := range rdr.varTypes {
		missing[j] = make([]bool, nval)
		switch {
		case t <= 2045:
			data[j] = make([]string, nval)
		case t == dtaStrL && rdr.InsertStrls:
			data[j] = make([]string, nval)
		case t == dtaStrL:
			data[j] = make([]uint64, nval)
		case t == dtaDouble:
			data[j] = make([]float64, nval)
		case t == dtaFloat:
			data[j] = make([]float32, nval)
		case t == dtaLong:
			data[j] = make([]int32, nval)
		case t == dtaInt:
			data[j] = make([]int16, nval)
		case t == dtaByte:
			data[j] = make([]int8, nval)
		default:
			return nil, fmt.Errorf("unknown variable type %d", t)
		}
	}

	start := rdr.dataOffset + int64(rdr.rowsRead)*int64(rdr.rowWidth)
	if _, err := rdr.reader.Seek(start, io.SeekStart); err != nil {
		return nil, err
	}

	bo := rdr.ByteOrder
	row := make([]byte, rdr.rowWidth)
	for i := 0; i < nval; i++ {

		if err := rdr.readFull(row); err != nil {
			return nil, fmt.Errorf("row %d: %w", rdr.rowsRead+1, err)
		}
		rdr.rowsRead++

		off := 0
		for j, t := range rdr.varTypes {
			w := typeWidth(t)
			b := row[off : off+w]
			off += w

			switch t {
			case dtaStrL:
				ptr := bo.Uint64(b)
				if rdr.InsertStrls {
					data[j].([]string)[i] = rdr.Strls[ptr]
				} else {
					data[j].([]uint64)[i] = ptr
				}
			case dtaDouble:
				x := math.Float64frombits(bo.Uint64(b))
				data[j].([]float64)[i] = x
				missing[j][i] = x > 8.988e307 || x < -8.988e307
			case dtaFloat:
				x := math.Float32frombits(bo.Uint32(b))
				data[j].([]float32)[i] = x
				missing[j][i] = x > 1.701e38 || x < -1.701e38
			case dtaLong:
				x := int32(bo.Uint32(b))
				data[j].([]int32)[i] = x
				missing[j][i] = x > 2147483620 || x < -2147483647
			case dtaInt:
				x := int16(bo.Uint16(b))
				data[j].([]int16)[i] = x
				missing[j][i] = x > 32740 || x < -32767
			case dtaByte:
				x := int8(b[0])
				data[j].([]int8)[i] = x
				missing[j][i] = x > 100 || x < -127
			default:
				data[j].([]string)[i] = rdr.text(b)
			}
		}
	}

	cols := make([]*Series, rdr.Nvar)
	for j := range data {
		s, err := NewSeries(rdr.columnNames[j], data[j], missing[j])
		if err != nil {
			return nil, err
		}

		if rdr.InsertCategoryLabels {
			s = rdr.insertLabels(s, j)
		}
		if rdr.ConvertDates && rdr.isDate[j] && s.IsNumeric() {
			units := "days"
			if strings.HasPrefix(rdr.Formats[j], "%tc") {
				units = "milliseconds"
			}
			s, err = s.DateFromDuration(time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC), units)
			if err != nil {
				return nil, err
			}
		}
		cols[j] = s
	}

	return cols, nil
}

// insertLabels replaces the numeric codes of column j with their
// value labels.  Codes without a label are formatted as numbers.
func (rdr *StataReader) insertLabels(s *Series, j int) *Series {

	mp, ok := rdr.ValueLabels[rdr.ValueLabelNames[j]]
	if !ok || !s.IsNumeric() {
		return s
	}

	x, _, _ := s.Float64()
	labels := make([]string, len(x))
	for i, v := range x {
		if s.IsMissing(i) {
			continue
		}
		if l, ok := mp[int32(v)]; ok {
			labels[i] = l
		} else {
			labels[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
	}
	return &Series{Name: s.Name, length: s.length, data: labels, missing: s.missing}
}

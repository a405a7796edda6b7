package eitc

import (
	"bytes"
	"encoding/binary"
	"math"
	"sort"
)

// testVar is one variable of a synthetic dta file.  Numeric values
// are taken from vals, where NaN writes the Stata missing value;
// string and strL values are taken from strs.
type testVar struct {
	name   string
	typ    int
	format string
	label  string
	vlabel string
	vals   []float64
	strs   []string
}

// testDTA builds dta files of any supported release in memory.
type testDTA struct {
	version     int
	order       binary.ByteOrder
	label       string
	vars        []testVar
	valueLabels map[string]map[int32]string

	// Record count for files without variables.
	rows int
}

type testWidths struct {
	name, format, lblName, varLabel int
}

func (d testDTA) widths() testWidths {
	switch d.version {
	case 113:
		return testWidths{33, 12, 33, 81}
	case 114, 115, 117:
		return testWidths{33, 49, 33, 81}
	default:
		return testWidths{129, 57, 129, 321}
	}
}

func (d testDTA) nobs() int {
	if len(d.vars) == 0 {
		return d.rows
	}
	v := d.vars[0]
	if v.vals != nil {
		return len(v.vals)
	}
	return len(v.strs)
}

func (d testDTA) putUint(buf *bytes.Buffer, width int, x uint64) {
	b := make([]byte, 8)
	switch width {
	case 1:
		buf.WriteByte(byte(x))
		return
	case 2:
		d.order.PutUint16(b, uint16(x))
	case 4:
		d.order.PutUint32(b, uint32(x))
	case 8:
		d.order.PutUint64(b, x)
	}
	buf.Write(b[:width])
}

func padded(s string, width int) []byte {
	b := make([]byte, width)
	copy(b, s)
	return b
}

func (d testDTA) oldType(t int) byte {
	switch t {
	case dtaByte:
		return 251
	case dtaInt:
		return 252
	case dtaLong:
		return 253
	case dtaFloat:
		return 254
	case dtaDouble:
		return 255
	}
	return byte(t)
}

func (d testDTA) strlPtr(buf *bytes.Buffer, v, o uint64) {
	if d.version == 117 {
		d.putUint(buf, 4, v)
		d.putUint(buf, 4, o)
		return
	}
	d.putUint(buf, 2, v)
	ob := make([]byte, 8)
	d.order.PutUint64(ob, o)
	if d.order == binary.BigEndian {
		buf.Write(ob[2:8])
	} else {
		buf.Write(ob[0:6])
	}
}

func (d testDTA) cell(buf *bytes.Buffer, j, i int) {
	v := d.vars[j]
	switch v.typ {
	case dtaByte:
		x := int8(101)
		if !math.IsNaN(v.vals[i]) {
			x = int8(v.vals[i])
		}
		buf.WriteByte(byte(x))
	case dtaInt:
		x := int16(32741)
		if !math.IsNaN(v.vals[i]) {
			x = int16(v.vals[i])
		}
		d.putUint(buf, 2, uint64(uint16(x)))
	case dtaLong:
		x := int32(2147483621)
		if !math.IsNaN(v.vals[i]) {
			x = int32(v.vals[i])
		}
		d.putUint(buf, 4, uint64(uint32(x)))
	case dtaFloat:
		bits := uint32(0x7f000000)
		if !math.IsNaN(v.vals[i]) {
			bits = math.Float32bits(float32(v.vals[i]))
		}
		d.putUint(buf, 4, uint64(bits))
	case dtaDouble:
		bits := uint64(0x7fe0000000000000)
		if !math.IsNaN(v.vals[i]) {
			bits = math.Float64bits(v.vals[i])
		}
		d.putUint(buf, 8, bits)
	case dtaStrL:
		if v.strs[i] == "" {
			d.strlPtr(buf, 0, 0)
		} else {
			d.strlPtr(buf, uint64(j+1), uint64(i+1))
		}
	default:
		buf.Write(padded(v.strs[i], v.typ))
	}
}

func (d testDTA) labelTable(labels map[int32]string) []byte {

	keys := make([]int, 0, len(labels))
	for k := range labels {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)

	var txt bytes.Buffer
	offs := make([]int, len(keys))
	for j, k := range keys {
		offs[j] = txt.Len()
		txt.WriteString(labels[int32(k)])
		txt.WriteByte(0)
	}

	var b bytes.Buffer
	d.putUint(&b, 4, uint64(len(keys)))
	d.putUint(&b, 4, uint64(txt.Len()))
	for _, o := range offs {
		d.putUint(&b, 4, uint64(o))
	}
	for _, k := range keys {
		d.putUint(&b, 4, uint64(uint32(int32(k))))
	}
	b.Write(txt.Bytes())
	return b.Bytes()
}

func (d testDTA) sortedLabelNames() []string {
	var names []string
	for n := range d.valueLabels {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (d testDTA) bytes() []byte {
	if d.version >= 117 {
		return d.newBytes()
	}
	return d.oldBytes()
}

func (d testDTA) oldBytes() []byte {

	var buf bytes.Buffer
	w := d.widths()
	nvar := len(d.vars)

	buf.WriteByte(byte(d.version))
	if d.order == binary.BigEndian {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(2)
	}
	buf.Write([]byte{1, 0})
	d.putUint(&buf, 2, uint64(nvar))
	d.putUint(&buf, 4, uint64(d.nobs()))
	buf.Write(padded(d.label, 81))
	buf.Write(padded("20 May 2024 11:48", 18))

	for _, v := range d.vars {
		buf.WriteByte(d.oldType(v.typ))
	}
	for _, v := range d.vars {
		buf.Write(padded(v.name, w.name))
	}
	buf.Write(make([]byte, 2*(nvar+1)))
	for _, v := range d.vars {
		buf.Write(padded(v.format, w.format))
	}
	for _, v := range d.vars {
		buf.Write(padded(v.vlabel, w.lblName))
	}
	for _, v := range d.vars {
		buf.Write(padded(v.label, w.varLabel))
	}

	// One characteristic, then the terminator.
	buf.WriteByte(1)
	d.putUint(&buf, 4, 4)
	buf.WriteString("char")
	buf.WriteByte(0)
	d.putUint(&buf, 4, 0)

	for i := 0; i < d.nobs(); i++ {
		for j := range d.vars {
			d.cell(&buf, j, i)
		}
	}

	for _, name := range d.sortedLabelNames() {
		tab := d.labelTable(d.valueLabels[name])
		d.putUint(&buf, 4, uint64(len(tab)))
		buf.Write(padded(name, w.lblName))
		buf.Write(make([]byte, 3))
		buf.Write(tab)
	}

	return buf.Bytes()
}

func (d testDTA) newBytes() []byte {

	var buf bytes.Buffer
	w := d.widths()
	nvar := len(d.vars)
	offsets := make([]uint64, 14)

	kWidth, nWidth, lWidth := 2, 8, 2
	switch d.version {
	case 117:
		nWidth, lWidth = 4, 1
	case 119:
		kWidth = 4
	}

	buf.WriteString("<stata_dta><header><release>")
	buf.WriteString(map[int]string{117: "117", 118: "118", 119: "119"}[d.version])
	buf.WriteString("</release><byteorder>")
	if d.order == binary.BigEndian {
		buf.WriteString("MSF")
	} else {
		buf.WriteString("LSF")
	}
	buf.WriteString("</byteorder><K>")
	d.putUint(&buf, kWidth, uint64(nvar))
	buf.WriteString("</K><N>")
	d.putUint(&buf, nWidth, uint64(d.nobs()))
	buf.WriteString("</N><label>")
	d.putUint(&buf, lWidth, uint64(len(d.label)))
	buf.WriteString(d.label)
	buf.WriteString("</label><timestamp>")
	ts := "20 May 2024 11:48"
	buf.WriteByte(byte(len(ts)))
	buf.WriteString(ts)
	buf.WriteString("</timestamp></header>")

	offsets[1] = uint64(buf.Len())
	buf.WriteString("<map>")
	mapAt := buf.Len()
	buf.Write(make([]byte, 8*14))
	buf.WriteString("</map>")

	offsets[2] = uint64(buf.Len())
	buf.WriteString("<variable_types>")
	for _, v := range d.vars {
		d.putUint(&buf, 2, uint64(v.typ))
	}
	buf.WriteString("</variable_types>")

	offsets[3] = uint64(buf.Len())
	buf.WriteString("<varnames>")
	for _, v := range d.vars {
		buf.Write(padded(v.name, w.name))
	}
	buf.WriteString("</varnames>")

	offsets[4] = uint64(buf.Len())
	buf.WriteString("<sortlist>")
	buf.Write(make([]byte, 2*(nvar+1)))
	buf.WriteString("</sortlist>")

	offsets[5] = uint64(buf.Len())
	buf.WriteString("<formats>")
	for _, v := range d.vars {
		buf.Write(padded(v.format, w.format))
	}
	buf.WriteString("</formats>")

	offsets[6] = uint64(buf.Len())
	buf.WriteString("<value_label_names>")
	for _, v := range d.vars {
		buf.Write(padded(v.vlabel, w.lblName))
	}
	buf.WriteString("</value_label_names>")

	offsets[7] = uint64(buf.Len())
	buf.WriteString("<variable_labels>")
	for _, v := range d.vars {
		buf.Write(padded(v.label, w.varLabel))
	}
	buf.WriteString("</variable_labels>")

	offsets[8] = uint64(buf.Len())
	buf.WriteString("<characteristics></characteristics>")

	offsets[9] = uint64(buf.Len())
	buf.WriteString("<data>")
	for i := 0; i < d.nobs(); i++ {
		for j := range d.vars {
			d.cell(&buf, j, i)
		}
	}
	buf.WriteString("</data>")

	offsets[10] = uint64(buf.Len())
	buf.WriteString("<strls>")
	for j, v := range d.vars {
		if v.typ != dtaStrL {
			continue
		}
		for i, s := range v.strs {
			if s == "" {
				continue
			}
			buf.WriteString("GSO")
			d.putUint(&buf, 4, uint64(j+1))
			if d.version == 117 {
				d.putUint(&buf, 4, uint64(i+1))
			} else {
				d.putUint(&buf, 8, uint64(i+1))
			}
			buf.WriteByte(130)
			d.putUint(&buf, 4, uint64(len(s)+1))
			buf.WriteString(s)
			buf.WriteByte(0)
		}
	}
	buf.WriteString("</strls>")

	offsets[11] = uint64(buf.Len())
	buf.WriteString("<value_labels>")
	for _, name := range d.sortedLabelNames() {
		tab := d.labelTable(d.valueLabels[name])
		buf.WriteString("<lbl>")
		d.putUint(&buf, 4, uint64(len(tab)))
		buf.Write(padded(name, w.lblName))
		buf.Write(make([]byte, 3))
		buf.Write(tab)
		buf.WriteString("</lbl>")
	}
	buf.WriteString("</value_labels>")

	offsets[12] = uint64(buf.Len())
	buf.WriteString("</stata_dta>")
	offsets[13] = uint64(buf.Len())

	b := buf.Bytes()
	for j, o := range offsets {
		d.order.PutUint64(b[mapAt+8*j:], o)
	}
	return b
}

// eitcDTA returns a small data set with the analysis columns.
func eitcDTA(version int, order binary.ByteOrder) testDTA {
	nan := math.NaN()
	return testDTA{
		version: version,
		order:   order,
		label:   "EITC test data",
		vars: []testVar{
			{name: "year", typ: dtaInt, format: "%8.0g", vals: []float64{1991, 1992, 1993, 1994, 1995, 1996, 1994}},
			{name: "children", typ: dtaByte, format: "%8.0g", vals: []float64{0, 1, 2, 0, 3, 1, nan}},
			{name: "work", typ: dtaByte, format: "%8.0g", vlabel: "yesno", vals: []float64{0, 1, 1, 0, 1, 0, 1}},
			{name: "ed", typ: dtaFloat, format: "%9.0g", label: "Years of education", vals: []float64{12, 10.5, 16, nan, 8, 11, 12}},
			{name: "earn", typ: dtaDouble, format: "%10.0g", vals: []float64{0, 1234.5, 20000.25, 0, nan, 15.125, 7}},
			{name: "id", typ: dtaLong, format: "%12.0g", vals: []float64{100001, 100002, -5, 100004, 100005, 100006, 100007}},
			{name: "state", typ: 4, format: "%4s", strs: []string{"MI", "OH", "", "IN", "WI", "MN", "IL"}},
		},
		valueLabels: map[string]map[int32]string{
			"yesno": {0: "no", 1: "yes"},
		},
	}
}

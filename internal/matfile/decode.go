// Package matfile decodes the minimal subset of the MAT version-5 container
// needed to carry measured OCV data: double-precision matrices and flat 1x1
// structs, optionally inside zlib-compressed elements. A matching encoder
// (encode.go) covers the same subset.
package matfile

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// ErrFormat is returned for any structural problem in the container: bad
// header, truncated or misaligned elements, and unsupported types or classes.
var ErrFormat = errors.New("matfile: invalid file format")

// Data element types (MAT v5 "mi" codes).
const (
	miInt8       = 1
	miUInt8      = 2
	miInt32      = 5
	miUInt32     = 6
	miDouble     = 9
	miMatrix     = 14
	miCompressed = 15
	miUTF8       = 16
)

// Array classes (MAT v5 "mx" codes).
const (
	mxStruct = 2
	mxDouble = 6
)

const headerSize = 128

// Value is a decoded array: either a Numeric matrix or a Struct.
type Value interface{ value() }

// Numeric is a double-precision matrix stored column-major as a flat run.
type Numeric struct {
	Name string
	Dims []int
	Data []float64
}

// Struct is a 1x1 struct array: an ordered name -> value map.
type Struct struct {
	Name   string
	Fields map[string]Value
}

func (*Numeric) value() {}
func (*Struct) value()  {}

// Vector returns the matrix contents as a flat vector, which is how this
// subset stores all numeric payloads.
func (n *Numeric) Vector() []float64 { return n.Data }

// Decode parses a MAT v5 byte stream and returns the top-level arrays keyed
// by name.
func Decode(b []byte) (map[string]Value, error) {
	if len(b) < headerSize {
		return nil, fmt.Errorf("%w: file shorter than the %d-byte header", ErrFormat, headerSize)
	}
	// Only little-endian files ("IM" indicator) are supported.
	if b[126] != 'I' || b[127] != 'M' {
		return nil, fmt.Errorf("%w: unsupported endian indicator %q", ErrFormat, string(b[126:128]))
	}
	out := map[string]Value{}
	if err := decodeElements(b[headerSize:], out); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeElements walks a stream of tagged elements and decodes every
// top-level array into out. Compressed elements are inflated and re-parsed
// recursively from offset 0.
func decodeElements(b []byte, out map[string]Value) error {
	cur := &cursor{b: b}
	for cur.remaining() > 0 {
		typ, payload, err := cur.next()
		if err != nil {
			return err
		}
		switch typ {
		case miMatrix:
			v, err := decodeMatrix(payload)
			if err != nil {
				return err
			}
			out[name(v)] = v
		case miCompressed:
			inflated, err := inflate(payload)
			if err != nil {
				return err
			}
			if err := decodeElements(inflated, out); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unsupported top-level element type %d", ErrFormat, typ)
		}
	}
	return nil
}

func inflate(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: compressed element: %v", ErrFormat, err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: compressed element: %v", ErrFormat, err)
	}
	return raw, nil
}

// decodeMatrix decodes one miMATRIX payload: array flags, dimensions, name,
// then the class-specific payload.
func decodeMatrix(b []byte) (Value, error) {
	cur := &cursor{b: b}

	typ, flagsRaw, err := cur.next()
	if err != nil {
		return nil, err
	}
	if typ != miUInt32 || len(flagsRaw) != 8 {
		return nil, fmt.Errorf("%w: malformed array flags (type %d, %d bytes)", ErrFormat, typ, len(flagsRaw))
	}
	class := int(binary.LittleEndian.Uint32(flagsRaw[:4]) & 0xFF)

	typ, dimsRaw, err := cur.next()
	if err != nil {
		return nil, err
	}
	if typ != miInt32 || len(dimsRaw)%4 != 0 || len(dimsRaw) < 8 {
		return nil, fmt.Errorf("%w: malformed dimensions element (type %d, %d bytes)", ErrFormat, typ, len(dimsRaw))
	}
	dims := make([]int, len(dimsRaw)/4)
	for i := range dims {
		dims[i] = int(int32(binary.LittleEndian.Uint32(dimsRaw[i*4:])))
		if dims[i] < 0 {
			return nil, fmt.Errorf("%w: negative dimension %d", ErrFormat, dims[i])
		}
	}

	typ, nameRaw, err := cur.next()
	if err != nil {
		return nil, err
	}
	if typ != miInt8 && typ != miUTF8 {
		return nil, fmt.Errorf("%w: malformed array name element (type %d)", ErrFormat, typ)
	}
	arrName := string(nameRaw)

	switch class {
	case mxDouble:
		return decodeNumeric(cur, arrName, dims)
	case mxStruct:
		return decodeStruct(cur, arrName, dims)
	default:
		return nil, fmt.Errorf("%w: unsupported array class %d (%q)", ErrFormat, class, arrName)
	}
}

func decodeNumeric(cur *cursor, arrName string, dims []int) (Value, error) {
	typ, raw, err := cur.next()
	if err != nil {
		return nil, err
	}
	if typ != miDouble || len(raw)%8 != 0 {
		return nil, fmt.Errorf("%w: matrix %q: expected 8-byte double payload, got type %d", ErrFormat, arrName, typ)
	}
	n := len(raw) / 8
	if n != product(dims) {
		return nil, fmt.Errorf("%w: matrix %q: %d values for dims %v", ErrFormat, arrName, n, dims)
	}
	data := make([]float64, n)
	for i := range data {
		data[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return &Numeric{Name: arrName, Dims: dims, Data: data}, nil
}

func decodeStruct(cur *cursor, arrName string, dims []int) (Value, error) {
	if product(dims) != 1 {
		return nil, fmt.Errorf("%w: struct %q: only 1x1 structs are supported (dims %v)", ErrFormat, arrName, dims)
	}

	typ, raw, err := cur.next()
	if err != nil {
		return nil, err
	}
	if typ != miInt32 || len(raw) != 4 {
		return nil, fmt.Errorf("%w: struct %q: malformed field-name-length element", ErrFormat, arrName)
	}
	nameLen := int(int32(binary.LittleEndian.Uint32(raw)))
	if nameLen <= 0 {
		return nil, fmt.Errorf("%w: struct %q: field name length %d", ErrFormat, arrName, nameLen)
	}

	typ, namesRaw, err := cur.next()
	if err != nil {
		return nil, err
	}
	if typ != miInt8 || len(namesRaw)%nameLen != 0 {
		return nil, fmt.Errorf("%w: struct %q: malformed field-names block", ErrFormat, arrName)
	}
	numFields := len(namesRaw) / nameLen
	names := make([]string, numFields)
	for i := range names {
		names[i] = strings.TrimRight(string(namesRaw[i*nameLen:(i+1)*nameLen]), "\x00")
	}

	fields := make(map[string]Value, numFields)
	for _, fieldName := range names {
		typ, payload, err := cur.next()
		if err != nil {
			return nil, err
		}
		if typ != miMatrix {
			return nil, fmt.Errorf("%w: struct %q: field %q is not a matrix element (type %d)", ErrFormat, arrName, fieldName, typ)
		}
		v, err := decodeMatrix(payload)
		if err != nil {
			return nil, err
		}
		fields[fieldName] = v
	}

	return &Struct{Name: arrName, Fields: fields}, nil
}

// cursor walks a stream of 8-byte-aligned tagged data elements.
type cursor struct {
	b   []byte
	off int
}

func (c *cursor) remaining() int { return len(c.b) - c.off }

// next reads one element tag plus payload. Small elements pack up to 4
// payload bytes into the tag itself; normal elements are padded to an 8-byte
// boundary.
func (c *cursor) next() (int, []byte, error) {
	if c.remaining() < 8 {
		return 0, nil, fmt.Errorf("%w: truncated element tag at offset %d", ErrFormat, c.off)
	}
	raw := binary.LittleEndian.Uint32(c.b[c.off:])
	if raw>>16 != 0 {
		// Small element: size in the high half-word, payload inline.
		size := int(raw >> 16)
		typ := int(raw & 0xFFFF)
		if size > 4 {
			return 0, nil, fmt.Errorf("%w: small element with size %d at offset %d", ErrFormat, size, c.off)
		}
		payload := c.b[c.off+4 : c.off+4+size]
		c.off += 8
		return typ, payload, nil
	}

	typ := int(raw)
	size := int(binary.LittleEndian.Uint32(c.b[c.off+4:]))
	if c.remaining() < 8+size {
		return 0, nil, fmt.Errorf("%w: element of type %d overruns buffer at offset %d", ErrFormat, typ, c.off)
	}
	payload := c.b[c.off+8 : c.off+8+size]
	c.off += 8 + size
	if pad := (8 - size%8) % 8; pad > 0 {
		if c.remaining() < pad {
			c.off = len(c.b)
		} else {
			c.off += pad
		}
	}
	return typ, payload, nil
}

func product(dims []int) int {
	p := 1
	for _, d := range dims {
		p *= d
	}
	return p
}

func name(v Value) string {
	switch t := v.(type) {
	case *Numeric:
		return t.Name
	case *Struct:
		return t.Name
	}
	return ""
}

// MeasuredVectors locates the conventional "data" struct and returns its
// equal-length "capacity" and "ocv" vectors.
func MeasuredVectors(doc map[string]Value) (capacity, ocv []float64, err error) {
	raw, ok := doc["data"]
	if !ok {
		return nil, nil, fmt.Errorf("%w: missing top-level %q struct", ErrFormat, "data")
	}
	st, ok := raw.(*Struct)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q is not a struct", ErrFormat, "data")
	}

	capacity, err = structVector(st, "capacity")
	if err != nil {
		return nil, nil, err
	}
	ocv, err = structVector(st, "ocv")
	if err != nil {
		return nil, nil, err
	}
	if len(capacity) != len(ocv) {
		return nil, nil, fmt.Errorf("%w: capacity (%d) and ocv (%d) lengths differ", ErrFormat, len(capacity), len(ocv))
	}
	return capacity, ocv, nil
}

func structVector(st *Struct, field string) ([]float64, error) {
	raw, ok := st.Fields[field]
	if !ok {
		return nil, fmt.Errorf("%w: struct %q has no %q field", ErrFormat, st.Name, field)
	}
	num, ok := raw.(*Numeric)
	if !ok {
		return nil, fmt.Errorf("%w: field %q is not numeric", ErrFormat, field)
	}
	return num.Vector(), nil
}

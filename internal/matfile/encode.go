package matfile

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"math"
)

const fieldNameWidth = 32

// EncodeMeasured writes a measured OCV dataset as a MAT v5 file containing a
// 1x1 struct named "data" with "capacity" and "ocv" double vectors. With
// compress, the matrix is wrapped in a single zlib-compressed element.
func EncodeMeasured(capacity, ocv []float64, compress bool) ([]byte, error) {
	if len(capacity) != len(ocv) {
		return nil, fmt.Errorf("matfile: capacity (%d) and ocv (%d) lengths differ", len(capacity), len(ocv))
	}

	matrix := encodeStruct("data", []string{"capacity", "ocv"}, [][]float64{capacity, ocv})

	var body bytes.Buffer
	if compress {
		var z bytes.Buffer
		zw := zlib.NewWriter(&z)
		if _, err := zw.Write(matrix); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		writeElement(&body, miCompressed, z.Bytes())
	} else {
		body.Write(matrix)
	}

	out := bytes.NewBuffer(make([]byte, 0, headerSize+body.Len()))
	writeHeader(out)
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer) {
	text := make([]byte, 116)
	copy(text, "MATLAB 5.0 MAT-file, written by ocv-diagnostics")
	for i := range text {
		if text[i] == 0 {
			text[i] = ' '
		}
	}
	buf.Write(text)
	buf.Write(make([]byte, 8)) // subsystem data offset, unused
	var trailer [4]byte
	binary.LittleEndian.PutUint16(trailer[0:], 0x0100)
	trailer[2], trailer[3] = 'I', 'M'
	buf.Write(trailer[:])
}

// writeElement writes a full tag + payload + alignment padding.
func writeElement(buf *bytes.Buffer, typ int, payload []byte) {
	var tag [8]byte
	binary.LittleEndian.PutUint32(tag[0:], uint32(typ))
	binary.LittleEndian.PutUint32(tag[4:], uint32(len(payload)))
	buf.Write(tag[:])
	buf.Write(payload)
	if pad := (8 - len(payload)%8) % 8; pad > 0 {
		buf.Write(make([]byte, pad))
	}
}

// writeSmallElement packs a payload of at most 4 bytes inline with the tag.
func writeSmallElement(buf *bytes.Buffer, typ int, payload []byte) {
	var el [8]byte
	binary.LittleEndian.PutUint32(el[0:], uint32(typ)|uint32(len(payload))<<16)
	copy(el[4:], payload)
	buf.Write(el[:])
}

// encodeNumeric builds a complete miMATRIX element holding a 1xN double row
// vector.
func encodeNumeric(name string, values []float64) []byte {
	var body bytes.Buffer
	writeArrayFlags(&body, mxDouble)
	writeDims(&body, 1, len(values))
	writeElement(&body, miInt8, []byte(name))

	data := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	writeElement(&body, miDouble, data)

	var out bytes.Buffer
	writeElement(&out, miMatrix, body.Bytes())
	return out.Bytes()
}

// encodeStruct builds a complete miMATRIX element holding a flat 1x1 struct
// whose fields are 1xN double vectors.
func encodeStruct(name string, fieldNames []string, fieldValues [][]float64) []byte {
	var body bytes.Buffer
	writeArrayFlags(&body, mxStruct)
	writeDims(&body, 1, 1)
	writeElement(&body, miInt8, []byte(name))

	var fnLen [4]byte
	binary.LittleEndian.PutUint32(fnLen[:], fieldNameWidth)
	writeSmallElement(&body, miInt32, fnLen[:])

	names := make([]byte, fieldNameWidth*len(fieldNames))
	for i, fn := range fieldNames {
		copy(names[i*fieldNameWidth:], fn)
	}
	writeElement(&body, miInt8, names)

	for i := range fieldNames {
		body.Write(encodeNumeric("", fieldValues[i]))
	}

	var out bytes.Buffer
	writeElement(&out, miMatrix, body.Bytes())
	return out.Bytes()
}

func writeArrayFlags(buf *bytes.Buffer, class int) {
	flags := make([]byte, 8)
	binary.LittleEndian.PutUint32(flags[0:], uint32(class))
	writeElement(buf, miUInt32, flags)
}

func writeDims(buf *bytes.Buffer, rows, cols int) {
	dims := make([]byte, 8)
	binary.LittleEndian.PutUint32(dims[0:], uint32(rows))
	binary.LittleEndian.PutUint32(dims[4:], uint32(cols))
	writeElement(buf, miInt32, dims)
}

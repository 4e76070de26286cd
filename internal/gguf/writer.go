package gguf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/x448/float16"
)

type kvEntry struct {
	key   string
	typ   GGUFMetadataValueType
	value interface{}
}

type tensorEntry struct {
	name string
	dims []uint64
	typ  GGMLType
	data []byte
}

// Writer assembles a GGUF v3 image: header, metadata, tensor infos, then
// tensor data with every tensor aligned to DefaultAlignment.
type Writer struct {
	kv      []kvEntry
	tensors []tensorEntry
}

func NewWriter() *Writer {
	return &Writer{}
}

// AddKV appends a metadata pair. Supported values: string, bool, uint32, int32,
// uint64, int64, float32, float64.
func (w *Writer) AddKV(key string, value interface{}) error {
	var typ GGUFMetadataValueType
	switch value.(type) {
	case string:
		typ = GGUFMetadataValueTypeString
	case bool:
		typ = GGUFMetadataValueTypeBool
	case uint32:
		typ = GGUFMetadataValueTypeUint32
	case int32:
		typ = GGUFMetadataValueTypeInt32
	case uint64:
		typ = GGUFMetadataValueTypeUint64
	case int64:
		typ = GGUFMetadataValueTypeInt64
	case float32:
		typ = GGUFMetadataValueTypeFloat32
	case float64:
		typ = GGUFMetadataValueTypeFloat64
	default:
		return fmt.Errorf("kv %s: unsupported value type %T", key, value)
	}
	w.kv = append(w.kv, kvEntry{key: key, typ: typ, value: value})
	return nil
}

// AddTensor appends raw tensor data. dims lists ne[0] (fastest axis) first.
func (w *Writer) AddTensor(name string, dims []uint64, typ GGMLType, data []byte) {
	w.tensors = append(w.tensors, tensorEntry{name: name, dims: append([]uint64(nil), dims...), typ: typ, data: data})
}

// AddFloat32s encodes vals as F32 or F16.
func (w *Writer) AddFloat32s(name string, dims []uint64, typ GGMLType, vals []float32) error {
	var buf []byte
	switch typ {
	case GGMLTypeF32:
		buf = make([]byte, 4*len(vals))
		for i, v := range vals {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
		}
	case GGMLTypeF16:
		buf = make([]byte, 2*len(vals))
		for i, v := range vals {
			binary.LittleEndian.PutUint16(buf[i*2:], float16.Fromfloat32(v).Bits())
		}
	default:
		return ErrUnsupportedTensorType{Name: name, Type: typ}
	}
	w.AddTensor(name, dims, typ, buf)
	return nil
}

func writeString(b *bytes.Buffer, s string) {
	_ = binary.Write(b, binary.LittleEndian, uint64(len(s)))
	b.WriteString(s)
}

// WriteTo serializes the image.
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	var b bytes.Buffer
	_ = binary.Write(&b, binary.LittleEndian, uint32(GGUFMagic))
	_ = binary.Write(&b, binary.LittleEndian, uint32(GGUFVersion))
	_ = binary.Write(&b, binary.LittleEndian, uint64(len(w.tensors)))
	_ = binary.Write(&b, binary.LittleEndian, uint64(len(w.kv)))

	for _, e := range w.kv {
		writeString(&b, e.key)
		_ = binary.Write(&b, binary.LittleEndian, uint32(e.typ))
		switch v := e.value.(type) {
		case string:
			writeString(&b, v)
		case bool:
			if v {
				b.WriteByte(1)
			} else {
				b.WriteByte(0)
			}
		default:
			_ = binary.Write(&b, binary.LittleEndian, v)
		}
	}

	offsets := make([]uint64, len(w.tensors))
	next := uint64(0)
	for i, t := range w.tensors {
		offsets[i] = next
		next = alignUp(next+uint64(len(t.data)), DefaultAlignment)
	}

	for i, t := range w.tensors {
		writeString(&b, t.name)
		_ = binary.Write(&b, binary.LittleEndian, uint32(len(t.dims)))
		for _, d := range t.dims {
			_ = binary.Write(&b, binary.LittleEndian, d)
		}
		_ = binary.Write(&b, binary.LittleEndian, uint32(t.typ))
		_ = binary.Write(&b, binary.LittleEndian, offsets[i])
	}

	b.Write(make([]byte, alignUp(uint64(b.Len()), DefaultAlignment)-uint64(b.Len())))
	start := uint64(b.Len())
	for i, t := range w.tensors {
		b.Write(make([]byte, start+offsets[i]-uint64(b.Len())))
		b.Write(t.data)
	}

	return b.WriteTo(out)
}

// WriteFile writes the image to path, replacing any existing file.
func (w *Writer) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := w.WriteTo(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

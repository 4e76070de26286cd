package gguf

import (
	"fmt"
	"math"
	"math/bits"
)

const (
	GGUFMagic   = 0x46554747 // "GGUF"
	GGUFVersion = 3

	DefaultAlignment = 32
)

type GGMLType uint32

const (
	GGMLTypeF32  GGMLType = 0
	GGMLTypeF16  GGMLType = 1
	GGMLTypeQ4_0 GGMLType = 2
	GGMLTypeQ4_1 GGMLType = 3
	GGMLTypeQ5_0 GGMLType = 6
	GGMLTypeQ8_0 GGMLType = 8
	GGMLTypeQ4_K GGMLType = 12
	GGMLTypeQ6_K GGMLType = 14
)

type GGUFMetadataValueType uint32

const (
	GGUFMetadataValueTypeUint8   GGUFMetadataValueType = 0
	GGUFMetadataValueTypeInt8    GGUFMetadataValueType = 1
	GGUFMetadataValueTypeUint16  GGUFMetadataValueType = 2
	GGUFMetadataValueTypeInt16   GGUFMetadataValueType = 3
	GGUFMetadataValueTypeUint32  GGUFMetadataValueType = 4
	GGUFMetadataValueTypeInt32   GGUFMetadataValueType = 5
	GGUFMetadataValueTypeFloat32 GGUFMetadataValueType = 6
	GGUFMetadataValueTypeBool    GGUFMetadataValueType = 7
	GGUFMetadataValueTypeString  GGUFMetadataValueType = 8
	GGUFMetadataValueTypeArray   GGUFMetadataValueType = 9
	GGUFMetadataValueTypeUint64  GGUFMetadataValueType = 10
	GGUFMetadataValueTypeInt64   GGUFMetadataValueType = 11
	GGUFMetadataValueTypeFloat64 GGUFMetadataValueType = 12
)

type TensorInfo struct {
	Name       string
	Dimensions []uint64 // ne (number of elements) in each dimension, fastest-varying first
	Type       GGMLType
	Offset     uint64 // Offset relative to data start
	Data       []byte // Exactly SizeBytes of tensor data when the type is known
}

// ElementCount returns the product of the dimensions, saturating at math.MaxUint64.
func (t *TensorInfo) ElementCount() uint64 {
	n := uint64(1)
	for _, d := range t.Dimensions {
		n = mulSat(n, d)
	}
	return n
}

// SizeBytes returns the encoded size of the tensor data, saturating at math.MaxUint64.
// Unknown types report 0.
func (t *TensorInfo) SizeBytes() uint64 {
	numElements := t.ElementCount()

	switch t.Type {
	case GGMLTypeF32:
		return mulSat(numElements, 4)
	case GGMLTypeF16:
		return mulSat(numElements, 2)
	case GGMLTypeQ4_0:
		return mulSat(numElements/32, 18)
	case GGMLTypeQ5_0:
		return mulSat(numElements/32, 22)
	case GGMLTypeQ8_0:
		return mulSat(numElements/32, 34)
	case GGMLTypeQ4_K:
		return mulSat(numElements/256, 144)
	case GGMLTypeQ6_K:
		return mulSat(numElements/256, 210)
	default:
		return 0
	}
}

func mulSat(a, b uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return math.MaxUint64
	}
	return lo
}

type GGUFFile struct {
	Header     GGUFHeader
	KV         map[string]interface{}
	Tensors    []*TensorInfo
	Data       []byte // Whole file contents, mmap'd when loaded from disk
	DataOffset uint64 // Offset where the tensor data starts

	mapped bool
}

type GGUFHeader struct {
	Magic       uint32
	Version     uint32
	TensorCount uint64
	KVCount     uint64
}

// Tensor returns the named tensor or nil.
func (f *GGUFFile) Tensor(name string) *TensorInfo {
	for _, t := range f.Tensors {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// Error types
type ErrInvalidMagic struct{ Magic uint32 }

func (e ErrInvalidMagic) Error() string {
	return fmt.Sprintf("invalid GGUF magic: %x", e.Magic)
}

type ErrUnsupportedVersion struct{ Version uint32 }

func (e ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("unsupported GGUF version: %d", e.Version)
}

// ErrUnsupportedTensorType is returned when tensor data cannot be decoded to float32.
type ErrUnsupportedTensorType struct {
	Name string
	Type GGMLType
}

func (e ErrUnsupportedTensorType) Error() string {
	return fmt.Sprintf("tensor %s: unsupported type %s (want F32 or F16)", e.Name, e.Type)
}

// ErrMissingTensor is returned when a required tensor is absent.
type ErrMissingTensor struct{ Name string }

func (e ErrMissingTensor) Error() string {
	return fmt.Sprintf("tensor %s not found", e.Name)
}

func (t GGMLType) String() string {
	switch t {
	case GGMLTypeF32:
		return "F32"
	case GGMLTypeF16:
		return "F16"
	case GGMLTypeQ4_0:
		return "Q4_0"
	case GGMLTypeQ4_1:
		return "Q4_1"
	case GGMLTypeQ5_0:
		return "Q5_0"
	case GGMLTypeQ8_0:
		return "Q8_0"
	case GGMLTypeQ4_K:
		return "Q4_K"
	case GGMLTypeQ6_K:
		return "Q6_K"
	default:
		return fmt.Sprintf("UNKNOWN_TYPE_%d", t)
	}
}

package gguf

import (
	"fmt"

	"github.com/23skdu/longbow-cgen/internal/nn"
)

// Metadata keys and tensor names of a dense network stored in GGUF.
const (
	ArchDense         = "dense"
	KeyArchitecture   = "general.architecture"
	KeyName           = "general.name"
	KeyDenseInputSize = "dense.input_size"
	KeyDenseLayers    = "dense.layer_count"
)

func layerKey(i int, field string) string { return fmt.Sprintf("dense.%d.%s", i, field) }

// WeightTensorName is stored with dims [units, input_dim]: ne[0] is the fastest
// axis, so the data is the row-major input_dim x units matrix.
func WeightTensorName(i int) string { return layerKey(i, "weight") }
func BiasTensorName(i int) string   { return layerKey(i, "bias") }

// DenseModel exposes a GGUF file holding a dense network as an nn.Provider.
type DenseModel struct {
	file      *GGUFFile
	inputSize int
	layers    []nn.Layer
}

// OpenDense maps path and reads the dense metadata. Close releases the mapping.
func OpenDense(path string) (*DenseModel, error) {
	f, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := NewDenseModel(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// NewDenseModel reads the dense.* metadata of an already parsed file and
// resolves the per-layer tensors. Missing tensors surface later from Weights
// and Biases as ErrMissingTensor.
func NewDenseModel(f *GGUFFile) (*DenseModel, error) {
	if arch, ok := f.KV[KeyArchitecture].(string); ok && arch != ArchDense {
		return nil, fmt.Errorf("architecture %q is not %q", arch, ArchDense)
	}
	inputSize, ok := getKVInt(f.KV, KeyDenseInputSize)
	if !ok {
		return nil, fmt.Errorf("missing %s", KeyDenseInputSize)
	}
	count, ok := getKVInt(f.KV, KeyDenseLayers)
	if !ok {
		return nil, fmt.Errorf("missing %s", KeyDenseLayers)
	}

	m := &DenseModel{file: f, inputSize: int(inputSize)}
	for i := 0; i < int(count); i++ {
		l := &denseLayer{
			kind:       ArchDense,
			weight:     f.Tensor(WeightTensorName(i)),
			bias:       f.Tensor(BiasTensorName(i)),
			index:      i,
			activation: "linear",
		}
		if k, ok := f.KV[layerKey(i, "kind")].(string); ok {
			l.kind = k
		}
		if a, ok := f.KV[layerKey(i, "activation")].(string); ok {
			l.activation = a
		}
		m.layers = append(m.layers, l)
	}
	return m, nil
}

func (m *DenseModel) InputSize() int     { return m.inputSize }
func (m *DenseModel) Layers() []nn.Layer { return append([]nn.Layer(nil), m.layers...) }
func (m *DenseModel) File() *GGUFFile    { return m.file }

func (m *DenseModel) Name() string {
	name, _ := m.file.KV[KeyName].(string)
	return name
}

func (m *DenseModel) Close() error { return m.file.Close() }

type denseLayer struct {
	index      int
	kind       string
	activation string
	weight     *TensorInfo
	bias       *TensorInfo
}

func (l *denseLayer) Kind() string           { return l.kind }
func (l *denseLayer) ActivationName() string { return l.activation }

func (l *denseLayer) Units() int {
	if l.weight == nil || len(l.weight.Dimensions) == 0 {
		return 0
	}
	return int(l.weight.Dimensions[0])
}

func (l *denseLayer) Weights() ([][]float32, error) {
	if l.weight == nil {
		return nil, ErrMissingTensor{Name: WeightTensorName(l.index)}
	}
	if len(l.weight.Dimensions) != 2 {
		return nil, &nn.ShapeMismatchError{
			Subject: l.weight.Name,
			Detail:  fmt.Sprintf("want a rank-2 tensor, got dims %v", l.weight.Dimensions),
		}
	}
	flat, err := l.weight.Float32s()
	if err != nil {
		return nil, err
	}
	units := int(l.weight.Dimensions[0])
	rows := int(l.weight.Dimensions[1])
	out := make([][]float32, rows)
	for r := range out {
		out[r] = flat[r*units : (r+1)*units]
	}
	return out, nil
}

func (l *denseLayer) Biases() ([]float32, error) {
	if l.bias == nil {
		return nil, ErrMissingTensor{Name: BiasTensorName(l.index)}
	}
	if len(l.bias.Dimensions) != 1 {
		return nil, &nn.ShapeMismatchError{
			Subject: l.bias.Name,
			Detail:  fmt.Sprintf("want a rank-1 tensor, got dims %v", l.bias.Dimensions),
		}
	}
	return l.bias.Float32s()
}

// EncodeDense stores an in-memory model in the dense GGUF layout with tensors of type typ.
func EncodeDense(name string, m nn.StaticModel, typ GGMLType) (*Writer, error) {
	w := NewWriter()
	for _, kv := range []struct {
		key string
		val interface{}
	}{
		{KeyArchitecture, ArchDense},
		{KeyName, name},
		{KeyDenseInputSize, uint32(m.Input)},
		{KeyDenseLayers, uint32(len(m.Dense))},
	} {
		if err := w.AddKV(kv.key, kv.val); err != nil {
			return nil, err
		}
	}

	for i, l := range m.Dense {
		if err := w.AddKV(layerKey(i, "kind"), l.LayerKind); err != nil {
			return nil, err
		}
		if err := w.AddKV(layerKey(i, "activation"), l.Activation); err != nil {
			return nil, err
		}
		flat := make([]float32, 0, len(l.W)*l.UnitCount)
		for r, row := range l.W {
			if len(row) != l.UnitCount {
				return nil, fmt.Errorf("layer %d row %d: %d values, want %d", i, r, len(row), l.UnitCount)
			}
			flat = append(flat, row...)
		}
		dims := []uint64{uint64(l.UnitCount), uint64(len(l.W))}
		if err := w.AddFloat32s(WeightTensorName(i), dims, typ, flat); err != nil {
			return nil, err
		}
		if err := w.AddFloat32s(BiasTensorName(i), []uint64{uint64(len(l.B))}, typ, l.B); err != nil {
			return nil, err
		}
	}
	return w, nil
}

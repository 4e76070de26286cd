package nn

// LayerSpec is one validated dense layer. Weights are stored as an
// input_dim x units matrix, matching the row-major layout of the emitted C arrays.
type LayerSpec struct {
	index      int
	units      int
	activation Activation
	weights    [][]float32
	biases     []float32
}

func (l LayerSpec) Index() int             { return l.index }
func (l LayerSpec) Units() int             { return l.units }
func (l LayerSpec) Activation() Activation { return l.activation }
func (l LayerSpec) InputDim() int          { return len(l.weights) }

// Weight returns the weight connecting input row to unit col.
func (l LayerSpec) Weight(row, col int) float32 {
	return l.weights[row][col]
}

// FlatWeights returns a row-major copy of the weight matrix.
func (l LayerSpec) FlatWeights() []float32 {
	out := make([]float32, 0, len(l.weights)*l.units)
	for _, row := range l.weights {
		out = append(out, row...)
	}
	return out
}

// Biases returns a copy of the bias vector.
func (l LayerSpec) Biases() []float32 {
	return append([]float32(nil), l.biases...)
}

// ModelSpec is the immutable export form of a trained dense network.
// It is only produced by Extract.
type ModelSpec struct {
	inputSize int
	layers    []LayerSpec
}

func (m ModelSpec) InputSize() int { return m.inputSize }
func (m ModelSpec) NumLayers() int { return len(m.layers) }

func (m ModelSpec) Layer(i int) LayerSpec { return m.layers[i] }

// Layers returns the layers in model order.
func (m ModelSpec) Layers() []LayerSpec {
	return append([]LayerSpec(nil), m.layers...)
}

// OutputSize is the unit count of the last layer.
func (m ModelSpec) OutputSize() int {
	if len(m.layers) == 0 {
		return 0
	}
	return m.layers[len(m.layers)-1].units
}

// ParamCount counts weights and biases over all layers.
func (m ModelSpec) ParamCount() int {
	n := 0
	for _, l := range m.layers {
		n += l.InputDim()*l.units + l.units
	}
	return n
}

// MACs is the number of multiply-accumulates in one forward pass.
func (m ModelSpec) MACs() int {
	n := 0
	for _, l := range m.layers {
		n += l.InputDim() * l.units
	}
	return n
}

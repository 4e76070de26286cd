package nn

import (
	"fmt"
	"math"
	"strings"
)

// Layer is what a trained-model provider exposes for each layer.
type Layer interface {
	Kind() string
	Units() int
	ActivationName() string
	// Weights returns the input_dim x units matrix.
	Weights() ([][]float32, error)
	Biases() ([]float32, error)
}

// Provider is a trained model as seen by the exporter.
type Provider interface {
	InputSize() int
	Layers() []Layer
}

// IsDense reports whether a provider layer kind names a fully-connected layer.
func IsDense(kind string) bool {
	switch strings.ToLower(kind) {
	case "dense", "fully_connected", "fc":
		return true
	}
	return false
}

// Extract validates every layer of p in order and returns the model spec.
// It stops at the first violation.
func Extract(p Provider) (ModelSpec, error) {
	inputSize := p.InputSize()
	if inputSize <= 0 {
		return ModelSpec{}, &ShapeMismatchError{
			Subject: "model input size",
			Detail:  fmt.Sprintf("must be positive, got %d", inputSize),
		}
	}

	src := p.Layers()
	if len(src) == 0 {
		return ModelSpec{}, ErrEmptyModel
	}

	layers := make([]LayerSpec, 0, len(src))
	prev := inputSize
	for i, l := range src {
		spec, err := extractLayer(i, l, prev)
		if err != nil {
			return ModelSpec{}, err
		}
		layers = append(layers, spec)
		prev = spec.units
	}

	return ModelSpec{inputSize: inputSize, layers: layers}, nil
}

func extractLayer(i int, l Layer, inputDim int) (LayerSpec, error) {
	if !IsDense(l.Kind()) {
		return LayerSpec{}, &UnsupportedLayerError{Index: i, Kind: l.Kind()}
	}
	act, err := ParseActivation(l.ActivationName())
	if err != nil {
		return LayerSpec{}, &UnsupportedActivationError{Index: i, Name: l.ActivationName()}
	}

	units := l.Units()
	if units <= 0 {
		return LayerSpec{}, &ShapeMismatchError{
			Subject: fmt.Sprintf("layer %d units", i),
			Detail:  fmt.Sprintf("must be positive, got %d", units),
		}
	}

	w, err := l.Weights()
	if err != nil {
		return LayerSpec{}, fmt.Errorf("layer %d weights: %w", i, err)
	}
	if len(w) != inputDim {
		return LayerSpec{}, &ShapeMismatchError{Subject: fmt.Sprintf("layer %d weight rows", i), Want: inputDim, Got: len(w)}
	}
	weights := make([][]float32, len(w))
	for r, row := range w {
		if len(row) != units {
			return LayerSpec{}, &ShapeMismatchError{Subject: fmt.Sprintf("layer %d weight row %d", i, r), Want: units, Got: len(row)}
		}
		if err := checkFinite(fmt.Sprintf("layer_%d_weights", i), r*units, row); err != nil {
			return LayerSpec{}, err
		}
		weights[r] = append([]float32(nil), row...)
	}

	b, err := l.Biases()
	if err != nil {
		return LayerSpec{}, fmt.Errorf("layer %d biases: %w", i, err)
	}
	if len(b) != units {
		return LayerSpec{}, &ShapeMismatchError{Subject: fmt.Sprintf("layer %d biases", i), Want: units, Got: len(b)}
	}
	if err := checkFinite(fmt.Sprintf("layer_%d_biases", i), 0, b); err != nil {
		return LayerSpec{}, err
	}

	return LayerSpec{
		index:      i,
		units:      units,
		activation: act,
		weights:    weights,
		biases:     append([]float32(nil), b...),
	}, nil
}

func checkFinite(subject string, base int, vals []float32) error {
	for j, v := range vals {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return &NonFiniteValueError{Subject: subject, Position: base + j, Value: v}
		}
	}
	return nil
}

// StaticLayer is an in-memory provider layer.
type StaticLayer struct {
	LayerKind  string
	UnitCount  int
	Activation string
	W          [][]float32
	B          []float32
}

func (s StaticLayer) Kind() string                  { return s.LayerKind }
func (s StaticLayer) Units() int                    { return s.UnitCount }
func (s StaticLayer) ActivationName() string        { return s.Activation }
func (s StaticLayer) Weights() ([][]float32, error) { return s.W, nil }
func (s StaticLayer) Biases() ([]float32, error)    { return s.B, nil }

// StaticModel is a Provider over already materialized weights.
type StaticModel struct {
	Input int
	Dense []StaticLayer
}

func (s StaticModel) InputSize() int { return s.Input }

func (s StaticModel) Layers() []Layer {
	out := make([]Layer, len(s.Dense))
	for i := range s.Dense {
		out[i] = s.Dense[i]
	}
	return out
}

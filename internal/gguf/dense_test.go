package gguf

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/23skdu/longbow-cgen/internal/nn"
)

func scenarioModel() nn.StaticModel {
	return nn.StaticModel{
		Input: 3,
		Dense: []nn.StaticLayer{
			{LayerKind: "dense", UnitCount: 4, Activation: "relu",
				W: [][]float32{{1, 2, 3, 4}, {5, 6, 7, 8}, {9, 10, 11, 12}},
				B: []float32{0.1, 0.2, 0.3, 0.4}},
			{LayerKind: "dense", UnitCount: 1, Activation: "linear",
				W: [][]float32{{-1}, {-0.5}, {0.5}, {1}},
				B: []float32{0.25}},
		},
	}
}

func writeDense(t *testing.T, m nn.StaticModel, typ GGMLType) string {
	t.Helper()
	w, err := EncodeDense("scenario", m, typ)
	if err != nil {
		t.Fatalf("EncodeDense: %v", err)
	}
	path := filepath.Join(t.TempDir(), "model.gguf")
	if err := w.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDenseRoundTrip(t *testing.T) {
	for _, typ := range []GGMLType{GGMLTypeF32, GGMLTypeF16} {
		t.Run(typ.String(), func(t *testing.T) {
			src := scenarioModel()
			m, err := OpenDense(writeDense(t, src, typ))
			if err != nil {
				t.Fatalf("OpenDense: %v", err)
			}
			defer func() { _ = m.Close() }()

			if m.Name() != "scenario" {
				t.Errorf("Name = %q", m.Name())
			}
			spec, err := nn.Extract(m)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if spec.InputSize() != 3 || spec.NumLayers() != 2 {
				t.Fatalf("input=%d layers=%d", spec.InputSize(), spec.NumLayers())
			}
			for i, want := range src.Dense {
				l := spec.Layer(i)
				if l.Units() != want.UnitCount || l.Activation().Name() != want.Activation {
					t.Errorf("layer %d: units=%d act=%s", i, l.Units(), l.Activation().Name())
				}
				for r := range want.W {
					for c := range want.W[r] {
						// the weights are exactly representable in F16
						if l.Weight(r, c) != want.W[r][c] {
							t.Errorf("layer %d w[%d][%d] = %v, want %v", i, r, c, l.Weight(r, c), want.W[r][c])
						}
					}
				}
			}
		})
	}
}

func TestDenseRejectsOtherLayerKinds(t *testing.T) {
	src := scenarioModel()
	src.Dense[1].LayerKind = "conv2d"
	m, err := OpenDense(writeDense(t, src, GGMLTypeF32))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = m.Close() }()

	_, err = nn.Extract(m)
	var target *nn.UnsupportedLayerError
	if !errors.As(err, &target) || target.Kind != "conv2d" {
		t.Fatalf("expected UnsupportedLayerError, got %v", err)
	}
}

func TestDenseMissingMetadata(t *testing.T) {
	w := NewWriter()
	_ = w.AddKV(KeyArchitecture, ArchDense)
	path := filepath.Join(t.TempDir(), "bad.gguf")
	if err := w.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	_, err := OpenDense(path)
	if err == nil || !strings.Contains(err.Error(), KeyDenseInputSize) {
		t.Errorf("expected missing input size error, got %v", err)
	}

	w = NewWriter()
	_ = w.AddKV(KeyArchitecture, "llama")
	if err := w.WriteFile(path); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenDense(path); err == nil {
		t.Error("expected architecture error")
	}
}

func TestDenseMissingTensor(t *testing.T) {
	w := NewWriter()
	_ = w.AddKV(KeyDenseInputSize, uint32(2))
	_ = w.AddKV(KeyDenseLayers, uint32(1))
	_ = w.AddFloat32s(BiasTensorName(0), []uint64{1}, GGMLTypeF32, []float32{0})
	f, err := Parse(encode(t, w))
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewDenseModel(f)
	if err != nil {
		t.Fatal(err)
	}
	_, err = m.Layers()[0].Weights()
	var missing ErrMissingTensor
	if !errors.As(err, &missing) || missing.Name != WeightTensorName(0) {
		t.Errorf("expected ErrMissingTensor, got %v", err)
	}
}

func TestAnalyzeAndStats(t *testing.T) {
	f, err := LoadFile(writeDense(t, scenarioModel(), GGMLTypeF32))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = f.Close() }()

	r := Analyze(f)
	if r.Architecture != ArchDense || r.InputSize != 3 || r.LayerCount != 2 || r.TensorCount != 4 {
		t.Errorf("report = %+v", r)
	}
	if r.TotalParameters != 21 || r.MemoryEstimate != 84 {
		t.Errorf("params=%d bytes=%d", r.TotalParameters, r.MemoryEstimate)
	}
	if r.TensorTypes["F32"] != 4 {
		t.Errorf("types = %v", r.TensorTypes)
	}
	if !strings.Contains(r.String(), "Layers:           2") {
		t.Errorf("String() = %s", r.String())
	}

	s, err := ComputeStats(f, WeightTensorName(0))
	if err != nil {
		t.Fatal(err)
	}
	if s.MinValue != 1 || s.MaxValue != 12 || s.MeanValue != 6.5 || s.HasNaN || s.HasInf {
		t.Errorf("stats = %+v", s)
	}
	if _, err := ComputeStats(f, "nope"); err == nil {
		t.Error("expected error for missing tensor")
	}
}

// Command gen_dense writes a small two-layer dense model in the GGUF layout
// cgen reads, plus an optional Arrow samples file for it.
package main

import (
	"flag"
	"log"
	"strings"

	"github.com/23skdu/longbow-cgen/internal/gguf"
	"github.com/23skdu/longbow-cgen/internal/nn"
	"github.com/23skdu/longbow-cgen/internal/samples"
)

var (
	outPath     = flag.String("out", "dense.gguf", "Output GGUF path")
	tensorType  = flag.String("type", "f32", "Tensor type: f32 or f16")
	samplesPath = flag.String("samples", "", "Also write n random input rows to this Arrow IPC file")
	numSamples  = flag.Int("n", 10, "Rows written with -samples")
	seed        = flag.Uint64("seed", 42, "Seed for -samples")
)

// demo is a 3-4-1 network: relu hidden layer, linear output.
func demo() nn.StaticModel {
	return nn.StaticModel{
		Input: 3,
		Dense: []nn.StaticLayer{
			{
				LayerKind:  "Dense",
				UnitCount:  4,
				Activation: "relu",
				W: [][]float32{
					{0.5, -0.25, 1, 0.125},
					{-1, 0.75, 0.5, 0.25},
					{0.25, 0.5, -0.5, 1},
				},
				B: []float32{0.1, -0.1, 0, 0.05},
			},
			{
				LayerKind:  "Dense",
				UnitCount:  1,
				Activation: "linear",
				W:          [][]float32{{1}, {-0.5}, {0.25}, {2}},
				B:          []float32{-0.2},
			},
		},
	}
}

func main() {
	flag.Parse()

	typ := gguf.GGMLTypeF32
	switch strings.ToLower(*tensorType) {
	case "f32":
	case "f16":
		typ = gguf.GGMLTypeF16
	default:
		log.Fatalf("unsupported -type %q (want f32 or f16)", *tensorType)
	}

	m := demo()
	if _, err := nn.Extract(m); err != nil {
		log.Fatalf("demo model is invalid: %v", err)
	}
	w, err := gguf.EncodeDense("dense-demo", m, typ)
	if err != nil {
		log.Fatalf("Failed to encode model: %v", err)
	}
	if err := w.WriteFile(*outPath); err != nil {
		log.Fatalf("Failed to write %s: %v", *outPath, err)
	}
	log.Printf("Wrote %s (%s, %d layers)", *outPath, typ, len(m.Dense))

	if *samplesPath != "" {
		s := samples.Random(*numSamples, m.Input, *seed)
		if err := samples.SaveFile(*samplesPath, nil, s); err != nil {
			log.Fatalf("Failed to write samples: %v", err)
		}
		log.Printf("Wrote %d sample inputs to %s", s.Len(), *samplesPath)
	}
}

package samples

import (
	"math/rand/v2"

	"github.com/23skdu/longbow-cgen/internal/codegen"
)

// Random returns n rows of width uniform [0,1) inputs with no outputs. The
// same seed always yields the same rows.
func Random(n, width int, seed uint64) codegen.SampleSet {
	if n < 0 {
		n = 0
	}
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	s := codegen.SampleSet{Inputs: make([][]float32, n), InputWidth: width}
	for i := range s.Inputs {
		row := make([]float32, width)
		for j := range row {
			row[j] = r.Float32()
		}
		s.Inputs[i] = row
	}
	return s
}

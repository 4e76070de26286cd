package nn

import "fmt"

// Predict runs the forward pass in float32 the same way the generated C code does:
// out[i] = act(sum_j in[j] * w[j][i] + b[i]).
func (m ModelSpec) Predict(inputs [][]float32) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for r, x := range inputs {
		if len(x) != m.inputSize {
			return nil, &ShapeMismatchError{Subject: fmt.Sprintf("input row %d", r), Want: m.inputSize, Got: len(x)}
		}
		out[r] = m.forward(x)
	}
	return out, nil
}

func (m ModelSpec) forward(x []float32) []float32 {
	cur := x
	for _, l := range m.layers {
		next := make([]float32, l.units)
		for i := 0; i < l.units; i++ {
			var sum float32
			for j, v := range cur {
				sum += v * l.weights[j][i]
			}
			next[i] = l.activation.apply(sum + l.biases[i])
		}
		cur = next
	}
	return cur
}

package codegen

import (
	"fmt"
	"math"

	"github.com/23skdu/longbow-cgen/internal/nn"
)

// SampleSet pairs n input rows with n expected output rows.
// InputWidth and OutputWidth give the column counts when there are no rows.
type SampleSet struct {
	Inputs      [][]float32
	Outputs     [][]float32
	InputWidth  int
	OutputWidth int
}

// NewSampleSet takes the column widths from the first row of each side.
func NewSampleSet(inputs, outputs [][]float32) SampleSet {
	s := SampleSet{Inputs: inputs, Outputs: outputs}
	if len(inputs) > 0 {
		s.InputWidth = len(inputs[0])
	}
	if len(outputs) > 0 {
		s.OutputWidth = len(outputs[0])
	}
	return s
}

func (s SampleSet) Len() int { return len(s.Inputs) }

// Head returns a view of the first n rows (all rows when n exceeds the set).
func (s SampleSet) Head(n int) SampleSet {
	if n < 0 {
		n = 0
	}
	out := s
	if n < len(s.Inputs) {
		out.Inputs = s.Inputs[:n]
	}
	if n < len(s.Outputs) {
		out.Outputs = s.Outputs[:n]
	}
	return out
}

// Shape validates the set and returns (n, inputWidth, outputWidth).
func (s SampleSet) Shape() (int, int, int, error) {
	if len(s.Inputs) != len(s.Outputs) {
		return 0, 0, 0, &nn.ShapeMismatchError{Subject: "sample rows (inputs vs outputs)", Want: len(s.Inputs), Got: len(s.Outputs)}
	}
	inW, err := matrixWidth("samples_x", s.Inputs, s.InputWidth)
	if err != nil {
		return 0, 0, 0, err
	}
	outW, err := matrixWidth("samples_y", s.Outputs, s.OutputWidth)
	if err != nil {
		return 0, 0, 0, err
	}
	return len(s.Inputs), inW, outW, nil
}

func matrixWidth(name string, m [][]float32, declared int) (int, error) {
	if len(m) == 0 {
		if declared < 0 {
			return 0, &nn.ShapeMismatchError{Subject: name + " width", Detail: fmt.Sprintf("must be non-negative, got %d", declared)}
		}
		return declared, nil
	}
	width := len(m[0])
	if declared != 0 && declared != width {
		return 0, &nn.ShapeMismatchError{Subject: name + " width", Want: declared, Got: width}
	}
	for r, row := range m {
		if len(row) != width {
			return 0, &nn.ShapeMismatchError{
				Subject: fmt.Sprintf("%s row %d", name, r),
				Detail:  fmt.Sprintf("not a rank-2 matrix: row has %d values, row 0 has %d", len(row), width),
			}
		}
		for c, v := range row {
			if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
				return 0, &nn.NonFiniteValueError{Subject: name, Position: r*width + c, Value: v}
			}
		}
	}
	return width, nil
}

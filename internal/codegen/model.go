package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/23skdu/longbow-cgen/internal/nn"
	"github.com/23skdu/longbow-cgen/internal/template"
)

// ModelFileName is the base name of the generated model pair.
const ModelFileName = "model"

// ModelEmitter writes model.h/model.c for a ModelSpec.
type ModelEmitter struct {
	Templates *template.Pair
	Strict    bool
	Atomic    bool
}

const listSep = ", "

// ModelSubstitutions builds the header and body substitutions for spec.
// {layers_size} differs between the two: a block of #define lines in the
// header, a list of those macro names in the body.
func ModelSubstitutions(spec nn.ModelSpec) (header, body *template.Substitutions, err error) {
	n := spec.NumLayers()
	sizeDefines := make([]string, n)
	sizeNames := make([]string, n)
	weightDecls := make([]string, n)
	biasDecls := make([]string, n)
	weightNames := make([]string, n)
	biasNames := make([]string, n)
	activations := make([]string, n)

	for i, l := range spec.Layers() {
		weights := l.FlatWeights()
		biases := l.Biases()
		// nn.ModelSpec already enforces these lengths; this catches a change to that contract.
		if len(weights) != l.InputDim()*l.Units() {
			return nil, nil, &nn.ShapeMismatchError{Subject: fmt.Sprintf("layer_%d_weights literal", i), Want: l.InputDim() * l.Units(), Got: len(weights)}
		}
		if len(biases) != l.Units() {
			return nil, nil, &nn.ShapeMismatchError{Subject: fmt.Sprintf("layer_%d_biases literal", i), Want: l.Units(), Got: len(biases)}
		}

		sizeNames[i] = fmt.Sprintf("LAYER_%d_SIZE", i)
		sizeDefines[i] = fmt.Sprintf("#define %s %d\n", sizeNames[i], l.Units())
		weightNames[i] = fmt.Sprintf("layer_%d_weights", i)
		weightDecls[i] = fmt.Sprintf("float %s[] = {%s};\n", weightNames[i], FormatList(weights))
		biasNames[i] = fmt.Sprintf("layer_%d_biases", i)
		biasDecls[i] = fmt.Sprintf("float %s[] = {%s};\n", biasNames[i], FormatList(biases))
		activations[i] = l.Activation().String()
	}

	header = template.NewSubstitutions().
		Set("input_size", strconv.Itoa(spec.InputSize())).
		Set("output_size", strconv.Itoa(spec.OutputSize())).
		Set("n_layers", strconv.Itoa(n)).
		Set("layers_size", strings.Join(sizeDefines, ""))

	body = template.NewSubstitutions().
		Set("input_size", strconv.Itoa(spec.InputSize())).
		Set("output_size", strconv.Itoa(spec.OutputSize())).
		Set("n_layers", strconv.Itoa(n)).
		Set("layers_size", strings.Join(sizeNames, listSep)).
		Set("layers_weights", strings.Join(weightNames, listSep)).
		Set("layers_biases", strings.Join(biasNames, listSep)).
		Set("layers_activation", strings.Join(activations, listSep)).
		Set("layer_weights", strings.Join(weightDecls, "")).
		Set("layer_biases", strings.Join(biasDecls, ""))

	return header, body, nil
}

// Render produces model.h and model.c without touching the file system.
func (e *ModelEmitter) Render(spec nn.ModelSpec) ([]File, map[string][]string, error) {
	header, body, err := ModelSubstitutions(spec)
	if err != nil {
		return nil, nil, err
	}
	return renderer{templates: e.Templates, strict: e.Strict}.render(ModelFileName, header, body)
}

// Emit renders and writes model.h then model.c into dir.
func (e *ModelEmitter) Emit(spec nn.ModelSpec, dir string) (*Result, error) {
	files, unresolved, err := e.Render(spec)
	if err != nil {
		return nil, err
	}
	return renderer{atomic: e.Atomic}.write(dir, files, unresolved)
}

package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/23skdu/longbow-cgen/internal/template"
)

// DataFileName is the default base name of the generated sample pair.
const DataFileName = "data"

// DataEmitter writes <Name>.h/<Name>.c holding a sample set.
type DataEmitter struct {
	Templates *template.Pair
	// Name is the output base name; empty means DataFileName.
	Name   string
	Strict bool
	Atomic bool
}

func (e *DataEmitter) name() string {
	if e.Name == "" {
		return DataFileName
	}
	return e.Name
}

// DataSubstitutions validates s and builds the substitutions shared by the
// data header and body.
func DataSubstitutions(s SampleSet, name string) (*template.Substitutions, error) {
	n, inW, outW, err := s.Shape()
	if err != nil {
		return nil, err
	}
	return template.NewSubstitutions().
		Set("file_name", name).
		Set("n_samples", strconv.Itoa(n)).
		Set("input_size", strconv.Itoa(inW)).
		Set("output_size", strconv.Itoa(outW)).
		Set("samples_x", sampleRows(s.Inputs)).
		Set("samples_y", sampleRows(s.Outputs)), nil
}

// sampleRows renders one "    {v, ...},\n" line per row after a leading newline.
func sampleRows(rows [][]float32) string {
	var sb strings.Builder
	sb.WriteString("\n")
	for _, row := range rows {
		fmt.Fprintf(&sb, "    {%s},\n", FormatList(row))
	}
	return sb.String()
}

// Render produces the header and body without touching the file system.
func (e *DataEmitter) Render(s SampleSet) ([]File, map[string][]string, error) {
	subs, err := DataSubstitutions(s, e.name())
	if err != nil {
		return nil, nil, err
	}
	return renderer{templates: e.Templates, strict: e.Strict}.render(e.name(), subs, subs)
}

// Emit validates s, renders and writes both files into dir. Nothing is
// written when validation fails.
func (e *DataEmitter) Emit(s SampleSet, dir string) (*Result, error) {
	files, unresolved, err := e.Render(s)
	if err != nil {
		return nil, err
	}
	return renderer{atomic: e.Atomic}.write(dir, files, unresolved)
}

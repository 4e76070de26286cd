package export

import (
	"gopkg.in/yaml.v3"

	"github.com/23skdu/longbow-cgen/internal/codegen"
	"github.com/23skdu/longbow-cgen/internal/nn"
)

// ModelInfoFile is written next to the generated sources.
const ModelInfoFile = "model_info.yaml"

// ModelInfo is the summary stored in model_info.yaml.
type ModelInfo struct {
	Name          string      `yaml:"name,omitempty"`
	Source        string      `yaml:"source"`
	InputSize     int         `yaml:"input_size"`
	OutputSize    int         `yaml:"output_size"`
	NLayers       int         `yaml:"n_layers"`
	Parameters    int         `yaml:"parameters"`
	MACs          int         `yaml:"macs"`
	Layers        []LayerInfo `yaml:"layers"`
	Samples       int         `yaml:"n_eqcheck_data"`
	SamplesSource string      `yaml:"samples_source"`
	Files         []string    `yaml:"files,omitempty"`
}

// LayerInfo describes one dense layer in model_info.yaml.
type LayerInfo struct {
	Index      int    `yaml:"index"`
	InputDim   int    `yaml:"input_dim"`
	Units      int    `yaml:"units"`
	Activation string `yaml:"activation"`
}

func describe(name, source string, spec nn.ModelSpec, samples int, samplesSource string) ModelInfo {
	info := ModelInfo{
		Name:          name,
		Source:        source,
		InputSize:     spec.InputSize(),
		OutputSize:    spec.OutputSize(),
		NLayers:       spec.NumLayers(),
		Parameters:    spec.ParamCount(),
		MACs:          spec.MACs(),
		Samples:       samples,
		SamplesSource: samplesSource,
	}
	for _, l := range spec.Layers() {
		info.Layers = append(info.Layers, LayerInfo{
			Index:      l.Index(),
			InputDim:   l.InputDim(),
			Units:      l.Units(),
			Activation: l.Activation().Name(),
		})
	}
	return info
}

func writeModelInfo(dir string, info ModelInfo, atomic bool) (*codegen.Result, error) {
	raw, err := yaml.Marshal(info)
	if err != nil {
		return nil, err
	}
	paths, n, err := codegen.WriteFiles(dir, []codegen.File{{Name: ModelInfoFile, Content: raw}}, atomic)
	return &codegen.Result{Files: paths, Bytes: n}, err
}

// ReadModelInfo parses a model_info.yaml written by an export.
func ReadModelInfo(raw []byte) (ModelInfo, error) {
	var info ModelInfo
	err := yaml.Unmarshal(raw, &info)
	return info, err
}

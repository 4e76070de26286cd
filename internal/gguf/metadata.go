package gguf

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

type AnalysisReport struct {
	Architecture    string
	ModelName       string
	InputSize       int
	LayerCount      int
	TensorCount     int
	TotalParameters int64
	MemoryEstimate  int64
	TensorTypes     map[string]int
}

// Analyze summarizes the metadata and tensor table of f.
func Analyze(f *GGUFFile) *AnalysisReport {
	report := &AnalysisReport{
		TensorCount: len(f.Tensors),
		TensorTypes: make(map[string]int),
	}
	report.Architecture, _ = f.KV[KeyArchitecture].(string)
	report.ModelName, _ = f.KV[KeyName].(string)
	if v, ok := getKVInt(f.KV, KeyDenseInputSize); ok {
		report.InputSize = int(v)
	}
	if v, ok := getKVInt(f.KV, KeyDenseLayers); ok {
		report.LayerCount = int(v)
	}

	for _, t := range f.Tensors {
		report.TotalParameters += int64(t.ElementCount())
		report.MemoryEstimate += int64(t.SizeBytes())
		report.TensorTypes[t.Type.String()]++
	}
	return report
}

func getKVInt(kv map[string]interface{}, keys ...string) (uint64, bool) {
	for _, key := range keys {
		if val, ok := kv[key]; ok {
			switch v := val.(type) {
			case uint64:
				return v, true
			case int64:
				return uint64(v), true
			case uint32:
				return uint64(v), true
			case int32:
				return uint64(v), true
			case int:
				return uint64(v), true
			}
		}
	}
	return 0, false
}

func (r *AnalysisReport) String() string {
	types := make([]string, 0, len(r.TensorTypes))
	for t, n := range r.TensorTypes {
		types = append(types, fmt.Sprintf("%s=%d", t, n))
	}
	sort.Strings(types)
	return fmt.Sprintf(`GGUF Model Analysis Report
============================
Architecture:     %s
Model Name:       %s
Input Size:       %d
Layers:           %d
Total Tensors:    %d
Tensor Types:     %s
Total Parameters: %d
Data Size:        %d bytes
`,
		r.Architecture,
		r.ModelName,
		r.InputSize,
		r.LayerCount,
		r.TensorCount,
		strings.Join(types, " "),
		r.TotalParameters,
		r.MemoryEstimate,
	)
}

type TensorStats struct {
	Name         string
	Type         string
	Dimensions   []uint64
	ElementCount uint64
	SizeBytes    uint64
	MinValue     float64
	MaxValue     float64
	MeanValue    float64
	HasNaN       bool
	HasInf       bool
}

// ComputeStats decodes a float tensor and reports its value range.
func ComputeStats(f *GGUFFile, tensorName string) (*TensorStats, error) {
	tensor := f.Tensor(tensorName)
	if tensor == nil {
		return nil, ErrMissingTensor{Name: tensorName}
	}

	stats := &TensorStats{
		Name:         tensor.Name,
		Type:         tensor.Type.String(),
		Dimensions:   tensor.Dimensions,
		ElementCount: tensor.ElementCount(),
		SizeBytes:    tensor.SizeBytes(),
	}

	data, err := tensor.Float32s()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return stats, nil
	}

	stats.MinValue = math.Inf(1)
	stats.MaxValue = math.Inf(-1)
	sum := float64(0)
	finite := 0
	for _, v := range data {
		f := float64(v)
		if math.IsNaN(f) {
			stats.HasNaN = true
			continue
		}
		if math.IsInf(f, 0) {
			stats.HasInf = true
			continue
		}
		stats.MinValue = math.Min(stats.MinValue, f)
		stats.MaxValue = math.Max(stats.MaxValue, f)
		sum += f
		finite++
	}
	if finite > 0 {
		stats.MeanValue = sum / float64(finite)
	} else {
		stats.MinValue, stats.MaxValue = 0, 0
	}
	return stats, nil
}

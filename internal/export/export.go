// Package export runs the per-target pipeline: load a dense model, emit its
// C sources, gather equivalence-check samples and emit those next to it.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/23skdu/longbow-cgen/internal/codegen"
	"github.com/23skdu/longbow-cgen/internal/config"
	"github.com/23skdu/longbow-cgen/internal/gguf"
	"github.com/23skdu/longbow-cgen/internal/logger"
	"github.com/23skdu/longbow-cgen/internal/metrics"
	"github.com/23skdu/longbow-cgen/internal/nn"
	"github.com/23skdu/longbow-cgen/internal/samples"
	"github.com/23skdu/longbow-cgen/internal/template"
)

// Pipeline stages, used to label errors and metrics.
const (
	StageLoad      = "load"
	StageExtract   = "extract"
	StageModel     = "model"
	StageSamples   = "samples"
	StagePredict   = "predict"
	StageData      = "data"
	StageModelInfo = "model_info"
)

// StageError ties a failure to the stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }
func (e *StageError) Unwrap() error { return e.Err }

// Report summarizes one exported target.
type Report struct {
	Target        string
	Info          ModelInfo
	Files         []string
	Bytes         int64
	Unresolved    map[string][]string
	SamplesSource string
	Duration      time.Duration
}

// Exporter turns configured targets into C sources. It holds the parsed
// templates and is not safe for concurrent use.
type Exporter struct {
	cfg     config.Config
	log     *logger.Logger
	model   *codegen.ModelEmitter
	data    *codegen.DataEmitter
	fetcher samples.Fetcher
}

// New loads both template pairs once. cfg must already be validated.
func New(cfg config.Config, log *logger.Logger) (*Exporter, error) {
	if log == nil {
		log = logger.Log
	}
	modelTmpl, err := template.LoadDir(cfg.TemplatesDir, "model.h", "model.c")
	if err != nil {
		return nil, err
	}
	dataTmpl, err := template.LoadDir(cfg.TemplatesDir, "data.h", "data.c")
	if err != nil {
		return nil, err
	}
	return &Exporter{
		cfg: cfg,
		log: log,
		model: &codegen.ModelEmitter{
			Templates: modelTmpl,
			Strict:    cfg.StrictTemplates,
			Atomic:    cfg.AtomicWrites,
		},
		data: &codegen.DataEmitter{
			Templates: dataTmpl,
			Name:      cfg.DataName,
			Strict:    cfg.StrictTemplates,
			Atomic:    cfg.AtomicWrites,
		},
	}, nil
}

// WithFetcher makes targets without a samples file pull their samples from f.
func (e *Exporter) WithFetcher(f samples.Fetcher) *Exporter {
	e.fetcher = f
	return e
}

// Run exports targets in order. Failed targets are logged and, unless
// ContinueOnError is set, stop the run. The returned error joins every
// target failure.
func (e *Exporter) Run(ctx context.Context, targets []config.Target) ([]Report, error) {
	var reports []Report
	var errs []error
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		rep, err := e.ExportTarget(ctx, t)
		if err != nil {
			e.log.Error("Export failed", "target", t.Name, "error", err)
			errs = append(errs, fmt.Errorf("target %s: %w", t.Name, err))
			if !e.cfg.ContinueOnError {
				break
			}
			continue
		}
		reports = append(reports, rep)
	}
	if len(errs) > 0 {
		e.log.Warn("Export run finished with failures", "failed", len(errs), "exported", len(reports))
	}
	return reports, errors.Join(errs...)
}

// ExportTarget runs the whole pipeline for one target. Any error aborts the
// target; files of earlier stages stay on disk.
func (e *Exporter) ExportTarget(ctx context.Context, t config.Target) (Report, error) {
	start := time.Now()
	log := e.log.With("target", t.Name)
	rep, err := e.export(ctx, t, log)
	rep.Duration = time.Since(start)
	metrics.RecordTarget(rep.Duration, err)
	if err != nil {
		stage := "unknown"
		var se *StageError
		if errors.As(err, &se) {
			stage = se.Stage
		}
		metrics.RecordValidationError(stage, ErrorType(err))
		return rep, err
	}
	log.Info("Target exported", "files", len(rep.Files), "bytes", rep.Bytes, "duration", rep.Duration)
	return rep, nil
}

func (e *Exporter) export(ctx context.Context, t config.Target, log *logger.Logger) (Report, error) {
	rep := Report{Target: t.Name, Unresolved: map[string][]string{}}

	stage := func(name string, fn func() error) error {
		if err := ctx.Err(); err != nil {
			return &StageError{Stage: name, Err: err}
		}
		begin := time.Now()
		err := fn()
		metrics.RecordStage(name, time.Since(begin))
		if err != nil {
			return &StageError{Stage: name, Err: err}
		}
		return nil
	}

	var dm *gguf.DenseModel
	if err := stage(StageLoad, func() (err error) {
		dm, err = gguf.OpenDense(t.ModelPath)
		return err
	}); err != nil {
		return rep, err
	}
	defer func() { _ = dm.Close() }()

	var spec nn.ModelSpec
	if err := stage(StageExtract, func() (err error) {
		spec, err = nn.Extract(dm)
		return err
	}); err != nil {
		return rep, err
	}
	log.Debug("Model extracted", "name", dm.Name(), "layers", spec.NumLayers(), "params", spec.ParamCount())

	if err := stage(StageModel, func() error {
		res, err := e.model.Emit(spec, t.SaveDir)
		metrics.RecordExport(metrics.ArtifactModel, err)
		if err != nil {
			return err
		}
		metrics.RecordModel(spec.NumLayers(), spec.ParamCount(), res.Bytes)
		e.collect(&rep, res, log)
		return nil
	}); err != nil {
		return rep, err
	}

	var set codegen.SampleSet
	if err := stage(StageSamples, func() (err error) {
		set, rep.SamplesSource, err = e.samples(ctx, t, spec)
		return err
	}); err != nil {
		return rep, err
	}

	if err := stage(StagePredict, func() (err error) {
		set, err = complete(set, spec, e.cfg.EqCheckSamples)
		return err
	}); err != nil {
		return rep, err
	}

	if err := stage(StageData, func() error {
		res, err := e.data.Emit(set, t.SaveDir)
		metrics.RecordExport(metrics.ArtifactData, err)
		if err != nil {
			return err
		}
		metrics.RecordData(set.Len(), res.Bytes)
		e.collect(&rep, res, log)
		return nil
	}); err != nil {
		return rep, err
	}

	rep.Info = describe(dm.Name(), t.ModelPath, spec, set.Len(), rep.SamplesSource)
	if e.cfg.WriteModelInfo {
		if err := stage(StageModelInfo, func() error {
			rep.Info.Files = append([]string(nil), rep.Files...)
			res, err := writeModelInfo(t.SaveDir, rep.Info, e.cfg.AtomicWrites)
			metrics.RecordExport(metrics.ArtifactModelInfo, err)
			if err != nil {
				return err
			}
			rep.Files = append(rep.Files, res.Files...)
			rep.Bytes += res.Bytes
			return nil
		}); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

func (e *Exporter) collect(rep *Report, res *codegen.Result, log *logger.Logger) {
	rep.Files = append(rep.Files, res.Files...)
	rep.Bytes += res.Bytes
	for name, tokens := range res.Unresolved {
		rep.Unresolved[name] = tokens
		metrics.RecordUnresolved(name, len(tokens))
		log.Warn("Unresolved template placeholders left verbatim", "template", name, "placeholders", tokens)
	}
}

// samples picks the sample source for t: its samples file, the Flight
// service, or seeded random inputs.
func (e *Exporter) samples(ctx context.Context, t config.Target, spec nn.ModelSpec) (codegen.SampleSet, string, error) {
	switch {
	case t.SamplesPath != "":
		s, err := samples.LoadFile(t.SamplesPath, nil)
		return s, "file:" + t.SamplesPath, err
	case e.fetcher != nil:
		ticket := t.FlightTicket
		if ticket == "" {
			ticket = t.Name
		}
		s, err := e.fetcher.FetchSamples(ctx, ticket)
		return s, "flight:" + ticket, err
	default:
		return samples.Random(e.cfg.EqCheckSamples, spec.InputSize(), e.cfg.RandomSeed),
			fmt.Sprintf("random:seed=%d", e.cfg.RandomSeed), nil
	}
}

// complete checks s against the model, keeps its first n rows and fills
// missing expected outputs with the model's own predictions.
func complete(s codegen.SampleSet, spec nn.ModelSpec, n int) (codegen.SampleSet, error) {
	if len(s.Outputs) > 0 {
		if _, _, _, err := s.Shape(); err != nil {
			return s, err
		}
	}
	if s.InputWidth != 0 && s.InputWidth != spec.InputSize() {
		return s, &nn.ShapeMismatchError{Subject: "sample input width", Want: spec.InputSize(), Got: s.InputWidth}
	}
	if s.OutputWidth != 0 && s.OutputWidth != spec.OutputSize() {
		return s, &nn.ShapeMismatchError{Subject: "sample output width", Want: spec.OutputSize(), Got: s.OutputWidth}
	}
	s = s.Head(n)
	s.InputWidth = spec.InputSize()

	if len(s.Outputs) == 0 && len(s.Inputs) > 0 {
		out, err := spec.Predict(s.Inputs)
		if err != nil {
			return s, err
		}
		s.Outputs = out
	}
	s.OutputWidth = spec.OutputSize()
	return s, nil
}

// ErrorType names an error for the validation metric.
func ErrorType(err error) string {
	var (
		layer    *nn.UnsupportedLayerError
		act      *nn.UnsupportedActivationError
		shape    *nn.ShapeMismatchError
		finite   *nn.NonFiniteValueError
		notFound *template.TemplateNotFoundError
		unres    *template.UnresolvedPlaceholderError
		write    *codegen.WriteError
		tensor   gguf.ErrUnsupportedTensorType
		missing  gguf.ErrMissingTensor
	)
	switch {
	case errors.As(err, &layer):
		return "unsupported_layer"
	case errors.As(err, &act):
		return "unsupported_activation"
	case errors.As(err, &shape):
		return "shape_mismatch"
	case errors.As(err, &finite):
		return "non_finite"
	case errors.As(err, &notFound):
		return "template_not_found"
	case errors.As(err, &unres):
		return "unresolved_placeholder"
	case errors.As(err, &write):
		return "write"
	case errors.As(err, &tensor):
		return "unsupported_tensor_type"
	case errors.As(err, &missing):
		return "missing_tensor"
	case errors.Is(err, nn.ErrEmptyModel):
		return "empty_model"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}

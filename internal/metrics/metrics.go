package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Artifact labels for ExportsTotal.
const (
	ArtifactModel     = "model"
	ArtifactData      = "data"
	ArtifactModelInfo = "model_info"
	ArtifactTarget    = "target"
)

var (
	ExportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cgen_exports_total",
		Help: "Exports attempted, by artifact and outcome",
	}, []string{"artifact", "status"})

	ExportDuration = promauto.NewSummaryVec(prometheus.SummaryOpts{
		Name: "cgen_export_duration_seconds",
		Help: "Wall time of one target export",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cgen_stage_duration_seconds",
		Help:    "Histogram of pipeline stage times",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	LayersExported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cgen_layers_exported_total",
		Help: "Dense layers written to model sources",
	})

	ParametersExported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cgen_parameters_exported_total",
		Help: "Weights and biases written to model sources",
	})

	SamplesExported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cgen_samples_exported_total",
		Help: "Sample rows written to data sources",
	})

	BytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cgen_bytes_written_total",
		Help: "Bytes of generated source written",
	})

	ValidationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cgen_validation_errors_total",
		Help: "Total number of validation errors",
	}, []string{"stage", "error_type"})

	FlightRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cgen_flight_requests_total",
		Help: "Flight calls handled by the sample service",
	}, []string{"method", "status"})

	UnresolvedPlaceholders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cgen_unresolved_placeholders_total",
		Help: "Placeholders left verbatim in permissive template mode",
	}, []string{"template"})
)

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordExport counts one artifact attempt.
func RecordExport(artifact string, err error) {
	ExportsTotal.WithLabelValues(artifact, status(err)).Inc()
}

// RecordTarget records the outcome and duration of a whole target.
func RecordTarget(duration time.Duration, err error) {
	ExportsTotal.WithLabelValues(ArtifactTarget, status(err)).Inc()
	ExportDuration.WithLabelValues(status(err)).Observe(duration.Seconds())
}

func RecordStage(stage string, duration time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordModel counts an emitted model.
func RecordModel(layers, params int, bytes int64) {
	LayersExported.Add(float64(layers))
	ParametersExported.Add(float64(params))
	BytesWritten.Add(float64(bytes))
}

// RecordData counts an emitted sample set.
func RecordData(rows int, bytes int64) {
	SamplesExported.Add(float64(rows))
	BytesWritten.Add(float64(bytes))
}

func RecordValidationError(stage, errorType string) {
	ValidationErrors.WithLabelValues(stage, errorType).Inc()
}

func RecordUnresolved(template string, count int) {
	UnresolvedPlaceholders.WithLabelValues(template).Add(float64(count))
}

func RecordFlightRequest(method string, err error) {
	FlightRequests.WithLabelValues(method, status(err)).Inc()
}

// WriteTextfile dumps the default registry in the text exposition format,
// for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

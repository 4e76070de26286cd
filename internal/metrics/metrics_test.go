package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordExport(t *testing.T) {
	okBefore := testutil.ToFloat64(ExportsTotal.WithLabelValues(ArtifactModel, "ok"))
	errBefore := testutil.ToFloat64(ExportsTotal.WithLabelValues(ArtifactModel, "error"))

	RecordExport(ArtifactModel, nil)
	RecordExport(ArtifactModel, nil)
	RecordExport(ArtifactModel, errors.New("boom"))

	if got := testutil.ToFloat64(ExportsTotal.WithLabelValues(ArtifactModel, "ok")) - okBefore; got != 2 {
		t.Errorf("ok exports = %v, want 2", got)
	}
	if got := testutil.ToFloat64(ExportsTotal.WithLabelValues(ArtifactModel, "error")) - errBefore; got != 1 {
		t.Errorf("error exports = %v, want 1", got)
	}
}

func TestRecordModelAndData(t *testing.T) {
	layers := testutil.ToFloat64(LayersExported)
	params := testutil.ToFloat64(ParametersExported)
	rows := testutil.ToFloat64(SamplesExported)
	bytes := testutil.ToFloat64(BytesWritten)

	RecordModel(2, 21, 100)
	RecordData(5, 50)

	if got := testutil.ToFloat64(LayersExported) - layers; got != 2 {
		t.Errorf("layers = %v", got)
	}
	if got := testutil.ToFloat64(ParametersExported) - params; got != 21 {
		t.Errorf("params = %v", got)
	}
	if got := testutil.ToFloat64(SamplesExported) - rows; got != 5 {
		t.Errorf("samples = %v", got)
	}
	if got := testutil.ToFloat64(BytesWritten) - bytes; got != 150 {
		t.Errorf("bytes = %v", got)
	}
}

func TestRecordValidationError(t *testing.T) {
	before := testutil.ToFloat64(ValidationErrors.WithLabelValues("extract", "unsupported_layer"))
	RecordValidationError("extract", "unsupported_layer")
	if got := testutil.ToFloat64(ValidationErrors.WithLabelValues("extract", "unsupported_layer")) - before; got != 1 {
		t.Errorf("validation errors = %v", got)
	}
}

func TestRecordTimings(t *testing.T) {
	// summaries and histograms only need to accept observations
	RecordTarget(20*time.Millisecond, nil)
	RecordTarget(5*time.Millisecond, errors.New("x"))
	RecordStage("extract", time.Millisecond)
	RecordUnresolved("model.h", 2)
}

func TestWriteTextfile(t *testing.T) {
	RecordExport(ArtifactData, nil)
	path := filepath.Join(t.TempDir(), "cgen.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `cgen_exports_total{artifact="data",status="ok"}`) {
		t.Errorf("textfile missing export counter:\n%s", b)
	}

	if err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "cgen.prom")); err == nil {
		t.Error("expected error for missing directory")
	}
}

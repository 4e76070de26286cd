// Package samples supplies equivalence-check sample sets: Arrow IPC stream
// files, an Arrow Flight service, or seeded random inputs.
package samples

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/23skdu/longbow-cgen/internal/codegen"
	"github.com/23skdu/longbow-cgen/internal/nn"
)

// Column names of the sample record layout. Each is a
// FixedSizeList<float32> holding one row per record slot.
const (
	ColumnInputs  = "x"
	ColumnOutputs = "y"
)

// ErrMissingInputs is returned when a stream has no "x" column.
var ErrMissingInputs = errors.New("samples: stream has no \"x\" column")

func allocator(mem memory.Allocator) memory.Allocator {
	if mem == nil {
		return memory.DefaultAllocator
	}
	return mem
}

// Schema returns the record layout for the given row widths. An outWidth
// of zero leaves out the "y" column.
func Schema(inWidth, outWidth int) *arrow.Schema {
	fields := []arrow.Field{
		{Name: ColumnInputs, Type: arrow.FixedSizeListOf(int32(inWidth), arrow.PrimitiveTypes.Float32)},
	}
	if outWidth > 0 {
		fields = append(fields, arrow.Field{Name: ColumnOutputs, Type: arrow.FixedSizeListOf(int32(outWidth), arrow.PrimitiveTypes.Float32)})
	}
	return arrow.NewSchema(fields, nil)
}

// NewRecord builds one record from s. A set with no outputs and no declared
// output width is written without the "y" column.
func NewRecord(mem memory.Allocator, s codegen.SampleSet) (arrow.Record, error) {
	inW, outW, err := widths(s)
	if err != nil {
		return nil, err
	}

	b := array.NewRecordBuilder(allocator(mem), Schema(inW, outW))
	defer b.Release()

	appendRows(b.Field(0).(*array.FixedSizeListBuilder), s.Inputs)
	if outW > 0 {
		appendRows(b.Field(1).(*array.FixedSizeListBuilder), s.Outputs)
	}
	return b.NewRecord(), nil
}

// widths validates s like SampleSet.Shape but also accepts an inputs-only set.
func widths(s codegen.SampleSet) (int, int, error) {
	if len(s.Outputs) == 0 && s.OutputWidth == 0 {
		s.Outputs = make([][]float32, len(s.Inputs))
	}
	_, inW, outW, err := s.Shape()
	return inW, outW, err
}

func appendRows(lb *array.FixedSizeListBuilder, rows [][]float32) {
	vb := lb.ValueBuilder().(*array.Float32Builder)
	for _, row := range rows {
		lb.Append(true)
		vb.AppendValues(row, nil)
	}
}

// WriteIPC writes s to w as a single-record Arrow IPC stream.
func WriteIPC(w io.Writer, mem memory.Allocator, s codegen.SampleSet) error {
	rec, err := NewRecord(mem, s)
	if err != nil {
		return err
	}
	defer rec.Release()

	iw := ipc.NewWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(allocator(mem)))
	if err := iw.Write(rec); err != nil {
		_ = iw.Close()
		return fmt.Errorf("write sample record: %w", err)
	}
	return iw.Close()
}

// SaveFile writes s to path as an Arrow IPC stream.
func SaveFile(path string, mem memory.Allocator, s codegen.SampleSet) error {
	f, err := os.Create(path)
	if err != nil {
		return &codegen.WriteError{Path: path, Err: err}
	}
	if err := WriteIPC(f, mem, s); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return &codegen.WriteError{Path: path, Err: err}
	}
	return nil
}

// ReadIPC decodes an Arrow IPC stream. Rows from every record are
// concatenated in stream order. Outputs is nil when the stream has no "y"
// column.
func ReadIPC(r io.Reader, mem memory.Allocator) (codegen.SampleSet, error) {
	rdr, err := ipc.NewReader(r, ipc.WithAllocator(allocator(mem)))
	if err != nil {
		return codegen.SampleSet{}, fmt.Errorf("open sample stream: %w", err)
	}
	defer rdr.Release()
	return decode(rdr)
}

// LoadFile reads an Arrow IPC stream file.
func LoadFile(path string, mem memory.Allocator) (codegen.SampleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return codegen.SampleSet{}, err
	}
	defer f.Close()

	s, err := ReadIPC(f, mem)
	if err != nil {
		return codegen.SampleSet{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

type recordStream interface {
	Schema() *arrow.Schema
	Next() bool
	Record() arrow.Record
	Err() error
}

func decode(rs recordStream) (codegen.SampleSet, error) {
	schema := rs.Schema()
	xi := schema.FieldIndices(ColumnInputs)
	if len(xi) == 0 {
		return codegen.SampleSet{}, ErrMissingInputs
	}
	inW, err := rowWidth(ColumnInputs, schema.Field(xi[0]).Type)
	if err != nil {
		return codegen.SampleSet{}, err
	}

	yIdx, outW := -1, 0
	if yi := schema.FieldIndices(ColumnOutputs); len(yi) > 0 {
		yIdx = yi[0]
		if outW, err = rowWidth(ColumnOutputs, schema.Field(yIdx).Type); err != nil {
			return codegen.SampleSet{}, err
		}
	}

	s := codegen.SampleSet{InputWidth: inW, OutputWidth: outW}
	for rs.Next() {
		rec := rs.Record()
		rows, err := readRows(ColumnInputs, rec.Column(xi[0]))
		if err != nil {
			return codegen.SampleSet{}, err
		}
		s.Inputs = append(s.Inputs, rows...)
		if yIdx >= 0 {
			rows, err := readRows(ColumnOutputs, rec.Column(yIdx))
			if err != nil {
				return codegen.SampleSet{}, err
			}
			s.Outputs = append(s.Outputs, rows...)
		}
	}
	if err := rs.Err(); err != nil && !errors.Is(err, io.EOF) {
		return codegen.SampleSet{}, fmt.Errorf("read sample stream: %w", err)
	}
	return s, nil
}

func rowWidth(name string, dt arrow.DataType) (int, error) {
	fsl, ok := dt.(*arrow.FixedSizeListType)
	if !ok || fsl.Elem().ID() != arrow.FLOAT32 {
		return 0, &nn.ShapeMismatchError{
			Subject: "column " + name,
			Detail:  fmt.Sprintf("want a rank-2 fixed_size_list<float32> column, got %s", dt),
		}
	}
	return int(fsl.Len()), nil
}

func readRows(name string, col arrow.Array) ([][]float32, error) {
	fsl := col.(*array.FixedSizeList)
	width := int(fsl.DataType().(*arrow.FixedSizeListType).Len())
	values := fsl.ListValues().(*array.Float32)
	offset := fsl.Data().Offset()

	rows := make([][]float32, fsl.Len())
	for i := range rows {
		if fsl.IsNull(i) {
			return nil, &nn.ShapeMismatchError{Subject: fmt.Sprintf("column %s row %d", name, i), Detail: "row is null"}
		}
		start := (offset + i) * width
		row := make([]float32, width)
		for j := range row {
			row[j] = values.Value(start + j)
		}
		rows[i] = row
	}
	return rows, nil
}

// Package frame groups equally long columns into a table backed by an Arrow
// record. Frames are what the formats package scans into and writes from.
package frame

import (
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/samber/lo"

	"github.com/ajitpratap0/colframe/pkg/colerrors"
	"github.com/ajitpratap0/colframe/pkg/engine"
	"github.com/ajitpratap0/colframe/pkg/series"
)

// Frame is an immutable table of named columns sharing one height.
type Frame struct {
	record   arrow.Record
	released atomic.Bool
}

// New builds a frame from columns built by a series.Builder backed by the
// Arrow engine. Names must be non-empty and unique, lengths equal. The frame
// holds its own references; callers still release their columns.
func New(cols ...*series.Column) (*Frame, error) {
	fields := make([]arrow.Field, 0, len(cols))
	arrs := make([]arrow.Array, 0, len(cols))
	seen := make(map[string]struct{}, len(cols))
	height := 0

	for i, col := range cols {
		if col == nil {
			return nil, colerrors.Newf(colerrors.ErrorTypeValidation, "column %d is nil", i)
		}
		if col.Name() == "" {
			return nil, colerrors.Newf(colerrors.ErrorTypeValidation, "column %d has no name", i)
		}
		if _, dup := seen[col.Name()]; dup {
			return nil, colerrors.New(colerrors.ErrorTypeValidation, "duplicate column name").
				WithDetail("column", col.Name())
		}
		seen[col.Name()] = struct{}{}

		if i == 0 {
			height = col.Len()
		} else if col.Len() != height {
			return nil, colerrors.New(colerrors.ErrorTypeValidation, "column lengths differ").
				WithDetail("column", col.Name()).
				WithDetail("length", col.Len()).
				WithDetail("expected", height)
		}

		arr, ok := col.Handle().(arrow.Array)
		if !ok {
			return nil, colerrors.Newf(colerrors.ErrorTypeCapability, "column %s is not backed by arrow", col.Name())
		}
		fields = append(fields, arrow.Field{Name: col.Name(), Type: arr.DataType(), Nullable: true})
		arrs = append(arrs, arr)
	}

	rec := array.NewRecord(arrow.NewSchema(fields, nil), arrs, int64(height))
	return &Frame{record: rec}, nil
}

// FromRecord wraps rec, taking a new reference to it.
func FromRecord(rec arrow.Record) *Frame {
	rec.Retain()
	return &Frame{record: rec}
}

// Record returns the underlying record. The frame keeps ownership.
func (f *Frame) Record() arrow.Record { return f.record }

// Schema returns the Arrow schema of the frame.
func (f *Frame) Schema() *arrow.Schema { return f.record.Schema() }

// Height returns the number of rows.
func (f *Frame) Height() int { return int(f.record.NumRows()) }

// Width returns the number of columns.
func (f *Frame) Width() int { return int(f.record.NumCols()) }

// Columns returns the column arrays in order.
func (f *Frame) Columns() []arrow.Array { return f.record.Columns() }

// ColumnNames returns the column names in order.
func (f *Frame) ColumnNames() []string {
	return lo.Map(f.record.Schema().Fields(), func(fd arrow.Field, _ int) string { return fd.Name })
}

// Column returns the array of the named column.
func (f *Frame) Column(name string) (arrow.Array, error) {
	idx := f.record.Schema().FieldIndices(name)
	if len(idx) == 0 {
		return nil, colerrors.New(colerrors.ErrorTypeValidation, "no such column").
			WithDetail("column", name)
	}
	return f.record.Column(idx[0]), nil
}

// Kinds maps every column type to its series kind. Columns read from files
// may carry types outside the kind set, which is reported as a data error.
func (f *Frame) Kinds() ([]series.Kind, error) {
	kinds := make([]series.Kind, f.Width())
	for i, fd := range f.record.Schema().Fields() {
		k, err := engine.KindOf(fd.Type)
		if err != nil {
			return nil, colerrors.Wrap(err, colerrors.ErrorTypeData, "unsupported column type").
				WithDetail("column", fd.Name)
		}
		kinds[i] = k
	}
	return kinds, nil
}

// Slice returns rows [i, j) as a new frame sharing the same buffers.
func (f *Frame) Slice(i, j int) (*Frame, error) {
	if i < 0 || j < i || j > f.Height() {
		return nil, colerrors.Newf(colerrors.ErrorTypeValidation, "slice [%d:%d] out of range for height %d", i, j, f.Height())
	}
	return &Frame{record: f.record.NewSlice(int64(i), int64(j))}, nil
}

// Head returns the first n rows, or the whole frame when n exceeds its height.
func (f *Frame) Head(n int) *Frame {
	n = max(0, min(n, f.Height()))
	return &Frame{record: f.record.NewSlice(0, int64(n))}
}

// Release drops the frame's reference to its record. Calling it more than
// once is a no-op.
func (f *Frame) Release() {
	if f == nil || !f.released.CompareAndSwap(false, true) {
		return
	}
	f.record.Release()
}

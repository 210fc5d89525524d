package formats

import (
	"errors"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/colframe/pkg/colerrors"
	"github.com/ajitpratap0/colframe/pkg/frame"
)

// recordReader is the iteration surface shared by the arrow csv, json and
// pqarrow readers.
type recordReader interface {
	Next() bool
	Record() arrow.Record
	Err() error
}

// collect drains rd, keeping at most limit rows when limit is positive, and
// returns one record holding them all.
func collect(mem memory.Allocator, schema *arrow.Schema, rd recordReader, limit int) (arrow.Record, error) {
	var batches []arrow.Record
	defer func() {
		for _, b := range batches {
			b.Release()
		}
	}()

	rows := int64(0)
	for (limit <= 0 || rows < int64(limit)) && rd.Next() {
		rec := rd.Record()
		if limit > 0 && rows+rec.NumRows() > int64(limit) {
			rec = rec.NewSlice(0, int64(limit)-rows)
		} else {
			rec.Retain()
		}
		rows += rec.NumRows()
		batches = append(batches, rec)
	}
	// pqarrow reports a clean end of stream as io.EOF
	if err := rd.Err(); err != nil && !errors.Is(err, io.EOF) {
		return nil, colerrors.Wrap(err, colerrors.ErrorTypeData, "read records")
	}
	if len(batches) > 0 {
		schema = batches[0].Schema()
	}
	return concatRecords(mem, schema, batches)
}

// concatRecords joins batches column by column into a new record. The
// batches stay owned by the caller.
func concatRecords(mem memory.Allocator, schema *arrow.Schema, batches []arrow.Record) (arrow.Record, error) {
	if len(batches) == 1 {
		batches[0].Retain()
		return batches[0], nil
	}

	cols := make([]arrow.Array, schema.NumFields())
	defer func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}()

	rows := int64(0)
	for _, b := range batches {
		rows += b.NumRows()
	}
	for i, fd := range schema.Fields() {
		if len(batches) == 0 {
			cols[i] = array.MakeArrayOfNull(mem, fd.Type, 0)
			continue
		}
		parts := make([]arrow.Array, len(batches))
		for j, b := range batches {
			parts[j] = b.Column(i)
		}
		col, err := array.Concatenate(parts, mem)
		if err != nil {
			return nil, colerrors.Wrap(err, colerrors.ErrorTypeEngine, "concatenate batches").
				WithDetail("column", fd.Name)
		}
		cols[i] = col
	}
	return array.NewRecord(schema, cols, rows), nil
}

// withRowIndex returns a record with an Int64 column counting from
// idx.Offset prepended. rec is released.
func withRowIndex(mem memory.Allocator, rec arrow.Record, idx RowIndex) (arrow.Record, error) {
	if idx.Name == "" {
		return rec, nil
	}
	defer rec.Release()
	if len(rec.Schema().FieldIndices(idx.Name)) > 0 {
		return nil, colerrors.New(colerrors.ErrorTypeValidation, "row index name collides with a column").
			WithDetail("column", idx.Name)
	}

	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.Reserve(int(rec.NumRows()))
	for i := int64(0); i < rec.NumRows(); i++ {
		b.UnsafeAppend(idx.Offset + i)
	}
	index := b.NewArray()
	defer index.Release()

	fields := append([]arrow.Field{{Name: idx.Name, Type: arrow.PrimitiveTypes.Int64}}, rec.Schema().Fields()...)
	cols := append([]arrow.Array{index}, rec.Columns()...)
	return array.NewRecord(arrow.NewSchema(fields, nil), cols, rec.NumRows()), nil
}

// project keeps the named columns in the order given. rec is released.
func project(rec arrow.Record, names []string) (arrow.Record, error) {
	if len(names) == 0 {
		return rec, nil
	}
	defer rec.Release()

	fields := make([]arrow.Field, len(names))
	cols := make([]arrow.Array, len(names))
	for i, name := range names {
		idx := rec.Schema().FieldIndices(name)
		if len(idx) == 0 {
			return nil, colerrors.New(colerrors.ErrorTypeValidation, "no such column").
				WithDetail("column", name)
		}
		fields[i] = rec.Schema().Field(idx[0])
		cols[i] = rec.Column(idx[0])
	}
	return array.NewRecord(arrow.NewSchema(fields, nil), cols, rec.NumRows()), nil
}

// toFrame wraps rec, handing the caller's reference to the frame.
func toFrame(rec arrow.Record) *frame.Frame {
	defer rec.Release()
	return frame.FromRecord(rec)
}

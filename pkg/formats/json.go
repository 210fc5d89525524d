package formats

import (
	"bufio"
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/goccy/go-json"

	"github.com/ajitpratap0/colframe/pkg/colerrors"
	"github.com/ajitpratap0/colframe/pkg/compression"
	"github.com/ajitpratap0/colframe/pkg/frame"
)

// WriteJSON writes one object per row, keys in column order, either as a
// JSON array or one object per line.
func (h *Handler) WriteJSON(ctx context.Context, f *frame.Frame, path string, opts JSONWriteOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	format := JSON
	if opts.Format == JSONLines {
		format = NDJSON
	}
	return h.write(ctx, format, f, path, func(context.Context) error {
		alg := outputCompression(path, opts.Compression)
		out, err := createOutput(path, opts.Mode)
		if err != nil {
			return err
		}
		return finishOutput(out, path, func() error {
			cw, err := compression.NewWriter(out, alg, compression.Level(opts.CompressionLevel))
			if err != nil {
				return colerrors.Wrap(err, colerrors.ErrorTypeFile, "open compressor")
			}
			bw := bufio.NewWriter(cw)
			if err := encodeRows(bw, f.Record(), opts.Format); err != nil {
				_ = cw.Close()
				return err
			}
			if err := bw.Flush(); err != nil {
				_ = cw.Close()
				return fileError(err, "flush JSON", path)
			}
			if err := cw.Close(); err != nil {
				return fileError(err, "close compressor", path)
			}
			return nil
		}())
	})
}

func encodeRows(w *bufio.Writer, rec arrow.Record, format JSONFormat) error {
	names := make([][]byte, rec.NumCols())
	for i, fd := range rec.Schema().Fields() {
		b, err := json.Marshal(fd.Name)
		if err != nil {
			return colerrors.Wrap(err, colerrors.ErrorTypeData, "encode column name")
		}
		names[i] = b
	}

	if format == JSONArray {
		_ = w.WriteByte('[')
	}
	for row := 0; row < int(rec.NumRows()); row++ {
		if format == JSONArray && row > 0 {
			_ = w.WriteByte(',')
		}
		_ = w.WriteByte('{')
		for c, col := range rec.Columns() {
			if c > 0 {
				_ = w.WriteByte(',')
			}
			_, _ = w.Write(names[c])
			_ = w.WriteByte(':')
			if err := encodeValue(w, col, row); err != nil {
				return colerrors.Wrap(err, colerrors.ErrorTypeData, "encode value").
					WithDetail("column", rec.ColumnName(c)).
					WithDetail("row", row)
			}
		}
		_ = w.WriteByte('}')
		if format == JSONLines {
			_ = w.WriteByte('\n')
		}
	}
	if format == JSONArray {
		_, err := w.WriteString("]\n")
		return err
	}
	return nil
}

// encodeValue writes element i of arr. Struct fields keep their declared
// order, which a map based encoding would lose.
func encodeValue(w *bufio.Writer, arr arrow.Array, i int) error {
	if arr.IsNull(i) {
		_, err := w.WriteString("null")
		return err
	}
	switch a := arr.(type) {
	case *array.Struct:
		st := a.DataType().(*arrow.StructType)
		_ = w.WriteByte('{')
		for j := 0; j < a.NumField(); j++ {
			if j > 0 {
				_ = w.WriteByte(',')
			}
			name, err := json.Marshal(st.Field(j).Name)
			if err != nil {
				return err
			}
			_, _ = w.Write(name)
			_ = w.WriteByte(':')
			if err := encodeValue(w, a.Field(j), i); err != nil {
				return err
			}
		}
		return w.WriteByte('}')
	case *array.List:
		start, end := a.ValueOffsets(i)
		values := a.ListValues()
		_ = w.WriteByte('[')
		for j := start; j < end; j++ {
			if j > start {
				_ = w.WriteByte(',')
			}
			if err := encodeValue(w, values, int(j)); err != nil {
				return err
			}
		}
		return w.WriteByte(']')
	default:
		b, err := json.Marshal(arr.GetOneForMarshal(i))
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	}
}

package formats

import (
	"bufio"
	"context"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/samber/lo"

	"github.com/ajitpratap0/colframe/pkg/colerrors"
	"github.com/ajitpratap0/colframe/pkg/compression"
	"github.com/ajitpratap0/colframe/pkg/engine"
	"github.com/ajitpratap0/colframe/pkg/frame"
	"github.com/ajitpratap0/colframe/pkg/series"
)

// csvCandidates are tried in order; a column gets the first kind every
// sampled value parses as.
var csvCandidates = []struct {
	kind  series.Kind
	parse func(string) bool
}{
	{series.Int64, func(s string) bool { _, err := strconv.ParseInt(s, 10, 64); return err == nil }},
	{series.Float64, func(s string) bool { _, err := strconv.ParseFloat(s, 64); return err == nil }},
	{series.Boolean, func(s string) bool { _, err := strconv.ParseBool(s); return err == nil }},
	{series.Date, func(s string) bool { _, err := time.Parse(time.DateOnly, s); return err == nil }},
	{series.DateTime, func(s string) bool { _, err := arrow.TimestampFromString(s, arrow.Microsecond); return err == nil }},
}

// ScanCSV reads a delimited text file. Column types are inferred from the
// first InferSchemaLength data rows.
func (h *Handler) ScanCSV(ctx context.Context, path string, opts CSVScanOptions) (*frame.Frame, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return h.scan(ctx, CSV, path, func(context.Context) (*frame.Frame, error) {
		schema, err := inferCSVSchema(path, opts)
		if err != nil {
			return nil, err
		}
		if schema == nil {
			if opts.RaiseIfEmpty {
				return nil, colerrors.New(colerrors.ErrorTypeData, "empty CSV file").WithDetail("path", path)
			}
			return toFrame(array.NewRecord(arrow.NewSchema(nil, nil), nil, 0)), nil
		}

		in, err := openCSV(path, opts)
		if err != nil {
			return nil, err
		}
		defer in.Close()

		rd := csv.NewReader(in, schema,
			csv.WithAllocator(h.mem),
			csv.WithComma(firstRune(opts.Separator)),
			csv.WithComment(firstRune(opts.CommentPrefix)),
			csv.WithHeader(opts.HasHeader),
			csv.WithChunk(opts.ChunkSize),
			csv.WithNullReader(true, csvNulls(opts)...),
		)
		defer rd.Release()

		rec, err := collect(h.mem, schema, rd, opts.NRows)
		if err != nil {
			return nil, err
		}
		if rec, err = withRowIndex(h.mem, rec, opts.rowIndex()); err != nil {
			return nil, err
		}
		return toFrame(rec), nil
	})
}

// openCSV opens path past its skipped lines. The header, when present,
// stays in front of the returned stream.
func openCSV(path string, opts CSVScanOptions) (io.ReadCloser, error) {
	in, err := openInput(path, opts.Compression)
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(in)
	fail := func(err error) (io.ReadCloser, error) {
		_ = in.Close()
		return nil, fileError(err, "skip rows", path)
	}

	if err := skipLines(br, opts.SkipRows); err != nil {
		return fail(err)
	}
	if opts.SkipRowsAfterHeader == 0 {
		return readCloser{br, in}, nil
	}
	if !opts.HasHeader {
		if err := skipLines(br, opts.SkipRowsAfterHeader); err != nil {
			return fail(err)
		}
		return readCloser{br, in}, nil
	}
	header, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fail(err)
	}
	if err := skipLines(br, opts.SkipRowsAfterHeader); err != nil {
		return fail(err)
	}
	return readCloser{io.MultiReader(strings.NewReader(header), br), in}, nil
}

type readCloser struct {
	io.Reader
	io.Closer
}

func skipLines(br *bufio.Reader, n int) error {
	for i := 0; i < n; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
	return nil
}

// inferCSVSchema samples the file and returns nil when it holds no header
// and no rows.
func inferCSVSchema(path string, opts CSVScanOptions) (*arrow.Schema, error) {
	in, err := openCSV(path, opts)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	r := stdcsv.NewReader(in)
	r.Comma = firstRune(opts.Separator)
	r.Comment = firstRune(opts.CommentPrefix)

	var names []string
	if opts.HasHeader {
		names, err = r.Read()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, colerrors.Wrap(err, colerrors.ErrorTypeData, "read CSV header").WithDetail("path", path)
		}
	}

	nulls := csvNulls(opts)
	var samples [][]string
	for len(samples) < opts.InferSchemaLength {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, colerrors.Wrap(err, colerrors.ErrorTypeData, "sample CSV rows").WithDetail("path", path)
		}
		if names == nil {
			names = lo.Times(len(row), func(i int) string { return fmt.Sprintf("column_%d", i+1) })
		}
		samples = append(samples, row)
	}
	if names == nil {
		return nil, nil
	}

	fields := make([]arrow.Field, len(names))
	for i, name := range names {
		values := lo.Filter(lo.Map(samples, func(row []string, _ int) string { return row[i] }),
			func(v string, _ int) bool { return !lo.Contains(nulls, v) })
		dt, err := engine.ArrowType(csvKind(values))
		if err != nil {
			return nil, err
		}
		fields[i] = arrow.Field{Name: name, Type: dt, Nullable: true}
	}
	return arrow.NewSchema(fields, nil), nil
}

func csvKind(values []string) series.Kind {
	if len(values) == 0 {
		return series.Utf8String
	}
	for _, c := range csvCandidates {
		if lo.EveryBy(values, c.parse) {
			return c.kind
		}
	}
	return series.Utf8String
}

func csvNulls(opts CSVScanOptions) []string {
	if len(opts.NullValues) == 0 {
		return csv.DefaultNullValues
	}
	return lo.Uniq(append([]string{""}, opts.NullValues...))
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return 0
	}
	return r
}

// WriteCSV writes f as delimited text. Struct columns have no text form and
// are rejected; Time columns are written as clock strings.
func (h *Handler) WriteCSV(ctx context.Context, f *frame.Frame, path string, opts CSVWriteOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	return h.write(ctx, CSV, f, path, func(context.Context) error {
		rec, err := csvRecord(h.mem, f.Record())
		if err != nil {
			return err
		}
		defer rec.Release()

		alg := outputCompression(path, opts.Compression)
		file, err := createOutput(path, opts.Mode)
		if err != nil {
			return err
		}
		return finishOutput(file, path, func() error {
			out, err := compression.NewWriter(file, alg, compression.Level(opts.CompressionLevel))
			if err != nil {
				return colerrors.Wrap(err, colerrors.ErrorTypeFile, "open compressor")
			}
			if opts.IncludeBOM {
				if _, err := io.WriteString(out, "\ufeff"); err != nil {
					_ = out.Close()
					return fileError(err, "write BOM", path)
				}
			}
			w := csv.NewWriter(out, rec.Schema(),
				csv.WithComma(firstRune(opts.Separator)),
				csv.WithHeader(opts.IncludeHeader),
				csv.WithNullWriter(opts.NullValue),
				csv.WithCRLF(opts.LineTerminator == "\r\n"),
			)
			if err := w.Write(rec); err != nil {
				_ = out.Close()
				return colerrors.Wrap(err, colerrors.ErrorTypeFile, "write CSV rows")
			}
			if err := w.Flush(); err != nil {
				_ = out.Close()
				return fileError(err, "flush CSV", path)
			}
			if err := out.Close(); err != nil {
				return fileError(err, "close compressor", path)
			}
			return nil
		}())
	})
}

// csvRecord returns rec with Time columns rendered as strings, or an error
// when a column has no CSV form.
func csvRecord(mem memory.Allocator, rec arrow.Record) (arrow.Record, error) {
	cols := make([]arrow.Array, rec.NumCols())
	fields := make([]arrow.Field, rec.NumCols())
	var owned []arrow.Array
	defer func() {
		for _, a := range owned {
			a.Release()
		}
	}()

	for i, col := range rec.Columns() {
		fd := rec.Schema().Field(i)
		fields[i], cols[i] = fd, col
		switch dt := fd.Type.(type) {
		case *arrow.Time64Type:
			strs := timeStrings(mem, col.(*array.Time64), dt.Unit)
			owned = append(owned, strs)
			fields[i].Type, cols[i] = arrow.BinaryTypes.String, strs
		case *arrow.StructType:
			return nil, colerrors.New(colerrors.ErrorTypeCapability, "CSV cannot hold struct columns").
				WithDetail("column", fd.Name)
		case *arrow.ListType:
			if !csvListElem(dt.Elem()) {
				return nil, colerrors.New(colerrors.ErrorTypeCapability, "CSV cannot hold this list column").
					WithDetail("column", fd.Name).
					WithDetail("type", dt.String())
			}
		}
	}
	return array.NewRecord(arrow.NewSchema(fields, nil), cols, rec.NumRows()), nil
}

func csvListElem(dt arrow.DataType) bool {
	switch dt.(type) {
	case *arrow.ListType, *arrow.StructType, *arrow.Time64Type:
		return false
	default:
		return true
	}
}

func timeStrings(mem memory.Allocator, arr *array.Time64, unit arrow.TimeUnit) arrow.Array {
	b := array.NewStringBuilder(mem)
	defer b.Release()
	b.Reserve(arr.Len())
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			b.AppendNull()
			continue
		}
		b.Append(arr.Value(i).FormattedString(unit))
	}
	return b.NewArray()
}

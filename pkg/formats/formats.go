// Package formats scans files into frames and writes frames to files.
//
// Supported formats:
//   - CSV: scan and write, optionally through a compression codec
//   - Parquet: scan and write with internal page compression
//   - IPC: the Arrow file format, scan and write
//   - NDJSON: scan, with the schema inferred from the first lines
//   - JSON: write as one array or as newline delimited objects
//   - Avro: write as an object container file
//
// Every operation is traced, logged and counted. Options come either as
// typed records (DefaultCSVScanOptions and friends) or as an option bag
// decoded by Scan and Write.
//
// Example usage:
//
//	h := formats.NewHandler(formats.WithRecorder(registry.Collector("formats")))
//	f, err := h.ScanCSV(ctx, "in.csv", formats.DefaultCSVScanOptions())
//	if err != nil {
//	    return err
//	}
//	defer f.Release()
//	err = h.WriteParquet(ctx, f, "out.parquet", formats.DefaultParquetWriteOptions())
package formats

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/ajitpratap0/colframe/pkg/colerrors"
	"github.com/ajitpratap0/colframe/pkg/compression"
	"github.com/ajitpratap0/colframe/pkg/frame"
	"github.com/ajitpratap0/colframe/pkg/logger"
	"github.com/ajitpratap0/colframe/pkg/observability"
)

// Format identifies a file format.
type Format string

const (
	CSV     Format = "csv"
	Parquet Format = "parquet"
	IPC     Format = "ipc"
	NDJSON  Format = "ndjson"
	JSON    Format = "json"
	Avro    Format = "avro"
)

var suffixes = map[string]Format{
	".csv":     CSV,
	".tsv":     CSV,
	".parquet": Parquet,
	".arrow":   IPC,
	".ipc":     IPC,
	".feather": IPC,
	".ndjson":  NDJSON,
	".jsonl":   NDJSON,
	".json":    JSON,
	".avro":    Avro,
}

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, Parquet, IPC, NDJSON, JSON, Avro:
		return f, nil
	case "arrow", "feather":
		return IPC, nil
	case "jsonl", "json_lines":
		return NDJSON, nil
	default:
		return "", colerrors.Newf(colerrors.ErrorTypeValidation, "unknown format %q", s)
	}
}

// FormatFromPath guesses the format from the file suffix, looking past a
// compression suffix such as ".csv.gz".
func FormatFromPath(path string) (Format, error) {
	base := path
	if alg := compression.DetectFromPath(path); alg != compression.None {
		base = strings.TrimSuffix(path, filepath.Ext(path))
	}
	if f, ok := suffixes[strings.ToLower(filepath.Ext(base))]; ok {
		return f, nil
	}
	return "", colerrors.New(colerrors.ErrorTypeValidation, "cannot tell the format from the file name").
		WithDetail("path", path)
}

// Recorder counts rows moved by the handler. metrics.Collector implements it.
type Recorder interface {
	RowsRead(format string, rows int)
	RowsWritten(format string, rows int)
}

type nopRecorder struct{}

func (nopRecorder) RowsRead(string, int)    {}
func (nopRecorder) RowsWritten(string, int) {}

// Handler scans and writes frames. It is safe for concurrent use.
type Handler struct {
	mem      memory.Allocator
	logger   *zap.Logger
	recorder Recorder
}

// Option configures a Handler.
type Option func(*Handler)

// WithAllocator sets the allocator scanned frames are built with.
func WithAllocator(mem memory.Allocator) Option {
	return func(h *Handler) {
		if mem != nil {
			h.mem = mem
		}
	}
}

// WithLogger sets the logger. The global logger is used otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithRecorder sets where row counts are reported.
func WithRecorder(r Recorder) Option {
	return func(h *Handler) {
		if r != nil {
			h.recorder = r
		}
	}
}

// NewHandler returns a Handler using the Go allocator unless configured otherwise.
func NewHandler(opts ...Option) *Handler {
	h := &Handler{mem: memory.NewGoAllocator(), recorder: nopRecorder{}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Allocator returns the allocator scanned frames are built with.
func (h *Handler) Allocator() memory.Allocator { return h.mem }

func (h *Handler) log(ctx context.Context) *zap.Logger {
	if h.logger != nil {
		return h.logger.With(
			zap.Any("operation", ctx.Value(logger.OperationKey)),
			zap.Any("format", ctx.Value(logger.FormatKey)),
			zap.Any("path", ctx.Value(logger.PathKey)),
		)
	}
	return logger.WithContext(ctx)
}

// scan runs a read inside a span, logs its outcome and counts its rows.
func (h *Handler) scan(ctx context.Context, format Format, path string, fn func(context.Context) (*frame.Frame, error)) (*frame.Frame, error) {
	var out *frame.Frame
	err := h.observe(ctx, format, "scan", path, func(ctx context.Context) (int, error) {
		f, err := fn(ctx)
		if err != nil {
			return 0, err
		}
		out = f
		return f.Height(), nil
	})
	if err != nil {
		return nil, err
	}
	h.recorder.RowsRead(string(format), out.Height())
	return out, nil
}

func (h *Handler) write(ctx context.Context, format Format, f *frame.Frame, path string, fn func(context.Context) error) error {
	if f == nil {
		return colerrors.New(colerrors.ErrorTypeValidation, "frame is nil")
	}
	err := h.observe(ctx, format, "write", path, func(ctx context.Context) (int, error) {
		return f.Height(), fn(ctx)
	})
	if err != nil {
		return err
	}
	h.recorder.RowsWritten(string(format), f.Height())
	return nil
}

func (h *Handler) observe(ctx context.Context, format Format, op, path string, fn func(context.Context) (int, error)) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = logger.WithOperation(ctx, op, string(format), path)
	log := h.log(ctx)
	start := time.Now()

	var rows int
	err := observability.NewFormatTracer(string(format)).Trace(ctx, op, path, func(ctx context.Context) (int, error) {
		if err := ctx.Err(); err != nil {
			return 0, colerrors.Wrap(err, colerrors.ErrorTypeTimeout, op+" cancelled")
		}
		n, err := fn(ctx)
		rows = n
		return n, err
	})
	if err != nil {
		log.Error("operation failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return err
	}
	log.Debug("operation complete", zap.Int("rows", rows), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Scan reads path in the given format, decoding options from bag on top of
// the format's defaults.
func (h *Handler) Scan(ctx context.Context, format Format, path string, bag map[string]any) (*frame.Frame, error) {
	switch format {
	case CSV:
		opts := DefaultCSVScanOptions()
		if err := DecodeOptions(bag, &opts); err != nil {
			return nil, err
		}
		return h.ScanCSV(ctx, path, opts)
	case Parquet:
		opts := DefaultParquetScanOptions()
		if err := DecodeOptions(bag, &opts); err != nil {
			return nil, err
		}
		return h.ScanParquet(ctx, path, opts)
	case IPC:
		opts := DefaultIPCScanOptions()
		if err := DecodeOptions(bag, &opts); err != nil {
			return nil, err
		}
		return h.ScanIPC(ctx, path, opts)
	case NDJSON:
		opts := DefaultNDJSONScanOptions()
		if err := DecodeOptions(bag, &opts); err != nil {
			return nil, err
		}
		return h.ScanNDJSON(ctx, path, opts)
	default:
		return nil, colerrors.Newf(colerrors.ErrorTypeCapability, "scanning %s is not supported", format)
	}
}

// Write writes f to path in the given format, decoding options from bag on
// top of the format's defaults.
func (h *Handler) Write(ctx context.Context, f *frame.Frame, format Format, path string, bag map[string]any) error {
	switch format {
	case CSV:
		opts := DefaultCSVWriteOptions()
		if err := DecodeOptions(bag, &opts); err != nil {
			return err
		}
		return h.WriteCSV(ctx, f, path, opts)
	case Parquet:
		opts := DefaultParquetWriteOptions()
		if err := DecodeOptions(bag, &opts); err != nil {
			return err
		}
		return h.WriteParquet(ctx, f, path, opts)
	case IPC:
		opts := DefaultIPCWriteOptions()
		if err := DecodeOptions(bag, &opts); err != nil {
			return err
		}
		return h.WriteIPC(ctx, f, path, opts)
	case JSON, NDJSON:
		opts := DefaultJSONWriteOptions()
		if format == NDJSON {
			opts.Format = JSONLines
		}
		if err := DecodeOptions(bag, &opts); err != nil {
			return err
		}
		return h.WriteJSON(ctx, f, path, opts)
	case Avro:
		opts := DefaultAvroWriteOptions()
		if err := DecodeOptions(bag, &opts); err != nil {
			return err
		}
		return h.WriteAvro(ctx, f, path, opts)
	default:
		return colerrors.Newf(colerrors.ErrorTypeCapability, "writing %s is not supported", format)
	}
}

// openInput opens path and, for text formats, undoes its compression. name
// overrides suffix detection when set.
func openInput(path, name string) (io.ReadCloser, error) {
	file, err := os.Open(path) //nolint:gosec // G304: path comes from the caller
	if err != nil {
		return nil, fileError(err, "open input", path)
	}
	alg := compression.DetectFromPath(path)
	if name != "" {
		if alg, err = compression.ParseAlgorithm(name); err != nil {
			_ = file.Close()
			return nil, colerrors.Wrap(err, colerrors.ErrorTypeValidation, "input compression")
		}
	}
	r, err := compression.NewReader(file, alg)
	if err != nil {
		_ = file.Close()
		return nil, colerrors.Wrap(err, colerrors.ErrorTypeFile, "open decompressor").WithDetail("path", path)
	}
	return &stackedReader{ReadCloser: r, file: file}, nil
}

type stackedReader struct {
	io.ReadCloser
	file *os.File
}

func (s *stackedReader) Close() error {
	return errors.Join(s.ReadCloser.Close(), s.file.Close())
}

// outputCompression picks the stream codec for a text output. An empty name
// follows the path suffix, so "out.csv.gz" is gzipped.
func outputCompression(path, name string) compression.Algorithm {
	if name == "" {
		return compression.DetectFromPath(path)
	}
	alg, _ := compression.ParseAlgorithm(name)
	return alg
}

// createOutput opens path for writing. Under WriteModeError an existing
// file is an error and is left untouched.
func createOutput(path string, mode WriteMode) (*os.File, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !strings.EqualFold(string(mode), string(WriteModeOverwrite)) {
		flags |= os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o644) //nolint:gosec // G304: path comes from the caller
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, colerrors.New(colerrors.ErrorTypeFile, "output file already exists").
				WithDetail("path", path).
				WithDetail("write_mode", string(mode))
		}
		return nil, fileError(err, "create output", path)
	}
	return file, nil
}

// closeOutput closes a file a format writer may already have closed.
func closeOutput(file io.Closer, path string) error {
	if err := file.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fileError(err, "close output", path)
	}
	return nil
}

// finishOutput closes file and removes it when writing failed, so a failed
// write never leaves a truncated file behind.
func finishOutput(file io.Closer, path string, err error) error {
	cerr := closeOutput(file, path)
	if err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
	}
	return err
}

func fileError(err error, op, path string) error {
	return colerrors.Wrap(err, colerrors.ErrorTypeFile, op).WithDetail("path", path)
}

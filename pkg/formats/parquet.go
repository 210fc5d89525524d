package formats

import (
	"context"
	"strings"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/colframe/pkg/colerrors"
	"github.com/ajitpratap0/colframe/pkg/frame"
)

var parquetCodecByName = map[string]compress.Compression{
	"uncompressed": compress.Codecs.Uncompressed,
	"snappy":       compress.Codecs.Snappy,
	"gzip":         compress.Codecs.Gzip,
	"brotli":       compress.Codecs.Brotli,
	"zstd":         compress.Codecs.Zstd,
	"lz4":          compress.Codecs.Lz4Raw,
}

// ScanParquet reads a Parquet file, optionally keeping only some columns.
func (h *Handler) ScanParquet(ctx context.Context, path string, opts ParquetScanOptions) (*frame.Frame, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return h.scan(ctx, Parquet, path, func(ctx context.Context) (*frame.Frame, error) {
		pf, err := file.OpenParquetFile(path, false)
		if err != nil {
			return nil, fileError(err, "open parquet file", path)
		}
		defer pf.Close()

		fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{
			Parallel:  opts.Parallel,
			BatchSize: 64 * 1024,
		}, h.mem)
		if err != nil {
			return nil, colerrors.Wrap(err, colerrors.ErrorTypeData, "create parquet reader").WithDetail("path", path)
		}
		schema, err := fr.Schema()
		if err != nil {
			return nil, colerrors.Wrap(err, colerrors.ErrorTypeData, "read parquet schema").WithDetail("path", path)
		}

		rr, err := fr.GetRecordReader(ctx, nil, nil)
		if err != nil {
			return nil, colerrors.Wrap(err, colerrors.ErrorTypeData, "create record reader").WithDetail("path", path)
		}
		defer rr.Release()

		rec, err := collect(h.mem, schema, rr, opts.NRows)
		if err != nil {
			return nil, err
		}
		if rec, err = project(rec, opts.Columns); err != nil {
			return nil, err
		}
		if rec, err = withRowIndex(h.mem, rec, opts.rowIndex()); err != nil {
			return nil, err
		}
		return toFrame(rec), nil
	})
}

// WriteParquet writes f as a Parquet file. The Arrow schema is stored in
// the file metadata so that types without a Parquet counterpart survive a
// round trip.
func (h *Handler) WriteParquet(ctx context.Context, f *frame.Frame, path string, opts ParquetWriteOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	return h.write(ctx, Parquet, f, path, func(context.Context) error {
		level := opts.CompressionLevel
		if level < 0 {
			level = compress.DefaultCompressionLevel
		}
		props := parquet.NewWriterProperties(
			parquet.WithCompression(parquetCodecByName[strings.ToLower(opts.Compression)]),
			parquet.WithCompressionLevel(level),
			parquet.WithMaxRowGroupLength(opts.RowGroupSize),
			parquet.WithStats(opts.Statistics),
			parquet.WithDictionaryDefault(true),
		)
		arrowProps := pqarrow.NewArrowWriterProperties(
			pqarrow.WithAllocator(h.mem),
			pqarrow.WithStoreSchema(),
		)

		out, err := createOutput(path, opts.Mode)
		if err != nil {
			return err
		}
		return finishOutput(out, path, func() error {
			fw, err := pqarrow.NewFileWriter(f.Schema(), out, props, arrowProps)
			if err != nil {
				return colerrors.Wrap(err, colerrors.ErrorTypeCapability, "create parquet writer")
			}
			if err := fw.Write(f.Record()); err != nil {
				_ = fw.Close()
				return colerrors.Wrap(err, colerrors.ErrorTypeFile, "write parquet row groups")
			}
			if err := fw.Close(); err != nil {
				return fileError(err, "close parquet writer", path)
			}
			return nil
		}())
	})
}

package formats_test

import (
	"context"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/colframe/pkg/colerrors"
	"github.com/ajitpratap0/colframe/pkg/formats"
)

func TestParquetRoundTrip(t *testing.T) {
	h := formats.NewHandler()
	f := nestedFrame(t, memory.NewGoAllocator())

	for _, codec := range []string{"uncompressed", "snappy", "gzip", "zstd", "lz4", "brotli"} {
		t.Run(codec, func(t *testing.T) {
			path := tempPath(t, "out.parquet")
			opts := formats.DefaultParquetWriteOptions()
			opts.Compression = codec
			require.NoError(t, h.WriteParquet(context.Background(), f, path, opts))

			got, err := h.ScanParquet(context.Background(), path, formats.DefaultParquetScanOptions())
			require.NoError(t, err)
			defer got.Release()
			assertSameColumns(t, f, got)
		})
	}
}

func TestParquetScanProjectionAndLimit(t *testing.T) {
	h := formats.NewHandler()
	f := nestedFrame(t, memory.NewGoAllocator())
	path := tempPath(t, "out.parquet")

	opts := formats.DefaultParquetWriteOptions()
	opts.RowGroupSize = 1
	require.NoError(t, h.WriteParquet(context.Background(), f, path, opts))

	scan := formats.DefaultParquetScanOptions()
	scan.Columns = []string{"ts", "id"}
	scan.NRows = 2
	scan.Parallel = false
	scan.RowIndexName = "n"
	got, err := h.ScanParquet(context.Background(), path, scan)
	require.NoError(t, err)
	defer got.Release()

	assert.Equal(t, []string{"n", "ts", "id"}, got.ColumnNames())
	assert.Equal(t, []int64{0, 1}, int64Values(t, got, "n"))
	assert.Equal(t, []int64{1, 2}, int64Values(t, got, "id"))
}

func TestParquetScanUnknownColumn(t *testing.T) {
	h := formats.NewHandler()
	f := scalarFrame(t, memory.NewGoAllocator())
	path := tempPath(t, "out.parquet")
	require.NoError(t, h.WriteParquet(context.Background(), f, path, formats.DefaultParquetWriteOptions()))

	scan := formats.DefaultParquetScanOptions()
	scan.Columns = []string{"missing"}
	_, err := h.ScanParquet(context.Background(), path, scan)
	assert.True(t, colerrors.IsType(err, colerrors.ErrorTypeValidation))
}

func TestParquetWriteRejectsUnknownCodec(t *testing.T) {
	h := formats.NewHandler()
	f := scalarFrame(t, memory.NewGoAllocator())
	path := tempPath(t, "out.parquet")

	opts := formats.DefaultParquetWriteOptions()
	opts.Compression = "lzo"
	err := h.WriteParquet(context.Background(), f, path, opts)
	assert.True(t, colerrors.IsType(err, colerrors.ErrorTypeValidation))
	assert.NoFileExists(t, path)
}

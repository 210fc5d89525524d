package formats_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/colframe/pkg/formats"
)

func TestIPCRoundTrip(t *testing.T) {
	for _, codec := range []string{"uncompressed", "lz4", "zstd"} {
		t.Run(codec, func(t *testing.T) {
			h, mem := checkedHandler(t)
			f := nestedFrame(t, mem)
			path := tempPath(t, "out.arrow")

			opts := formats.DefaultIPCWriteOptions()
			opts.Compression = codec
			require.NoError(t, h.WriteIPC(context.Background(), f, path, opts))

			got, err := h.ScanIPC(context.Background(), path, formats.DefaultIPCScanOptions())
			require.NoError(t, err)
			defer got.Release()
			assertSameColumns(t, f, got)
			assert.True(t, f.Schema().Equal(got.Schema()))
		})
	}
}

func TestIPCScanLimitAndRowIndex(t *testing.T) {
	h, mem := checkedHandler(t)
	f := scalarFrame(t, mem)
	path := tempPath(t, "out.arrow")
	require.NoError(t, h.WriteIPC(context.Background(), f, path, formats.DefaultIPCWriteOptions()))

	scan := formats.DefaultIPCScanOptions()
	scan.NRows = 2
	scan.RowIndexName = "row"
	scan.RowIndexOffset = 5
	got, err := h.ScanIPC(context.Background(), path, scan)
	require.NoError(t, err)
	defer got.Release()

	assert.Equal(t, 2, got.Height())
	assert.Equal(t, []int64{5, 6}, int64Values(t, got, "row"))
	assert.Equal(t, []int64{1, 2}, int64Values(t, got, "id"))
}

package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/colframe/pkg/engine"
	"github.com/ajitpratap0/colframe/pkg/series"
)

func TestCollectorObservesBuilds(t *testing.T) {
	reg := NewRegistry("colframe")
	c := reg.Collector("test")
	b := series.NewBuilder(engine.NewArrow(nil), series.WithObserver(c))

	col, err := b.BuildSeries("x", []any{[]int64{1}, []int64{2, 3}})
	require.NoError(t, err)
	defer col.Release()

	_, err = b.BuildSeries("y", []any{1, "two"})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.columnsBuilt.WithLabelValues("test", "List")))
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.rowsBuilt.WithLabelValues("test", "List")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.buildFailures.WithLabelValues("test", "inconsistent_type")))
	assert.Equal(t, 1, testutil.CollectAndCount(reg.buildLatency))
}

func TestRowsReadWritten(t *testing.T) {
	reg := NewRegistry("colframe")
	c := reg.Collector("cli")

	c.RowsRead("csv", 10)
	c.RowsRead("csv", 5)
	c.RowsWritten("parquet", 15)

	assert.Equal(t, 15.0, testutil.ToFloat64(reg.rowsRead.WithLabelValues("cli", "csv")))
	assert.Equal(t, 15.0, testutil.ToFloat64(reg.rowsWritten.WithLabelValues("cli", "parquet")))
}

func TestWriteTextfile(t *testing.T) {
	reg := NewRegistry("colframe")
	reg.Collector("cli").RowsWritten("json", 3)

	path := filepath.Join(t.TempDir(), "colframe.prom")
	require.NoError(t, reg.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `colframe_rows_written_total{component="cli",format="json"} 3`)
}

func TestTimer(t *testing.T) {
	timer := NewTimer("op")
	time.Sleep(time.Millisecond)
	assert.GreaterOrEqual(t, timer.Stop(), time.Millisecond)
	assert.Equal(t, "op", timer.Name())
}

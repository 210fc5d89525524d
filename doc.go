// Package colframe turns nested Go values into typed Apache Arrow columns
// and moves the resulting frames between columnar file formats.
//
// # Architecture
//
// colframe is organized around three layers:
//
// 1. Series building: pkg/series infers a closed set of column kinds from Go
// values (scalars, civil dates and times, slices, arrays, container/list and
// iterator-like sequences) and builds List columns bottom-up from their
// flattened children. Struct columns are assembled from named child columns.
//
// 2. Engine: pkg/engine stores every column as an arrow.Array and maps kinds
// to Arrow types and back.
//
// 3. Formats: pkg/formats scans and writes frames as CSV, Parquet, Arrow IPC,
// NDJSON, JSON and Avro, configured by typed option records or string keyed
// option bags.
//
// # Quick Start
//
// Build a List(Int64) column and write it to Parquet:
//
//	import (
//	    "context"
//	    "github.com/ajitpratap0/colframe/pkg/engine"
//	    "github.com/ajitpratap0/colframe/pkg/formats"
//	    "github.com/ajitpratap0/colframe/pkg/frame"
//	    "github.com/ajitpratap0/colframe/pkg/series"
//	)
//
//	b := series.NewBuilder(engine.NewArrow(nil))
//	col, err := b.BuildSeries("xs", []any{[]int64{1, 2}, []int64{}, []int64{3}})
//	if err != nil {
//	    return err
//	}
//	defer col.Release()
//
//	f, err := frame.New(col)
//	if err != nil {
//	    return err
//	}
//	defer f.Release()
//
//	h := formats.NewHandler()
//	err = h.Write(context.Background(), f, formats.Parquet, "xs.parquet", map[string]any{
//	    "write_compression": "zstd",
//	})
//
// # Key Packages
//
//	pkg/series        - Kind inference and recursive column building
//	pkg/engine        - Arrow storage for built columns
//	pkg/frame         - Named columns sharing one height
//	pkg/formats       - Scanning and writing files in six formats
//	pkg/compression   - gzip, zstd, snappy, s2, lz4 stream codecs
//	pkg/colerrors     - Structured error handling
//	pkg/config        - YAML configuration with ${VAR} substitution
//	pkg/logger        - Structured logging on zap
//	pkg/metrics       - Prometheus counters for builds, scans and writes
//	pkg/observability - OpenTelemetry spans around scans and writes
//
// # Command Line
//
// cmd/colframe exposes the library:
//
//	colframe series '[[1, 2], [], [3]]'
//	colframe convert events.csv.gz events.parquet -o write_compression=zstd
//	colframe schema events.parquet
//
// Settings come from a YAML file given with --config, COLFRAME_* environment
// variables (e.g. COLFRAME_LOGGING_LEVEL) and flags.
package colframe

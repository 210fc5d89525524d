package formats_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/colframe/pkg/colerrors"
	"github.com/ajitpratap0/colframe/pkg/formats"
)

func TestDecodeOptionsWeakTyping(t *testing.T) {
	opts := formats.DefaultCSVScanOptions()
	err := formats.DecodeOptions(map[string]any{
		"scan_csv_has_header":       "false",
		"scan_csv_skip_rows":        "3",
		"scan_csv_null_value":       "NA",
		"scan_csv_row_index_offset": 7,
	}, &opts)
	require.NoError(t, err)

	assert.False(t, opts.HasHeader)
	assert.Equal(t, 3, opts.SkipRows)
	assert.Equal(t, []string{"NA"}, opts.NullValues)
	assert.Equal(t, int64(7), opts.RowIndexOffset)
	assert.Equal(t, ",", opts.Separator, "untouched keys keep their defaults")
}

func TestDecodeOptionsRejects(t *testing.T) {
	tests := []struct {
		name string
		bag  map[string]any
	}{
		{"unknown key", map[string]any{"scan_csv_sep": ";"}},
		{"wrong type", map[string]any{"scan_csv_skip_rows": "many"}},
		{"negative", map[string]any{"scan_csv_n_rows": -1}},
		{"long separator", map[string]any{"scan_csv_separator": ";;"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := formats.DefaultCSVScanOptions()
			err := formats.DecodeOptions(tt.bag, &opts)
			require.Error(t, err)
			assert.True(t, colerrors.IsType(err, colerrors.ErrorTypeValidation))
		})
	}
}

func TestWriteOptionsValidate(t *testing.T) {
	tests := []struct {
		name string
		opts formats.Validator
	}{
		{"csv mode", formats.CSVWriteOptions{Mode: "append", Separator: ",", LineTerminator: "\n"}},
		{"csv terminator", func() formats.Validator {
			o := formats.DefaultCSVWriteOptions()
			o.LineTerminator = "\r"
			return o
		}()},
		{"parquet codec", func() formats.Validator {
			o := formats.DefaultParquetWriteOptions()
			o.Compression = "lzo"
			return o
		}()},
		{"parquet row group", func() formats.Validator {
			o := formats.DefaultParquetWriteOptions()
			o.RowGroupSize = 0
			return o
		}()},
		{"ipc codec", func() formats.Validator {
			o := formats.DefaultIPCWriteOptions()
			o.Compression = "gzip"
			return o
		}()},
		{"avro record name", func() formats.Validator {
			o := formats.DefaultAvroWriteOptions()
			o.RecordName = ""
			return o
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			assert.True(t, colerrors.IsType(err, colerrors.ErrorTypeValidation), "%v", err)
		})
	}

	for _, ok := range []formats.Validator{
		formats.DefaultCSVWriteOptions(),
		formats.DefaultParquetWriteOptions(),
		formats.DefaultIPCWriteOptions(),
		formats.DefaultJSONWriteOptions(),
		formats.DefaultAvroWriteOptions(),
		formats.DefaultCSVScanOptions(),
		formats.DefaultParquetScanOptions(),
		formats.DefaultIPCScanOptions(),
		formats.DefaultNDJSONScanOptions(),
	} {
		assert.NoError(t, ok.Validate())
	}
}

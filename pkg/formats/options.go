package formats

import (
	"strings"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"

	"github.com/ajitpratap0/colframe/pkg/colerrors"
	"github.com/ajitpratap0/colframe/pkg/compression"
)

// WriteMode decides what happens when the output file already exists.
type WriteMode string

const (
	// WriteModeError refuses to replace an existing file.
	WriteModeError WriteMode = "error"
	// WriteModeOverwrite truncates an existing file.
	WriteModeOverwrite WriteMode = "overwrite"
)

// Validator is implemented by every options record.
type Validator interface {
	Validate() error
}

// RowIndex adds a leading Int64 column numbering the rows from Offset.
// An empty Name disables it.
type RowIndex struct {
	Name   string
	Offset int64
}

// CSVScanOptions configures ScanCSV.
type CSVScanOptions struct {
	Separator           string   `mapstructure:"scan_csv_separator"`
	CommentPrefix       string   `mapstructure:"scan_csv_comment_prefix"`
	HasHeader           bool     `mapstructure:"scan_csv_has_header"`
	SkipRows            int      `mapstructure:"scan_csv_skip_rows"`
	SkipRowsAfterHeader int      `mapstructure:"scan_csv_skip_rows_after_header"`
	NRows               int      `mapstructure:"scan_csv_n_rows"`
	// InferSchemaLength is how many data rows are sampled for column types
	InferSchemaLength   int      `mapstructure:"scan_csv_infer_schema_length"`
	NullValues          []string `mapstructure:"scan_csv_null_value"`
	ChunkSize           int      `mapstructure:"scan_csv_chunk_size"`
	RaiseIfEmpty        bool     `mapstructure:"scan_csv_raise_if_empty"`
	RowIndexName        string   `mapstructure:"scan_csv_row_index_name"`
	RowIndexOffset      int64    `mapstructure:"scan_csv_row_index_offset"`
	// Compression of the input; detected from the file suffix when empty
	Compression         string   `mapstructure:"scan_csv_compression"`
}

// DefaultCSVScanOptions returns comma separated input with a header row.
func DefaultCSVScanOptions() CSVScanOptions {
	return CSVScanOptions{
		Separator:         ",",
		HasHeader:         true,
		InferSchemaLength: 100,
		ChunkSize:         1 << 16,
		RaiseIfEmpty:      true,
	}
}

// Validate checks the options for consistency.
func (o CSVScanOptions) Validate() error {
	if err := singleRune("scan_csv_separator", o.Separator, false); err != nil {
		return err
	}
	if err := singleRune("scan_csv_comment_prefix", o.CommentPrefix, true); err != nil {
		return err
	}
	if o.CommentPrefix != "" && o.CommentPrefix == o.Separator {
		return invalid("scan_csv_comment_prefix", o.CommentPrefix, "must differ from the separator")
	}
	if err := nonNegative("scan_csv_skip_rows", o.SkipRows); err != nil {
		return err
	}
	if err := nonNegative("scan_csv_skip_rows_after_header", o.SkipRowsAfterHeader); err != nil {
		return err
	}
	if err := nonNegative("scan_csv_n_rows", o.NRows); err != nil {
		return err
	}
	if o.InferSchemaLength < 1 {
		return invalid("scan_csv_infer_schema_length", o.InferSchemaLength, "must be positive")
	}
	if o.ChunkSize < 1 {
		return invalid("scan_csv_chunk_size", o.ChunkSize, "must be positive")
	}
	if o.RowIndexOffset < 0 {
		return invalid("scan_csv_row_index_offset", o.RowIndexOffset, "must not be negative")
	}
	return validCompression("scan_csv_compression", o.Compression)
}

func (o CSVScanOptions) rowIndex() RowIndex { return RowIndex{o.RowIndexName, o.RowIndexOffset} }

// ParquetScanOptions configures ScanParquet.
type ParquetScanOptions struct {
	NRows          int      `mapstructure:"scan_parquet_n_rows"`
	Columns        []string `mapstructure:"scan_parquet_columns"`
	Parallel       bool     `mapstructure:"scan_parquet_parallel"`
	RowIndexName   string   `mapstructure:"scan_parquet_row_index_name"`
	RowIndexOffset int64    `mapstructure:"scan_parquet_row_index_offset"`
}

// DefaultParquetScanOptions reads every column, decoding columns in parallel.
func DefaultParquetScanOptions() ParquetScanOptions {
	return ParquetScanOptions{Parallel: true}
}

// Validate checks the options for consistency.
func (o ParquetScanOptions) Validate() error {
	if err := nonNegative("scan_parquet_n_rows", o.NRows); err != nil {
		return err
	}
	if o.RowIndexOffset < 0 {
		return invalid("scan_parquet_row_index_offset", o.RowIndexOffset, "must not be negative")
	}
	return nil
}

func (o ParquetScanOptions) rowIndex() RowIndex { return RowIndex{o.RowIndexName, o.RowIndexOffset} }

// IPCScanOptions configures ScanIPC.
type IPCScanOptions struct {
	NRows          int    `mapstructure:"scan_ipc_n_rows"`
	RowIndexName   string `mapstructure:"scan_ipc_row_index_name"`
	RowIndexOffset int64  `mapstructure:"scan_ipc_row_index_offset"`
}

// DefaultIPCScanOptions reads the whole file.
func DefaultIPCScanOptions() IPCScanOptions { return IPCScanOptions{} }

// Validate checks the options for consistency.
func (o IPCScanOptions) Validate() error {
	if err := nonNegative("scan_ipc_n_rows", o.NRows); err != nil {
		return err
	}
	if o.RowIndexOffset < 0 {
		return invalid("scan_ipc_row_index_offset", o.RowIndexOffset, "must not be negative")
	}
	return nil
}

func (o IPCScanOptions) rowIndex() RowIndex { return RowIndex{o.RowIndexName, o.RowIndexOffset} }

// NDJSONScanOptions configures ScanNDJSON.
type NDJSONScanOptions struct {
	// InferSchemaLength is how many lines are sampled for the schema
	InferSchemaLength int    `mapstructure:"scan_ndjson_infer_schema_length"`
	NRows             int    `mapstructure:"scan_ndjson_n_rows"`
	BatchSize         int    `mapstructure:"scan_ndjson_batch_size"`
	RowIndexName      string `mapstructure:"scan_ndjson_row_index_name"`
	RowIndexOffset    int64  `mapstructure:"scan_ndjson_row_index_offset"`
	Compression       string `mapstructure:"scan_ndjson_compression"`
}

// DefaultNDJSONScanOptions samples 100 lines for the schema.
func DefaultNDJSONScanOptions() NDJSONScanOptions {
	return NDJSONScanOptions{InferSchemaLength: 100, BatchSize: 1 << 14}
}

// Validate checks the options for consistency.
func (o NDJSONScanOptions) Validate() error {
	if o.InferSchemaLength < 1 {
		return invalid("scan_ndjson_infer_schema_length", o.InferSchemaLength, "must be positive")
	}
	if err := nonNegative("scan_ndjson_n_rows", o.NRows); err != nil {
		return err
	}
	if o.BatchSize < 1 {
		return invalid("scan_ndjson_batch_size", o.BatchSize, "must be positive")
	}
	if o.RowIndexOffset < 0 {
		return invalid("scan_ndjson_row_index_offset", o.RowIndexOffset, "must not be negative")
	}
	return validCompression("scan_ndjson_compression", o.Compression)
}

func (o NDJSONScanOptions) rowIndex() RowIndex { return RowIndex{o.RowIndexName, o.RowIndexOffset} }

// CSVWriteOptions configures WriteCSV.
type CSVWriteOptions struct {
	Mode             WriteMode `mapstructure:"write_mode"`
	Separator        string    `mapstructure:"write_csv_separator"`
	IncludeHeader    bool      `mapstructure:"write_csv_include_header"`
	IncludeBOM       bool      `mapstructure:"write_csv_include_bom"`
	NullValue        string    `mapstructure:"write_csv_null_value"`
	LineTerminator   string    `mapstructure:"write_csv_line_terminator"`
	Compression      string    `mapstructure:"write_compression"`
	CompressionLevel int       `mapstructure:"write_compression_level"`
}

// DefaultCSVWriteOptions writes uncompressed, comma separated text with a header.
func DefaultCSVWriteOptions() CSVWriteOptions {
	return CSVWriteOptions{
		Mode:             WriteModeError,
		Separator:        ",",
		IncludeHeader:    true,
		LineTerminator:   "\n",
		CompressionLevel: int(compression.Default),
	}
}

// Validate checks the options for consistency.
func (o CSVWriteOptions) Validate() error {
	if err := validMode(o.Mode); err != nil {
		return err
	}
	if err := singleRune("write_csv_separator", o.Separator, false); err != nil {
		return err
	}
	if o.LineTerminator != "\n" && o.LineTerminator != "\r\n" {
		return invalid("write_csv_line_terminator", o.LineTerminator, `must be "\n" or "\r\n"`)
	}
	return validCompression("write_compression", o.Compression)
}

// ParquetWriteOptions configures WriteParquet.
type ParquetWriteOptions struct {
	Mode             WriteMode `mapstructure:"write_mode"`
	Compression      string    `mapstructure:"write_compression"`
	CompressionLevel int       `mapstructure:"write_compression_level"`
	RowGroupSize     int64     `mapstructure:"write_parquet_row_group_size"`
	Statistics       bool      `mapstructure:"write_parquet_stats"`
}

var parquetCodecs = []string{"uncompressed", "snappy", "gzip", "brotli", "zstd", "lz4"}

// DefaultParquetWriteOptions writes zstd compressed row groups with statistics.
func DefaultParquetWriteOptions() ParquetWriteOptions {
	return ParquetWriteOptions{
		Mode:             WriteModeError,
		Compression:      "zstd",
		CompressionLevel: -1,
		RowGroupSize:     512 * 512,
		Statistics:       true,
	}
}

// Validate checks the options for consistency.
func (o ParquetWriteOptions) Validate() error {
	if err := validMode(o.Mode); err != nil {
		return err
	}
	if err := oneOf("write_compression", o.Compression, parquetCodecs); err != nil {
		return err
	}
	if o.RowGroupSize < 1 {
		return invalid("write_parquet_row_group_size", o.RowGroupSize, "must be positive")
	}
	return nil
}

// IPCWriteOptions configures WriteIPC.
type IPCWriteOptions struct {
	Mode        WriteMode `mapstructure:"write_mode"`
	Compression string    `mapstructure:"write_compression"`
}

// DefaultIPCWriteOptions writes uncompressed record batches.
func DefaultIPCWriteOptions() IPCWriteOptions {
	return IPCWriteOptions{Mode: WriteModeError, Compression: "uncompressed"}
}

// Validate checks the options for consistency.
func (o IPCWriteOptions) Validate() error {
	if err := validMode(o.Mode); err != nil {
		return err
	}
	return oneOf("write_compression", o.Compression, []string{"uncompressed", "lz4", "zstd"})
}

// JSONFormat selects between one JSON array and newline delimited objects.
type JSONFormat string

const (
	// JSONArray writes a single array holding one object per row.
	JSONArray JSONFormat = "json"
	// JSONLines writes one object per line.
	JSONLines JSONFormat = "json_lines"
)

// JSONWriteOptions configures WriteJSON.
type JSONWriteOptions struct {
	Mode             WriteMode  `mapstructure:"write_mode"`
	Format           JSONFormat `mapstructure:"write_json_format"`
	Compression      string     `mapstructure:"write_compression"`
	CompressionLevel int        `mapstructure:"write_compression_level"`
}

// DefaultJSONWriteOptions writes an uncompressed JSON array.
func DefaultJSONWriteOptions() JSONWriteOptions {
	return JSONWriteOptions{
		Mode:             WriteModeError,
		Format:           JSONArray,
		CompressionLevel: int(compression.Default),
	}
}

// Validate checks the options for consistency.
func (o JSONWriteOptions) Validate() error {
	if err := validMode(o.Mode); err != nil {
		return err
	}
	if err := oneOf("write_json_format", string(o.Format), []string{string(JSONArray), string(JSONLines)}); err != nil {
		return err
	}
	return validCompression("write_compression", o.Compression)
}

// AvroWriteOptions configures WriteAvro.
type AvroWriteOptions struct {
	Mode        WriteMode `mapstructure:"write_mode"`
	Compression string    `mapstructure:"write_compression"`
	// RecordName names the top-level Avro record
	RecordName  string    `mapstructure:"write_avro_record_name"`
}

// DefaultAvroWriteOptions writes an uncompressed container file.
func DefaultAvroWriteOptions() AvroWriteOptions {
	return AvroWriteOptions{Mode: WriteModeError, Compression: "uncompressed", RecordName: "row"}
}

// Validate checks the options for consistency.
func (o AvroWriteOptions) Validate() error {
	if err := validMode(o.Mode); err != nil {
		return err
	}
	if o.RecordName == "" {
		return invalid("write_avro_record_name", o.RecordName, "must not be empty")
	}
	return oneOf("write_compression", o.Compression, []string{"uncompressed", "deflate", "snappy"})
}

// DecodeOptions overlays an option bag onto dst. Values may be strings, as
// they arrive from the command line, and are converted to the field types.
// Unknown keys are rejected. dst is validated after decoding.
func DecodeOptions[T Validator](bag map[string]any, dst *T) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           dst,
	})
	if err != nil {
		return colerrors.Wrap(err, colerrors.ErrorTypeInternal, "create option decoder")
	}
	if err := dec.Decode(bag); err != nil {
		return colerrors.Wrap(err, colerrors.ErrorTypeValidation, "decode options")
	}
	return (*dst).Validate()
}

func invalid(option string, value any, reason string) error {
	return colerrors.New(colerrors.ErrorTypeValidation, option+" "+reason).
		WithDetail("option", option).
		WithDetail("value", value)
}

func nonNegative(option string, v int) error {
	if v < 0 {
		return invalid(option, v, "must not be negative")
	}
	return nil
}

func singleRune(option, s string, allowEmpty bool) error {
	if s == "" && allowEmpty {
		return nil
	}
	if utf8.RuneCountInString(s) != 1 || s == "\n" || s == "\r" || s == `"` {
		return invalid(option, s, "must be a single character other than a quote or line break")
	}
	return nil
}

func oneOf(option, v string, allowed []string) error {
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return nil
		}
	}
	return invalid(option, v, "must be one of "+strings.Join(allowed, ", "))
}

func validMode(m WriteMode) error {
	return oneOf("write_mode", string(m), []string{string(WriteModeError), string(WriteModeOverwrite)})
}

func validCompression(option, name string) error {
	if _, err := compression.ParseAlgorithm(name); err != nil {
		return invalid(option, name, err.Error())
	}
	return nil
}

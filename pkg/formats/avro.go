package formats

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/colframe/pkg/colerrors"
	"github.com/ajitpratap0/colframe/pkg/frame"
)

var avroInvalidName = regexp.MustCompile(`[^A-Za-z0-9_]`)

// WriteAvro writes f as an Avro object container file. A column becomes a
// nullable union only when it holds nulls.
func (h *Handler) WriteAvro(ctx context.Context, f *frame.Frame, path string, opts AvroWriteOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	return h.write(ctx, Avro, f, path, func(context.Context) error {
		rec := f.Record()
		sb := &avroSchemaBuilder{names: map[string]struct{}{}}
		root, err := sb.record(avroName(opts.RecordName), rec.Schema().Fields(), rec.Columns())
		if err != nil {
			return err
		}
		schema, err := json.Marshal(root.schema)
		if err != nil {
			return colerrors.Wrap(err, colerrors.ErrorTypeInternal, "encode avro schema")
		}
		codec, err := goavro.NewCodec(string(schema))
		if err != nil {
			return colerrors.Wrap(err, colerrors.ErrorTypeInternal, "compile avro schema").
				WithDetail("schema", string(schema))
		}

		out, err := createOutput(path, opts.Mode)
		if err != nil {
			return err
		}
		return finishOutput(out, path, func() error {
			bw := bufio.NewWriter(out)
			w, err := goavro.NewOCFWriter(goavro.OCFConfig{
				W:               bw,
				Codec:           codec,
				CompressionName: avroCompression(opts.Compression),
			})
			if err != nil {
				return colerrors.Wrap(err, colerrors.ErrorTypeFile, "create avro writer")
			}

			const batch = 1024
			natives := make([]interface{}, 0, batch)
			for row := 0; row < int(rec.NumRows()); row++ {
				natives = append(natives, root.native(rec.Columns(), row))
				if len(natives) == batch || row == int(rec.NumRows())-1 {
					if err := w.Append(natives); err != nil {
						return colerrors.Wrap(err, colerrors.ErrorTypeData, "append avro rows").
							WithDetail("row", row)
					}
					natives = natives[:0]
				}
			}
			if err := bw.Flush(); err != nil {
				return fileError(err, "flush avro", path)
			}
			return nil
		}())
	})
}

func avroCompression(name string) string {
	switch strings.ToLower(name) {
	case "deflate":
		return goavro.CompressionDeflateLabel
	case "snappy":
		return goavro.CompressionSnappyLabel
	default:
		return goavro.CompressionNullLabel
	}
}

func avroName(s string) string {
	s = avroInvalidName.ReplaceAllString(s, "_")
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		s = "_" + s
	}
	return s
}

// avroNode pairs an Avro schema fragment with the conversion of an Arrow
// value to the native form goavro expects for it.
type avroNode struct {
	schema any
	// union is the branch name when the node is wrapped in a nullable union
	union  string
	native func(arr arrow.Array, i int) any
}

func (n avroNode) value(arr arrow.Array, i int) any {
	if arr.IsNull(i) {
		return nil
	}
	v := n.native(arr, i)
	if n.union != "" {
		return goavro.Union(n.union, v)
	}
	return v
}

type avroRecord struct {
	schema any
	names  []string
	fields []avroNode
}

func (r avroRecord) native(cols []arrow.Array, i int) map[string]any {
	m := make(map[string]any, len(cols))
	for j, col := range cols {
		m[r.names[j]] = r.fields[j].value(col, i)
	}
	return m
}

type avroSchemaBuilder struct {
	names map[string]struct{}
}

func (b *avroSchemaBuilder) record(name string, fields []arrow.Field, cols []arrow.Array) (avroRecord, error) {
	if _, dup := b.names[name]; dup {
		return avroRecord{}, colerrors.New(colerrors.ErrorTypeCapability, "avro record name is not unique").
			WithDetail("record", name)
	}
	b.names[name] = struct{}{}

	seen := make(map[string]string, len(fields))
	schemaFields := make([]any, len(fields))
	names := make([]string, len(fields))
	nodes := make([]avroNode, len(fields))
	for i, fd := range fields {
		fname := avroName(fd.Name)
		if prev, dup := seen[fname]; dup {
			return avroRecord{}, colerrors.Newf(colerrors.ErrorTypeCapability,
				"columns %q and %q map to the same avro field name %q", prev, fd.Name, fname)
		}
		seen[fname] = fd.Name

		node, err := b.node(name+"_"+fname, cols[i])
		if err != nil {
			return avroRecord{}, colerrors.Wrap(err, colerrors.ErrorTypeCapability, "map column to avro").
				WithDetail("column", fd.Name)
		}
		field := map[string]any{"name": fname, "type": node.schema}
		if node.union != "" {
			field["default"] = nil
		}
		schemaFields[i] = field
		names[i] = fname
		nodes[i] = node
	}
	return avroRecord{
		schema: map[string]any{"type": "record", "name": name, "fields": schemaFields},
		names:  names,
		fields: nodes,
	}, nil
}

// node maps arr's type. Nullability is decided by the data in arr.
func (b *avroSchemaBuilder) node(name string, arr arrow.Array) (avroNode, error) {
	var (
		schema any
		branch string
		native func(arrow.Array, int) any
	)
	switch dt := arr.DataType().(type) {
	case *arrow.Int32Type:
		schema, branch = "int", "int"
		native = func(a arrow.Array, i int) any { return a.(*array.Int32).Value(i) }
	case *arrow.Int64Type:
		schema, branch = "long", "long"
		native = func(a arrow.Array, i int) any { return a.(*array.Int64).Value(i) }
	case *arrow.Float32Type:
		schema, branch = "float", "float"
		native = func(a arrow.Array, i int) any { return a.(*array.Float32).Value(i) }
	case *arrow.Float64Type:
		schema, branch = "double", "double"
		native = func(a arrow.Array, i int) any { return a.(*array.Float64).Value(i) }
	case *arrow.BooleanType:
		schema, branch = "boolean", "boolean"
		native = func(a arrow.Array, i int) any { return a.(*array.Boolean).Value(i) }
	case *arrow.StringType:
		schema, branch = "string", "string"
		native = func(a arrow.Array, i int) any { return a.(*array.String).Value(i) }
	case *arrow.Date32Type:
		schema, branch = map[string]any{"type": "int", "logicalType": "date"}, "int.date"
		native = func(a arrow.Array, i int) any { return int32(a.(*array.Date32).Value(i)) }
	case *arrow.Time64Type:
		unit := dt.Unit
		schema, branch = map[string]any{"type": "long", "logicalType": "time-micros"}, "long.time-micros"
		native = func(a arrow.Array, i int) any {
			return (time.Duration(a.(*array.Time64).Value(i)) * unit.Multiplier()).Microseconds()
		}
	case *arrow.TimestampType:
		unit := dt.Unit
		schema, branch = map[string]any{"type": "long", "logicalType": "timestamp-micros"}, "long.timestamp-micros"
		native = func(a arrow.Array, i int) any { return a.(*array.Timestamp).Value(i).ToTime(unit).UnixMicro() }
	case *arrow.ListType:
		list := arr.(*array.List)
		items, err := b.node(name, list.ListValues())
		if err != nil {
			return avroNode{}, err
		}
		schema, branch = map[string]any{"type": "array", "items": items.schema}, "array"
		native = func(a arrow.Array, i int) any {
			l := a.(*array.List)
			start, end := l.ValueOffsets(i)
			out := make([]any, 0, end-start)
			for j := start; j < end; j++ {
				out = append(out, items.value(l.ListValues(), int(j)))
			}
			return out
		}
	case *arrow.StructType:
		st := arr.(*array.Struct)
		children := make([]arrow.Array, st.NumField())
		for j := range children {
			children[j] = st.Field(j)
		}
		rec, err := b.record(name, dt.Fields(), children)
		if err != nil {
			return avroNode{}, err
		}
		schema, branch = rec.schema, name
		native = func(a arrow.Array, i int) any {
			s := a.(*array.Struct)
			cols := make([]arrow.Array, s.NumField())
			for j := range cols {
				cols[j] = s.Field(j)
			}
			return rec.native(cols, i)
		}
	default:
		return avroNode{}, fmt.Errorf("no avro type for %s", dt)
	}

	if arr.NullN() == 0 {
		return avroNode{schema: schema, native: native}, nil
	}
	return avroNode{schema: []any{"null", schema}, union: branch, native: native}, nil
}

package formats

import (
	"bufio"
	"bytes"
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/goccy/go-json"

	"github.com/ajitpratap0/colframe/pkg/colerrors"
	"github.com/ajitpratap0/colframe/pkg/engine"
	"github.com/ajitpratap0/colframe/pkg/frame"
	"github.com/ajitpratap0/colframe/pkg/series"
)

const maxLineSize = 64 << 20

// ScanNDJSON reads newline delimited JSON objects. The schema is inferred
// from the first InferSchemaLength lines: numbers widen from Int64 to
// Float64, objects become structs whose fields are the union of the keys
// seen, and fields that were always null are read as strings.
func (h *Handler) ScanNDJSON(ctx context.Context, path string, opts NDJSONScanOptions) (*frame.Frame, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return h.scan(ctx, NDJSON, path, func(context.Context) (*frame.Frame, error) {
		schema, err := inferNDJSONSchema(path, opts)
		if err != nil {
			return nil, err
		}

		in, err := openInput(path, opts.Compression)
		if err != nil {
			return nil, err
		}
		defer in.Close()

		rd := array.NewJSONReader(in, schema, array.WithAllocator(h.mem), array.WithChunk(opts.BatchSize))
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

func inferNDJSONSchema(path string, opts NDJSONScanOptions) (*arrow.Schema, error) {
	in, err := openInput(path, opts.Compression)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	row := series.StructOf()
	for line, seen := 0, 0; seen < opts.InferSchemaLength && sc.Scan(); line++ {
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		seen++

		dec := json.NewDecoder(bytes.NewReader(text))
		dec.UseNumber()
		v, err := decodeJSONValue(dec)
		if err != nil {
			return nil, colerrors.Wrap(err, colerrors.ErrorTypeData, "parse JSON line").
				WithDetail("path", path).
				WithDetail("line", line+1)
		}
		obj, ok := v.(*jsonObject)
		if !ok {
			return nil, colerrors.New(colerrors.ErrorTypeData, "JSON line is not an object").
				WithDetail("path", path).
				WithDetail("line", line+1)
		}
		k, err := jsonKind(obj)
		if err == nil {
			row, err = mergeJSONKinds(row, k)
		}
		if err != nil {
			return nil, colerrors.Wrap(err, colerrors.ErrorTypeData, "infer JSON schema").
				WithDetail("path", path).
				WithDetail("line", line+1)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fileError(err, "read JSON lines", path)
	}

	dt, err := engine.ArrowType(settle(row))
	if err != nil {
		return nil, colerrors.Wrap(err, colerrors.ErrorTypeInternal, "map inferred schema")
	}
	return arrow.NewSchema(dt.(*arrow.StructType).Fields(), nil), nil
}

// jsonObject keeps object keys in document order.
type jsonObject struct {
	keys   []string
	values map[string]any
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch delim {
	case '{':
		obj := &jsonObject{values: map[string]any{}}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, _ := keyTok.(string)
			v, err := decodeJSONValue(dec)
			if err != nil {
				return nil, err
			}
			if _, dup := obj.values[key]; !dup {
				obj.keys = append(obj.keys, key)
			}
			obj.values[key] = v
		}
		_, err := dec.Token()
		return obj, err
	case '[':
		var elems []any
		for dec.More() {
			v, err := decodeJSONValue(dec)
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
		}
		_, err := dec.Token()
		return elems, err
	default:
		return nil, fmt.Errorf("unexpected delimiter %s", delim)
	}
}

// jsonKind classifies a decoded value. null yields an unresolved kind.
func jsonKind(v any) (series.Kind, error) {
	switch x := v.(type) {
	case nil:
		return series.Kind{}, nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return series.Classify(i)
		}
		f, err := x.Float64()
		if err != nil {
			return series.Kind{}, err
		}
		return series.Classify(f)
	case []any:
		elem := series.Kind{}
		for _, e := range x {
			k, err := jsonKind(e)
			if err != nil {
				return series.Kind{}, err
			}
			if elem, err = mergeJSONKinds(elem, k); err != nil {
				return series.Kind{}, err
			}
		}
		return series.ListOf(elem), nil
	case *jsonObject:
		fields := make([]series.Field, len(x.keys))
		for i, key := range x.keys {
			k, err := jsonKind(x.values[key])
			if err != nil {
				return series.Kind{}, fmt.Errorf("field %s: %w", key, err)
			}
			fields[i] = series.Field{Name: key, Kind: k}
		}
		return series.StructOf(fields...), nil
	default:
		return series.Classify(x)
	}
}

// mergeJSONKinds unifies the kinds of two values seen at the same place.
func mergeJSONKinds(a, b series.Kind) (series.Kind, error) {
	switch {
	case a.ID == series.KindInvalid:
		return b, nil
	case b.ID == series.KindInvalid:
		return a, nil
	case isNumber(a) && isNumber(b):
		if a.ID == series.KindFloat64 || b.ID == series.KindFloat64 {
			return series.Float64, nil
		}
		return series.Int64, nil
	case a.ID != b.ID:
		return series.Kind{}, fmt.Errorf("conflicting types %s and %s", a, b)
	case a.IsList():
		elem, err := mergeJSONKinds(deref(a.Elem), deref(b.Elem))
		if err != nil {
			return series.Kind{}, err
		}
		return series.ListOf(elem), nil
	case a.IsStruct():
		fields := append([]series.Field(nil), a.Fields...)
		index := make(map[string]int, len(fields))
		for i, f := range fields {
			index[f.Name] = i
		}
		for _, f := range b.Fields {
			i, ok := index[f.Name]
			if !ok {
				index[f.Name] = len(fields)
				fields = append(fields, f)
				continue
			}
			k, err := mergeJSONKinds(fields[i].Kind, f.Kind)
			if err != nil {
				return series.Kind{}, fmt.Errorf("field %s: %w", f.Name, err)
			}
			fields[i].Kind = k
		}
		return series.StructOf(fields...), nil
	default:
		return a, nil
	}
}

// settle replaces kinds that were only ever null with Utf8String.
func settle(k series.Kind) series.Kind {
	switch k.ID {
	case series.KindInvalid:
		return series.Utf8String
	case series.KindList:
		return series.ListOf(settle(deref(k.Elem)))
	case series.KindStruct:
		fields := make([]series.Field, len(k.Fields))
		for i, f := range k.Fields {
			fields[i] = series.Field{Name: f.Name, Kind: settle(f.Kind)}
		}
		return series.StructOf(fields...)
	default:
		return k
	}
}

func isNumber(k series.Kind) bool {
	return k.ID == series.KindInt64 || k.ID == series.KindFloat64
}

func deref(k *series.Kind) series.Kind {
	if k == nil {
		return series.Kind{}
	}
	return *k
}

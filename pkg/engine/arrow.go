// Package engine stores columns built by the series package as Apache Arrow
// arrays. Arrow is the columnar engine: every series.Handle it returns is an
// arrow.Array, and List and Struct columns are assembled from their children
// without going back through Go values.
package engine

import (
	"fmt"
	"math"
	"time"

	"cloud.google.com/go/civil"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/samber/lo"

	"github.com/ajitpratap0/colframe/pkg/series"
)

// Arrow implements series.Engine on top of arrow-go. It is safe for
// concurrent use when its allocator is.
type Arrow struct {
	mem memory.Allocator
}

var _ series.Engine = (*Arrow)(nil)

// NewArrow returns an engine allocating from mem, or from the default Go
// allocator when mem is nil.
func NewArrow(mem memory.Allocator) *Arrow {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &Arrow{mem: mem}
}

// Allocator returns the allocator arrays are built with.
func (e *Arrow) Allocator() memory.Allocator { return e.mem }

// MakePrimitiveColumn builds a flat Arrow array of kind from values. Column
// names live in schemas and struct fields, so name is not stored on the array.
func (e *Arrow) MakePrimitiveColumn(_ string, kind series.Kind, values []any) (series.Handle, error) {
	switch kind.ID {
	case series.KindInt32:
		return appendAll(array.NewInt32Builder(e.mem), kind, values, func(v any) (int32, bool) {
			x, ok := v.(int32)
			return x, ok
		})
	case series.KindInt64:
		return appendAll(array.NewInt64Builder(e.mem), kind, values, toInt64)
	case series.KindFloat32:
		return appendAll(array.NewFloat32Builder(e.mem), kind, values, func(v any) (float32, bool) {
			x, ok := v.(float32)
			return x, ok
		})
	case series.KindFloat64:
		return appendAll(array.NewFloat64Builder(e.mem), kind, values, func(v any) (float64, bool) {
			x, ok := v.(float64)
			return x, ok
		})
	case series.KindBoolean:
		return appendAll(array.NewBooleanBuilder(e.mem), kind, values, func(v any) (bool, bool) {
			x, ok := v.(bool)
			return x, ok
		})
	case series.KindUtf8String:
		return appendAll(array.NewStringBuilder(e.mem), kind, values, func(v any) (string, bool) {
			x, ok := v.(string)
			return x, ok
		})
	case series.KindDate:
		return appendAll(array.NewDate32Builder(e.mem), kind, values, toDate32)
	case series.KindTime:
		return appendAll(array.NewTime64Builder(e.mem, TimeType.(*arrow.Time64Type)), kind, values, toTime64)
	case series.KindDateTime:
		return appendAll(array.NewTimestampBuilder(e.mem, DateTimeType), kind, values, toTimestamp)
	default:
		return nil, fmt.Errorf("kind %s is not a primitive kind", kind)
	}
}

// MakeCompositeColumn builds a List array with one row per child, or a
// Struct array with one field per child.
func (e *Arrow) MakeCompositeColumn(_ string, kind series.Kind, children []series.Handle) (series.Handle, error) {
	arrs := make([]arrow.Array, len(children))
	for i, h := range children {
		arr, ok := h.(arrow.Array)
		if !ok {
			return nil, fmt.Errorf("child %d: handle %T is not an arrow array", i, h)
		}
		arrs[i] = arr
	}

	switch kind.ID {
	case series.KindList:
		return e.makeList(kind, arrs)
	case series.KindStruct:
		if len(arrs) != len(kind.Fields) {
			return nil, fmt.Errorf("struct kind has %d fields but %d children were given", len(kind.Fields), len(arrs))
		}
		names := lo.Map(kind.Fields, func(f series.Field, _ int) string { return f.Name })
		st, err := array.NewStructArray(arrs, names)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("kind %s is not a composite kind", kind)
	}
}

// makeList concatenates the per-row children into one values array and
// records each child's extent in the offsets buffer.
func (e *Arrow) makeList(kind series.Kind, children []arrow.Array) (arrow.Array, error) {
	elemType, err := ArrowType(*kind.Elem)
	if err != nil {
		return nil, err
	}

	offsets := make([]int32, len(children)+1)
	total := 0
	for i, child := range children {
		if !arrow.TypeEqual(child.DataType(), elemType) {
			return nil, fmt.Errorf("row %d: child type %s does not match element type %s", i, child.DataType(), elemType)
		}
		total += child.Len()
		if total > math.MaxInt32 {
			return nil, fmt.Errorf("list values exceed %d elements", math.MaxInt32)
		}
		offsets[i+1] = int32(total)
	}

	values, err := e.concat(elemType, children)
	if err != nil {
		return nil, err
	}
	defer values.Release()

	offsetBuf := memory.NewBufferBytes(arrow.Int32Traits.CastToBytes(offsets))
	data := array.NewData(arrow.ListOf(elemType), len(children),
		[]*memory.Buffer{nil, offsetBuf},
		[]arrow.ArrayData{values.Data()},
		0, 0)
	defer data.Release()

	return array.NewListData(data), nil
}

func (e *Arrow) concat(dt arrow.DataType, arrs []arrow.Array) (arrow.Array, error) {
	if len(arrs) == 0 {
		b := array.NewBuilder(e.mem, dt)
		defer b.Release()
		return b.NewArray(), nil
	}
	if len(arrs) == 1 {
		arrs[0].Retain()
		return arrs[0], nil
	}
	return array.Concatenate(arrs, e.mem)
}

type valueBuilder[T any] interface {
	Append(T)
	Reserve(int)
	NewArray() arrow.Array
	Release()
}

func appendAll[T any, B valueBuilder[T]](b B, kind series.Kind, values []any, conv func(any) (T, bool)) (series.Handle, error) {
	defer b.Release()
	b.Reserve(len(values))
	for i, v := range values {
		x, ok := conv(v)
		if !ok {
			return nil, fmt.Errorf("value %d: %T cannot be stored in a %s column", i, v, kind)
		}
		b.Append(x)
	}
	return b.NewArray(), nil
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	}
	return 0, false
}

func toDate32(v any) (arrow.Date32, bool) {
	d, ok := v.(civil.Date)
	if !ok {
		return 0, false
	}
	return arrow.Date32FromTime(d.In(time.UTC)), true
}

func toTime64(v any) (arrow.Time64, bool) {
	t, ok := v.(civil.Time)
	if !ok {
		return 0, false
	}
	us := (int64(t.Hour)*3600+int64(t.Minute)*60+int64(t.Second))*1_000_000 + int64(t.Nanosecond)/1_000
	return arrow.Time64(us), true
}

func toTimestamp(v any) (arrow.Timestamp, bool) {
	switch x := v.(type) {
	case civil.DateTime:
		return arrow.Timestamp(x.In(time.UTC).UnixMicro()), true
	case time.Time:
		return arrow.Timestamp(x.UnixMicro()), true
	}
	return 0, false
}

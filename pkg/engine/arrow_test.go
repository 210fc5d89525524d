package engine

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/colframe/pkg/series"
)

func TestArrowTypeRoundTrip(t *testing.T) {
	kinds := []series.Kind{
		series.Int32, series.Int64, series.Float32, series.Float64,
		series.Boolean, series.Utf8String, series.Date, series.Time, series.DateTime,
		series.ListOf(series.ListOf(series.Utf8String)),
		series.StructOf(
			series.Field{Name: "ids", Kind: series.ListOf(series.Int64)},
			series.Field{Name: "at", Kind: series.DateTime},
		),
	}
	for _, k := range kinds {
		t.Run(k.String(), func(t *testing.T) {
			dt, err := ArrowType(k)
			require.NoError(t, err)
			back, err := KindOf(dt)
			require.NoError(t, err)
			assert.True(t, back.Equal(k), "got %s", back)
		})
	}
}

func TestArrowTypeUnresolved(t *testing.T) {
	_, err := ArrowType(series.ListOf(series.Kind{}))
	assert.Error(t, err)
	_, err = ArrowType(series.Kind{ID: series.KindList})
	assert.Error(t, err)
}

func TestKindOfRejectsForeignTypes(t *testing.T) {
	for _, dt := range []arrow.DataType{
		arrow.PrimitiveTypes.Uint8,
		arrow.BinaryTypes.Binary,
		&arrow.Decimal128Type{Precision: 10, Scale: 2},
		arrow.StructOf(arrow.Field{Name: "u", Type: arrow.PrimitiveTypes.Uint16}),
	} {
		_, err := KindOf(dt)
		assert.Error(t, err, dt.String())
	}

	k, err := KindOf(arrow.LargeListOf(arrow.BinaryTypes.LargeString))
	require.NoError(t, err)
	assert.True(t, k.Equal(series.ListOf(series.Utf8String)))
}

func TestMakePrimitiveColumn(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	e := NewArrow(mem)

	h, err := e.MakePrimitiveColumn("n", series.Int64, []any{1, int64(2)})
	require.NoError(t, err)
	defer h.Release()
	assert.Equal(t, []int64{1, 2}, h.(*array.Int64).Int64Values())

	ts, err := e.MakePrimitiveColumn("ts", series.DateTime, []any{
		civil.DateTime{Date: civil.Date{Year: 1970, Month: time.January, Day: 1}, Time: civil.Time{Second: 1}},
		time.Unix(2, 0),
	})
	require.NoError(t, err)
	defer ts.Release()
	assert.Equal(t, arrow.Timestamp(1_000_000), ts.(*array.Timestamp).Value(0))
	assert.Equal(t, arrow.Timestamp(2_000_000), ts.(*array.Timestamp).Value(1))
}

func TestMakePrimitiveColumnRejectsMismatch(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	e := NewArrow(mem)

	_, err := e.MakePrimitiveColumn("n", series.Int32, []any{int32(1), int64(2)})
	assert.ErrorContains(t, err, "value 1")

	_, err = e.MakePrimitiveColumn("l", series.ListOf(series.Int32), nil)
	assert.Error(t, err)
}

func TestMakeListColumn(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	e := NewArrow(mem)

	a, err := e.MakePrimitiveColumn("", series.Utf8String, []any{"a", "b"})
	require.NoError(t, err)
	defer a.Release()
	b, err := e.MakePrimitiveColumn("", series.Utf8String, []any{})
	require.NoError(t, err)
	defer b.Release()
	c, err := e.MakePrimitiveColumn("", series.Utf8String, []any{"c"})
	require.NoError(t, err)
	defer c.Release()

	h, err := e.MakeCompositeColumn("l", series.ListOf(series.Utf8String), []series.Handle{a, b, c})
	require.NoError(t, err)
	defer h.Release()

	l := h.(*array.List)
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, []int32{0, 2, 2, 3}, l.Offsets())
	vals := l.ListValues().(*array.String)
	assert.Equal(t, "c", vals.Value(2))
}

func TestMakeListColumnNoRows(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	e := NewArrow(mem)

	h, err := e.MakeCompositeColumn("l", series.ListOf(series.Float64), nil)
	require.NoError(t, err)
	defer h.Release()
	assert.Equal(t, 0, h.Len())
	assert.True(t, arrow.TypeEqual(arrow.ListOf(arrow.PrimitiveTypes.Float64), h.(arrow.Array).DataType()))
}

func TestMakeListColumnTypeMismatch(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	e := NewArrow(mem)

	a, err := e.MakePrimitiveColumn("", series.Int32, []any{int32(1)})
	require.NoError(t, err)
	defer a.Release()

	_, err = e.MakeCompositeColumn("l", series.ListOf(series.Int64), []series.Handle{a})
	assert.ErrorContains(t, err, "row 0")
}

type foreignHandle struct{}

func (foreignHandle) Len() int { return 0 }
func (foreignHandle) Release() {}

func TestMakeCompositeColumnForeignHandle(t *testing.T) {
	e := NewArrow(nil)
	_, err := e.MakeCompositeColumn("l", series.ListOf(series.Int64), []series.Handle{foreignHandle{}})
	assert.ErrorContains(t, err, "not an arrow array")
}

func TestMakeStructColumn(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)
	e := NewArrow(mem)

	a, err := e.MakePrimitiveColumn("", series.Int64, []any{1, 2})
	require.NoError(t, err)
	defer a.Release()
	b, err := e.MakePrimitiveColumn("", series.Boolean, []any{true, false})
	require.NoError(t, err)
	defer b.Release()

	kind := series.StructOf(series.Field{Name: "a", Kind: series.Int64}, series.Field{Name: "b", Kind: series.Boolean})
	h, err := e.MakeCompositeColumn("s", kind, []series.Handle{a, b})
	require.NoError(t, err)
	defer h.Release()

	want, err := ArrowType(kind)
	require.NoError(t, err)
	assert.True(t, arrow.TypeEqual(want, h.(arrow.Array).DataType()))

	_, err = e.MakeCompositeColumn("s", kind, []series.Handle{a})
	assert.Error(t, err)
}

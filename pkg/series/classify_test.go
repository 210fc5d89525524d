package series

import (
	"container/list"
	"errors"
	"slices"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	genericlist "github.com/bahlo/generic-list-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyScalars(t *testing.T) {
	day := civil.Date{Year: 2024, Month: time.March, Day: 1}
	clock := civil.Time{Hour: 13, Minute: 30, Second: 5}

	tests := []struct {
		name   string
		sample any
		want   Kind
	}{
		{"int32", int32(7), Int32},
		{"int64", int64(7), Int64},
		{"int", 7, Int64},
		{"float32", float32(1.5), Float32},
		{"float64", 1.5, Float64},
		{"bool", true, Boolean},
		{"date", day, Date},
		{"time", clock, Time},
		{"civil datetime", civil.DateTime{Date: day, Time: clock}, DateTime},
		{"time.Time", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), DateTime},
		{"string", "seven", Utf8String},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.sample)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)

			again, err := Classify(tt.sample)
			require.NoError(t, err)
			assert.True(t, got.Equal(again), "classification is not deterministic")
		})
	}
}

func TestClassifyContainers(t *testing.T) {
	l := list.New()
	l.PushBack(1.5)
	gl := genericlist.New[string]()
	gl.PushBack("a")

	tests := []struct {
		name   string
		sample any
		want   Kind
	}{
		{"slice", []int32{1, 2}, ListOf(Int32)},
		{"array", [2]bool{true, false}, ListOf(Boolean)},
		{"any slice", []any{"x"}, ListOf(Utf8String)},
		{"nested", [][]int64{{1}, {2, 3}}, ListOf(ListOf(Int64))},
		{"iterator", slices.Values([]int64{1, 2}), ListOf(Int64)},
		{"container/list", l, ListOf(Float64)},
		{"generic list", gl, ListOf(Utf8String)},
		{"empty slice", []int64{}, ListOf(Kind{})},
		{"slice of empty", [][]int64{{}}, ListOf(ListOf(Kind{}))},
		{"empty then filled", [][]int64{{}, {}, {7}}, ListOf(ListOf(Int64))},
		{"mismatch keeps first kind", []any{int64(1), "a"}, ListOf(Int64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.sample)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s, want %s", got, tt.want)
		})
	}
}

func TestClassifyColumn(t *testing.T) {
	col := &Column{name: "s", kind: StructOf(Field{Name: "a", Kind: Int64}), length: 1}
	got, err := Classify(col)
	require.NoError(t, err)
	assert.True(t, got.IsStruct())
}

func TestClassifyUnsupported(t *testing.T) {
	for _, sample := range []any{uint8(1), struct{}{}, map[string]int{"a": 1}, nil, []any{int16(1)}} {
		_, err := Classify(sample)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrUnsupportedType), "%T: %v", sample, err)
	}

	_, err := Classify(uint16(3))
	var ute *UnsupportedTypeError
	require.True(t, errors.As(err, &ute))
	assert.Equal(t, "uint16", ute.TypeName)
}

func TestClassifyMaxDepth(t *testing.T) {
	var v any = int64(1)
	for i := 0; i < DefaultMaxDepth+1; i++ {
		v = []any{v}
	}
	_, err := Classify(v)

	var mde *MaxDepthExceededError
	require.True(t, errors.As(err, &mde))
	assert.Equal(t, DefaultMaxDepth, mde.Limit)
}

func TestKindString(t *testing.T) {
	k := StructOf(
		Field{Name: "ids", Kind: ListOf(ListOf(Int64))},
		Field{Name: "ok", Kind: Boolean},
	)
	assert.Equal(t, "Struct(ids: List(List(Int64)), ok: Boolean)", k.String())
	assert.Equal(t, "List(<unresolved>)", ListOf(Kind{}).String())
	assert.Equal(t, 2, ListOf(ListOf(Int64)).Depth())
	assert.Equal(t, 0, k.Depth())
}

func TestUnify(t *testing.T) {
	got, ok := unify(ListOf(ListOf(Kind{})), ListOf(ListOf(Float64)))
	require.True(t, ok)
	assert.True(t, got.Equal(ListOf(ListOf(Float64))))
	assert.True(t, got.Resolved())

	_, ok = unify(ListOf(Int64), ListOf(Int32))
	assert.False(t, ok)

	_, ok = unify(ListOf(Int64), Int64)
	assert.False(t, ok)

	_, ok = unify(ListOf(Int64), ListOf(ListOf(Int64)))
	assert.False(t, ok)
}

package series_test

import (
	"errors"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/colframe/pkg/series"
)

func mustBuild(t *testing.T, b *series.Builder, name string, rows []any) *series.Column {
	t.Helper()
	col, err := b.BuildSeries(name, rows)
	require.NoError(t, err)
	return col
}

func TestBuildStruct(t *testing.T) {
	b := newBuilder(t)
	a := mustBuild(t, b, "a", []any{1, 2, 3})
	flag := mustBuild(t, b, "b", []any{true, false, true})

	st, err := b.BuildStruct("s", []series.NamedColumn{series.Named("a", a), series.Named("b", flag)})
	require.NoError(t, err)
	defer st.Release()

	assert.Equal(t, "s", st.Name())
	assert.Equal(t, 3, st.Len())
	assert.Equal(t, "Struct(a: Int64, b: Boolean)", st.Kind().String())
	assert.Equal(t, 2, st.NumChildren())
	assert.Same(t, a, st.Child(0))
	assert.Same(t, flag, st.Child(1))

	arr := st.Handle().(*array.Struct)
	dt := arr.DataType().(*arrow.StructType)
	assert.Equal(t, "a", dt.Field(0).Name)
	assert.Equal(t, "b", dt.Field(1).Name)
	assert.Equal(t, []int64{1, 2, 3}, arr.Field(0).(*array.Int64).Int64Values())
	assert.True(t, arr.Field(1).(*array.Boolean).Value(2))
}

func TestBuildStructKeepsChildNames(t *testing.T) {
	b := newBuilder(t)
	a := mustBuild(t, b, "original", []any{"x"})

	st, err := b.BuildStruct("s", []series.NamedColumn{series.Named("renamed", a)})
	require.NoError(t, err)
	defer st.Release()

	assert.Equal(t, "original", st.Child(0).Name())
	assert.Equal(t, "renamed", st.Kind().Fields[0].Name)
}

func TestBuildStructLengthMismatch(t *testing.T) {
	b := newBuilder(t)
	a := mustBuild(t, b, "a", []any{1, 2, 3})
	defer a.Release()
	c := mustBuild(t, b, "b", []any{true, false})
	defer c.Release()

	_, err := b.BuildStruct("s", []series.NamedColumn{series.Named("a", a), series.Named("b", c)})

	var lme *series.LengthMismatchError
	require.True(t, errors.As(err, &lme))
	assert.Equal(t, series.LengthMismatchError{FieldA: "a", LengthA: 3, FieldB: "b", LengthB: 2}, *lme)
	assert.ErrorIs(t, err, series.ErrLengthMismatch)
}

func TestBuildStructInvalidFields(t *testing.T) {
	b := newBuilder(t)

	_, err := b.BuildStruct("s", nil)
	assert.ErrorIs(t, err, series.ErrEmptyInput)

	a := mustBuild(t, b, "a", []any{1})
	defer a.Release()

	_, err = b.BuildStruct("s", []series.NamedColumn{series.Named("a", a), series.Named("a", a)})
	var dfe *series.DuplicateFieldError
	require.True(t, errors.As(err, &dfe))
	assert.Equal(t, "a", dfe.Name)

	_, err = b.BuildStruct("s", []series.NamedColumn{series.Named("a", a), series.Named("b", nil)})
	assert.ErrorIs(t, err, series.ErrUnsupportedType)
}

func TestBuildStructNested(t *testing.T) {
	b := newBuilder(t)
	ids := mustBuild(t, b, "ids", []any{[]int64{1, 2}, []int64{}})
	name := mustBuild(t, b, "name", []any{"x", "y"})

	inner, err := b.BuildStruct("inner", []series.NamedColumn{series.Named("ids", ids), series.Named("name", name)})
	require.NoError(t, err)
	score := mustBuild(t, b, "score", []any{0.5, 0.25})

	outer, err := b.BuildStruct("outer", []series.NamedColumn{series.Named("inner", inner), series.Named("score", score)})
	require.NoError(t, err)
	defer outer.Release()

	assert.Equal(t, "Struct(inner: Struct(ids: List(Int64), name: Utf8String), score: Float64)", outer.Kind().String())
	assert.Equal(t, 2, outer.Len())
	assert.Equal(t, []int{2, 0}, outer.Child(0).Child(0).ChildLengths())

	arr := outer.Handle().(*array.Struct)
	list := arr.Field(0).(*array.Struct).Field(0).(*array.List)
	assert.Equal(t, []int32{0, 2, 2}, list.Offsets())
}

func TestBuildStructMaxDepth(t *testing.T) {
	lenient := newBuilder(t)
	deep := mustBuild(t, lenient, "deep", []any{[][]int64{{1}}})
	defer deep.Release()

	b := newBuilder(t, series.WithMaxDepth(1))
	_, err := b.BuildStruct("s", []series.NamedColumn{series.Named("deep", deep)})
	assert.ErrorIs(t, err, series.ErrMaxDepthExceeded)
}

func TestBuildStructEmptyColumns(t *testing.T) {
	b := newBuilder(t)
	a, err := b.BuildSeries("a", nil, series.WithKindHint(series.Int64))
	require.NoError(t, err)
	c, err := b.BuildSeries("c", nil, series.WithKindHint(series.ListOf(series.Utf8String)))
	require.NoError(t, err)

	st, err := b.BuildStruct("s", []series.NamedColumn{series.Named("a", a), series.Named("c", c)})
	require.NoError(t, err)
	defer st.Release()

	assert.Equal(t, 0, st.Len())
	assert.Equal(t, 0, st.Handle().Len())
}

func TestBuildStructRejectsSharedColumns(t *testing.T) {
	b := newBuilder(t)
	a := mustBuild(t, b, "a", []any{1, 2})
	flag := mustBuild(t, b, "flag", []any{true, false})

	first, err := b.BuildStruct("first", []series.NamedColumn{series.Named("a", a)})
	require.NoError(t, err)
	defer first.Release()

	_, err = b.BuildStruct("second", []series.NamedColumn{series.Named("flag", flag), series.Named("a", a)})
	assert.ErrorIs(t, err, series.ErrUnsupportedType)

	_, err = b.BuildStruct("twice", []series.NamedColumn{series.Named("x", flag), series.Named("y", flag)})
	assert.ErrorIs(t, err, series.ErrUnsupportedType)

	// the failed attempts left flag free for a struct of its own
	second, err := b.BuildStruct("second", []series.NamedColumn{series.Named("flag", flag)})
	require.NoError(t, err)
	second.Release()

	assert.Equal(t, []int64{1, 2}, first.Handle().(*array.Struct).Field(0).(*array.Int64).Int64Values())
}

func TestBuildStructRejectsReleasedColumns(t *testing.T) {
	b := newBuilder(t)
	a := mustBuild(t, b, "a", []any{1})
	a.Release()

	_, err := b.BuildStruct("s", []series.NamedColumn{series.Named("a", a)})
	assert.ErrorIs(t, err, series.ErrUnsupportedType)
}

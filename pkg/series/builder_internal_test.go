package series

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/colframe/pkg/colerrors"
)

// fakeHandle counts releases so tests can check nothing is left reachable.
type fakeHandle struct {
	n        int
	released *int
}

func (h *fakeHandle) Len() int { return h.n }
func (h *fakeHandle) Release() { *h.released++ }

type fakeEngine struct {
	mu         sync.Mutex
	made       int
	released   int
	failOnList bool
	primitives []string
	composites []string
}

func (e *fakeEngine) MakePrimitiveColumn(name string, kind Kind, values []any) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.made++
	e.primitives = append(e.primitives, name)
	return &fakeHandle{n: len(values), released: &e.released}, nil
}

func (e *fakeEngine) MakeCompositeColumn(name string, kind Kind, children []Handle) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failOnList && kind.IsList() {
		return nil, errors.New("offsets overflow")
	}
	e.made++
	e.composites = append(e.composites, name)
	return &fakeHandle{n: len(children), released: &e.released}, nil
}

type countingObserver struct {
	built  []string
	failed []string
}

func (o *countingObserver) ColumnBuilt(kind string, _ int, _ time.Duration) {
	o.built = append(o.built, kind)
}

func (o *countingObserver) BuildFailed(reason string) {
	o.failed = append(o.failed, reason)
}

func TestBuildOnlyOuterColumnIsNamed(t *testing.T) {
	eng := &fakeEngine{}
	b := NewBuilder(eng)

	col, err := b.BuildSeries("outer", []any{[]any{[]int64{1}}, []any{[]int64{2}, []int64{3}}})
	require.NoError(t, err)

	assert.Equal(t, []string{"", "", ""}, eng.primitives)
	assert.Equal(t, []string{"", "", "outer"}, eng.composites)
	assert.Equal(t, "outer", col.Name())
	assert.Equal(t, "", col.Child(1).Name())
	assert.Equal(t, "", col.Child(1).Child(0).Name())
}

func TestBuildEngineFailureReleasesChildren(t *testing.T) {
	eng := &fakeEngine{failOnList: true}
	obs := &countingObserver{}
	b := NewBuilder(eng, WithObserver(obs))

	col, err := b.BuildSeries("x", []any{[]int64{1, 2}, []int64{3}})
	require.Error(t, err)
	assert.Nil(t, col)
	assert.True(t, colerrors.IsType(err, colerrors.ErrorTypeEngine))
	assert.Equal(t, eng.made, eng.released)
	assert.Equal(t, []string{"engine"}, obs.failed)
}

func TestBuildInconsistentInnerRowReleasesSiblings(t *testing.T) {
	eng := &fakeEngine{}
	b := NewBuilder(eng)

	_, err := b.BuildSeries("x", []any{[]any{1, 2}, []any{3}, []any{4, "five"}})

	var ite *InconsistentTypeError
	require.True(t, errors.As(err, &ite))
	assert.Equal(t, 1, ite.RowIndex)
	assert.Equal(t, []int{2}, ite.Path)
	assert.Equal(t, 2, eng.made)
	assert.Equal(t, eng.made, eng.released)
}

func TestReleaseIsIdempotent(t *testing.T) {
	eng := &fakeEngine{}
	b := NewBuilder(eng)

	col, err := b.BuildSeries("x", []any{[]int64{1}, []int64{2}})
	require.NoError(t, err)

	col.Release()
	col.Release()
	assert.Equal(t, 3, eng.released)
}

func TestObserverSeesSuccess(t *testing.T) {
	obs := &countingObserver{}
	b := NewBuilder(&fakeEngine{}, WithObserver(obs), WithMaxDepth(0))

	_, err := b.BuildSeries("x", []any{1, 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Int64"}, obs.built)
	assert.Equal(t, DefaultMaxDepth, b.MaxDepth())
}

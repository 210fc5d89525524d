package series

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/ajitpratap0/colframe/pkg/colerrors"
)

// Observer receives the outcome of every top-level build call.
type Observer interface {
	ColumnBuilt(kind string, rows int, elapsed time.Duration)
	BuildFailed(reason string)
}

type nopObserver struct{}

func (nopObserver) ColumnBuilt(string, int, time.Duration) {}
func (nopObserver) BuildFailed(string)                     {}

// Builder turns in-memory Go values into engine-backed columns. A Builder is
// immutable after construction and safe for concurrent use.
type Builder struct {
	engine   Engine
	maxDepth int
	logger   *zap.Logger
	observer Observer
}

// Option configures a Builder.
type Option func(*Builder)

// WithMaxDepth bounds list nesting. Values below 1 are ignored.
func WithMaxDepth(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxDepth = n
		}
	}
}

// WithLogger sets the logger used for build diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithObserver registers an Observer, typically a metrics collector.
func WithObserver(o Observer) Option {
	return func(b *Builder) {
		if o != nil {
			b.observer = o
		}
	}
}

// NewBuilder returns a Builder that stores columns in engine.
func NewBuilder(engine Engine, opts ...Option) *Builder {
	b := &Builder{
		engine:   engine,
		maxDepth: DefaultMaxDepth,
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// MaxDepth returns the configured nesting bound.
func (b *Builder) MaxDepth() int { return b.maxDepth }

type buildConfig struct {
	hint Kind
}

// BuildOption configures a single BuildSeries call.
type BuildOption func(*buildConfig)

// WithKindHint makes BuildSeries trust k instead of inferring the kind from
// the first row. Rows are still validated against k.
func WithKindHint(k Kind) BuildOption {
	return func(c *buildConfig) { c.hint = k }
}

// BuildSeries builds one column named name from rows. Each row is a scalar or
// a container; all rows must share the kind of the first row (or of the hint).
// On error no column is returned and every intermediate handle is released.
func (b *Builder) BuildSeries(name string, rows []any, opts ...BuildOption) (*Column, error) {
	var cfg buildConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	start := time.Now()
	col, err := b.build(name, rows, cfg.hint, 0)
	if err != nil {
		reason := errorKind(err)
		b.observer.BuildFailed(reason)
		b.logger.Warn("series build failed",
			zap.String("name", name),
			zap.Int("rows", len(rows)),
			zap.String("reason", reason),
			zap.Error(err))
		return nil, err
	}

	b.observer.ColumnBuilt(col.kind.ID.String(), col.length, time.Since(start))
	b.logger.Debug("series built",
		zap.String("name", name),
		zap.Stringer("kind", col.kind),
		zap.Int("rows", col.length),
		zap.Int("depth", col.kind.Depth()))
	return col, nil
}

func (b *Builder) build(name string, rows []any, hint Kind, depth int) (*Column, error) {
	if hint.Depth()+depth > b.maxDepth {
		return nil, &MaxDepthExceededError{Limit: b.maxDepth}
	}

	kind, seqs, err := b.resolve(rows, hint, depth)
	if err != nil {
		return nil, err
	}

	switch {
	case kind.IsScalar():
		return b.buildScalar(name, kind, rows)
	case kind.IsList():
		return b.buildList(name, kind, seqs, depth)
	default:
		return nil, &UnsupportedTypeError{
			TypeName: kind.String(),
			Reason:   "struct columns are assembled with BuildStruct",
		}
	}
}

// resolve establishes the column kind and checks every row against it. For
// list kinds it returns the normalized sequence of each row.
func (b *Builder) resolve(rows []any, hint Kind, depth int) (Kind, []Sequence, error) {
	kind := hint
	shape := ShapeNone
	var seqs []Sequence

	for i, row := range rows {
		rk, rs, seq, err := inspect(row, depth, b.maxDepth)
		if err != nil {
			var ute *UnsupportedTypeError
			if errors.As(err, &ute) && row == nil {
				ute.Reason = fmt.Sprintf("null value at row %d", i)
			}
			return Kind{}, nil, err
		}
		if rk.IsStruct() {
			return Kind{}, nil, &UnsupportedTypeError{
				TypeName: fmt.Sprintf("%T", row),
				Reason:   "struct columns are assembled with BuildStruct",
			}
		}
		if rk.IsList() {
			if shape == ShapeNone {
				shape = rs
			} else if rs != shape {
				return Kind{}, nil, &InconsistentTypeError{
					RowIndex: i,
					Expected: kind,
					Found:    fmt.Sprintf("%s from a %s container, not %s", rk, rs, shape),
				}
			}
			if seqs == nil {
				seqs = make([]Sequence, 0, len(rows))
			}
			seqs = append(seqs, seq)
		}

		merged, ok := unify(kind, rk)
		if !ok {
			return Kind{}, nil, &InconsistentTypeError{RowIndex: i, Expected: kind, Found: rk.String()}
		}
		kind = merged
	}

	if !kind.Resolved() {
		if len(rows) == 0 {
			return Kind{}, nil, &EmptyInputError{What: "no rows and no kind hint"}
		}
		return Kind{}, nil, &EmptyInputError{What: fmt.Sprintf("cannot infer element kind of %s from empty containers", kind)}
	}
	if kind.IsList() && seqs == nil {
		seqs = []Sequence{}
	}
	return kind, seqs, nil
}

func (b *Builder) buildScalar(name string, kind Kind, rows []any) (*Column, error) {
	values := rows
	if values == nil {
		values = []any{}
	}
	h, err := b.engine.MakePrimitiveColumn(name, kind, values)
	if err != nil {
		return nil, colerrors.Wrap(err, colerrors.ErrorTypeEngine, "make primitive column").
			WithDetail("kind", kind.String()).
			WithDetail("rows", len(values))
	}
	return &Column{name: name, kind: kind, length: len(values), handle: h}, nil
}

func (b *Builder) buildList(name string, kind Kind, seqs []Sequence, depth int) (*Column, error) {
	children := make([]*Column, 0, len(seqs))
	for i, seq := range seqs {
		child, err := b.build("", seq, *kind.Elem, depth+1)
		if err != nil {
			releaseAll(children)
			var ite *InconsistentTypeError
			if errors.As(err, &ite) {
				ite.Path = append([]int{i}, ite.Path...)
			}
			return nil, err
		}
		children = append(children, child)
	}

	handles := lo.Map(children, func(c *Column, _ int) Handle { return c.handle })
	h, err := b.engine.MakeCompositeColumn(name, kind, handles)
	if err != nil {
		releaseAll(children)
		return nil, colerrors.Wrap(err, colerrors.ErrorTypeEngine, "make list column").
			WithDetail("kind", kind.String()).
			WithDetail("rows", len(seqs))
	}
	return &Column{name: name, kind: kind, length: len(seqs), handle: h, children: children}, nil
}

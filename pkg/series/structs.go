package series

import (
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/ajitpratap0/colframe/pkg/colerrors"
)

// NamedColumn pairs a struct field name with the column holding its values.
type NamedColumn struct {
	Name   string
	Column *Column
}

// Named is shorthand for NamedColumn{Name: name, Column: col}.
func Named(name string, col *Column) NamedColumn {
	return NamedColumn{Name: name, Column: col}
}

// BuildStruct combines equally long columns into one Struct column. The
// field columns become the children of the result, in the given order and
// under their own names; on success the result owns them and releasing it
// releases them. A column can be a field of only one struct: passing a column
// that another struct already owns, or one that was released, is an error.
func (b *Builder) BuildStruct(name string, fields []NamedColumn) (*Column, error) {
	start := time.Now()
	col, err := b.assembleStruct(name, fields)
	if err != nil {
		reason := errorKind(err)
		b.observer.BuildFailed(reason)
		b.logger.Warn("struct build failed",
			zap.String("name", name),
			zap.Int("fields", len(fields)),
			zap.String("reason", reason),
			zap.Error(err))
		return nil, err
	}

	b.observer.ColumnBuilt(col.kind.ID.String(), col.length, time.Since(start))
	b.logger.Debug("struct built",
		zap.String("name", name),
		zap.Stringer("kind", col.kind),
		zap.Int("rows", col.length))
	return col, nil
}

func (b *Builder) assembleStruct(name string, fields []NamedColumn) (*Column, error) {
	if len(fields) == 0 {
		return nil, &EmptyInputError{What: "struct needs at least one field"}
	}

	seen := make(map[string]struct{}, len(fields))
	cols := make(map[*Column]string, len(fields))
	for _, f := range fields {
		if f.Column == nil {
			return nil, &UnsupportedTypeError{TypeName: "nil", Reason: "field " + f.Name + " has no column"}
		}
		if _, dup := seen[f.Name]; dup {
			return nil, &DuplicateFieldError{Name: f.Name}
		}
		seen[f.Name] = struct{}{}
		if other, dup := cols[f.Column]; dup {
			return nil, &UnsupportedTypeError{
				TypeName: f.Column.Kind().String(),
				Reason:   "field " + f.Name + " reuses the column of field " + other,
			}
		}
		cols[f.Column] = f.Name
		if f.Column.released.Load() {
			return nil, &UnsupportedTypeError{TypeName: f.Column.Kind().String(), Reason: "field " + f.Name + " column was released"}
		}
	}

	first := fields[0]
	for _, f := range fields[1:] {
		if f.Column.Len() != first.Column.Len() {
			return nil, &LengthMismatchError{
				FieldA:  first.Name,
				LengthA: first.Column.Len(),
				FieldB:  f.Name,
				LengthB: f.Column.Len(),
			}
		}
	}

	kind := StructOf(lo.Map(fields, func(f NamedColumn, _ int) Field {
		return Field{Name: f.Name, Kind: f.Column.Kind()}
	})...)
	if maxFieldDepth(fields) > b.maxDepth {
		return nil, &MaxDepthExceededError{Limit: b.maxDepth}
	}

	if err := claim(fields); err != nil {
		return nil, err
	}
	handles := lo.Map(fields, func(f NamedColumn, _ int) Handle { return f.Column.handle })
	h, err := b.engine.MakeCompositeColumn(name, kind, handles)
	if err != nil {
		unclaim(fields)
		return nil, colerrors.Wrap(err, colerrors.ErrorTypeEngine, "make struct column").
			WithDetail("kind", kind.String())
	}

	return &Column{
		name:     name,
		kind:     kind,
		length:   first.Column.Len(),
		handle:   h,
		children: lo.Map(fields, func(f NamedColumn, _ int) *Column { return f.Column }),
	}, nil
}

// claim marks every field column as owned by the struct being built, undoing
// its own marks when one is already owned.
func claim(fields []NamedColumn) error {
	for i, f := range fields {
		if !f.Column.owned.CompareAndSwap(false, true) {
			unclaim(fields[:i])
			return &UnsupportedTypeError{
				TypeName: f.Column.Kind().String(),
				Reason:   "field " + f.Name + " column already belongs to a struct",
			}
		}
	}
	return nil
}

func unclaim(fields []NamedColumn) {
	for _, f := range fields {
		f.Column.owned.Store(false)
	}
}

func maxFieldDepth(fields []NamedColumn) int {
	d := 0
	for _, f := range fields {
		if fd := f.Column.Kind().Depth(); fd > d {
			d = fd
		}
	}
	return d
}

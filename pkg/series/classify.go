package series

import (
	"fmt"
	"reflect"
	"time"

	"cloud.google.com/go/civil"
)

// DefaultMaxDepth bounds list nesting unless a Builder is configured otherwise.
const DefaultMaxDepth = 64

// Classify maps one sample value to its column kind using DefaultMaxDepth.
//
// Rules are tried in a fixed order: numeric kinds, Boolean, temporal kinds,
// Utf8String, containers (native slices and arrays, iterators, linked lists)
// which recurse into their elements until the element kind is known, and
// finally already-built columns.
// Containers without elements classify as a List whose element kind is
// unresolved.
func Classify(sample any) (Kind, error) {
	k, _, _, err := inspect(sample, 0, DefaultMaxDepth)
	return k, err
}

// classifyScalar applies the scalar rules only.
func classifyScalar(v any) (Kind, bool) {
	switch v.(type) {
	case int32:
		return Int32, true
	case int64, int:
		return Int64, true
	case float32:
		return Float32, true
	case float64:
		return Float64, true
	case bool:
		return Boolean, true
	case civil.Date:
		return Date, true
	case civil.Time:
		return Time, true
	case civil.DateTime, time.Time:
		return DateTime, true
	case string:
		return Utf8String, true
	}
	return Kind{}, false
}

// walked is a container whose elements were already enumerated. inspect
// leaves it in place of the original so single-use iterators are consumed
// once per build.
type walked struct {
	shape Shape
	seq   Sequence
}

// unwrap enumerates one container level of v.
func unwrap(v any) (Shape, Sequence, bool) {
	if w, ok := v.(*walked); ok {
		return w.shape, w.seq, true
	}
	a := lookup(v)
	if a == nil {
		return ShapeNone, nil, false
	}
	return a.shape(), a.elements(v, reflect.ValueOf(v)), true
}

// inspect classifies v at list depth depth. For containers it also returns
// the shape and the normalized sequence so callers need not unwrap twice.
// Elements are inspected until the element kind resolves; nested containers
// met on the way are replaced by their walked form in the returned sequence.
func inspect(v any, depth, limit int) (Kind, Shape, Sequence, error) {
	if v == nil {
		return Kind{}, ShapeNone, nil, &UnsupportedTypeError{TypeName: "nil", Reason: "null values are not supported"}
	}
	if k, ok := classifyScalar(v); ok {
		return k, ShapeNone, nil, nil
	}
	if _, ok := v.(*walked); ok || lookup(v) != nil {
		if depth+1 > limit {
			return Kind{}, ShapeNone, nil, &MaxDepthExceededError{Limit: limit}
		}
		shape, seq, _ := unwrap(v)
		var elem Kind
		copied := false
		for i := range seq {
			ek, es, eseq, err := inspect(seq[i], depth+1, limit)
			if err != nil {
				return Kind{}, ShapeNone, nil, err
			}
			if es != ShapeNone {
				// never write into the caller's slice
				if !copied {
					seq = append(Sequence(nil), seq...)
					copied = true
				}
				seq[i] = &walked{shape: es, seq: eseq}
			}
			merged, ok := unify(elem, ek)
			if !ok {
				// the element build reports the row that disagrees
				break
			}
			elem = merged
			if elem.Resolved() {
				break
			}
		}
		return ListOf(elem), shape, seq, nil
	}
	if c, ok := v.(*Column); ok && c != nil {
		return c.Kind(), ShapeNone, nil, nil
	}
	return Kind{}, ShapeNone, nil, &UnsupportedTypeError{TypeName: fmt.Sprintf("%T", v)}
}

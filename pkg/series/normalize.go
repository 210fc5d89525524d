package series

import (
	"container/list"
	"reflect"
	"strings"

	genericlist "github.com/bahlo/generic-list-go"
)

// Sequence is the canonical ordered view of one container level.
type Sequence []any

// Shape identifies which container adapter recognized a value.
type Shape uint8

const (
	// ShapeNone means the value is not a supported container.
	ShapeNone Shape = iota
	// ShapeNative covers Go slices and arrays.
	ShapeNative
	// ShapeIterator covers range-over-func iterators, func(yield func(T) bool).
	ShapeIterator
	// ShapeList covers *container/list.List.
	ShapeList
	// ShapeGenericList covers *genericlist.List[T] from bahlo/generic-list-go.
	ShapeGenericList
)

func (s Shape) String() string {
	switch s {
	case ShapeNative:
		return "native"
	case ShapeIterator:
		return "iterator"
	case ShapeList:
		return "list"
	case ShapeGenericList:
		return "generic-list"
	default:
		return "none"
	}
}

// adapter exposes one foreign container shape as a Sequence.
type adapter interface {
	shape() Shape
	match(v any, rv reflect.Value) bool
	elements(v any, rv reflect.Value) Sequence
}

// adapters is the closed registry, in classification precedence order.
var adapters = [...]adapter{
	nativeAdapter{},
	iteratorAdapter{},
	listAdapter{},
	genericListAdapter{},
}

// Normalize unwraps exactly one container level of v into a Sequence. It
// reports false when v is not a supported container.
func Normalize(v any) (Sequence, bool) {
	a := lookup(v)
	if a == nil {
		return nil, false
	}
	return a.elements(v, reflect.ValueOf(v)), true
}

// ShapeOf reports which adapter recognizes v, or ShapeNone.
func ShapeOf(v any) Shape {
	if a := lookup(v); a != nil {
		return a.shape()
	}
	return ShapeNone
}

func lookup(v any) adapter {
	if v == nil {
		return nil
	}
	rv := reflect.ValueOf(v)
	for _, a := range adapters {
		if a.match(v, rv) {
			return a
		}
	}
	return nil
}

type nativeAdapter struct{}

func (nativeAdapter) shape() Shape { return ShapeNative }

func (nativeAdapter) match(_ any, rv reflect.Value) bool {
	k := rv.Kind()
	return k == reflect.Slice || k == reflect.Array
}

func (nativeAdapter) elements(v any, rv reflect.Value) Sequence {
	if s, ok := v.([]any); ok {
		return s
	}
	out := make(Sequence, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

type iteratorAdapter struct{}

func (iteratorAdapter) shape() Shape { return ShapeIterator }

func (iteratorAdapter) match(_ any, rv reflect.Value) bool {
	t := rv.Type()
	if t.Kind() != reflect.Func || t.NumIn() != 1 || t.NumOut() != 0 {
		return false
	}
	yield := t.In(0)
	return yield.Kind() == reflect.Func &&
		yield.NumIn() == 1 &&
		yield.NumOut() == 1 &&
		yield.Out(0).Kind() == reflect.Bool
}

func (iteratorAdapter) elements(_ any, rv reflect.Value) Sequence {
	if rv.IsNil() {
		return Sequence{}
	}
	out := Sequence{}
	yield := reflect.MakeFunc(rv.Type().In(0), func(args []reflect.Value) []reflect.Value {
		out = append(out, args[0].Interface())
		return []reflect.Value{reflect.ValueOf(true)}
	})
	rv.Call([]reflect.Value{yield})
	return out
}

type listAdapter struct{}

func (listAdapter) shape() Shape { return ShapeList }

func (listAdapter) match(v any, _ reflect.Value) bool {
	_, ok := v.(*list.List)
	return ok
}

func (listAdapter) elements(v any, _ reflect.Value) Sequence {
	l := v.(*list.List)
	if l == nil {
		return Sequence{}
	}
	out := make(Sequence, 0, l.Len())
	for e := l.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value)
	}
	return out
}

// genericListPkg is the import path of bahlo/generic-list-go; the list type is
// generic so instances are recognized by package and type name.
var genericListPkg = reflect.TypeOf(genericlist.New[any]()).Elem().PkgPath()

type genericListAdapter struct{}

func (genericListAdapter) shape() Shape { return ShapeGenericList }

func (genericListAdapter) match(_ any, rv reflect.Value) bool {
	t := rv.Type()
	if t.Kind() != reflect.Pointer {
		return false
	}
	e := t.Elem()
	if e.PkgPath() != genericListPkg || !strings.HasPrefix(e.Name(), "List[") {
		return false
	}
	_, ok := t.MethodByName("Front")
	return ok
}

func (genericListAdapter) elements(_ any, rv reflect.Value) Sequence {
	out := Sequence{}
	if rv.IsNil() {
		return out
	}
	for e := rv.MethodByName("Front").Call(nil)[0]; !e.IsNil(); e = e.MethodByName("Next").Call(nil)[0] {
		out = append(out, e.Elem().FieldByName("Value").Interface())
	}
	return out
}

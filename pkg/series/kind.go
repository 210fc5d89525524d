package series

import (
	"strconv"
	"strings"
)

// KindID identifies a column kind. The set is closed: List and Struct are the
// only composite kinds.
type KindID uint8

const (
	// KindInvalid marks an element kind that could not be resolved yet,
	// e.g. the element of an empty container sample.
	KindInvalid KindID = iota
	KindInt32
	KindInt64
	KindFloat32
	KindFloat64
	KindBoolean
	KindUtf8String
	KindDate
	KindTime
	KindDateTime
	KindList
	KindStruct
)

var kindNames = map[KindID]string{
	KindInvalid:    "<unresolved>",
	KindInt32:      "Int32",
	KindInt64:      "Int64",
	KindFloat32:    "Float32",
	KindFloat64:    "Float64",
	KindBoolean:    "Boolean",
	KindUtf8String: "Utf8String",
	KindDate:       "Date",
	KindTime:       "Time",
	KindDateTime:   "DateTime",
	KindList:       "List",
	KindStruct:     "Struct",
}

func (id KindID) String() string {
	if name, ok := kindNames[id]; ok {
		return name
	}
	return "KindID(" + strconv.Itoa(int(id)) + ")"
}

// Kind describes the element type of a Column. Kinds form a tree: Elem is set
// for List kinds and Fields for Struct kinds.
type Kind struct {
	ID     KindID
	Elem   *Kind
	Fields []Field
}

// Field is one named member of a Struct kind.
type Field struct {
	Name string
	Kind Kind
}

// Scalar kinds.
var (
	Int32      = Kind{ID: KindInt32}
	Int64      = Kind{ID: KindInt64}
	Float32    = Kind{ID: KindFloat32}
	Float64    = Kind{ID: KindFloat64}
	Boolean    = Kind{ID: KindBoolean}
	Utf8String = Kind{ID: KindUtf8String}
	Date       = Kind{ID: KindDate}
	Time       = Kind{ID: KindTime}
	DateTime   = Kind{ID: KindDateTime}
)

// ListOf returns the List kind with the given element kind.
func ListOf(elem Kind) Kind {
	return Kind{ID: KindList, Elem: &elem}
}

// StructOf returns the Struct kind with the given fields, in order.
func StructOf(fields ...Field) Kind {
	return Kind{ID: KindStruct, Fields: append([]Field(nil), fields...)}
}

// IsScalar reports whether k is a leaf kind.
func (k Kind) IsScalar() bool {
	return k.ID >= KindInt32 && k.ID <= KindDateTime
}

// IsList reports whether k is a List kind.
func (k Kind) IsList() bool { return k.ID == KindList }

// IsStruct reports whether k is a Struct kind.
func (k Kind) IsStruct() bool { return k.ID == KindStruct }

// Resolved reports whether every part of the kind tree is known.
func (k Kind) Resolved() bool {
	switch k.ID {
	case KindInvalid:
		return false
	case KindList:
		return k.Elem != nil && k.Elem.Resolved()
	case KindStruct:
		for _, f := range k.Fields {
			if !f.Kind.Resolved() {
				return false
			}
		}
	}
	return true
}

// Depth returns the list nesting depth of k: 0 for scalars and structs.
func (k Kind) Depth() int {
	d := 0
	for cur := k; cur.ID == KindList && cur.Elem != nil; cur = *cur.Elem {
		d++
	}
	return d
}

// Equal reports whether two kinds are structurally identical.
func (k Kind) Equal(o Kind) bool {
	if k.ID != o.ID {
		return false
	}
	switch k.ID {
	case KindList:
		if k.Elem == nil || o.Elem == nil {
			return k.Elem == o.Elem
		}
		return k.Elem.Equal(*o.Elem)
	case KindStruct:
		if len(k.Fields) != len(o.Fields) {
			return false
		}
		for i := range k.Fields {
			if k.Fields[i].Name != o.Fields[i].Name || !k.Fields[i].Kind.Equal(o.Fields[i].Kind) {
				return false
			}
		}
	}
	return true
}

// unify merges two kinds, filling unresolved parts of one from the other.
// It reports false when the kinds disagree anywhere both are resolved.
func unify(a, b Kind) (Kind, bool) {
	if a.ID == KindInvalid {
		return b, true
	}
	if b.ID == KindInvalid {
		return a, true
	}
	if a.ID != b.ID {
		return Kind{}, false
	}
	switch a.ID {
	case KindList:
		var ae, be Kind
		if a.Elem != nil {
			ae = *a.Elem
		}
		if b.Elem != nil {
			be = *b.Elem
		}
		elem, ok := unify(ae, be)
		if !ok {
			return Kind{}, false
		}
		return ListOf(elem), true
	case KindStruct:
		if !a.Equal(b) {
			return Kind{}, false
		}
	}
	return a, true
}

// String renders the kind as e.g. List(List(Int64)) or Struct(a: Int64, b: Boolean).
func (k Kind) String() string {
	switch k.ID {
	case KindList:
		if k.Elem == nil {
			return "List(" + KindInvalid.String() + ")"
		}
		return "List(" + k.Elem.String() + ")"
	case KindStruct:
		var sb strings.Builder
		sb.WriteString("Struct(")
		for i, f := range k.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(f.Name)
			sb.WriteString(": ")
			sb.WriteString(f.Kind.String())
		}
		sb.WriteString(")")
		return sb.String()
	default:
		return k.ID.String()
	}
}

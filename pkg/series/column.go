package series

import (
	"sync/atomic"
)

// Handle is an opaque reference to a column stored by an Engine.
type Handle interface {
	Len() int
	Release()
}

// Engine is the external columnar store the builder hands values to.
type Engine interface {
	// MakePrimitiveColumn builds a leaf column from a flat slice of scalar
	// values that all classify to kind. The result has len(values) rows.
	MakePrimitiveColumn(name string, kind Kind, values []any) (Handle, error)
	// MakeCompositeColumn builds a List or Struct column from already-built
	// children, keeping their order.
	MakeCompositeColumn(name string, kind Kind, children []Handle) (Handle, error)
}

// Column is a typed, named, length-bearing column. A Column exclusively owns
// its children; the tree is immutable once returned.
type Column struct {
	name     string
	kind     Kind
	length   int
	handle   Handle
	children []*Column
	released atomic.Bool
	// owned is set once a struct column has taken the column as a field.
	owned atomic.Bool
}

// Name returns the column name. Intermediate list children have an empty name.
func (c *Column) Name() string { return c.name }

// Kind returns the column kind.
func (c *Column) Kind() Kind { return c.kind }

// Len returns the number of rows.
func (c *Column) Len() int { return c.length }

// Handle returns the engine handle backing the column.
func (c *Column) Handle() Handle { return c.handle }

// NumChildren returns the number of child columns: one per row for List
// columns, one per field for Struct columns, zero for scalars.
func (c *Column) NumChildren() int { return len(c.children) }

// Child returns the i-th child column.
func (c *Column) Child(i int) *Column { return c.children[i] }

// ChildLengths returns the length of every child, in order.
func (c *Column) ChildLengths() []int {
	out := make([]int, len(c.children))
	for i, ch := range c.children {
		out[i] = ch.length
	}
	return out
}

// Release frees the engine handles of the column and all its children.
// Calling Release more than once is a no-op.
func (c *Column) Release() {
	if c == nil || !c.released.CompareAndSwap(false, true) {
		return
	}
	for _, ch := range c.children {
		ch.Release()
	}
	if c.handle != nil {
		c.handle.Release()
	}
}

func releaseAll(cols []*Column) {
	for _, c := range cols {
		c.Release()
	}
}

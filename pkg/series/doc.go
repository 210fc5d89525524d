// Package series builds typed, possibly nested columns from in-memory Go
// values and hands them to a columnar engine for storage.
//
// # Overview
//
// A build call classifies the first row to pick a column kind, checks every
// other row against it, and constructs the column bottom-up:
//   - scalar rows go straight to the engine's primitive constructor
//   - container rows are unwrapped one level at a time and every row becomes
//     one child column, which the engine combines into a List column
//   - Struct columns are assembled from already-built columns with BuildStruct
//
// # Supported values
//
//	int32                         Int32
//	int64, int                    Int64
//	float32, float64              Float32, Float64
//	bool                          Boolean
//	civil.Date, civil.Time        Date, Time
//	civil.DateTime, time.Time     DateTime
//	string                        Utf8String
//	slices and arrays             List
//	func(yield func(T) bool)      List (iter.Seq)
//	*list.List                    List (container/list)
//	*genericlist.List[T]          List (bahlo/generic-list-go)
//
// # Basic Usage
//
//	b := series.NewBuilder(engine.NewArrow(memory.DefaultAllocator))
//
//	nested, err := b.BuildSeries("nested", []any{[]int64{1, 2, 3}, []int64{4, 5}})
//	if err != nil {
//	    return err
//	}
//	defer nested.Release()
//	// nested.Kind() == List(Int64), nested.ChildLengths() == [3 2]
//
// # Errors
//
// Every failure is one of the typed errors in this package and aborts the
// whole build: UnsupportedTypeError, InconsistentTypeError,
// LengthMismatchError, EmptyInputError, MaxDepthExceededError and
// DuplicateFieldError. Engine failures are wrapped in a colerrors.Error.
package series

package engine

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/colframe/pkg/series"
)

// Temporal Arrow types used for Date, Time and DateTime columns.
var (
	DateType     = arrow.FixedWidthTypes.Date32
	TimeType     = arrow.FixedWidthTypes.Time64us
	DateTimeType = &arrow.TimestampType{Unit: arrow.Microsecond}
)

// ArrowType returns the Arrow data type that stores columns of kind k.
func ArrowType(k series.Kind) (arrow.DataType, error) {
	switch k.ID {
	case series.KindInt32:
		return arrow.PrimitiveTypes.Int32, nil
	case series.KindInt64:
		return arrow.PrimitiveTypes.Int64, nil
	case series.KindFloat32:
		return arrow.PrimitiveTypes.Float32, nil
	case series.KindFloat64:
		return arrow.PrimitiveTypes.Float64, nil
	case series.KindBoolean:
		return arrow.FixedWidthTypes.Boolean, nil
	case series.KindUtf8String:
		return arrow.BinaryTypes.String, nil
	case series.KindDate:
		return DateType, nil
	case series.KindTime:
		return TimeType, nil
	case series.KindDateTime:
		return DateTimeType, nil
	case series.KindList:
		if k.Elem == nil {
			return nil, fmt.Errorf("list kind without element kind")
		}
		elem, err := ArrowType(*k.Elem)
		if err != nil {
			return nil, err
		}
		return arrow.ListOf(elem), nil
	case series.KindStruct:
		fields := make([]arrow.Field, len(k.Fields))
		for i, f := range k.Fields {
			dt, err := ArrowType(f.Kind)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", f.Name, err)
			}
			fields[i] = arrow.Field{Name: f.Name, Type: dt, Nullable: true}
		}
		return arrow.StructOf(fields...), nil
	default:
		return nil, fmt.Errorf("no arrow type for kind %s", k)
	}
}

// KindOf maps an Arrow data type back to a column kind. Types outside the
// column kind set (unsigned integers, decimals, binary, ...) are rejected.
func KindOf(dt arrow.DataType) (series.Kind, error) {
	switch t := dt.(type) {
	case *arrow.Int32Type:
		return series.Int32, nil
	case *arrow.Int64Type:
		return series.Int64, nil
	case *arrow.Float32Type:
		return series.Float32, nil
	case *arrow.Float64Type:
		return series.Float64, nil
	case *arrow.BooleanType:
		return series.Boolean, nil
	case *arrow.StringType, *arrow.LargeStringType:
		return series.Utf8String, nil
	case *arrow.Date32Type, *arrow.Date64Type:
		return series.Date, nil
	case *arrow.Time32Type, *arrow.Time64Type:
		return series.Time, nil
	case *arrow.TimestampType:
		return series.DateTime, nil
	case *arrow.ListType:
		elem, err := KindOf(t.Elem())
		if err != nil {
			return series.Kind{}, err
		}
		return series.ListOf(elem), nil
	case *arrow.LargeListType:
		elem, err := KindOf(t.Elem())
		if err != nil {
			return series.Kind{}, err
		}
		return series.ListOf(elem), nil
	case *arrow.StructType:
		fields := make([]series.Field, t.NumFields())
		for i, f := range t.Fields() {
			k, err := KindOf(f.Type)
			if err != nil {
				return series.Kind{}, fmt.Errorf("field %s: %w", f.Name, err)
			}
			fields[i] = series.Field{Name: f.Name, Kind: k}
		}
		return series.StructOf(fields...), nil
	default:
		return series.Kind{}, fmt.Errorf("arrow type %s has no column kind", dt)
	}
}

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/colframe/pkg/colerrors"
	"github.com/ajitpratap0/colframe/pkg/formats"
	"github.com/ajitpratap0/colframe/pkg/frame"
)

func newSeriesCmd(a *app) *cobra.Command {
	var name, file string
	cmd := &cobra.Command{
		Use:   "series [JSON array]",
		Short: "Build a column from a JSON array and describe it",
		Long: `Build a column from the rows of a JSON array, given as an argument,
read from --file, or from stdin when neither is present. Integers become
Int64, other numbers Float64, and nested arrays become List columns.

Example:
  colframe series '[[1, 2], [], [3]]'`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := seriesInput(cmd.InOrStdin(), file, args)
			if err != nil {
				return err
			}
			rows, err := decodeRows(data)
			if err != nil {
				return err
			}
			col, err := a.builder.BuildSeries(name, rows)
			if err != nil {
				return err
			}
			defer col.Release()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "name:     %s\n", col.Name())
			fmt.Fprintf(out, "kind:     %s\n", col.Kind())
			fmt.Fprintf(out, "length:   %d\n", col.Len())
			if col.NumChildren() > 0 {
				fmt.Fprintf(out, "children: %v\n", col.ChildLengths())
			}
			if arr, ok := col.Handle().(arrow.Array); ok {
				fmt.Fprintf(out, "values:   %s\n", arr)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "values", "Column name")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read the JSON array from this file")
	return cmd
}

func seriesInput(stdin io.Reader, file string, args []string) ([]byte, error) {
	switch {
	case len(args) == 1:
		return []byte(args[0]), nil
	case file != "":
		data, err := os.ReadFile(file) //nolint:gosec // G304: path comes from the operator
		if err != nil {
			return nil, colerrors.Wrap(err, colerrors.ErrorTypeFile, "read series input").WithDetail("path", file)
		}
		return data, nil
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, colerrors.Wrap(err, colerrors.ErrorTypeFile, "read series input from stdin")
		}
		return data, nil
	}
}

// decodeRows parses a JSON array into builder rows. Numbers keep their
// integer or floating point nature.
func decodeRows(data []byte) ([]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, colerrors.Wrap(err, colerrors.ErrorTypeValidation, "parse series input")
	}
	rows, ok := raw.([]any)
	if !ok {
		return nil, colerrors.New(colerrors.ErrorTypeValidation, "series input must be a JSON array")
	}
	for i, r := range rows {
		rows[i] = fromJSON(r)
	}
	return rows, nil
}

func fromJSON(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case []any:
		for i, e := range x {
			x[i] = fromJSON(e)
		}
		return x
	default:
		// objects stay maps, which the builder reports as unsupported
		return x
	}
}

// ioFlags are the flags shared by commands that scan files.
type ioFlags struct {
	from    string
	options []string
}

func (f *ioFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "Input format; detected from the file suffix when empty")
	cmd.Flags().StringArrayVarP(&f.options, "option", "o", nil,
		"Format option as key=value, e.g. scan_csv_separator=';' or write_compression=zstd (repeatable)")
}

func resolveFormat(name, path string) (formats.Format, error) {
	if name != "" {
		return formats.ParseFormat(name)
	}
	return formats.FormatFromPath(path)
}

// optionBags splits key=value pairs into scan and write option bags. A key
// given more than once collects its values into a list.
func optionBags(pairs []string) (scan, write map[string]any, err error) {
	scan, write = map[string]any{}, map[string]any{}
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, nil, colerrors.New(colerrors.ErrorTypeValidation, "option must be key=value").
				WithDetail("option", pair)
		}
		bag := write
		if strings.HasPrefix(key, "scan_") {
			bag = scan
		}
		switch prev := bag[key].(type) {
		case nil:
			bag[key] = value
		case string:
			bag[key] = []string{prev, value}
		case []string:
			bag[key] = append(prev, value)
		}
	}
	return scan, write, nil
}

func (a *app) scanInput(cmd *cobra.Command, path string, flags ioFlags) (*frame.Frame, map[string]any, error) {
	format, err := resolveFormat(flags.from, path)
	if err != nil {
		return nil, nil, err
	}
	scanBag, writeBag, err := optionBags(flags.options)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := a.opContext(cmd)
	defer cancel()
	f, err := a.handler.Scan(ctx, format, path, scanBag)
	if err != nil {
		return nil, nil, err
	}
	return f, writeBag, nil
}

func newConvertCmd(a *app) *cobra.Command {
	var (
		flags ioFlags
		to    string
	)
	cmd := &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Convert a file between columnar formats",
		Long: `Read a frame from one file and write it to another. Formats are
detected from file suffixes unless --from or --to is given. Options use the
scan_* and write_* keys of the formats package.

Example:
  colframe convert events.csv.gz events.parquet -o scan_csv_separator=';' -o write_compression=zstd`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, out := args[0], args[1]
			format, err := resolveFormat(to, out)
			if err != nil {
				return err
			}
			f, writeBag, err := a.scanInput(cmd, in, flags)
			if err != nil {
				return err
			}
			defer f.Release()

			ctx, cancel := a.opContext(cmd)
			defer cancel()
			if err := a.handler.Write(ctx, f, format, out, writeBag); err != nil {
				return err
			}
			a.log.Info("converted",
				zap.String("input", in),
				zap.String("output", out),
				zap.Int("rows", f.Height()),
				zap.Int("columns", f.Width()))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows x %d columns to %s\n", f.Height(), f.Width(), out)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&to, "to", "", "Output format; detected from the file suffix when empty")
	return cmd
}

func newSchemaCmd(a *app) *cobra.Command {
	var flags ioFlags
	cmd := &cobra.Command{
		Use:   "schema <input>",
		Short: "Print the column kinds of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, _, err := a.scanInput(cmd, args[0], flags)
			if err != nil {
				return err
			}
			defer f.Release()

			kinds, err := f.Kinds()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, name := range f.ColumnNames() {
				fmt.Fprintf(out, "%s: %s\n", name, kinds[i])
			}
			fmt.Fprintf(out, "rows: %d\n", f.Height())
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

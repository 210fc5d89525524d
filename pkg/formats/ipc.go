package formats

import (
	"context"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"

	"github.com/ajitpratap0/colframe/pkg/colerrors"
	"github.com/ajitpratap0/colframe/pkg/frame"
)

// ScanIPC reads an Arrow IPC file.
func (h *Handler) ScanIPC(ctx context.Context, path string, opts IPCScanOptions) (*frame.Frame, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return h.scan(ctx, IPC, path, func(context.Context) (*frame.Frame, error) {
		in, err := os.Open(path) //nolint:gosec // G304: path comes from the caller
		if err != nil {
			return nil, fileError(err, "open IPC file", path)
		}
		defer in.Close()

		fr, err := ipc.NewFileReader(in, ipc.WithAllocator(h.mem))
		if err != nil {
			return nil, colerrors.Wrap(err, colerrors.ErrorTypeData, "create IPC reader").WithDetail("path", path)
		}
		defer fr.Close()

		var batches []arrow.Record
		defer func() {
			for _, b := range batches {
				b.Release()
			}
		}()
		rows := int64(0)
		for i := 0; i < fr.NumRecords(); i++ {
			if opts.NRows > 0 && rows >= int64(opts.NRows) {
				break
			}
			rec, err := fr.RecordAt(i)
			if err != nil {
				return nil, colerrors.Wrap(err, colerrors.ErrorTypeData, "read IPC record batch").
					WithDetail("path", path).
					WithDetail("batch", i)
			}
			if opts.NRows > 0 && rows+rec.NumRows() > int64(opts.NRows) {
				sliced := rec.NewSlice(0, int64(opts.NRows)-rows)
				rec.Release()
				rec = sliced
			}
			rows += rec.NumRows()
			batches = append(batches, rec)
		}

		rec, err := concatRecords(h.mem, fr.Schema(), batches)
		if err != nil {
			return nil, err
		}
		if rec, err = withRowIndex(h.mem, rec, opts.rowIndex()); err != nil {
			return nil, err
		}
		return toFrame(rec), nil
	})
}

// WriteIPC writes f as an Arrow IPC file holding a single record batch.
func (h *Handler) WriteIPC(ctx context.Context, f *frame.Frame, path string, opts IPCWriteOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	return h.write(ctx, IPC, f, path, func(context.Context) error {
		ipcOpts := []ipc.Option{ipc.WithSchema(f.Schema()), ipc.WithAllocator(h.mem)}
		switch strings.ToLower(opts.Compression) {
		case "lz4":
			ipcOpts = append(ipcOpts, ipc.WithLZ4())
		case "zstd":
			ipcOpts = append(ipcOpts, ipc.WithZstd())
		}

		out, err := createOutput(path, opts.Mode)
		if err != nil {
			return err
		}
		return finishOutput(out, path, func() error {
			w, err := ipc.NewFileWriter(out, ipcOpts...)
			if err != nil {
				return colerrors.Wrap(err, colerrors.ErrorTypeFile, "create IPC writer")
			}
			if err := w.Write(f.Record()); err != nil {
				_ = w.Close()
				return colerrors.Wrap(err, colerrors.ErrorTypeFile, "write IPC record batch")
			}
			if err := w.Close(); err != nil {
				return fileError(err, "close IPC writer", path)
			}
			return nil
		}())
	})
}

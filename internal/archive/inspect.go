package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// MaxArchiveSize caps how large an archive the inspector accepts.
const MaxArchiveSize = 100 * 1024 * 1024

// Entry is one item of an archive's central directory.
type Entry struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
}

// ReadError reports a buffer that is not a readable ZIP container.
type ReadError struct {
	Err error
}

func (e *ReadError) Error() string { return "unable to read archive: " + e.Err.Error() }
func (e *ReadError) Unwrap() error { return e.Err }

func Inspect(data []byte) ([]Entry, error) {
	return InspectContext(context.Background(), data)
}

// InspectContext lists the entries of the ZIP held in data without
// decompressing any of them. It stops early when ctx is cancelled.
func InspectContext(ctx context.Context, data []byte) ([]Entry, error) {
	if len(data) > MaxArchiveSize {
		return nil, &ReadError{Err: fmt.Errorf("archive is %d bytes, limit is %d", len(data), MaxArchiveSize)}
	}
	return inspect(ctx, bytes.NewReader(data), int64(len(data)))
}

func InspectReader(r io.ReaderAt, size int64) ([]Entry, error) {
	if size > MaxArchiveSize {
		return nil, &ReadError{Err: fmt.Errorf("archive is %d bytes, limit is %d", size, MaxArchiveSize)}
	}
	return inspect(context.Background(), r, size)
}

// InspectFile lists the entries of the ZIP archive stored at path.
func InspectFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return InspectReader(f, info.Size())
}

func inspect(ctx context.Context, r io.ReaderAt, size int64) ([]Entry, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && zr != nil) {
		return nil, &ReadError{Err: err}
	}
	out := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, Entry{
			Path:  f.Name,
			IsDir: strings.HasSuffix(f.Name, "/") || f.FileInfo().IsDir(),
		})
	}
	return out, nil
}

// Paths returns the entry paths in archive order.
func Paths(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

// Package archive stages radar archives for decoding. NEXRAD CDM files are
// often distributed bzip2, gzip or zstd compressed; the NetCDF reader needs
// a seekable plain file, so compressed archives are expanded into a
// temporary file first.
package archive

import (
	"bytes"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Format is the outer encoding of an archive file.
type Format string

const (
	FormatPlain Format = "plain"
	FormatGzip  Format = "gzip"
	FormatBzip2 Format = "bzip2"
	FormatZstd  Format = "zstd"
)

var (
	magicGzip  = []byte{0x1f, 0x8b}
	magicBzip2 = []byte("BZh")
	magicZstd  = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Detect identifies the format from the first bytes of a file.
func Detect(header []byte) Format {
	switch {
	case bytes.HasPrefix(header, magicGzip):
		return FormatGzip
	case bytes.HasPrefix(header, magicBzip2):
		return FormatBzip2
	case bytes.HasPrefix(header, magicZstd):
		return FormatZstd
	}
	return FormatPlain
}

// Staged is an archive ready for the decoder. Cleanup removes any temporary
// file and must be called once the decode finishes.
type Staged struct {
	Path    string
	Format  Format
	Cleanup func()
}

// Stager expands compressed archives into a staging directory.
type Stager struct {
	dir    string
	logger *slog.Logger
}

// NewStager creates a Stager writing to dir, or to the OS temp directory
// when dir is empty.
func NewStager(dir string, logger *slog.Logger) *Stager {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Stager{dir: dir, logger: logger}
}

// Stage prepares the archive at path. Plain files are returned as-is.
func (s *Stager) Stage(ctx context.Context, path string) (Staged, error) {
	f, err := os.Open(path)
	if err != nil {
		return Staged{}, fmt.Errorf("stage %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, 4)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Staged{}, fmt.Errorf("stage %s: read header: %w", path, err)
	}
	format := Detect(header[:n])
	if format == FormatPlain {
		return Staged{Path: path, Format: format, Cleanup: func() {}}, nil
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Staged{}, fmt.Errorf("stage %s: %w", path, err)
	}

	src, closeSrc, err := decompressor(format, f)
	if err != nil {
		return Staged{}, fmt.Errorf("stage %s: open %s stream: %w", path, format, err)
	}
	defer closeSrc()

	tmp, err := os.CreateTemp(s.dir, "radar-*-"+trimExt(filepath.Base(path)))
	if err != nil {
		return Staged{}, fmt.Errorf("stage %s: create temp file: %w", path, err)
	}
	remove := func() {
		if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("remove staged archive failed", "path", tmp.Name(), "error", err)
		}
	}

	written, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: src})
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		remove()
		return Staged{}, fmt.Errorf("stage %s: decompress %s: %w", path, format, err)
	}

	s.logger.Debug("archive staged",
		"source", path,
		"staged", tmp.Name(),
		"format", string(format),
		"bytes", written,
	)
	return Staged{Path: tmp.Name(), Format: format, Cleanup: remove}, nil
}

func decompressor(format Format, r io.Reader) (io.Reader, func(), error) {
	switch format {
	case FormatGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return zr, func() { _ = zr.Close() }, nil
	case FormatZstd:
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	case FormatBzip2:
		return bzip2.NewReader(r), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unsupported archive format %q", format)
}

// trimExt drops compression suffixes so the staged name keeps the volume
// file name.
func trimExt(name string) string {
	switch filepath.Ext(name) {
	case ".gz", ".bz2", ".zst", ".zstd":
		return name[:len(name)-len(filepath.Ext(name))]
	}
	return name
}

// ctxReader stops a copy when the context is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

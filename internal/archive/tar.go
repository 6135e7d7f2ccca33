package archive

import (
	"archive/tar"
	"bufio"
	"compress/bzip2"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

type compression int

const (
	compressionNone compression = iota
	compressionGzip
	compressionBzip2
)

// tarFormat handles plain tar and tar inside a gzip or bzip2 stream. A .gz or
// .bz2 file whose payload is not a tar stream does not pass Test.
type tarFormat struct {
	compression compression
}

func (t tarFormat) Name() string {
	switch t.compression {
	case compressionGzip:
		return "tar.gz"
	case compressionBzip2:
		return "tar.bz2"
	}
	return "tar"
}

// tarStream is an open tar reader plus the decompressed stream beneath it.
type tarStream struct {
	file   *os.File
	raw    io.Reader
	closer io.Closer
	tr     *tar.Reader
}

func (t tarFormat) open(path string) (*tarStream, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s := &tarStream{file: file}
	buffered := bufio.NewReader(file)
	switch t.compression {
	case compressionGzip:
		zr, err := gzip.NewReader(buffered)
		if err != nil {
			_ = file.Close()
			return nil, err
		}
		s.raw, s.closer = zr, zr
	case compressionBzip2:
		s.raw = bzip2.NewReader(buffered)
	default:
		s.raw = buffered
	}
	s.tr = tar.NewReader(s.raw)
	return s, nil
}

func (s *tarStream) Close() error {
	var err error
	if s.closer != nil {
		err = s.closer.Close()
	}
	if cerr := s.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// walk calls fn for each header. fn may read the member's data from tr.
func (t tarFormat) walk(ctx context.Context, path string, fn func(hdr *tar.Header, tr *tar.Reader) error) (*tarStream, error) {
	s, err := t.open(path)
	if err != nil {
		return nil, err
	}
	for {
		if err := ctx.Err(); err != nil {
			_ = s.Close()
			return nil, err
		}
		hdr, err := s.tr.Next()
		if errors.Is(err, io.EOF) {
			return s, nil
		}
		if err != nil {
			_ = s.Close()
			return nil, err
		}
		if err := fn(hdr, s.tr); err != nil {
			_ = s.Close()
			return nil, err
		}
	}
}

func (t tarFormat) Test(ctx context.Context, path string) error {
	s, err := t.walk(ctx, path, func(_ *tar.Header, tr *tar.Reader) error {
		_, err := io.Copy(io.Discard, tr)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer s.Close()
	// The tar reader stops at the end-of-archive marker; drain the rest so the
	// gzip and bzip2 trailers get checked.
	if _, err := io.Copy(io.Discard, s.raw); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nil
}

func (t tarFormat) Count(ctx context.Context, path string) (int, error) {
	n := 0
	s, err := t.walk(ctx, path, func(*tar.Header, *tar.Reader) error {
		n++
		return nil
	})
	if err != nil {
		return 0, err
	}
	_ = s.Close()
	return n, nil
}

func (tarFormat) NeedsPassword(context.Context, string) (bool, error) {
	return false, nil
}

// Extract streams members to disk. An unsafe member aborts the extraction but
// members before it have already been written.
func (t tarFormat) Extract(ctx context.Context, path, dest string) (Stats, error) {
	var stats Stats
	s, err := t.walk(ctx, path, func(hdr *tar.Header, tr *tar.Reader) error {
		mode := hdr.FileInfo().Mode()
		switch {
		case hdr.Typeflag == tar.TypeDir:
			if err := makeMemberDir(dest, hdr.Name); err != nil {
				return err
			}
			stats.Dirs++
		case mode.IsRegular():
			if err := writeMember(dest, hdr.Name, mode, tr); err != nil {
				return fmt.Errorf("%s: %w", hdr.Name, err)
			}
			stats.Files++
		case hdr.Typeflag == tar.TypeXGlobalHeader:
		default:
			stats.Skipped = append(stats.Skipped, hdr.Name)
		}
		return nil
	})
	if err != nil {
		return stats, err
	}
	return stats, s.Close()
}

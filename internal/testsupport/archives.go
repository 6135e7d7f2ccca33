package testsupport

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
)

// Member is one archive entry for fixture builders. A Name ending in "/" is
// a directory.
type Member struct {
	Name string
	Body string
	// Encrypted sets zip general purpose bit 0 without encrypting the data.
	Encrypted bool
	// Symlink makes the entry a symbolic link to Body.
	Symlink bool
}

// WriteZip writes a zip archive with stored (uncompressed) members.
func WriteZip(t testing.TB, path string, members ...Member) {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range members {
		hdr := &zip.FileHeader{Name: m.Name, Method: zip.Store, Modified: time.Now()}
		if m.Encrypted {
			hdr.Flags |= 0x1
		}
		if m.Symlink {
			hdr.SetMode(os.ModeSymlink | 0o777)
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("zip create %s: %v", m.Name, err)
		}
		if _, err := io.WriteString(w, m.Body); err != nil {
			t.Fatalf("zip write %s: %v", m.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	WriteBytes(t, path, buf.Bytes())
}

// WriteCorruptZip writes a single-member zip whose stored data no longer
// matches its CRC-32.
func WriteCorruptZip(t testing.TB, path string) {
	t.Helper()

	const body = "payload-that-will-be-damaged"
	WriteZip(t, path, Member{Name: "inside.txt", Body: body})
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read zip: %v", err)
	}
	idx := bytes.Index(data, []byte(body))
	if idx < 0 {
		t.Fatal("stored body not found in zip")
	}
	data[idx] ^= 0xff
	WriteBytes(t, path, data)
}

// WriteTar writes a tar archive, gzip compressed when gz is true.
func WriteTar(t testing.TB, path string, gz bool, members ...Member) {
	t.Helper()

	var buf bytes.Buffer
	var sink io.Writer = &buf
	var zw *gzip.Writer
	if gz {
		zw = gzip.NewWriter(&buf)
		sink = zw
	}
	tw := tar.NewWriter(sink)
	for _, m := range members {
		hdr := &tar.Header{Name: m.Name, Mode: 0o644, ModTime: time.Now()}
		switch {
		case m.Symlink:
			hdr.Typeflag = tar.TypeSymlink
			hdr.Linkname = m.Body
		case len(m.Name) > 0 && m.Name[len(m.Name)-1] == '/':
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
		default:
			hdr.Typeflag = tar.TypeReg
			hdr.Size = int64(len(m.Body))
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("tar header %s: %v", m.Name, err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := io.WriteString(tw, m.Body); err != nil {
				t.Fatalf("tar write %s: %v", m.Name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("tar close: %v", err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			t.Fatalf("gzip close: %v", err)
		}
	}
	WriteBytes(t, path, buf.Bytes())
}

// WriteGzip writes data gzip compressed without a tar wrapper.
func WriteGzip(t testing.TB, path string, data []byte) {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	WriteBytes(t, path, buf.Bytes())
}

// CopyFixture copies a checked-in testdata file into dir under name.
func CopyFixture(t testing.TB, src, dir, name string) string {
	t.Helper()

	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatalf("read fixture %s: %v", src, err)
	}
	dst := filepath.Join(dir, name)
	WriteBytes(t, dst, data)
	return dst
}

package archive

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"

	"github.com/bodgit/sevenzip"
)

var errCRCMismatch = errors.New("crc mismatch")

// sevenZipFormat opens archives with a single configured password. Archives
// encrypted with any other password read as encrypted and are reported as
// needing one.
type sevenZipFormat struct {
	password string
}

func (sevenZipFormat) Name() string { return "7z" }

func isEncryptedReadError(err error) bool {
	var re *sevenzip.ReadError
	return errors.As(err, &re) && re.Encrypted
}

// verify7zMember reads f to the end and compares the CRC recorded in the
// archive. The reader itself does not verify member checksums.
func verify7zMember(f *sevenzip.File, w io.Writer) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	h := crc32.NewIEEE()
	dst := io.Writer(h)
	if w != nil {
		dst = io.MultiWriter(w, h)
	}
	_, copyErr := io.Copy(dst, rc)
	closeErr := rc.Close()
	if copyErr != nil {
		return copyErr
	}
	if closeErr != nil {
		return closeErr
	}
	if f.CRC32 != 0 && h.Sum32() != f.CRC32 {
		return fmt.Errorf("%s: %w", f.Name, errCRCMismatch)
	}
	return nil
}

func (s sevenZipFormat) Test(ctx context.Context, path string) error {
	r, err := sevenzip.OpenReaderWithPassword(path, s.password)
	if err != nil {
		if isEncryptedReadError(err) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		if err := verify7zMember(f, nil); err != nil {
			if isEncryptedReadError(err) {
				continue
			}
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	return nil
}

func (s sevenZipFormat) Count(_ context.Context, path string) (int, error) {
	r, err := sevenzip.OpenReaderWithPassword(path, s.password)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	return len(r.File), nil
}

// NeedsPassword opens the archive without a password. Encrypted headers fail
// to open; encrypted compressed members fail to decode.
func (sevenZipFormat) NeedsPassword(ctx context.Context, path string) (bool, error) {
	r, err := sevenzip.OpenReader(path)
	if err != nil {
		if isEncryptedReadError(err) {
			return true, nil
		}
		return false, err
	}
	defer r.Close()

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		if err := verify7zMember(f, nil); isEncryptedReadError(err) {
			return true, nil
		}
	}
	return false, nil
}

// Unlocks reports whether the configured password opens the archive and
// every member passes its CRC check.
func (s sevenZipFormat) Unlocks(ctx context.Context, path string) bool {
	r, err := sevenzip.OpenReaderWithPassword(path, s.password)
	if err != nil {
		return false
	}
	defer r.Close()
	for _, f := range r.File {
		if ctx.Err() != nil {
			return false
		}
		if f.FileInfo().IsDir() {
			continue
		}
		if err := verify7zMember(f, nil); err != nil {
			return false
		}
	}
	return true
}

func (s sevenZipFormat) Extract(ctx context.Context, path, dest string) (Stats, error) {
	var stats Stats
	r, err := sevenzip.OpenReaderWithPassword(path, s.password)
	if err != nil {
		if isEncryptedReadError(err) {
			return stats, fmt.Errorf("%w: %v", ErrEncrypted, err)
		}
		return stats, err
	}
	defer r.Close()

	names := make([]string, 0, len(r.File))
	for _, f := range r.File {
		names = append(names, f.Name)
	}
	if err := checkMemberPaths(dest, names); err != nil {
		return stats, err
	}

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		mode := f.FileInfo().Mode()
		switch {
		case mode.IsDir():
			if err := makeMemberDir(dest, f.Name); err != nil {
				return stats, err
			}
			stats.Dirs++
		case !mode.IsRegular():
			stats.Skipped = append(stats.Skipped, f.Name)
		default:
			if err := extract7zMember(f, dest, mode); err != nil {
				return stats, fmt.Errorf("%s: %w", f.Name, err)
			}
			stats.Files++
		}
	}
	return stats, nil
}

func extract7zMember(f *sevenzip.File, dest string, mode fs.FileMode) error {
	out, err := createMember(dest, f.Name, mode)
	if err != nil {
		return err
	}
	if err := verify7zMember(f, out); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

package archive

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zip"
)

// zipEncryptedFlag is general purpose bit 0: the member is encrypted.
const zipEncryptedFlag = 0x1

type zipFormat struct{}

func (zipFormat) Name() string { return "zip" }

func openZip(path string) (*zip.ReadCloser, error) {
	r, err := zip.OpenReader(path)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, err
	}
	if r == nil {
		return nil, err
	}
	return r, nil
}

func (zipFormat) Test(ctx context.Context, path string) error {
	r, err := openZip(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if f.Flags&zipEncryptedFlag != 0 || f.FileInfo().IsDir() {
			continue
		}
		if err := drainZipMember(f); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorrupt, f.Name, err)
		}
	}
	return nil
}

func drainZipMember(f *zip.File) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	// The CRC-32 check fires on the read that reaches EOF.
	_, copyErr := io.Copy(io.Discard, rc)
	closeErr := rc.Close()
	if copyErr != nil {
		return copyErr
	}
	return closeErr
}

func (zipFormat) Count(_ context.Context, path string) (int, error) {
	r, err := openZip(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	return len(r.File), nil
}

// NeedsPassword inspects the first member only, matching how archive tools
// decide whether to prompt.
func (zipFormat) NeedsPassword(_ context.Context, path string) (bool, error) {
	r, err := openZip(path)
	if err != nil {
		return false, err
	}
	defer r.Close()
	if len(r.File) == 0 {
		return false, nil
	}
	return r.File[0].Flags&zipEncryptedFlag != 0, nil
}

func (zipFormat) Extract(ctx context.Context, path, dest string) (Stats, error) {
	var stats Stats
	r, err := openZip(path)
	if err != nil {
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
		mode := f.Mode()
		switch {
		case mode.IsDir():
			if err := makeMemberDir(dest, f.Name); err != nil {
				return stats, err
			}
			stats.Dirs++
		case !mode.IsRegular():
			stats.Skipped = append(stats.Skipped, f.Name)
		case f.Flags&zipEncryptedFlag != 0:
			return stats, fmt.Errorf("%s: %w", f.Name, ErrEncrypted)
		default:
			if err := extractZipMember(f, dest); err != nil {
				return stats, fmt.Errorf("%s: %w", f.Name, err)
			}
			stats.Files++
		}
	}
	return stats, nil
}

func extractZipMember(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return writeMember(dest, f.Name, f.Mode(), rc)
}

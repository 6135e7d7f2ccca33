package archive

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// memberPath resolves an archive member name inside dest. Absolute names,
// names with ".." components and names that clean to dest itself are
// rejected.
func memberPath(dest, name string) (string, error) {
	cleaned := strings.TrimLeft(filepath.ToSlash(name), "/")
	if cleaned != filepath.ToSlash(name) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	local := filepath.FromSlash(strings.TrimSuffix(cleaned, "/"))
	if local == "" || local == "." || !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return filepath.Join(dest, local), nil
}

func makeMemberDir(dest, name string) error {
	if isRootEntry(name) {
		return nil
	}
	target, err := memberPath(dest, name)
	if err != nil {
		return err
	}
	return os.MkdirAll(target, 0o755)
}

// createMember opens the member's target path for writing, replacing any
// regular file already there.
func createMember(dest, name string, mode fs.FileMode) (*os.File, error) {
	target, err := memberPath(dest, name)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm()|0o600)
}

func writeMember(dest, name string, mode fs.FileMode, r io.Reader) error {
	out, err := createMember(dest, name, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// isRootEntry matches the "./" entry tar writes for the archived directory.
func isRootEntry(name string) bool {
	return path.Clean(filepath.ToSlash(name)) == "."
}

// checkMemberPaths rejects the archive before anything is written when any
// member would escape dest.
func checkMemberPaths(dest string, names []string) error {
	for _, name := range names {
		if isRootEntry(name) {
			continue
		}
		if _, err := memberPath(dest, name); err != nil {
			return err
		}
	}
	return nil
}

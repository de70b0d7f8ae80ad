package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	domain "github.com/oshokin/express-cli/internal/domain/express"
)

// maxFileSize limits a single extracted file.
const maxFileSize = 2 << 30

var (
	errPathTraversal  = errors.New("entry escapes the target directory")
	errFileTooLarge   = errors.New("entry exceeds the size limit")
	errNoReleaseDir   = errors.New("no release directory found")
	errManyReleaseDir = errors.New("more than one release directory found")
)

// Extract unpacks the gzip-compressed tar at archivePath into targetDir.
// Directories, regular files, hard links and symlinks pointing inside targetDir
// are restored; pax global headers and device entries are skipped.
// Every write goes through an os.Root opened on targetDir, so links created by
// earlier entries cannot redirect later ones outside of it.
func Extract(archivePath, targetDir string) error {
	f, err := os.Open(filepath.Clean(archivePath))
	if err != nil {
		return fmt.Errorf("open archive: %w: %w", domain.ErrArchive, err)
	}

	defer func() {
		_ = f.Close()
	}()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("decompress archive: %w: %w", domain.ErrArchive, err)
	}

	defer func() {
		_ = gz.Close()
	}()

	if err = os.MkdirAll(targetDir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w: %w", targetDir, domain.ErrFilesystem, err)
	}

	root, err := os.OpenRoot(targetDir)
	if err != nil {
		return fmt.Errorf("open %s: %w: %w", targetDir, domain.ErrFilesystem, err)
	}

	defer func() {
		_ = root.Close()
	}()

	tr := tar.NewReader(gz)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if errors.Is(err, tar.ErrInsecurePath) {
			return fmt.Errorf("read archive entry: %w: %w: %w", domain.ErrArchive, errPathTraversal, err)
		}

		if err != nil {
			return fmt.Errorf("read archive entry: %w: %w", domain.ErrArchive, err)
		}

		if err = extractEntry(tr, header, root); err != nil {
			return fmt.Errorf("extract %s: %w: %w", header.Name, domain.ErrArchive, err)
		}
	}
}

// extractEntry writes a single tar entry below root.
func extractEntry(tr *tar.Reader, header *tar.Header, root *os.Root) error {
	if header.Typeflag == tar.TypeXGlobalHeader {
		return nil
	}

	name, err := localName(header.Name)
	if err != nil {
		return err
	}

	mode := os.FileMode(header.Mode & 0o777) //nolint:gosec // Mode bits are masked to the permission range.

	switch header.Typeflag {
	case tar.TypeDir:
		if name == "." {
			return nil
		}

		return root.MkdirAll(name, mode|0o700)
	case tar.TypeReg, tar.TypeRegA: //nolint:staticcheck // Old archives still carry TypeRegA.
		return writeFile(tr, root, name, mode, header.Size)
	case tar.TypeSymlink:
		return writeSymlink(root, name, header.Linkname)
	case tar.TypeLink:
		source, err := localName(header.Linkname)
		if err != nil {
			return err
		}

		if err = ensureParent(root, name); err != nil {
			return err
		}

		return root.Link(source, name)
	default:
		return nil
	}
}

// localName converts a slash separated entry name into a path relative to
// the extraction root and rejects names leaving it.
func localName(name string) (string, error) {
	if strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("%q: %w", name, errPathTraversal)
	}

	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("%q: %w", name, errPathTraversal)
	}

	return filepath.Clean(local), nil
}

// ensureParent creates the directories leading to name inside root.
func ensureParent(root *os.Root, name string) error {
	dir := filepath.Dir(name)
	if dir == "." {
		return nil
	}

	return root.MkdirAll(dir, 0o755)
}

func writeFile(r io.Reader, root *os.Root, name string, mode os.FileMode, size int64) error {
	if size > maxFileSize {
		return errFileTooLarge
	}

	if err := ensureParent(root, name); err != nil {
		return err
	}

	if mode == 0 {
		mode = 0o644
	}

	out, err := root.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, io.LimitReader(r, maxFileSize)); err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}

// writeSymlink creates a relative symlink whose target stays inside the root.
// The textual check rejects obvious escapes early; links chained through other
// links are caught by the root when a later entry is written through them.
func writeSymlink(root *os.Root, name, linkname string) error {
	if filepath.IsAbs(linkname) || strings.HasPrefix(linkname, "/") {
		return fmt.Errorf("symlink to %q: %w", linkname, errPathTraversal)
	}

	resolved := filepath.Join(filepath.Dir(name), filepath.FromSlash(linkname))
	if !filepath.IsLocal(resolved) {
		return fmt.Errorf("symlink to %q: %w", linkname, errPathTraversal)
	}

	if err := ensureParent(root, name); err != nil {
		return err
	}

	return root.Symlink(linkname, name)
}

// FindReleaseDir returns the single immediate subdirectory of dir whose name
// contains marker. Zero or several matches are reported as domain.ErrArchive.
func FindReleaseDir(dir, marker string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("list %s: %w: %w", dir, domain.ErrFilesystem, err)
	}

	var matches []string

	for _, entry := range entries {
		if entry.IsDir() && strings.Contains(entry.Name(), marker) {
			matches = append(matches, entry.Name())
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s: marker %q: %w: %w", dir, marker, domain.ErrArchive, errNoReleaseDir)
	case 1:
		return filepath.Join(dir, matches[0]), nil
	default:
		return "", fmt.Errorf("%s: %s: %w: %w", dir, strings.Join(matches, ", "), domain.ErrArchive, errManyReleaseDir)
	}
}

// IsPopulatedDir reports whether path is a directory with at least one entry.
func IsPopulatedDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	if !info.IsDir() {
		return false, nil
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return false, err
	}

	defer func() {
		_ = f.Close()
	}()

	names, err := f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return len(names) > 0, nil
}

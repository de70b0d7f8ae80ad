package state

import (
	"bufio"
	"bytes"
	"context"
	"crypto"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	goupdate "github.com/doitdistributed/go-update"

	domain "github.com/oshokin/express-cli/internal/domain/express"
)

// FileMode is the permission of the version file.
const FileMode os.FileMode = 0o644

// Repository defines persistence operations for the installed version.
type Repository interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, version string) error
}

// FileRepository persists the installed version to a text file on disk.
type FileRepository struct {
	// path is the filesystem location of the version file.
	path string
	// mu protects concurrent access to the version file.
	mu sync.Mutex
}

var (
	// ErrNotFound is returned when the version file does not exist yet.
	ErrNotFound = fmt.Errorf("version file not found: %w", domain.ErrState)
	// ErrEmpty is returned when the version file holds no version.
	ErrEmpty = fmt.Errorf("version file is empty: %w", domain.ErrState)

	errInvalidVersion = errors.New("version must be a single non-empty line")
)

// NewFileRepository creates a repository that reads/writes the file at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the location of the version file.
func (r *FileRepository) Path() string {
	return r.path
}

// Load returns the first line of the version file without surrounding whitespace.
func (r *FileRepository) Load(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}

		return "", fmt.Errorf("read version file: %w: %w", domain.ErrState, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(contents))
	if !scanner.Scan() {
		return "", ErrEmpty
	}

	version := strings.TrimSpace(scanner.Text())
	if version == "" {
		return "", ErrEmpty
	}

	return version, nil
}

// Save replaces the version file with version followed by a newline.
// The new content is written next to the file, verified against its SHA-256
// checksum and renamed into place, so readers never see a half-written file.
func (r *FileRepository) Save(_ context.Context, version string) error {
	if version == "" || strings.ContainsAny(version, "\r\n") {
		return fmt.Errorf("%q: %w", version, errInvalidVersion)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// go-update renames the current file away, so it has to exist.
	if _, err := os.Stat(r.path); errors.Is(err, os.ErrNotExist) {
		f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY, FileMode)
		if err != nil {
			return fmt.Errorf("create version file: %w: %w", domain.ErrFilesystem, err)
		}

		if err = f.Close(); err != nil {
			return fmt.Errorf("create version file: %w: %w", domain.ErrFilesystem, err)
		}
	}

	data := []byte(version + "\n")
	checksum := sha256.Sum256(data)

	options := goupdate.Options{
		TargetPath: r.path,
		TargetMode: FileMode,
		Checksum:   checksum[:],
		Hash:       crypto.SHA256,
	}

	if err := goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return fmt.Errorf("write version file: %w: %w", domain.ErrFilesystem, err)
	}

	return nil
}

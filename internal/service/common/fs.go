//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"os"

	domain "github.com/oshokin/express-cli/internal/domain/express"
	"github.com/oshokin/express-cli/internal/layout"
	"github.com/oshokin/express-cli/internal/logger"
)

// Exists reports whether path exists.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	return false, fmt.Errorf("stat %s: %w: %w", path, domain.ErrFilesystem, err)
}

// EnsureDir creates path with layout.DirMode unless it already exists.
// Failure is fatal: every later step writes below path.
func EnsureDir(ctx context.Context, path string) error {
	exists, err := Exists(path)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	if err = os.Mkdir(path, layout.DirMode); err != nil {
		logger.ErrorKV(ctx, "Creation of the directory failed", "path", path, "error", err)

		return fmt.Errorf("create %s: %w: %w", path, domain.ErrFilesystem, err)
	}

	logger.InfoKV(ctx, "Successfully created the directory", "path", path)

	return nil
}

//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/express-cli/internal/archive"
	domain "github.com/oshokin/express-cli/internal/domain/express"
	"github.com/oshokin/express-cli/internal/layout"
	"github.com/oshokin/express-cli/internal/logger"
)

// stagingPrefix names the directories releases are extracted into.
const stagingPrefix = ".staging-"

// Staging is a release extracted next to the canonical payload directory.
type Staging struct {
	// Dir is the staging directory inside the install root.
	Dir string
	// ReleaseDir is the extracted payload directory inside Dir.
	ReleaseDir string

	archivePath string
}

// Stage downloads the archive at downloadURL to the fixed archive path,
// extracts it into a fresh staging directory inside the install root and
// locates the single payload directory carrying marker.
// The staging directory lives on the same filesystem as the payload
// directory, so moving the release into place is a plain rename.
func Stage(
	ctx context.Context,
	client *http.Client,
	l *layout.Layout,
	downloadURL string,
	marker string,
) (*Staging, error) {
	removeLeftovers(ctx, l.ExpressDir)

	archivePath := l.ArchivePath()

	logger.InfoKV(ctx, "Downloading release archive", "url", downloadURL, "path", archivePath)

	if err := archive.Download(ctx, client, downloadURL, archivePath); err != nil {
		return nil, err
	}

	s := &Staging{archivePath: archivePath}

	dir, err := os.MkdirTemp(l.ExpressDir, stagingPrefix)
	if err != nil {
		s.Cleanup(ctx)

		return nil, fmt.Errorf("create staging directory: %w: %w", domain.ErrFilesystem, err)
	}

	s.Dir = dir

	logger.InfoKV(ctx, "Extracting release archive", "path", dir)

	if err = archive.Extract(archivePath, dir); err != nil {
		s.Cleanup(ctx)

		return nil, err
	}

	s.ReleaseDir, err = archive.FindReleaseDir(dir, marker)
	if err != nil {
		s.Cleanup(ctx)

		return nil, err
	}

	return s, nil
}

// Cleanup removes the staging directory and the downloaded archive.
func (s *Staging) Cleanup(ctx context.Context) {
	if s.Dir != "" {
		if err := os.RemoveAll(s.Dir); err != nil {
			logger.WarnKV(ctx, "Unable to remove staging directory", "path", s.Dir, "error", err)
		}
	}

	if err := os.Remove(s.archivePath); err != nil && !os.IsNotExist(err) {
		logger.WarnKV(ctx, "Unable to remove downloaded archive", "path", s.archivePath, "error", err)
	}
}

// removeLeftovers deletes staging directories of interrupted runs.
func removeLeftovers(ctx context.Context, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), stagingPrefix) {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		logger.WarnKV(ctx, "Removing leftover staging directory", "path", path)

		_ = os.RemoveAll(path)
	}
}

package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	domain "github.com/oshokin/express-cli/internal/domain/express"
	"github.com/oshokin/express-cli/internal/logger"
	"github.com/oshokin/express-cli/internal/version"
)

// Download fetches url into dest.
// The body is streamed into a temporary file next to dest which is renamed
// over dest only after the whole payload arrived, so a failed or non-200
// download never leaves a partial archive behind.
func Download(ctx context.Context, client *http.Client, url, dest string) (err error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request for %s: %w: %w", url, domain.ErrNetwork, err)
	}

	req.Header.Set("User-Agent", version.UserAgent())

	response, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w: %w", url, domain.ErrNetwork, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s, %s: %w", url, response.Status, domain.ErrNetwork)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
	if err != nil {
		return fmt.Errorf("create temporary archive: %w: %w", domain.ErrFilesystem, err)
	}

	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, response.Body)
	if err != nil {
		_ = tmp.Close()

		return fmt.Errorf("download %s: %w: %w", url, domain.ErrNetwork, err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temporary archive: %w: %w", domain.ErrFilesystem, err)
	}

	if err = os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("move archive to %s: %w: %w", dest, domain.ErrFilesystem, err)
	}

	logger.DebugKV(ctx, "Downloaded archive", "url", url, "path", dest, "bytes", written)

	return nil
}

package upgrader

import (
	"context"
	"fmt"
	"os"

	"github.com/oshokin/express-cli/internal/archive"
	domain "github.com/oshokin/express-cli/internal/domain/express"
	"github.com/oshokin/express-cli/internal/logger"
	"github.com/oshokin/express-cli/internal/repository/state"
	"github.com/oshokin/express-cli/internal/service/common"
)

var (
	errEmptyPayload  = fmt.Errorf("new payload directory is missing or empty: %w", domain.ErrArchive)
	errRestoreFailed = fmt.Errorf("previous payload could not be restored: %w", domain.ErrFilesystem)
)

// cutover swaps the active payload directory for a new one.
type cutover struct {
	payloadDir string
	backupDir  string
	repo       state.Repository

	// hasBackup is set once backupDir holds the previous payload.
	hasBackup bool
}

// run moves newDir into place as the payload directory and records version:
// 1) Move the current payload to the backup directory.
// 2) Move newDir to the payload directory.
// 3) Check the new payload directory is populated.
// 4) Record the new version.
// 5) Delete the backup.
// A failure in steps 2-4 restores the previous payload.
func (c *cutover) run(ctx context.Context, newDir, version string) error {
	if err := c.backup(ctx); err != nil {
		return err
	}

	if err := os.Rename(newDir, c.payloadDir); err != nil {
		return c.rollback(ctx, fmt.Errorf("rename %s to %s: %w: %w", newDir, c.payloadDir, domain.ErrFilesystem, err))
	}

	populated, err := archive.IsPopulatedDir(c.payloadDir)
	if err != nil {
		return c.rollback(ctx, fmt.Errorf("inspect %s: %w: %w", c.payloadDir, domain.ErrFilesystem, err))
	}

	if !populated {
		return c.rollback(ctx, fmt.Errorf("%s: %w", c.payloadDir, errEmptyPayload))
	}

	if err = c.repo.Save(ctx, version); err != nil {
		return c.rollback(ctx, fmt.Errorf("record installed version: %w", err))
	}

	logger.InfoKV(ctx, "Release payload moved into place", "path", c.payloadDir)

	if c.hasBackup {
		if err = os.RemoveAll(c.backupDir); err != nil {
			logger.WarnKV(ctx, "Unable to remove the previous payload", "path", c.backupDir, "error", err)
		}
	}

	return nil
}

// backup moves the current payload aside.
// A backup left by an interrupted run is discarded when the payload directory
// exists and adopted as the previous payload when it does not.
func (c *cutover) backup(ctx context.Context) error {
	payloadExists, err := common.Exists(c.payloadDir)
	if err != nil {
		return err
	}

	backupExists, err := common.Exists(c.backupDir)
	if err != nil {
		return err
	}

	switch {
	case payloadExists && backupExists:
		logger.WarnKV(ctx, "Removing stale backup directory", "path", c.backupDir)

		if err = os.RemoveAll(c.backupDir); err != nil {
			return fmt.Errorf("remove stale backup %s: %w: %w", c.backupDir, domain.ErrFilesystem, err)
		}
	case backupExists:
		logger.WarnKV(ctx, "Payload directory is missing, keeping the backup as the previous payload",
			"path", c.backupDir)

		c.hasBackup = true

		return nil
	case !payloadExists:
		logger.WarnKV(ctx, "No previous payload to back up", "path", c.payloadDir)

		return nil
	}

	if err = os.Rename(c.payloadDir, c.backupDir); err != nil {
		return fmt.Errorf("rename %s to %s: %w: %w", c.payloadDir, c.backupDir, domain.ErrFilesystem, err)
	}

	c.hasBackup = true

	return nil
}

// rollback puts the previous payload back and returns cause.
func (c *cutover) rollback(ctx context.Context, cause error) error {
	if !c.hasBackup {
		if err := os.RemoveAll(c.payloadDir); err != nil {
			logger.ErrorKV(ctx, "Unable to remove the rejected payload", "path", c.payloadDir, "error", err)
		}

		return cause
	}

	logger.WarnKV(ctx, "Restoring the previous payload", "path", c.backupDir, "cause", cause)

	if err := os.RemoveAll(c.payloadDir); err != nil {
		logger.ErrorKV(ctx, "Unable to remove the rejected payload", "path", c.payloadDir, "error", err)

		return fmt.Errorf("%w: %w: %w", cause, errRestoreFailed, err)
	}

	if err := os.Rename(c.backupDir, c.payloadDir); err != nil {
		logger.ErrorKV(ctx, "Unable to restore the previous payload", "path", c.backupDir, "error", err)

		return fmt.Errorf("%w: %w: %w", cause, errRestoreFailed, err)
	}

	return cause
}

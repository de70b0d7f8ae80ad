package installer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/oshokin/express-cli/internal/config"
	domain "github.com/oshokin/express-cli/internal/domain/express"
	"github.com/oshokin/express-cli/internal/guard"
	"github.com/oshokin/express-cli/internal/layout"
	"github.com/oshokin/express-cli/internal/logger"
	"github.com/oshokin/express-cli/internal/release"
	"github.com/oshokin/express-cli/internal/repository/state"
	"github.com/oshokin/express-cli/internal/service/common"
	"github.com/oshokin/express-cli/internal/telemetry"
	"github.com/oshokin/express-cli/internal/version"
)

// FlowName is the telemetry event name of the init flow.
const FlowName = "express-init"

var errLayoutRequired = errors.New("install layout must be provided")

// Options are inputs accepted by the installer entry point.
type Options struct {
	// Layout is the directory tree to install into.
	Layout *layout.Layout
	// Config holds endpoints and timeouts. Defaults are used when nil.
	Config *config.Config
	// Resolver overrides the release resolver derived from Config.
	Resolver release.Resolver
	// HTTPClient overrides the client derived from Config.Timeout.
	HTTPClient *http.Client
	// Tracker receives progress events. Telemetry is off when nil.
	Tracker telemetry.Tracker
}

// runner holds the collaborators of a single installation.
type runner struct {
	layout     *layout.Layout
	cfg        *config.Config
	resolver   release.Resolver
	httpClient *http.Client
	repo       state.Repository
	reporter   *common.Reporter
}

// Run installs the latest release unless the install root already exists.
func Run(ctx context.Context, opts *Options) (domain.Outcome, error) {
	ctx = logger.WithName(ctx, "init")

	r, err := newRunner(opts)
	if err != nil {
		return domain.OutcomeUnknown, err
	}

	outcome, err := r.install(ctx)
	if err != nil {
		r.reporter.Report(ctx, "init", common.StateFailed, 0)
		logger.ErrorKV(ctx, "Initialization failed", "error", err)

		return domain.OutcomeUnknown, err
	}

	logger.Info(ctx, outcome.String())

	return outcome, nil
}

func newRunner(opts *Options) (*runner, error) {
	if opts == nil || opts.Layout == nil {
		return nil, errLayoutRequired
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = common.NewHTTPClient(cfg.Timeout)
	}

	resolver := opts.Resolver
	if resolver == nil {
		resolver = release.New(cfg,
			release.WithHTTPClient(httpClient),
			release.WithUserAgent(version.UserAgent()),
		)
	}

	return &runner{
		layout:     opts.Layout,
		cfg:        cfg,
		resolver:   resolver,
		httpClient: httpClient,
		repo:       state.NewFileRepository(opts.Layout.VersionFile()),
		reporter:   common.NewReporter(opts.Tracker, FlowName),
	}, nil
}

// install runs the workflow:
// 1) Skip when the install root exists.
// 2) Resolve the latest release.
// 3) Create the pf9 root directory.
// 4) Download and extract the archive into the install root.
// 5) Rename the payload directory to its canonical name.
// 6) Record the installed version.
func (r *runner) install(ctx context.Context) (domain.Outcome, error) {
	exists, err := common.Exists(r.layout.ExpressDir)
	if err != nil {
		return domain.OutcomeUnknown, err
	}

	if exists {
		logger.InfoKV(ctx, "Install directory already exists", "path", r.layout.ExpressDir)
		r.reporter.Report(ctx, "init", common.StateSkipped, 100)

		return domain.OutcomeAlreadyInitialized, nil
	}

	r.reporter.Report(ctx, "resolve", common.StateStarted, 0)
	logger.Info(ctx, "Resolving the latest release")

	info, err := r.resolver.ResolveLatest(ctx)
	if err != nil {
		return domain.OutcomeUnknown, fmt.Errorf("resolve latest release: %w", err)
	}

	ctx = logger.WithKV(ctx, "version", info.Version)

	if err = common.EnsureDir(ctx, r.layout.RootDir); err != nil {
		return domain.OutcomeUnknown, err
	}

	marker := guard.NewMarker(r.layout.MarkerFile(), "")
	if err = marker.Acquire(ctx); err != nil {
		return domain.OutcomeUnknown, err
	}

	defer marker.Release(ctx)

	if err = r.populate(ctx, info); err != nil {
		return domain.OutcomeUnknown, err
	}

	r.reporter.Report(ctx, "init", common.StateComplete, 100)

	return domain.OutcomeInstalled, nil
}

// populate creates the install root and fills it. A failed run removes the
// install root again, so the next init does not mistake it for an installation.
func (r *runner) populate(ctx context.Context, info *domain.ReleaseInfo) (err error) {
	if err = os.Mkdir(r.layout.ExpressDir, layout.DirMode); err != nil {
		return fmt.Errorf("create %s: %w: %w", r.layout.ExpressDir, domain.ErrFilesystem, err)
	}

	defer func() {
		if err == nil {
			return
		}

		if removeErr := os.RemoveAll(r.layout.ExpressDir); removeErr != nil {
			logger.ErrorKV(ctx, "Unable to remove incomplete install directory",
				"path", r.layout.ExpressDir, "error", removeErr)
		}
	}()

	r.reporter.Report(ctx, "download", common.StateStarted, 25)

	staging, err := common.Stage(ctx, r.httpClient, r.layout, info.DownloadURL, r.cfg.ReleaseMarker)
	if err != nil {
		return err
	}

	defer staging.Cleanup(ctx)

	r.reporter.Report(ctx, "install", common.StateStarted, 75)

	payloadDir := r.layout.PayloadDir()
	if err = os.Rename(staging.ReleaseDir, payloadDir); err != nil {
		return fmt.Errorf("rename %s to %s: %w: %w", staging.ReleaseDir, payloadDir, domain.ErrFilesystem, err)
	}

	logger.InfoKV(ctx, "Release payload moved into place", "path", payloadDir)

	if err = r.repo.Save(ctx, info.Version); err != nil {
		return fmt.Errorf("record installed version: %w", err)
	}

	return nil
}

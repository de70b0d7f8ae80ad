package upgrader

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	goversion "github.com/hashicorp/go-version"

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

// FlowName is the telemetry event name of the upgrade flow.
const FlowName = "express-upgrade"

var errLayoutRequired = errors.New("install layout must be provided")

// Options are inputs accepted by the upgrader entry point.
type Options struct {
	// Layout is the directory tree holding the installation.
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

// runner holds the collaborators of a single upgrade.
type runner struct {
	layout     *layout.Layout
	cfg        *config.Config
	resolver   release.Resolver
	httpClient *http.Client
	repo       state.Repository
	reporter   *common.Reporter
}

// Run upgrades the installation when a different release is available.
func Run(ctx context.Context, opts *Options) (domain.Outcome, error) {
	ctx = logger.WithName(ctx, "upgrade")

	r, err := newRunner(opts)
	if err != nil {
		return domain.OutcomeUnknown, err
	}

	outcome, err := r.upgrade(ctx)
	if err != nil {
		r.reporter.Report(ctx, "upgrade", common.StateFailed, 0)
		logger.ErrorKV(ctx, "Upgrade failed", "error", err)

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

// upgrade runs the workflow:
// 1) Resolve the latest release.
// 2) Read the installed version.
// 3) Stop when nothing newer is available.
// 4) Download and stage the new release.
// 5) Cut over through the backup directory and record the new version.
func (r *runner) upgrade(ctx context.Context) (domain.Outcome, error) {
	r.reporter.Report(ctx, "resolve", common.StateStarted, 0)
	logger.Info(ctx, "Resolving the latest release")

	latest, err := r.resolver.ResolveLatest(ctx)
	if err != nil {
		return domain.OutcomeUnknown, fmt.Errorf("resolve latest release: %w", err)
	}

	current, err := r.repo.Load(ctx)
	if err != nil {
		return domain.OutcomeUnknown, fmt.Errorf("read installed version, run init first: %w", err)
	}

	ctx = logger.WithKV(ctx, "installed", current, "latest", latest.Version)

	if !needsUpgrade(ctx, current, latest.Version) {
		r.reporter.Report(ctx, "upgrade", common.StateSkipped, 100)

		return domain.OutcomeAlreadyLatest, nil
	}

	logger.Info(ctx, "A newer version of Platform9 Express is available")

	if err = common.EnsureDir(ctx, r.layout.ExpressDir); err != nil {
		return domain.OutcomeUnknown, err
	}

	marker := guard.NewMarker(r.layout.MarkerFile(), "")
	if err = marker.Acquire(ctx); err != nil {
		return domain.OutcomeUnknown, err
	}

	defer marker.Release(ctx)

	r.reporter.Report(ctx, "download", common.StateStarted, 25)

	staging, err := common.Stage(ctx, r.httpClient, r.layout, latest.DownloadURL, r.cfg.ReleaseMarker)
	if err != nil {
		return domain.OutcomeUnknown, err
	}

	defer staging.Cleanup(ctx)

	r.reporter.Report(ctx, "cutover", common.StateStarted, 75)

	c := &cutover{
		payloadDir: r.layout.PayloadDir(),
		backupDir:  r.layout.BackupDir(),
		repo:       r.repo,
	}

	if err = c.run(ctx, staging.ReleaseDir, latest.Version); err != nil {
		return domain.OutcomeUnknown, err
	}

	r.reporter.Report(ctx, "upgrade", common.StateComplete, 100)

	return domain.OutcomeUpgraded, nil
}

// needsUpgrade reports whether latest should replace current.
// Different identifiers trigger an upgrade unless both parse as versions and
// the installed one is newer, which would be a downgrade.
func needsUpgrade(ctx context.Context, current, latest string) bool {
	if current == latest {
		logger.Info(ctx, "Installed version is the latest")

		return false
	}

	currentVersion, currentErr := goversion.NewVersion(current)
	latestVersion, latestErr := goversion.NewVersion(latest)

	if currentErr == nil && latestErr == nil {
		if currentVersion.Equal(latestVersion) {
			logger.Info(ctx, "Installed version is the latest")

			return false
		}

		if currentVersion.GreaterThan(latestVersion) {
			logger.Warn(ctx, "Installed version is newer than the latest release, refusing to downgrade")

			return false
		}
	}

	return true
}

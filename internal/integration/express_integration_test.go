package integration

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/express-cli/internal/config"
	domain "github.com/oshokin/express-cli/internal/domain/express"
	"github.com/oshokin/express-cli/internal/layout"
	"github.com/oshokin/express-cli/internal/service/installer"
	"github.com/oshokin/express-cli/internal/service/upgrader"
	"github.com/oshokin/express-cli/internal/telemetry"
	"github.com/oshokin/express-cli/internal/testutil/releasetest"
)

// segmentSink collects the batches posted to a fake Segment endpoint.
type segmentSink struct {
	mu      sync.Mutex
	batches []string
}

func (s *segmentSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.batches = append(s.batches, r.URL.Path+" "+string(body))
	s.mu.Unlock()

	w.WriteHeader(http.StatusOK)
}

func (s *segmentSink) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return strings.Join(s.batches, "\n")
}

// newSession opens a telemetry session posting to sink and closes it on cleanup.
func newSession(t *testing.T, endpoint string) (*telemetry.Client, *telemetry.Session) {
	t.Helper()

	client, err := telemetry.NewClient(context.Background(), telemetry.Config{
		WriteKey: "integration",
		Endpoint: endpoint,
	})
	require.NoError(t, err)

	session, err := client.NewSession()
	require.NoError(t, err)

	return client, session
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	contents, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(contents)
}

// TestInitThenUpgrade drives both workflows against a fake GitHub API
// and checks the events delivered to a fake Segment endpoint.
func TestInitThenUpgrade(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	releases := releasetest.NewServer(t, "v1.0.0", releasetest.Release(t, "platform9-express-1a1a1a", "v1"))

	sink := new(segmentSink)
	segment := httptest.NewServer(sink)
	t.Cleanup(segment.Close)

	l, err := layout.New(t.TempDir())
	require.NoError(t, err)

	cfgPath := filepath.Join(t.TempDir(), "express-cli.yaml")
	require.NoError(t, config.Save(cfgPath, &config.Config{GitHubAPIURL: releases.URL}))

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)

	client, session := newSession(t, segment.URL)
	require.NoError(t, session.SendIdentify())

	// Upgrading before init fails without touching the network archive.
	_, err = upgrader.Run(ctx, &upgrader.Options{Layout: l, Config: cfg, Tracker: session})
	require.ErrorIs(t, err, domain.ErrState)
	require.Zero(t, releases.Downloads())

	outcome, err := installer.Run(ctx, &installer.Options{Layout: l, Config: cfg, Tracker: session})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeInstalled, outcome)
	require.Equal(t, "v1.0.0\n", readFile(t, l.VersionFile()))
	require.Equal(t, "v1", readFile(t, filepath.Join(l.PayloadDir(), "README.md")))
	require.FileExists(t, l.AnsibleRunner())

	outcome, err = upgrader.Run(ctx, &upgrader.Options{Layout: l, Config: cfg, Tracker: session})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeAlreadyLatest, outcome)
	require.Equal(t, 1, releases.Downloads())

	releases.SetRelease("v2.0.0", releasetest.Release(t, "platform9-express-2b2b2b", "v2"))

	outcome, err = upgrader.Run(ctx, &upgrader.Options{Layout: l, Config: cfg, Tracker: session})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeUpgraded, outcome)
	require.Equal(t, "v2.0.0\n", readFile(t, l.VersionFile()))
	require.Equal(t, "v2", readFile(t, filepath.Join(l.PayloadDir(), "README.md")))
	require.NoDirExists(t, l.BackupDir())
	require.NoFileExists(t, l.ArchivePath())
	require.NoFileExists(t, l.MarkerFile())

	outcome, err = installer.Run(ctx, &installer.Options{Layout: l, Config: cfg, Tracker: session})
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeAlreadyInitialized, outcome)
	require.Equal(t, 2, releases.Downloads())

	require.NoError(t, client.Close())

	delivered := sink.String()
	require.Contains(t, delivered, "/v1/batch")
	require.Contains(t, delivered, `"wizard_name":"express-init"`)
	require.Contains(t, delivered, `"wizard_name":"express-upgrade"`)
	require.Contains(t, delivered, `"deployment_type":"BareOS"`)
	require.Contains(t, delivered, `"bare_os_deployment":"Activated"`)
}

// TestUpgrade_KeepsInstallationOnBrokenArchive serves an archive without a
// release directory and checks the installed payload survives.
func TestUpgrade_KeepsInstallationOnBrokenArchive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	releases := releasetest.NewServer(t, "v1.0.0", releasetest.Release(t, "platform9-express-1a1a1a", "v1"))

	l, err := layout.New(t.TempDir())
	require.NoError(t, err)

	cfg := config.Default()
	cfg.ReleaseIndexURL = releases.IndexURL()

	_, err = installer.Run(ctx, &installer.Options{Layout: l, Config: cfg})
	require.NoError(t, err)

	releases.SetRelease("v2.0.0", releasetest.Tarball(t, map[string]string{
		"platform9-express-2b2b2b/README.md": "v2",
		"platform9-express-3c3c3c/README.md": "v3",
	}))

	_, err = upgrader.Run(ctx, &upgrader.Options{Layout: l, Config: cfg})
	require.ErrorIs(t, err, domain.ErrArchive)

	require.Equal(t, "v1.0.0\n", readFile(t, l.VersionFile()))
	require.Equal(t, "v1", readFile(t, filepath.Join(l.PayloadDir(), "README.md")))
	require.NoDirExists(t, l.BackupDir())

	entries, err := os.ReadDir(l.ExpressDir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/oshokin/express-cli/internal/config"
	domain "github.com/oshokin/express-cli/internal/domain/express"
	"github.com/oshokin/express-cli/internal/version"
)

// maxMetadataBytes caps the size of a metadata response.
const maxMetadataBytes = 1 << 20

// Resolver returns the latest published release.
type Resolver interface {
	ResolveLatest(ctx context.Context) (*domain.ReleaseInfo, error)
}

// Option configures the HTTP behaviour of a resolver.
type Option func(*fetcher)

// WithHTTPClient sets the client used for metadata requests.
func WithHTTPClient(client *http.Client) Option {
	return func(f *fetcher) {
		if client != nil {
			f.httpClient = client
		}
	}
}

// WithUserAgent sets the User-Agent header sent with metadata requests.
func WithUserAgent(userAgent string) Option {
	return func(f *fetcher) {
		f.userAgent = userAgent
	}
}

// New picks the release index when one is configured and the GitHub API otherwise.
//
//nolint:ireturn // Callers only need the Resolver behaviour.
func New(cfg *config.Config, opts ...Option) Resolver {
	if cfg.ReleaseIndexURL != "" {
		return NewIndexResolver(cfg.ReleaseIndexURL, opts...)
	}

	return NewGitHubResolver(cfg.GitHubAPIURL, cfg.GitHubRepository, opts...)
}

// fetcher performs a single JSON GET request.
type fetcher struct {
	httpClient *http.Client
	userAgent  string
}

func newFetcher(opts []Option) fetcher {
	f := fetcher{
		httpClient: http.DefaultClient,
		userAgent:  version.UserAgent(),
	}

	for _, opt := range opts {
		opt(&f)
	}

	return f
}

// getJSON fetches url and decodes the body into target.
// Transport failures and non-200 statuses are reported as domain.ErrNetwork,
// undecodable bodies as domain.ErrParse.
func (f *fetcher) getJSON(ctx context.Context, url, accept string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request for %s: %w: %w", url, domain.ErrNetwork, err)
	}

	req.Header.Set("Accept", accept)

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	response, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w: %w", url, domain.ErrNetwork, err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("%s, %s: %w", url, response.Status, domain.ErrNetwork)
	}

	body, err := io.ReadAll(io.LimitReader(response.Body, maxMetadataBytes))
	if err != nil {
		return fmt.Errorf("read %s: %w: %w", url, domain.ErrNetwork, err)
	}

	if err = json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode %s: %w: %w", url, domain.ErrParse, err)
	}

	return nil
}

// newReleaseInfo validates the decoded fields.
func newReleaseInfo(source, releaseVersion, downloadURL string) (*domain.ReleaseInfo, error) {
	releaseVersion = strings.TrimSpace(releaseVersion)
	downloadURL = strings.TrimSpace(downloadURL)

	if releaseVersion == "" {
		return nil, fmt.Errorf("%s: version is missing: %w", source, domain.ErrParse)
	}

	if downloadURL == "" {
		return nil, fmt.Errorf("%s: download url is missing: %w", source, domain.ErrParse)
	}

	return &domain.ReleaseInfo{
		Version:     releaseVersion,
		DownloadURL: downloadURL,
	}, nil
}

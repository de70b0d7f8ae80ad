package release

import (
	"context"
	"strings"

	domain "github.com/oshokin/express-cli/internal/domain/express"
)

// GitHubResolver reads the latest release of a GitHub repository.
type GitHubResolver struct {
	fetcher

	url string
}

// githubRelease is the subset of the GitHub release payload in use.
type githubRelease struct {
	TagName    string `json:"tag_name"`
	TarballURL string `json:"tarball_url"`
}

// NewGitHubResolver creates a resolver for repository ("owner/name") served by apiURL.
func NewGitHubResolver(apiURL, repository string, opts ...Option) *GitHubResolver {
	return &GitHubResolver{
		fetcher: newFetcher(opts),
		url:     strings.TrimRight(apiURL, "/") + "/repos/" + repository + "/releases/latest",
	}
}

// ResolveLatest fetches the latest release tag and its source tarball URL.
func (r *GitHubResolver) ResolveLatest(ctx context.Context) (*domain.ReleaseInfo, error) {
	var payload githubRelease
	if err := r.getJSON(ctx, r.url, "application/vnd.github+json", &payload); err != nil {
		return nil, err
	}

	return newReleaseInfo(r.url, payload.TagName, payload.TarballURL)
}

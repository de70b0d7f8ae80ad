package release

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	domain "github.com/oshokin/express-cli/internal/domain/express"
)

// IndexResolver reads a release index document.
//
// Both the flat form {"version": "v2.0.0", "url_tar": "..."} and the nested
// form {"version": {"version": "v2.0.0", "url_tar": "..."}} are accepted;
// "url" is an alias of "url_tar".
type IndexResolver struct {
	fetcher

	url string
}

// indexEntry is the release record of an index document.
type indexEntry struct {
	Version string `json:"version"`
	URLTar  string `json:"url_tar"`
	URL     string `json:"url"`
}

// indexDocument is the top level of an index document.
type indexDocument struct {
	Version json.RawMessage `json:"version"`
	URLTar  string          `json:"url_tar"`
	URL     string          `json:"url"`
}

// NewIndexResolver creates a resolver for the index at url.
func NewIndexResolver(url string, opts ...Option) *IndexResolver {
	return &IndexResolver{
		fetcher: newFetcher(opts),
		url:     url,
	}
}

// ResolveLatest fetches the index and returns the release it advertises.
func (r *IndexResolver) ResolveLatest(ctx context.Context) (*domain.ReleaseInfo, error) {
	var document indexDocument
	if err := r.getJSON(ctx, r.url, "application/json", &document); err != nil {
		return nil, err
	}

	entry, err := document.entry()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", r.url, domain.ErrParse, err)
	}

	downloadURL := entry.URLTar
	if downloadURL == "" {
		downloadURL = entry.URL
	}

	return newReleaseInfo(r.url, entry.Version, downloadURL)
}

// entry flattens both document forms into one record.
func (d *indexDocument) entry() (indexEntry, error) {
	raw := bytes.TrimSpace(d.Version)

	var entry indexEntry

	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '{':
		if err := json.Unmarshal(raw, &entry); err != nil {
			return entry, err
		}
	default:
		if err := json.Unmarshal(raw, &entry.Version); err != nil {
			return entry, err
		}
	}

	if entry.URLTar == "" {
		entry.URLTar = d.URLTar
	}

	if entry.URL == "" {
		entry.URL = d.URL
	}

	return entry, nil
}

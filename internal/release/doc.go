// Package release resolves the latest Platform9 Express release.
//
// Two endpoint shapes are supported: a release index returning
// {"version", "url_tar"} and the GitHub "latest release" API returning
// {"tag_name", "tarball_url"}. Each lookup is a single HTTP request without
// retries.
package release

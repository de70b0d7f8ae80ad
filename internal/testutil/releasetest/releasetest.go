// Package releasetest builds release archives and serves them over HTTP for
// tests of the install and upgrade workflows.
package releasetest

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"strings"
	"sync"
	"testing"
)

const (
	// Repository is the repository path served by Server.
	Repository = "platform9/express"
	// IndexPath serves the release index document.
	IndexPath = "/release.json"
	// TarballPath serves the release archive.
	TarballPath = "/release.tar.gz"
	// GitHubLatestPath serves the GitHub latest release document.
	GitHubLatestPath = "/repos/" + Repository + "/releases/latest"
)

// Tarball builds a gzip-compressed tar from files (slash separated path -> content).
// Parent directories get their own entries and a pax global header comes first,
// the way GitHub source tarballs are laid out.
func Tarball(t testing.TB, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer

	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	must := func(err error) {
		if err != nil {
			t.Fatalf("build tarball: %v", err)
		}
	}

	must(tw.WriteHeader(&tar.Header{
		Typeflag:   tar.TypeXGlobalHeader,
		Name:       "pax_global_header",
		PAXRecords: map[string]string{"comment": "0123456789abcdef"},
	}))

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}

	sort.Strings(names)

	written := make(map[string]struct{}, len(names))

	for _, name := range names {
		dirs := strings.Split(path.Dir(name), "/")
		for i := range dirs {
			dir := strings.Join(dirs[:i+1], "/")
			if dir == "." {
				continue
			}

			if _, ok := written[dir]; ok {
				continue
			}

			written[dir] = struct{}{}

			must(tw.WriteHeader(&tar.Header{
				Typeflag: tar.TypeDir,
				Name:     dir + "/",
				Mode:     0o755,
			}))
		}

		body := files[name]

		must(tw.WriteHeader(&tar.Header{
			Typeflag: tar.TypeReg,
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(body)),
		}))

		_, err := tw.Write([]byte(body))
		must(err)
	}

	must(tw.Close())
	must(gz.Close())

	return buf.Bytes()
}

// Release returns a tarball with a single top-level release directory.
func Release(t testing.TB, dirName, payload string) []byte {
	t.Helper()

	return Tarball(t, map[string]string{
		dirName + "/README.md":   payload,
		dirName + "/pf9-express": "#!/bin/bash\necho " + payload + "\n",
	})
}

// Server serves a release index, a GitHub latest release document and the archive.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	version       string
	tarball       []byte
	archiveStatus int
	downloads     int
	lookups       int
}

// NewServer starts a server advertising version with the given archive.
func NewServer(t testing.TB, version string, tarball []byte) *Server {
	t.Helper()

	s := &Server{
		version:       version,
		tarball:       tarball,
		archiveStatus: http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(IndexPath, s.serveIndex)
	mux.HandleFunc(GitHubLatestPath, s.serveGitHubLatest)
	mux.HandleFunc(TarballPath, s.serveTarball)

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)

	return s
}

// SetRelease changes the advertised release.
func (s *Server) SetRelease(version string, tarball []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.version = version
	s.tarball = tarball
}

// SetArchiveStatus makes the archive endpoint answer with status and no payload.
func (s *Server) SetArchiveStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.archiveStatus = status
}

// Downloads returns how many times the archive was requested.
func (s *Server) Downloads() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.downloads
}

// Lookups returns how many times release metadata was requested.
func (s *Server) Lookups() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lookups
}

// IndexURL is the address of the release index document.
func (s *Server) IndexURL() string {
	return s.URL + IndexPath
}

func (s *Server) serveIndex(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.lookups++
	document := map[string]string{"version": s.version, "url_tar": s.URL + TarballPath}
	s.mu.Unlock()

	writeJSON(w, document)
}

func (s *Server) serveGitHubLatest(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.lookups++
	document := map[string]string{"tag_name": s.version, "tarball_url": s.URL + TarballPath}
	s.mu.Unlock()

	writeJSON(w, document)
}

func (s *Server) serveTarball(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	s.downloads++
	status, tarball := s.archiveStatus, s.tarball
	s.mu.Unlock()

	if status != http.StatusOK {
		http.Error(w, http.StatusText(status), status)
		return
	}

	w.Header().Set("Content-Type", "application/gzip")
	_, _ = w.Write(tarball)
}

func writeJSON(w http.ResponseWriter, document any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(document)
}

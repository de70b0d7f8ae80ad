//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"net/http"
	"time"

	"github.com/oshokin/express-cli/internal/config"
)

// NewHTTPClient returns a client whose requests are bounded by timeout.
// A non-positive timeout falls back to config.DefaultTimeout.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	return &http.Client{Timeout: timeout}
}

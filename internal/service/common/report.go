//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"

	"github.com/oshokin/express-cli/internal/logger"
	"github.com/oshokin/express-cli/internal/telemetry"
)

// Telemetry states reported for each step.
const (
	StateStarted  = "started"
	StateComplete = "complete"
	StateSkipped  = "skipped"
	StateFailed   = "failed"
)

// Reporter sends best-effort progress events for one flow.
type Reporter struct {
	tracker telemetry.Tracker
	name    string
}

// NewReporter reports progress of the flow called name. A nil tracker disables reporting.
func NewReporter(tracker telemetry.Tracker, name string) *Reporter {
	if tracker == nil {
		tracker = telemetry.Nop{}
	}

	return &Reporter{
		tracker: tracker,
		name:    name,
	}
}

// Report sends one event. Failures are logged and never returned.
func (r *Reporter) Report(ctx context.Context, step, state string, progress int) {
	if err := r.tracker.SendTrack(step, state, progress, r.name, ""); err != nil {
		logger.WarnKV(ctx, "Unable to send telemetry", "step", step, "error", err)
	}
}

package telemetry

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/analytics-go/v3"
)

const (
	// DeploymentType tags every track event.
	DeploymentType = "BareOS"

	// amplitudeIntegration carries the session id to Amplitude.
	amplitudeIntegration = "Amplitude"
)

// Tracker is the telemetry surface used by the installer and upgrader.
type Tracker interface {
	// SendTrack reports that step of the named flow reached state at progress percent.
	SendTrack(step, state string, progress int, name, userID string) error
	// SendIdentify announces the device and session.
	SendIdentify() error
}

// enqueuer accepts analytics messages.
type enqueuer interface {
	Enqueue(message analytics.Message) error
}

// Session tags events with stable device and session identifiers.
type Session struct {
	sink enqueuer
	now  func() time.Time

	// DeviceID is derived from the hardware node id and stays stable per machine.
	DeviceID string
	// AnonymousID is unique for this session.
	AnonymousID string
	// SessionTime is the session start in Unix seconds.
	SessionTime string
}

func newSession(sink enqueuer) (*Session, error) {
	anonymousID, err := uuid.NewUUID()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}

	return &Session{
		sink:        sink,
		now:         time.Now,
		DeviceID:    DeviceID(uuid.NodeID()),
		AnonymousID: anonymousID.String(),
		SessionTime: strconv.FormatInt(time.Now().Unix(), 10),
	}, nil
}

// DeviceID derives a name-based UUID from a hardware node id.
// The node id is rendered as its 48-bit decimal value.
func DeviceID(nodeID []byte) string {
	var buf [8]byte

	if len(nodeID) > 6 {
		nodeID = nodeID[len(nodeID)-6:]
	}

	copy(buf[8-len(nodeID):], nodeID)

	node := strconv.FormatUint(binary.BigEndian.Uint64(buf[:]), 10)

	return uuid.NewMD5(uuid.NameSpaceDNS, []byte(node)).String()
}

// SendTrack enqueues a track event named after the flow.
func (s *Session) SendTrack(step, state string, progress int, name, userID string) error {
	properties := analytics.NewProperties().
		Set("anonymousId", s.AnonymousID).
		Set("wizard_step", step).
		Set("wizard_state", state).
		Set("wizard_progress", progress).
		Set("wizard_name", name).
		Set("device_id", s.DeviceID).
		Set("deployment_type", DeploymentType)

	if userID != "" {
		properties.Set("user_id", userID)
	}

	message := analytics.Track{
		AnonymousId: s.AnonymousID,
		UserId:      userID,
		Event:       name,
		Timestamp:   s.now(),
		Properties:  properties,
		Integrations: analytics.NewIntegrations().
			Set(amplitudeIntegration, map[string]any{"session_id": s.SessionTime}),
	}

	if err := s.sink.Enqueue(message); err != nil {
		return fmt.Errorf("enqueue track %q: %w", name, err)
	}

	return nil
}

// SendIdentify enqueues an identify event for the device.
func (s *Session) SendIdentify() error {
	now := s.now()

	message := analytics.Identify{
		AnonymousId: s.AnonymousID,
		Timestamp:   now,
		Traits: analytics.NewTraits().
			Set("anonymousId", s.AnonymousID).
			Set("device_id", s.DeviceID).
			Set("bare_os_deployment", "Activated").
			Set("bare_os_deployment_state", "Initialized").
			Set("createdAt", now.Format(time.RFC3339)),
	}

	if err := s.sink.Enqueue(message); err != nil {
		return fmt.Errorf("enqueue identify: %w", err)
	}

	return nil
}

// Nop discards every event. It is used when no write key is configured.
type Nop struct{}

// SendTrack does nothing.
func (Nop) SendTrack(string, string, int, string, string) error { return nil }

// SendIdentify does nothing.
func (Nop) SendIdentify() error { return nil }

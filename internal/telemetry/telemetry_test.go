package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/analytics-go/v3"
	"github.com/stretchr/testify/require"
)

var errTestSink = errors.New("test sink error")

// recordingSink keeps every enqueued message.
type recordingSink struct {
	messages []analytics.Message
	err      error
}

func (r *recordingSink) Enqueue(message analytics.Message) error {
	if r.err != nil {
		return r.err
	}

	r.messages = append(r.messages, message)

	return nil
}

func newTestSession(t *testing.T, sink enqueuer) *Session {
	t.Helper()

	s, err := newSession(sink)
	require.NoError(t, err)

	s.now = func() time.Time {
		return time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	}

	return s
}

func TestNewSession_Identifiers(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, new(recordingSink))

	anonymousID, err := uuid.Parse(s.AnonymousID)
	require.NoError(t, err)
	require.Equal(t, uuid.Version(1), anonymousID.Version())

	deviceID, err := uuid.Parse(s.DeviceID)
	require.NoError(t, err)
	require.Equal(t, uuid.Version(3), deviceID.Version())

	require.NotEmpty(t, s.SessionTime)

	other := newTestSession(t, new(recordingSink))
	require.Equal(t, s.DeviceID, other.DeviceID)
	require.NotEqual(t, s.AnonymousID, other.AnonymousID)
}

// TestDeviceID renders the node id as a decimal number before hashing.
func TestDeviceID(t *testing.T) {
	t.Parallel()

	node := []byte{0x00, 0x00, 0x00, 0x00, 0x01, 0x00}
	want := uuid.NewMD5(uuid.NameSpaceDNS, []byte("256")).String()

	require.Equal(t, want, DeviceID(node))
	require.Equal(t, DeviceID(node), DeviceID(append([]byte{0xff, 0xff}, node...)))
}

func TestSession_SendTrack(t *testing.T) {
	t.Parallel()

	sink := new(recordingSink)
	s := newTestSession(t, sink)

	require.NoError(t, s.SendTrack("download", "started", 40, "express-init", ""))
	require.NoError(t, s.SendTrack("done", "complete", 100, "express-init", "user-1"))
	require.Len(t, sink.messages, 2)

	track, ok := sink.messages[0].(analytics.Track)
	require.True(t, ok)
	require.Equal(t, "express-init", track.Event)
	require.Equal(t, s.AnonymousID, track.AnonymousId)
	require.Empty(t, track.UserId)
	require.Equal(t, analytics.Properties{
		"anonymousId":     s.AnonymousID,
		"wizard_step":     "download",
		"wizard_state":    "started",
		"wizard_progress": 40,
		"wizard_name":     "express-init",
		"device_id":       s.DeviceID,
		"deployment_type": DeploymentType,
	}, track.Properties)
	require.Equal(t, map[string]any{"session_id": s.SessionTime}, track.Integrations["Amplitude"])

	track, ok = sink.messages[1].(analytics.Track)
	require.True(t, ok)
	require.Equal(t, "user-1", track.UserId)
	require.Equal(t, "user-1", track.Properties["user_id"])
}

func TestSession_SendIdentify(t *testing.T) {
	t.Parallel()

	sink := new(recordingSink)
	s := newTestSession(t, sink)

	require.NoError(t, s.SendIdentify())
	require.Len(t, sink.messages, 1)

	identify, ok := sink.messages[0].(analytics.Identify)
	require.True(t, ok)
	require.Equal(t, s.AnonymousID, identify.AnonymousId)
	require.Equal(t, "Activated", identify.Traits["bare_os_deployment"])
	require.Equal(t, "Initialized", identify.Traits["bare_os_deployment_state"])
	require.Equal(t, "2026-10-18T12:00:00Z", identify.Traits["createdAt"])
	require.Equal(t, s.DeviceID, identify.Traits["device_id"])
}

func TestSession_SinkErrors(t *testing.T) {
	t.Parallel()

	s := newTestSession(t, &recordingSink{err: errTestSink})

	require.ErrorIs(t, s.SendTrack("download", "started", 0, "express-init", ""), errTestSink)
	require.ErrorIs(t, s.SendIdentify(), errTestSink)
}

func TestCallback_Failure(t *testing.T) {
	t.Parallel()

	var (
		gotErr     error
		gotMessage analytics.Message
	)

	cb := callback{onError: func(err error, message analytics.Message) {
		gotErr, gotMessage = err, message
	}}

	message := analytics.Track{Event: "express-init"}

	cb.Success(message)
	require.NoError(t, gotErr)

	cb.Failure(message, errTestSink)
	require.ErrorIs(t, gotErr, errTestSink)
	require.Equal(t, message, gotMessage)
}

func TestNewClient_RequiresWriteKey(t *testing.T) {
	t.Parallel()

	c, err := NewClient(context.Background(), Config{})
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_DeliversOnClose sends a session's events to a fake Segment endpoint.
func TestClient_DeliversOnClose(t *testing.T) {
	t.Parallel()

	bodies := make(chan string, 4)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies <- r.URL.Path + " " + string(body)

		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ts.Close)

	c, err := NewClient(context.Background(), Config{WriteKey: "write-key", Endpoint: ts.URL})
	require.NoError(t, err)

	s, err := c.NewSession()
	require.NoError(t, err)

	require.NoError(t, s.SendIdentify())
	require.NoError(t, s.SendTrack("resolve", "started", 10, "express-upgrade", ""))
	require.NoError(t, c.Close())

	var received strings.Builder

	for len(bodies) > 0 {
		received.WriteString(<-bodies)
	}

	require.Contains(t, received.String(), "/v1/batch")
	require.Contains(t, received.String(), `"wizard_step":"resolve"`)
	require.Contains(t, received.String(), `"bare_os_deployment":"Activated"`)
}

func TestNop(t *testing.T) {
	t.Parallel()

	var tracker Tracker = Nop{}

	require.NoError(t, tracker.SendTrack("a", "b", 0, "c", ""))
	require.NoError(t, tracker.SendIdentify())
}

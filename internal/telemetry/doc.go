// Package telemetry reports install and upgrade progress to Segment.
//
// A Client is constructed explicitly from a Config carrying the write key and
// the error handler. Each CLI run opens one Session, which tags every event
// with a per-device and a per-session identifier. Telemetry is best effort:
// callers log failures and carry on.
package telemetry

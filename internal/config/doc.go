// Package config defines the express-cli settings and provides helpers to
// load, validate and save them in YAML format.
//
// The Config type holds the release endpoints, the HTTP timeout, the release
// directory marker and the telemetry write key. Missing values are filled with
// defaults during validation.
package config

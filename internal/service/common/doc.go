// Package common holds helpers shared by the installer and the upgrader.
//
// It builds the timeout-bound HTTP client, stages a release (download,
// extract, locate the payload directory), reports telemetry progress and
// wraps directory checks with the filesystem error kind.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

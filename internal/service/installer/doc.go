// Package installer performs the first installation of Platform9 Express.
//
// When the install root is absent it resolves the latest release, downloads
// and extracts its archive, moves the payload directory to its canonical name
// and records the installed version. A present install root turns the run
// into a no-op.
package installer

// Package version carries the build identity of express-cli.
//
// Version, Commit and BuildTime are set through -ldflags at release time.
// UserAgent derives the User-Agent header sent to release endpoints.
package version

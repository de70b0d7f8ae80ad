// Package state persists the installed Platform9 Express version.
//
// The FileRepository stores the version as a single newline-terminated line
// and exposes a Repository interface that the installer and upgrader depend on.
package state

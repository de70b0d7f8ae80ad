// Package guard keeps two init or upgrade runs from mutating the same
// install tree at once.
//
// A marker file is created for the duration of a run. A marker left behind by
// a crashed run is detected through the process list and removed.
package guard

// Package upgrader replaces an installed Platform9 Express release with the
// latest one.
//
// The new release is staged next to the active payload directory and swapped
// in through a backup directory. The backup is only deleted after the new
// payload passed a sanity check and the new version was recorded; any earlier
// failure puts the previous payload back.
package upgrader

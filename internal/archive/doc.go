// Package archive downloads release archives and unpacks them.
//
// Download refuses to write anything unless the server answers 200, Extract
// unpacks gzip-compressed tarballs without letting entries escape the target
// directory, and FindReleaseDir picks the extracted payload directory by its
// name marker.
package archive

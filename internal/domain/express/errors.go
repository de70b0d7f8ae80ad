package express

import "errors"

// Error kinds shared by every layer. Callers wrap them with fmt.Errorf("...: %w")
// and match them with errors.Is.
var (
	// ErrNetwork means a request failed or returned a non-success status.
	ErrNetwork = errors.New("network error")
	// ErrParse means the release metadata is malformed.
	ErrParse = errors.New("malformed release metadata")
	// ErrArchive means the archive could not be extracted or lacks the payload directory.
	ErrArchive = errors.New("archive error")
	// ErrState means the installed version could not be read.
	ErrState = errors.New("installed state error")
	// ErrFilesystem means a directory could not be created, renamed or removed.
	ErrFilesystem = errors.New("filesystem error")
)

package guard

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"
)

const unknownHolder = "unknown"

// Holder identifies the run that owns a marker.
type Holder struct {
	// PID is the process id of the run.
	PID int
	// Hostname is the machine the run was started on.
	Hostname string
	// Username is the account that started the run.
	Username string
}

// detectHolder describes the current process. Lookup failures leave "unknown".
func detectHolder() Holder {
	h := Holder{
		PID:      os.Getpid(),
		Hostname: unknownHolder,
		Username: unknownHolder,
	}

	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		h.Hostname = hostname
	}

	if currentUser, err := user.Current(); err == nil && currentUser.Username != "" {
		h.Username = currentUser.Username
	}

	return h
}

// String renders h for error messages.
func (h Holder) String() string {
	return fmt.Sprintf("pid %d on %s by %s", h.PID, h.Hostname, h.Username)
}

// marshal renders the single marker line "pid hostname username".
func (h Holder) marshal() string {
	return fmt.Sprintf("%d %s %s\n", h.PID, h.Hostname, h.Username)
}

// parseHolder reads a marker line. Markers holding only a pid are accepted.
func parseHolder(contents string) (Holder, bool) {
	fields := strings.SplitN(strings.TrimSpace(contents), " ", 3)

	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return Holder{}, false
	}

	h := Holder{
		PID:      pid,
		Hostname: unknownHolder,
		Username: unknownHolder,
	}

	if len(fields) > 1 {
		h.Hostname = fields[1]
	}

	if len(fields) > 2 {
		h.Username = fields[2]
	}

	return h, true
}

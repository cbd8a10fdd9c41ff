package app

import (
	"fmt"
	"strings"
)

// UnknownJobError is a job requested on the command line that the
// configuration does not declare.
type UnknownJobError struct {
	Name      string
	Available []string
}

func (e *UnknownJobError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("job %q not found: the configuration declares no jobs", e.Name)
	}
	return fmt.Sprintf("job %q not found, available jobs: %s", e.Name, strings.Join(e.Available, ", "))
}

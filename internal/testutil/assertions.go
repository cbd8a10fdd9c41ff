package testutil

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertJobState checks text-handler log output for a state transition of
// the named job. It looks for both attributes on the same line, so tests do
// not depend on attribute order.
func AssertJobState(t *testing.T, logOutput, job, state string) {
	t.Helper()

	jobAttr := fmt.Sprintf("job=%s ", job)
	stateAttr := fmt.Sprintf("state=%s", state)
	for _, line := range strings.Split(logOutput, "\n") {
		if strings.Contains(line+" ", jobAttr) && strings.Contains(line, stateAttr) {
			return
		}
	}
	require.Fail(t, "job state not logged",
		"expected job %q to reach state %q, log output:\n%s", job, state, logOutput)
}

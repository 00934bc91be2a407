package testutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertLogged checks that every fragment appears in the captured log output.
func AssertLogged(t *testing.T, buf *SafeBuffer, fragments ...string) {
	t.Helper()
	out := buf.String()
	for _, f := range fragments {
		require.True(t, strings.Contains(out, f), "expected log output to contain %q", f)
	}
}

package testutil

import (
	"os"
	"testing"
)

// SkipIfNoNetwork skips the test if RUNVIEWER_TEST_SKIP_NETWORK is set.
// Use this for tests that bind a local TCP listener, which may not be
// available in sandboxed environments.
func SkipIfNoNetwork(t *testing.T) {
	t.Helper()
	if os.Getenv("RUNVIEWER_TEST_SKIP_NETWORK") != "" {
		t.Skip("skipping network test: RUNVIEWER_TEST_SKIP_NETWORK is set")
	}
}

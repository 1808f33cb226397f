package app

import (
	"os"
	"strconv"
	"sync/atomic"
)

// TestModeEnv makes binaries return before opening any connection.
const TestModeEnv = "SCI_TEST_MODE"

var testMode atomic.Pointer[bool]

// InTestMode reports whether TestModeEnv holds a true value. The variable is
// read on first use; RefreshTestMode reads it again.
func InTestMode() bool {
	if on := testMode.Load(); on != nil {
		return *on
	}
	return RefreshTestMode()
}

// RefreshTestMode re-reads TestModeEnv and returns the new state.
func RefreshTestMode() bool {
	on, _ := strconv.ParseBool(os.Getenv(TestModeEnv))
	testMode.Store(&on)
	return on
}

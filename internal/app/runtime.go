package app

import (
	"os"
	"strconv"
	"sync/atomic"
)

// TestModeEnv switches off runtime side effects such as log output and server startup.
const TestModeEnv = "CRUDKIT_TEST_MODE"

var testMode atomic.Pointer[bool]

// InTestMode reports whether CRUDKIT_TEST_MODE held a true value when first read.
func InTestMode() bool {
	if on := testMode.Load(); on != nil {
		return *on
	}
	return RefreshTestMode()
}

// RefreshTestMode re-reads CRUDKIT_TEST_MODE after the environment changed.
func RefreshTestMode() bool {
	on, _ := strconv.ParseBool(os.Getenv(TestModeEnv))
	testMode.Store(&on)
	return on
}

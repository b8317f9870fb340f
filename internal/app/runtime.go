package app

import (
	"os"
	"strconv"
)

// TestModeEnv names the variable that makes the binaries exit before
// touching PostgreSQL or Redis.
const TestModeEnv = "FRESHMART_TEST_MODE"

// InTestMode reports whether FRESHMART_TEST_MODE holds a true value.
func InTestMode() bool {
	on, err := strconv.ParseBool(os.Getenv(TestModeEnv))
	return err == nil && on
}

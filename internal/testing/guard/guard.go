// Package guard puts the process in crudkit test mode. Tests that build the router or run the
// CLI import it for side effects:
//
//	import _ "github.com/odyssey-erp/crudkit/internal/testing/guard"
package guard

import "os"

// Env is the variable app.InTestMode reads. Kept here as a literal so guard has no imports of
// its own packages.
const Env = "CRUDKIT_TEST_MODE"

func init() {
	if os.Getenv(Env) == "" {
		_ = os.Setenv(Env, "1")
	}
}

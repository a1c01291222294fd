// Package guard switches the process into test mode when imported, so
// binaries and app wiring exercised from tests skip runtime side effects.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("CROPLEDGER_TEST_MODE") == "" {
			_ = os.Setenv("CROPLEDGER_TEST_MODE", "1")
		}
	})
}

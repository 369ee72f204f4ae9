package testsupport

import (
	"testing"

	"revoice/internal/config"
	"revoice/internal/jobs"
)

// NewStore opens a job store under the test config's log directory and
// closes it when the test ends.
func NewStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()
	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("open job store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close job store: %v", err)
		}
	})
	return store
}

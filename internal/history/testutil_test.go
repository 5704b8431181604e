package history

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	testutil "github.com/agentlab/derelict/internal/testing"
)

// openTestStore creates a history database in a temporary directory that is
// closed when the test completes.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := testutil.MkdirTempInDir(t, t.TempDir())
	store, err := Open(filepath.Join(dir, "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

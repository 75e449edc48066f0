package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codenerd/internal/memory"
)

func TestWatcherIndexesNewFile(t *testing.T) {
	repoRoot := t.TempDir()
	paths := memory.NewPaths(repoRoot)
	for _, d := range paths.Dirs() {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}
	store, err := Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	defer store.Close()

	ix := NewIndexer(store, paths, repoRoot)
	w, err := NewWatcher(ix, paths)
	require.NoError(t, err)
	w.debounceDur = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(paths.CoreMemoryFile(), []byte(indexerTestCoreContent), 0o644))

	require.Eventually(t, func() bool {
		return w.Stats().FilesIndexed >= 1
	}, 2*time.Second, 20*time.Millisecond)

	hits, err := store.Search(context.Background(), "project", SearchFilters{})
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}

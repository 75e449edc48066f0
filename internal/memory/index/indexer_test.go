package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codenerd/internal/memory"
)

const indexerTestCoreContent = `---
id: core.project
title: Project Core Memory
kind: core
tags: [core, always-loaded]
created: 2026-01-21T00:00:00Z
updated: 2026-01-21T00:00:00Z
verification:
  status: unknown
---

# Project Core Memory

## Identity
This is a test project.

## Commands
go test ./...

## Architecture
Go module

## Conventions
Use idiomatic Go
`

func newTestIndexer(t *testing.T) (*Indexer, memory.Paths, string) {
	t.Helper()
	repoRoot := t.TempDir()
	paths := memory.NewPaths(repoRoot)
	for _, d := range paths.Dirs() {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}
	store, err := Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewIndexer(store, paths, repoRoot), paths, repoRoot
}

func TestExtractHeadings(t *testing.T) {
	body := "\n# Main Title\n\n## Section One\n\nContent here.\n\n### Subsection 1.1\n\nMore content.\n\n## Section Two\n\nFinal content.\n"

	headings := extractHeadings(body)
	assert.Equal(t, []string{"main-title", "section-one", "subsection-1.1", "section-two"}, headings)
}

func TestIndexerReindexAllBasicFlow(t *testing.T) {
	ix, paths, _ := newTestIndexer(t)

	require.NoError(t, os.WriteFile(paths.CoreMemoryFile(), []byte(indexerTestCoreContent), 0o644))

	result, err := ix.ReindexAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.DocsAdded)
	assert.Empty(t, result.Errors)

	hits, err := ix.store.Search(context.Background(), "project", SearchFilters{})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Project Core Memory", hits[0].Title)
}

func TestIndexerNamespaceFromPath(t *testing.T) {
	ix, paths, _ := newTestIndexer(t)

	ns, err := ix.namespaceFromPath(paths.CoreMemoryFile())
	require.NoError(t, err)
	assert.Equal(t, "core", ns)

	ns, err = ix.namespaceFromPath(filepath.Join(paths.Facts, "test.md"))
	require.NoError(t, err)
	assert.Equal(t, "semantic/facts", ns)

	ns, err = ix.namespaceFromPath(filepath.Join(paths.Episodic, "session-1", "recap.md"))
	require.NoError(t, err)
	assert.Equal(t, "episodic/session-1", ns)
}

func TestIndexerIndexChangedOnlyReindexesNewer(t *testing.T) {
	ix, paths, _ := newTestIndexer(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(paths.CoreMemoryFile(), []byte(indexerTestCoreContent), 0o644))
	_, err := ix.ReindexAll(ctx)
	require.NoError(t, err)

	result, err := ix.IndexChanged(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.DocsUpdated)
}

func TestIndexerRemoveDoc(t *testing.T) {
	ix, paths, _ := newTestIndexer(t)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(paths.CoreMemoryFile(), []byte(indexerTestCoreContent), 0o644))
	_, err := ix.ReindexAll(ctx)
	require.NoError(t, err)

	removed, err := ix.RemoveDoc(ctx, "core:CORE.md")
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = ix.RemoveDoc(ctx, "malformed")
	require.Error(t, err)
}

package applyengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsNonGitDirectory(t *testing.T) {
	_, err := New(t.TempDir())
	assert.Error(t, err)
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return &Engine{repoPath: t.TempDir(), timeout: time.Second}
}

func TestParseGitApplyErrorLineHunkMismatch(t *testing.T) {
	e := newTestEngine(t)
	info, ok := e.parseGitApplyErrorLine("error: src/main.go: does not match index")
	require.True(t, ok)
	assert.Equal(t, "src/main.go", info.File)
	assert.Equal(t, ConflictHunkMismatch, info.Type)
}

func TestParseGitApplyErrorLinePatchFailed(t *testing.T) {
	e := newTestEngine(t)
	info, ok := e.parseGitApplyErrorLine("patch failed: src/lib.go:123")
	require.True(t, ok)
	assert.Equal(t, "src/lib.go", info.File)
	assert.Equal(t, 123, info.Line)
	assert.Equal(t, ConflictOverlappingChanges, info.Type)
}

func TestParseGitApplyErrorLineMissingFile(t *testing.T) {
	e := newTestEngine(t)
	info, ok := e.parseGitApplyErrorLine(`error: 'src/gone.go': No such file or directory`)
	require.True(t, ok)
	assert.Equal(t, "src/gone.go", info.File)
	assert.Equal(t, ConflictMissingFile, info.Type)
}

func TestParseGitApplyErrorLineBinary(t *testing.T) {
	e := newTestEngine(t)
	info, ok := e.parseGitApplyErrorLine("Binary files a/image.png and b/image.png differ")
	require.True(t, ok)
	assert.Equal(t, ConflictBinaryFile, info.Type)
}

func TestParseGitApplyErrorLineNoMatch(t *testing.T) {
	e := newTestEngine(t)
	_, ok := e.parseGitApplyErrorLine("some unrelated line")
	assert.False(t, ok)
}

func TestParseGitApplyErrorsFallsBackToUnknown(t *testing.T) {
	e := newTestEngine(t)
	conflicts := e.parseGitApplyErrors("totally unrecognized failure text")
	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictUnknown, conflicts[0].Type)
}

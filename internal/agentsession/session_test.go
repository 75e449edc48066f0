package agentsession

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"codenerd/internal/layout"
	"codenerd/internal/model"
)

func TestStartAndAppendRoundTrip(t *testing.T) {
	dir := layout.New(t.TempDir())
	s, err := Start(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.AppendUserMessage("hello")
	require.NoError(t, err)
	_, err = s.AppendModelMessage("hi back", nil)
	require.NoError(t, err)

	events, err := s.ReadEvents()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "hello", events[0].Event.Content)
}

func TestResumeReopensSameLog(t *testing.T) {
	dir := layout.New(t.TempDir())
	s, err := Start(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	id := s.Id()
	_, err = s.AppendUserMessage("first")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	resumed, err := Resume(dir, id, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer resumed.Close()

	_, err = resumed.AppendUserMessage("second")
	require.NoError(t, err)

	events, err := resumed.ReadEvents()
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestModifiedFilesDedupes(t *testing.T) {
	dir := layout.New(t.TempDir())
	s, err := Start(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.AppendPatchApplied("patch-1", []string{"a.go", "b.go"}, "abc123")
	require.NoError(t, err)
	_, err = s.AppendPatchApplied("patch-2", []string{"b.go", "c.go"}, "def456")
	require.NoError(t, err)

	files, err := s.ModifiedFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "b.go", "c.go"}, files)
}

func TestLastToolCall(t *testing.T) {
	dir := layout.New(t.TempDir())
	s, err := Start(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	_, found, err := s.LastToolCall()
	require.NoError(t, err)
	assert.False(t, found)

	_, err = s.AppendToolCall("shell", map[string]any{"cmd": "ls"})
	require.NoError(t, err)
	_, err = s.AppendToolCall("shell", map[string]any{"cmd": "pwd"})
	require.NoError(t, err)

	last, found, err := s.LastToolCall()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "pwd", last.Arguments["cmd"])
}

func TestPendingPatchesExcludesResolved(t *testing.T) {
	dir := layout.New(t.TempDir())
	s, err := Start(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.AppendPatchProposed("patch-1")
	require.NoError(t, err)
	_, err = s.AppendPatchProposed("patch-2")
	require.NoError(t, err)
	_, err = s.AppendPatchDecision("patch-1", model.PatchDecisionRejected)
	require.NoError(t, err)
	_, err = s.AppendPatchProposed("patch-3")
	require.NoError(t, err)
	_, err = s.AppendPatchApplied("patch-3", []string{"x.go"}, "")
	require.NoError(t, err)

	pending, err := s.PendingPatches()
	require.NoError(t, err)
	assert.Equal(t, []string{"patch-2"}, pending)
}

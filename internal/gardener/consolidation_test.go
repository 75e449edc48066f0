package gardener

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"codenerd/internal/eventlog"
	"codenerd/internal/layout"
	"codenerd/internal/memory"
	"codenerd/internal/model"
)

func newTestSession(t *testing.T, events []model.Event) (*layout.AgentDir, layout.SessionId) {
	t.Helper()
	dir := layout.New(t.TempDir())
	id := layout.NewSessionId()
	log, err := eventlog.Open(dir, id, zaptest.NewLogger(t))
	require.NoError(t, err)
	for _, ev := range events {
		_, err := log.Append(ev)
		require.NoError(t, err)
	}
	require.NoError(t, log.Close())
	return dir, id
}

// newTestMemoryPaths builds a Paths over an empty temp tree. Consolidation
// only reads the manifest and proposes patches, so the memory directories
// need not exist: memory.Rebuild tolerates missing directories.
func newTestMemoryPaths(t *testing.T) memory.Paths {
	t.Helper()
	return memory.NewPaths(t.TempDir())
}

func TestConsolidationJobNew(t *testing.T) {
	dir, id := newTestSession(t, []model.Event{{Type: model.EventUserMessage, Content: "hi"}})

	job, err := NewConsolidationJob(dir, id)
	require.NoError(t, err)
	assert.Equal(t, id, job.SessionId)
}

func TestConsolidationJobNewRejectsEmptySession(t *testing.T) {
	dir := layout.New(t.TempDir())
	id := layout.NewSessionId()
	log, err := eventlog.Open(dir, id, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, log.Close())

	_, err = NewConsolidationJob(dir, id)
	assert.Error(t, err)
}

func TestConsolidationGoldenCommands(t *testing.T) {
	dir, id := newTestSession(t, []model.Event{
		{Type: model.EventUserMessage, Content: "build it"},
		{Type: model.EventToolResult, Tool: "shell", Success: boolPtr(true),
			Result: map[string]any{"cmd": "cargo build", "cwd": "/repo", "exit_code": float64(0)}},
		{Type: model.EventUserMessage, Content: "thanks"},
	})
	job, err := NewConsolidationJob(dir, id)
	require.NoError(t, err)

	paths := newTestMemoryPaths(t)
	result, err := job.Run(paths)
	require.NoError(t, err)

	require.Len(t, result.Facts, 1)
	assert.Equal(t, FactUpdateCreate, result.Facts[0].Kind)
	assert.Equal(t, "fact.commands.build", result.Facts[0].DocId)
	assert.Contains(t, result.Facts[0].Content, "cargo build")
}

func TestConsolidationGoldenGotchas(t *testing.T) {
	dir, id := newTestSession(t, []model.Event{
		{Type: model.EventUserMessage, Content: "build it"},
		{Type: model.EventToolResult, Tool: "shell", Success: boolPtr(false),
			Result: map[string]any{"cmd": "cargo build", "cwd": "/repo", "exit_code": float64(101)}},
		{Type: model.EventToolResult, Tool: "shell", Success: boolPtr(true),
			Result: map[string]any{"cmd": "cargo build --fix", "cwd": "/repo", "exit_code": float64(0)}},
	})
	job, err := NewConsolidationJob(dir, id)
	require.NoError(t, err)

	paths := newTestMemoryPaths(t)
	result, err := job.Run(paths)
	require.NoError(t, err)

	var gotchaFact *FactUpdate
	for i := range result.Facts {
		if result.Facts[i].DocId == "fact.gotchas.build" {
			gotchaFact = &result.Facts[i]
		}
	}
	require.NotNil(t, gotchaFact)
	assert.Contains(t, gotchaFact.Content, "cargo build")
}

func TestConsolidationGoldenAdr(t *testing.T) {
	dir, id := newTestSession(t, []model.Event{
		{Type: model.EventModelMessage, Content: "I decided to use SQLite for the index.\nbecause it avoids an external dependency."},
	})
	job, err := NewConsolidationJob(dir, id)
	require.NoError(t, err)

	paths := newTestMemoryPaths(t)
	result, err := job.Run(paths)
	require.NoError(t, err)

	require.Len(t, result.Adrs, 1)
	assert.Equal(t, 1, result.Adrs[0].Number)
	assert.Equal(t, "adr.0001", result.Adrs[0].DocId)

	require.Len(t, result.Patches, 1)
	assert.Equal(t, model.MemoryADR, result.Patches[0].Kind)
}

func TestConsolidationGeneratesFactUpdates(t *testing.T) {
	dir, id := newTestSession(t, []model.Event{
		{Type: model.EventToolResult, Tool: "shell", Success: boolPtr(true),
			Result: map[string]any{"cmd": "cargo test", "cwd": "/repo", "exit_code": float64(0)}},
	})
	job, err := NewConsolidationJob(dir, id)
	require.NoError(t, err)

	paths := newTestMemoryPaths(t)
	result, err := job.Run(paths)
	require.NoError(t, err)

	require.Len(t, result.Facts, 1)
	assert.Equal(t, "fact.commands.test", result.Facts[0].DocId)
}

func TestConsolidationWorkflowWithCustomConfig(t *testing.T) {
	dir, id := newTestSession(t, []model.Event{
		{Type: model.EventUserMessage, Content: "go"},
		{Type: model.EventToolResult, Tool: "shell", Success: boolPtr(true),
			Result: map[string]any{"cmd": "git add .", "cwd": "/repo", "exit_code": float64(0)}},
		{Type: model.EventToolResult, Tool: "shell", Success: boolPtr(true),
			Result: map[string]any{"cmd": "git commit -m x", "cwd": "/repo", "exit_code": float64(0)}},
		{Type: model.EventUserMessage, Content: "done"},
	})
	job, err := NewConsolidationJob(dir, id)
	require.NoError(t, err)
	job.Config = ExtractionConfig{MinWorkflowSteps: 2, DecisionKeywords: DefaultExtractionConfig().DecisionKeywords}

	paths := newTestMemoryPaths(t)
	result, err := job.Run(paths)
	require.NoError(t, err)

	require.Len(t, result.Playbooks, 1)
	assert.Equal(t, "Git workflow", result.Playbooks[0].Title)
}

func TestConsolidationWarnsWhenNothingExtracted(t *testing.T) {
	dir, id := newTestSession(t, []model.Event{
		{Type: model.EventUserMessage, Content: "just chatting, nothing actionable here"},
	})
	job, err := NewConsolidationJob(dir, id)
	require.NoError(t, err)

	paths := newTestMemoryPaths(t)
	result, err := job.Run(paths)
	require.NoError(t, err)

	assert.Contains(t, result.Warnings, "No entities extracted from session")
}

func TestConsolidationIsDeterministic(t *testing.T) {
	events := []model.Event{
		{Type: model.EventUserMessage, Content: "build and test"},
		{Type: model.EventToolResult, Tool: "shell", Success: boolPtr(true),
			Result: map[string]any{"cmd": "cargo build", "cwd": "/repo", "exit_code": float64(0)}},
		{Type: model.EventToolResult, Tool: "shell", Success: boolPtr(true),
			Result: map[string]any{"cmd": "cargo test", "cwd": "/repo", "exit_code": float64(0)}},
		{Type: model.EventModelMessage, Content: "I decided to pin the toolchain.\nbecause CI drifted last week."},
	}

	dir1, id1 := newTestSession(t, events)
	job1, err := NewConsolidationJob(dir1, id1)
	require.NoError(t, err)
	paths1 := newTestMemoryPaths(t)
	result1, err := job1.Run(paths1)
	require.NoError(t, err)

	dir2, id2 := newTestSession(t, events)
	job2, err := NewConsolidationJob(dir2, id2)
	require.NoError(t, err)
	paths2 := newTestMemoryPaths(t)
	result2, err := job2.Run(paths2)
	require.NoError(t, err)

	require.Len(t, result1.Facts, len(result2.Facts))
	require.Len(t, result1.Adrs, len(result2.Adrs))
	for i := range result1.Adrs {
		assert.Equal(t, result1.Adrs[i].Number, result2.Adrs[i].Number)
		assert.Equal(t, result1.Adrs[i].DocId, result2.Adrs[i].DocId)
	}
	for i := range result1.Facts {
		assert.Equal(t, result1.Facts[i].DocId, result2.Facts[i].DocId)
		assert.Equal(t, result1.Facts[i].Content, result2.Facts[i].Content)
	}
}

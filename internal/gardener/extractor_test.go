package gardener

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codenerd/internal/model"
)

func boolPtr(b bool) *bool { return &b }

func toolResultEvent(seq model.Seq, cmd, cwd string, exitCode int, success bool) model.Envelope {
	return model.Envelope{
		Seq:       seq,
		SessionId: "sess-1",
		Event: model.Event{
			Type: model.EventToolResult,
			Tool: "shell",
			Result: map[string]any{
				"cmd":       cmd,
				"cwd":       cwd,
				"exit_code": float64(exitCode),
			},
			Success: boolPtr(success),
		},
	}
}

func userMessageEvent(seq model.Seq, content string) model.Envelope {
	return model.Envelope{
		Seq:       seq,
		SessionId: "sess-1",
		Event:     model.Event{Type: model.EventUserMessage, Content: content},
	}
}

func modelMessageEvent(seq model.Seq, content string) model.Envelope {
	return model.Envelope{
		Seq:       seq,
		SessionId: "sess-1",
		Event:     model.Event{Type: model.EventModelMessage, Content: content},
	}
}

func TestExtractShellCommandSuccess(t *testing.T) {
	e := NewEntityExtractor()
	events := []model.Envelope{toolResultEvent(1, "cargo build", "/repo", 0, true)}

	entities := e.Extract(events)
	require.Len(t, entities.Commands, 1)
	assert.Equal(t, "cargo build", entities.Commands[0].Command)
	assert.Equal(t, "/repo", entities.Commands[0].Cwd)
	assert.Equal(t, CommandSuccess, entities.Commands[0].Outcome)
}

func TestExtractShellCommandFailure(t *testing.T) {
	e := NewEntityExtractor()
	events := []model.Envelope{toolResultEvent(1, "cargo build", "/repo", 101, false)}

	entities := e.Extract(events)
	// A lone failure with no resolution attempt produces no visible command
	// entry in this extractor's flow: it is held as lastFailedCommand until
	// a later successful command either resolves it or the session ends.
	assert.Empty(t, entities.Commands)
}

func TestClassifyGotcha(t *testing.T) {
	e := NewEntityExtractor()
	assert.Equal(t, GotchaBuild, e.classifyGotcha("cargo build --release"))
	assert.Equal(t, GotchaTest, e.classifyGotcha("pytest -k foo"))
	assert.Equal(t, GotchaConfig, e.classifyGotcha("edit config.toml"))
	assert.Equal(t, GotchaRuntime, e.classifyGotcha("thread panicked"))
	assert.Equal(t, GotchaOther, e.classifyGotcha("ls -la"))
}

func TestExtractGotchaFromFailureResolution(t *testing.T) {
	e := NewEntityExtractor()
	events := []model.Envelope{
		toolResultEvent(1, "cargo build", "/repo", 101, false),
		toolResultEvent(2, "cargo build --fix", "/repo", 0, true),
	}

	entities := e.Extract(events)
	require.Len(t, entities.Gotchas, 1)
	assert.Equal(t, GotchaBuild, entities.Gotchas[0].Category)
	assert.Contains(t, entities.Gotchas[0].Issue, "cargo build")
	assert.Contains(t, entities.Gotchas[0].Resolution, "cargo build --fix")
}

func TestExtractDecision(t *testing.T) {
	e := NewEntityExtractor()
	content := "I decided to use SQLite for the index.\nbecause it needs no external service."
	events := []model.Envelope{modelMessageEvent(1, content)}

	entities := e.Extract(events)
	require.Len(t, entities.Decisions, 1)
	assert.Contains(t, entities.Decisions[0].Decision, "decided to use SQLite")
	assert.Contains(t, entities.Decisions[0].Rationale, "no external service")
}

func TestExtractDecisionIgnoresShortMatches(t *testing.T) {
	e := NewEntityExtractor()
	events := []model.Envelope{modelMessageEvent(1, "selected.")}

	entities := e.Extract(events)
	assert.Empty(t, entities.Decisions)
}

func TestExtractWorkflowFromSequence(t *testing.T) {
	e := NewEntityExtractorWithConfig(ExtractionConfig{MinWorkflowSteps: 3, DecisionKeywords: DefaultExtractionConfig().DecisionKeywords})
	events := []model.Envelope{
		userMessageEvent(1, "please ship this"),
		toolResultEvent(2, "cargo fmt", "/repo", 0, true),
		toolResultEvent(3, "cargo test", "/repo", 0, true),
		toolResultEvent(4, "cargo build", "/repo", 0, true),
		userMessageEvent(5, "thanks"),
	}

	entities := e.Extract(events)
	require.Len(t, entities.Workflows, 1)
	assert.Equal(t, "Prepare code for commit", entities.Workflows[0].Title)
	assert.Len(t, entities.Workflows[0].Steps, 3)
}

func TestExtractWorkflowBelowThresholdIsDropped(t *testing.T) {
	e := NewEntityExtractor()
	events := []model.Envelope{
		userMessageEvent(1, "go"),
		toolResultEvent(2, "cargo build", "/repo", 0, true),
		userMessageEvent(3, "done"),
	}

	entities := e.Extract(events)
	assert.Empty(t, entities.Workflows)
}

func TestExtractFromEvents(t *testing.T) {
	e := NewEntityExtractor()
	events := []model.Envelope{
		userMessageEvent(1, "fix the build"),
		toolResultEvent(2, "cargo build", "/repo", 101, false),
		toolResultEvent(3, "cargo build --fix", "/repo", 0, true),
		modelMessageEvent(4, "I decided to pin the toolchain version because CI kept drifting."),
		userMessageEvent(5, "great, thanks"),
	}

	entities := e.Extract(events)
	assert.Len(t, entities.Commands, 1)
	assert.Len(t, entities.Gotchas, 1)
	assert.Len(t, entities.Decisions, 1)
}

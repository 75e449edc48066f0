package approval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codenerd/internal/model"
	"codenerd/internal/risk"
)

type scriptedPrompter struct {
	outcome model.ApprovalOutcome
	calls   int
}

func (p *scriptedPrompter) Prompt(ctx context.Context, action string, classification risk.Classification, hint string) (model.ApprovalOutcome, error) {
	p.calls++
	return p.outcome, nil
}

func TestReadOnlyModeRejectsRisky(t *testing.T) {
	g := NewGate(ModeReadOnly, nil)
	req, err := g.Request(context.Background(), "rm -rf foo", "shell", map[string]any{"command": "rm -rf foo"})
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalRejected, req.Outcome)
}

func TestReadOnlyModeApprovesSafe(t *testing.T) {
	g := NewGate(ModeReadOnly, nil)
	req, err := g.Request(context.Background(), "grep foo", "grep", nil)
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalApproved, req.Outcome)
}

func TestFullAccessApprovesEverythingAndLogs(t *testing.T) {
	g := NewGate(ModeFullAccess, nil)
	req, err := g.Request(context.Background(), "rm -rf foo", "shell", map[string]any{"command": "rm -rf foo"})
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalApproved, req.Outcome)
	assert.Equal(t, model.RiskRisky, req.Classification.Risk)
}

func TestAutoModePromptsForRisky(t *testing.T) {
	p := &scriptedPrompter{outcome: model.ApprovalApproved}
	g := NewGate(ModeAuto, p)

	req, err := g.Request(context.Background(), "rm -rf foo", "shell", map[string]any{"command": "rm -rf foo"})
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalApproved, req.Outcome)
	assert.Equal(t, 1, p.calls)
	assert.NotEmpty(t, req.Hint)
}

func TestAutoModeHintOnlyShownOnce(t *testing.T) {
	p := &scriptedPrompter{outcome: model.ApprovalApproved}
	g := NewGate(ModeAuto, p)

	req1, err := g.Request(context.Background(), "a", "shell", map[string]any{"command": "rm -rf foo"})
	require.NoError(t, err)
	assert.NotEmpty(t, req1.Hint)

	req2, err := g.Request(context.Background(), "b", "shell", map[string]any{"command": "rm -rf bar"})
	require.NoError(t, err)
	assert.Empty(t, req2.Hint)
}

func TestAutoModeWithoutPrompterErrors(t *testing.T) {
	g := NewGate(ModeAuto, nil)
	_, err := g.Request(context.Background(), "rm -rf foo", "shell", map[string]any{"command": "rm -rf foo"})
	assert.Error(t, err)
}

func TestAutoModeSkipsPromptForSafe(t *testing.T) {
	p := &scriptedPrompter{outcome: model.ApprovalApproved}
	g := NewGate(ModeAuto, p)
	req, err := g.Request(context.Background(), "grep foo", "grep", nil)
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalApproved, req.Outcome)
	assert.Equal(t, 0, p.calls)
}

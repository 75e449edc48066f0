package taskctx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTaskFromMessageActionVerbs(t *testing.T) {
	now := time.Now()
	c, ok := ExtractTaskFromMessage("fix the login bug", now)
	require.True(t, ok)
	assert.Equal(t, "Fixing login bug", c.Task)

	c, ok = ExtractTaskFromMessage("add a retry loop", now)
	require.True(t, ok)
	assert.Equal(t, "Adding retry loop", c.Task)
}

func TestExtractTaskFromMessageHowDoI(t *testing.T) {
	c, ok := ExtractTaskFromMessage("how do i configure logging", time.Now())
	require.True(t, ok)
	assert.Equal(t, "Learn how to configure logging", c.Task)
}

func TestExtractTaskFromMessageWhatIs(t *testing.T) {
	c, ok := ExtractTaskFromMessage("what is the apply engine", time.Now())
	require.True(t, ok)
	assert.Equal(t, "Understand: the apply engine", c.Task)
}

func TestExtractTaskFromMessageContinueIsSkipped(t *testing.T) {
	_, ok := ExtractTaskFromMessage("continue", time.Now())
	assert.False(t, ok)

	_, ok = ExtractTaskFromMessage("continue with the plan", time.Now())
	assert.False(t, ok)
}

func TestExtractTaskSubjectTruncation(t *testing.T) {
	long := "a very long subject that goes well beyond fifty characters in total length here"
	got := extractTaskSubject(long)
	assert.LessOrEqual(t, len(got), 50)
}

func TestIndicatesCompletion(t *testing.T) {
	assert.True(t, IndicatesCompletion("All done, the feature works now."))
	assert.False(t, IndicatesCompletion("Still working on it."))
}

func TestExtractSubtaskFromResponse(t *testing.T) {
	got, ok := ExtractSubtaskFromResponse("Now I'll update the config file. Then I'll run tests.")
	require.True(t, ok)
	assert.Equal(t, "Now: update the config file", got)

	got, ok = ExtractSubtaskFromResponse("Let me check the logs first.")
	require.True(t, ok)
	assert.Equal(t, "check the logs first", got)
}

func TestTrackerUpdateFromUserMessageAndCompletion(t *testing.T) {
	tr := NewTracker()
	tr.UpdateFromUserMessage("implement the approval gate", time.Now())
	c, ok := tr.Get()
	require.True(t, ok)
	assert.Equal(t, "Implementing approval gate", c.Task)

	tr.UpdateFromModelResponse("Now I'll write tests.")
	c, ok = tr.Get()
	require.True(t, ok)
	assert.Equal(t, "Now: write tests", c.Subtask)

	tr.UpdateFromModelResponse("All done, successfully implemented the feature.")
	_, ok = tr.Get()
	assert.False(t, ok)
}

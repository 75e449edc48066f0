// Package taskctx tracks a single inferred "what is the agent working on"
// string per session, updated from user messages and model responses by a
// small set of phrase heuristics.
//
// Grounded on original_source/crates/core/src/task_context.rs: the same
// ordered action-verb-prefix table, completion-phrase list, and
// transition-phrase table.
package taskctx

import (
	"strings"
	"sync"
	"time"
)

// Context is the currently inferred task.
type Context struct {
	Task      string
	Subtask   string
	Focus     string
	UpdatedAt time.Time
}

// ToBrief renders "task: subtask" or just "task" if there is no subtask.
func (c Context) ToBrief() string {
	if c.Subtask == "" {
		return c.Task
	}
	return c.Task + ": " + c.Subtask
}

// ToDetailed renders every populated field, pipe-separated.
func (c Context) ToDetailed() string {
	parts := []string{c.Task}
	if c.Subtask != "" {
		parts = append(parts, "Subtask: "+c.Subtask)
	}
	if c.Focus != "" {
		parts = append(parts, "Working on: "+c.Focus)
	}
	return strings.Join(parts, " | ")
}

// Tracker holds a single mutable Context slot, safe for concurrent access.
type Tracker struct {
	mu  sync.RWMutex
	ctx *Context
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Get returns the current context, if any.
func (t *Tracker) Get() (Context, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.ctx == nil {
		return Context{}, false
	}
	return *t.ctx, true
}

// Set overwrites the current context.
func (t *Tracker) Set(c Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ctx = &c
}

// Clear removes the current context.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ctx = nil
}

// UpdateFromUserMessage extracts a task from a user message and sets it if
// one was found.
func (t *Tracker) UpdateFromUserMessage(message string, now time.Time) {
	if c, ok := ExtractTaskFromMessage(message, now); ok {
		t.Set(c)
	}
}

// UpdateFromModelResponse clears the context if the response indicates
// completion, else updates the subtask if a transition phrase was found.
func (t *Tracker) UpdateFromModelResponse(response string) {
	if IndicatesCompletion(response) {
		t.Clear()
		return
	}
	if subtask, ok := ExtractSubtaskFromResponse(response); ok {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.ctx != nil {
			t.ctx.Subtask = subtask
		}
	}
}

// BriefDescription and DetailedDescription expose the tracker's current
// context as rendered strings, or "" if none is set.
func (t *Tracker) BriefDescription() string {
	c, ok := t.Get()
	if !ok {
		return ""
	}
	return c.ToBrief()
}

func (t *Tracker) DetailedDescription() string {
	c, ok := t.Get()
	if !ok {
		return ""
	}
	return c.ToDetailed()
}

// actionPatterns is the ordered (lowercase prefix -> gerund label) table.
// Order matters: the first matching prefix wins, and "fix the"/"fix a"/
// "fix an" must be checked before the bare "fix" prefix loses to them —
// they share the same label so order doesn't change output, only which
// branch matches.
var actionPatterns = []struct {
	prefix string
	label  string
}{
	{"add ", "Adding"},
	{"create ", "Creating"},
	{"implement ", "Implementing"},
	{"fix the ", "Fixing"},
	{"fix a ", "Fixing"},
	{"fix an ", "Fixing"},
	{"fix ", "Fixing"},
	{"resolve ", "Resolving"},
	{"debug ", "Debugging"},
	{"update ", "Updating"},
	{"change ", "Changing"},
	{"modify ", "Modifying"},
	{"refactor ", "Refactoring"},
	{"remove ", "Removing"},
	{"delete ", "Deleting"},
	{"test ", "Testing"},
	{"write ", "Writing"},
	{"build ", "Building"},
	{"deploy ", "Deploying"},
	{"install ", "Installing"},
	{"setup ", "Setting up"},
	{"configure ", "Configuring"},
	{"optimize ", "Optimizing"},
	{"improve ", "Improving"},
	{"enhance ", "Enhancing"},
	{"check ", "Checking"},
	{"verify ", "Verifying"},
	{"validate ", "Validating"},
	{"search ", "Searching"},
	{"find ", "Finding"},
	{"locate ", "Locating"},
	{"list ", "Listing"},
	{"show ", "Showing"},
	{"explain ", "Explaining"},
	{"help ", "Help"},
}

// ExtractTaskFromMessage applies the heuristics from task_context.rs to a
// raw user message.
func ExtractTaskFromMessage(message string, now time.Time) (Context, bool) {
	lower := strings.ToLower(message)

	switch {
	case strings.HasPrefix(lower, "how do i") || strings.HasPrefix(lower, "how can i"):
		rest := strings.TrimSpace(message[indexLen(lower, "how do i", "how can i"):])
		return newContext("Learn how to "+rest, now), true

	case strings.HasPrefix(lower, "what is") || strings.HasPrefix(lower, "what's"):
		rest := strings.TrimSpace(message[indexLen(lower, "what is", "what's"):])
		return newContext("Understand: "+rest, now), true

	case lower == "continue" || strings.HasPrefix(lower, "continue"):
		return Context{}, false
	}

	for _, p := range actionPatterns {
		if strings.HasPrefix(lower, p.prefix) {
			rest := message[len(p.prefix):]
			subject := extractTaskSubject(rest)
			return newContext(p.label+" "+subject, now), true
		}
	}

	if idx := strings.IndexByte(message, '.'); idx >= 0 {
		sentence := strings.TrimSpace(message[:idx])
		if len(sentence) > 3 && len(sentence) < 100 {
			return newContext(sentence, now), true
		}
	}

	if len(message) < 80 && message != "" {
		return newContext(message, now), true
	}

	return Context{}, false
}

func indexLen(lower string, prefixes ...string) int {
	for _, p := range prefixes {
		if strings.HasPrefix(lower, p) {
			return len(p)
		}
	}
	return 0
}

func newContext(task string, now time.Time) Context {
	return Context{Task: task, UpdatedAt: now}
}

// extractTaskSubject strips a leading article and truncates long subjects.
func extractTaskSubject(text string) string {
	text = strings.TrimSpace(text)
	for _, article := range []string{"a ", "an ", "the "} {
		if strings.HasPrefix(strings.ToLower(text), article) {
			text = text[len(article):]
			break
		}
	}
	if len(text) <= 50 {
		return text
	}
	for _, sep := range []byte{'.', ',', ';'} {
		if idx := strings.IndexByte(text, sep); idx >= 0 {
			return text[:idx]
		}
	}
	return text[:47] + "..."
}

var completionPhrases = []string{
	"done", "complete", "finished", "that's all", "that is all",
	"task complete", "all done", "successfully implemented", "successfully added", "successfully fixed",
}

// IndicatesCompletion reports whether a model response signals the current
// task is finished.
func IndicatesCompletion(response string) bool {
	lower := strings.ToLower(response)
	for _, phrase := range completionPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

var transitionPatterns = []struct {
	pattern string
	prefix  string
}{
	{"now i'll", "Now"},
	{"next, i'll", "Next"},
	{"let me", ""},
	{"first, i'll", "First"},
	{"then, i'll", "Then"},
	{"after that, i'll", "Then"},
}

// ExtractSubtaskFromResponse finds the first transition phrase and returns
// the action text that follows it, formatted as "Prefix: action" (or bare
// "action" when the matched phrase has no prefix).
func ExtractSubtaskFromResponse(response string) (string, bool) {
	lower := strings.ToLower(response)

	for _, tp := range transitionPatterns {
		idx := strings.Index(lower, tp.pattern)
		if idx < 0 {
			continue
		}
		rest := response[idx+len(tp.pattern):]
		end := len(rest)
		if i := strings.IndexByte(rest, '.'); i >= 0 && i < end {
			end = i
		}
		if i := strings.IndexByte(rest, '\n'); i >= 0 && i < end {
			end = i
		}
		action := strings.TrimSpace(rest[:end])
		if action == "" {
			continue
		}
		if tp.prefix == "" {
			return action, true
		}
		return tp.prefix + ": " + action, true
	}
	return "", false
}

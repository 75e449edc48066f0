// Package agentsession is the façade a driver uses to talk to one
// session's event log without reaching into internal/eventlog and
// internal/layout directly: it owns the AgentDir/SessionId pair, exposes
// one Append* helper per event variant, and answers the handful of
// convenience queries a driver needs between turns (what changed, which
// patches are still pending, what the last tool call did).
//
// Grounded on the teacher's internal/session package's role as the
// single owner of session lifecycle, generalized from spawning
// sub-agent processes to owning an append-only event log.
package agentsession

import (
	"go.uber.org/zap"

	"codenerd/internal/eventlog"
	"codenerd/internal/layout"
	"codenerd/internal/model"
)

// Session owns exclusive write access to one session's event log.
type Session struct {
	dir *layout.AgentDir
	id  layout.SessionId
	log *eventlog.Log
}

// Start begins a brand new session under dir.
func Start(dir *layout.AgentDir, log *zap.Logger) (*Session, error) {
	id := layout.NewSessionId()
	return open(dir, id, log)
}

// Resume reopens an existing session's event log for further appends.
func Resume(dir *layout.AgentDir, id layout.SessionId, log *zap.Logger) (*Session, error) {
	return open(dir, id, log)
}

// Latest resumes the most recently created session under dir, if any.
func Latest(dir *layout.AgentDir, log *zap.Logger) (*Session, bool, error) {
	id, ok := dir.LatestSession()
	if !ok {
		return nil, false, nil
	}
	s, err := open(dir, id, log)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func open(dir *layout.AgentDir, id layout.SessionId, log *zap.Logger) (*Session, error) {
	l, err := eventlog.Open(dir, id, log)
	if err != nil {
		return nil, err
	}
	return &Session{dir: dir, id: id, log: l}, nil
}

// Id returns the session's identifier.
func (s *Session) Id() layout.SessionId { return s.id }

// Close releases the underlying event log's write lock.
func (s *Session) Close() error { return s.log.Close() }

// ReadEvents returns every event appended to this session so far.
func (s *Session) ReadEvents() ([]model.Envelope, error) {
	return eventlog.ReadEvents(s.dir, s.id)
}

func (s *Session) append(ev model.Event) (model.Seq, error) {
	return s.log.Append(ev)
}

// AppendUserMessage records one turn of user input.
func (s *Session) AppendUserMessage(content string) (model.Seq, error) {
	return s.append(model.Event{Type: model.EventUserMessage, Content: content})
}

// AppendModelMessage records one turn of model output.
func (s *Session) AppendModelMessage(content string, tokensUsed *uint64) (model.Seq, error) {
	return s.append(model.Event{Type: model.EventModelMessage, Content: content, TokensUsed: tokensUsed})
}

// AppendToolCall records a tool invocation before its result is known.
func (s *Session) AppendToolCall(tool string, arguments map[string]any) (model.Seq, error) {
	return s.append(model.Event{Type: model.EventToolCall, Tool: tool, Arguments: arguments})
}

// AppendToolResult records a tool's outcome.
func (s *Session) AppendToolResult(tool string, result map[string]any, success bool, toolErr string) (model.Seq, error) {
	return s.append(model.Event{
		Type:      model.EventToolResult,
		Tool:      tool,
		Result:    result,
		Success:   &success,
		ToolError: toolErr,
	})
}

// AppendContextLoad records that content was loaded into the model's context.
func (s *Session) AppendContextLoad(source, path, contentHash string) (model.Seq, error) {
	return s.append(model.Event{Type: model.EventContextLoad, Source: source, Path: path, ContentHash: contentHash})
}

// AppendPatchProposed records that a patch was queued for approval.
func (s *Session) AppendPatchProposed(patchId string) (model.Seq, error) {
	return s.append(model.Event{Type: model.EventPatchProposed, PatchId: patchId})
}

// AppendPatchDecision records a patch's approve/reject decision.
func (s *Session) AppendPatchDecision(patchId string, decision model.PatchDecisionValue) (model.Seq, error) {
	return s.append(model.Event{Type: model.EventPatchDecision, PatchId: patchId, PatchDecision: decision})
}

// AppendPatchApplied records that an approved patch was written to disk.
func (s *Session) AppendPatchApplied(patchId string, files []string, commit string) (model.Seq, error) {
	return s.append(model.Event{Type: model.EventPatchApplied, PatchId: patchId, Files: files, Commit: commit})
}

// AppendPlanUpdate records one mutation to the reconstructed plan.
func (s *Session) AppendPlanUpdate(op model.PlanOp, item, ref string) (model.Seq, error) {
	return s.append(model.Event{Type: model.EventPlanUpdate, Op: op, Item: item, Ref: ref})
}

// AppendApprovalDecision records a risk-gated action's outcome.
func (s *Session) AppendApprovalDecision(action string, outcome model.ApprovalOutcome, risk model.RiskLevel) (model.Seq, error) {
	return s.append(model.Event{Type: model.EventApprovalDecision, Action: action, Outcome: outcome, Risk: risk})
}

// ModifiedFiles returns every file path touched by an applied patch so
// far, in first-seen order with duplicates removed.
func (s *Session) ModifiedFiles() ([]string, error) {
	events, err := s.ReadEvents()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var files []string
	for _, envelope := range events {
		if envelope.Event.Type != model.EventPatchApplied {
			continue
		}
		for _, f := range envelope.Event.Files {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	return files, nil
}

// LastToolCall returns the most recent ToolCall event, if any.
func (s *Session) LastToolCall() (model.Event, bool, error) {
	events, err := s.ReadEvents()
	if err != nil {
		return model.Event{}, false, err
	}
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Event.Type == model.EventToolCall {
			return events[i].Event, true, nil
		}
	}
	return model.Event{}, false, nil
}

// PendingPatches returns the ids of every patch that was proposed but has
// neither a reject decision nor an applied record yet, in the order they
// were proposed. An approved patch stays pending until it is applied.
func (s *Session) PendingPatches() ([]string, error) {
	events, err := s.ReadEvents()
	if err != nil {
		return nil, err
	}

	var order []string
	resolved := make(map[string]bool)
	for _, envelope := range events {
		ev := envelope.Event
		switch ev.Type {
		case model.EventPatchProposed:
			order = append(order, ev.PatchId)
		case model.EventPatchDecision:
			if ev.PatchDecision == model.PatchDecisionRejected {
				resolved[ev.PatchId] = true
			}
		case model.EventPatchApplied:
			resolved[ev.PatchId] = true
		}
	}

	var pending []string
	for _, id := range order {
		if !resolved[id] {
			pending = append(pending, id)
		}
	}
	return pending, nil
}

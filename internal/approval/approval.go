// Package approval implements the gate that decides whether a classified
// action may proceed: auto-approved, prompted to a human, or rejected
// outright depending on the session's Mode.
//
// Grounded on internal/transparency's reporter/explainer structure
// (ExplainSafetyAction's risk narrative becomes the prompt text shown to
// the user) generalized into a request/response gate, with one-shot
// pedagogical hints supplied by internal/teaching.
package approval

import (
	"context"
	"fmt"
	"sync"

	"codenerd/internal/harnesserr"
	"codenerd/internal/model"
	"codenerd/internal/risk"
	"codenerd/internal/teaching"
)

// Mode is the closed set of approval policies for a session.
type Mode int

const (
	// ModeReadOnly permits only Safe actions; Risky actions are rejected
	// without prompting.
	ModeReadOnly Mode = iota
	// ModeAuto auto-approves Safe actions and prompts for Risky ones.
	ModeAuto
	// ModeFullAccess auto-approves everything but logs every decision.
	ModeFullAccess
)

func (m Mode) String() string {
	switch m {
	case ModeReadOnly:
		return "read-only"
	case ModeAuto:
		return "auto"
	case ModeFullAccess:
		return "full-access"
	default:
		return "unknown"
	}
}

// ParseMode parses a Mode's String() spelling back into a Mode, for
// reading the mode name out of a config profile.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "read-only":
		return ModeReadOnly, nil
	case "auto":
		return ModeAuto, nil
	case "full-access":
		return ModeFullAccess, nil
	default:
		return 0, harnesserr.New(harnesserr.KindConfig, "approval", fmt.Sprintf("unknown approval mode %q", s))
	}
}

// Prompter asks a human to resolve a pending Risky action. Implementations
// live in the CLI layer (cmd/codenerd); tests use a scripted fake.
type Prompter interface {
	Prompt(ctx context.Context, action string, classification risk.Classification, hint string) (model.ApprovalOutcome, error)
}

// Request is a resolved approval decision, suitable for recording as an
// ApprovalDecision event.
type Request struct {
	Action         string
	Classification risk.Classification
	Outcome        model.ApprovalOutcome
	Hint           string
}

// Gate serializes approval requests for one session and applies Mode.
type Gate struct {
	mode     Mode
	prompter Prompter
	teaching *teaching.State

	mu sync.Mutex
}

// NewGate constructs a Gate. prompter may be nil only if mode is ReadOnly
// or FullAccess (neither ever prompts).
func NewGate(mode Mode, prompter Prompter) *Gate {
	return &Gate{mode: mode, prompter: prompter, teaching: teaching.NewState()}
}

// Mode returns the gate's configured mode.
func (g *Gate) Mode() Mode { return g.mode }

// Request resolves one approval request, serialized with respect to any
// other concurrent call on the same Gate — the spec requires at most one
// outstanding prompt per session.
func (g *Gate) Request(ctx context.Context, action, toolName string, args map[string]any) (Request, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	classification := risk.Classify(toolName, args)
	req := Request{Action: action, Classification: classification}

	switch g.mode {
	case ModeReadOnly:
		if classification.Risk == model.RiskSafe {
			req.Outcome = model.ApprovalApproved
			return req, nil
		}
		req.Outcome = model.ApprovalRejected
		return req, nil

	case ModeFullAccess:
		req.Outcome = model.ApprovalApproved
		return req, nil

	case ModeAuto:
		if classification.Risk == model.RiskSafe {
			req.Outcome = model.ApprovalApproved
			return req, nil
		}
		if g.prompter == nil {
			return Request{}, harnesserr.New(harnesserr.KindConfig, "approval", "auto mode requires a prompter for risky actions")
		}

		hint := g.hintFor(toolName, args)
		req.Hint = hint

		outcome, err := g.prompter.Prompt(ctx, action, classification, hint)
		if err != nil {
			return Request{}, harnesserr.Wrap(harnesserr.KindApproval, "approval", "prompt failed", err)
		}
		req.Outcome = outcome
		return req, nil

	default:
		return Request{}, harnesserr.New(harnesserr.KindConfig, "approval", fmt.Sprintf("unknown approval mode %d", g.mode))
	}
}

// hintFor asks the teaching subsystem for a one-shot concept hint
// appropriate to this shell-style action, returning "" if none applies or
// the concept has already been shown this session.
func (g *Gate) hintFor(toolName string, args map[string]any) string {
	command, _ := args["command"].(string)
	context := command
	if context == "" {
		context = toolName
	}
	concept, ok := teaching.SuggestConcept("shell", true, context)
	if !ok {
		return ""
	}
	hint, ok := g.teaching.GetHint(concept)
	if !ok {
		return ""
	}
	return hint
}

// CancelledRequest builds a Request with a Cancelled outcome for action; it
// records nothing itself. Callers emit an ApprovalDecision{Cancelled} event
// for every request they abandon, so every pending approval gets a
// Cancelled outcome at session-cancel time.
func CancelledRequest(action string, classification risk.Classification) Request {
	return Request{Action: action, Classification: classification, Outcome: model.ApprovalCancelled}
}

// Package model holds the data shapes shared across the harness: event
// envelopes and their variant payloads, patch/hunk shapes, and memory
// document frontmatter. These are plain structs with JSON/YAML tags; the
// packages that own behavior (eventlog, patch, memory) live elsewhere.
//
// Named "model" rather than reusing the teacher's internal/types package,
// which carried an unrelated data model (ModelCapability, SessionContext,
// ToolDefinition, LLMToolResponse) for the multi-agent executor this repo
// does not keep and is deleted here — see DESIGN.md.
package model

import "time"

// Seq is a per-session, monotonically increasing, gap-free event counter
// assigned at append time.
type Seq uint64

// EventType discriminates the closed set of event payload variants stored
// in the `event` field of an envelope.
type EventType string

const (
	EventUserMessage        EventType = "UserMessage"
	EventModelMessage       EventType = "ModelMessage"
	EventToolCall           EventType = "ToolCall"
	EventToolResult         EventType = "ToolResult"
	EventContextLoad        EventType = "ContextLoad"
	EventPatchProposed      EventType = "PatchProposed"
	EventPatchDecision      EventType = "PatchDecision"
	EventPatchApplied       EventType = "PatchApplied"
	EventPlanUpdate         EventType = "PlanUpdate"
	EventMemoryPatchPropose EventType = "MemoryPatchProposed"
	EventMemoryPatchDecide  EventType = "MemoryPatchDecision"
	EventApprovalDecision   EventType = "ApprovalDecision"
)

// PlanOp is the closed set of PlanUpdate operations.
type PlanOp string

const (
	PlanAdd      PlanOp = "add"
	PlanComplete PlanOp = "complete"
	PlanRemove   PlanOp = "remove"
	PlanReorder  PlanOp = "reorder"
)

// PatchDecisionValue mirrors the outcome recorded by a PatchDecision event.
type PatchDecisionValue string

const (
	PatchDecisionApproved PatchDecisionValue = "Approved"
	PatchDecisionRejected PatchDecisionValue = "Rejected"
)

// ApprovalOutcome is the closed set of decisions an approval request can
// resolve to.
type ApprovalOutcome string

const (
	ApprovalApproved  ApprovalOutcome = "Approved"
	ApprovalRejected  ApprovalOutcome = "Rejected"
	ApprovalCancelled ApprovalOutcome = "Cancelled"
)

// RiskLevel is the closed Safe/Risky binary produced by classification.
type RiskLevel string

const (
	RiskSafe  RiskLevel = "Safe"
	RiskRisky RiskLevel = "Risky"
)

// Event is the discriminated-union payload stored under an envelope's
// "event" key. Only the fields relevant to Type are populated; zero values
// of the others are omitted on serialization.
type Event struct {
	Type EventType `json:"type"`

	// UserMessage / ModelMessage
	Content    string  `json:"content,omitempty"`
	TokensUsed *uint64 `json:"tokens_used,omitempty"`

	// ToolCall / ToolResult. Result is a structured object (e.g.
	// {"cmd": "...", "cwd": "...", "exit_code": 0} for the shell tool),
	// not preformatted text, so extraction can read individual fields
	// out of it.
	Tool      string         `json:"tool,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Result    map[string]any `json:"result,omitempty"`
	Success   *bool          `json:"success,omitempty"`
	ToolError string         `json:"error,omitempty"`

	// ContextLoad
	Source      string `json:"source,omitempty"`
	Path        string `json:"path,omitempty"`
	ContentHash string `json:"content_hash,omitempty"`

	// PatchProposed / PatchDecision / PatchApplied
	PatchId        string             `json:"patch_id,omitempty"`
	PatchDecision  PatchDecisionValue `json:"patch_decision,omitempty"`
	Files          []string           `json:"files,omitempty"`
	Commit         string             `json:"commit,omitempty"`

	// PlanUpdate
	Op   PlanOp `json:"op,omitempty"`
	Item string `json:"item,omitempty"`
	Ref  string `json:"ref,omitempty"`

	// ApprovalDecision
	Action     string          `json:"action,omitempty"`
	Outcome    ApprovalOutcome `json:"outcome,omitempty"`
	Risk       RiskLevel       `json:"risk,omitempty"`
	SourceEvents []string      `json:"source_events,omitempty"`
}

// Envelope is the on-disk shape of one events.jsonl line.
type Envelope struct {
	Seq       Seq       `json:"seq"`
	SessionId string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Event     Event     `json:"event"`
}

// PatchStatus is the closed lifecycle of a Patch.
type PatchStatus string

const (
	PatchStatusProposed PatchStatus = "Proposed"
	PatchStatusApproved PatchStatus = "Approved"
	PatchStatusApplied  PatchStatus = "Applied"
	PatchStatusRejected PatchStatus = "Rejected"
	PatchStatusFailed   PatchStatus = "Failed"
)

// MemoryKind is the closed set of memory document kinds.
type MemoryKind string

const (
	MemoryCore     MemoryKind = "core"
	MemoryFact     MemoryKind = "fact"
	MemoryADR      MemoryKind = "adr"
	MemoryPlaybook MemoryKind = "playbook"
	MemoryRecap    MemoryKind = "recap"
)

// VerificationStatus tracks whether a document's claims have been
// re-confirmed against the current tree.
type VerificationStatus string

const (
	VerificationUnknown  VerificationStatus = "unknown"
	VerificationVerified VerificationStatus = "verified"
	VerificationStale    VerificationStatus = "stale"
)

// Provenance links a memory document back to the events/patches/commits
// that produced it.
type Provenance struct {
	Events  []string `yaml:"events,omitempty" json:"events,omitempty"`
	Patches []string `yaml:"patches,omitempty" json:"patches,omitempty"`
	Commits []string `yaml:"commits,omitempty" json:"commits,omitempty"`
}

// Verification records a document's last-checked status.
type Verification struct {
	LastVerifiedCommit string             `yaml:"last_verified_commit,omitempty" json:"last_verified_commit,omitempty"`
	Status             VerificationStatus `yaml:"status" json:"status"`
}

// MemoryFrontmatter is the strict YAML frontmatter of a memory document.
type MemoryFrontmatter struct {
	Id           string       `yaml:"id" json:"id"`
	Title        string       `yaml:"title" json:"title"`
	Kind         MemoryKind   `yaml:"kind" json:"kind"`
	Tags         []string     `yaml:"tags" json:"tags"`
	Created      time.Time    `yaml:"created" json:"created"`
	Updated      time.Time    `yaml:"updated" json:"updated"`
	Provenance   Provenance   `yaml:"provenance,omitempty" json:"provenance,omitempty"`
	Verification Verification `yaml:"verification" json:"verification"`
	Session      string       `yaml:"session,omitempty" json:"session,omitempty"`
}

// MemoryPatch is a proposed mutation to a memory document.
type MemoryPatch struct {
	Path         string             `json:"path"`
	DocId        string             `json:"doc_id"`
	Kind         MemoryKind         `json:"kind"`
	Description  string             `json:"description"`
	Diff         string             `json:"diff"`
	SourceEvents []string           `json:"source_events"`
	SessionId    string             `json:"session_id"`
	Seq          Seq                `json:"seq"`
	Decision     PatchDecisionValue `json:"decision,omitempty"`
	Applied      bool               `json:"applied"`
}

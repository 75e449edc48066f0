// Package gardener consolidates a completed session's event log into
// durable knowledge artifacts: facts, ADRs, and a recap, all queued as
// memory patches for user approval rather than written directly.
//
// Grounded on original_source/crates/core/src/memory/gardener/extraction.rs
// (entity shapes, shell-command/gotcha/decision/workflow extraction rules)
// and .../consolidation.rs (fact/ADR bucketing, patch generation, warnings).
package gardener

// CommandOutcome classifies how a shell command ended.
type CommandOutcome string

const (
	CommandSuccess CommandOutcome = "success"
	CommandFailure CommandOutcome = "failure"
)

// CommandEntity is a shell command observed in a session, with its outcome
// and the event ids that produced it.
type CommandEntity struct {
	Command  string
	Cwd      string
	Outcome  CommandOutcome
	EventIds []string
}

// GotchaCategory buckets a recovered failure by the kind of command that
// failed.
type GotchaCategory string

const (
	GotchaBuild   GotchaCategory = "build"
	GotchaTest    GotchaCategory = "test"
	GotchaConfig  GotchaCategory = "config"
	GotchaRuntime GotchaCategory = "runtime"
	GotchaOther   GotchaCategory = "other"
)

// GotchaEntity pairs a failed command with the command that resolved it.
type GotchaEntity struct {
	Issue      string
	Resolution string
	Category   GotchaCategory
	EventIds   []string
}

// DecisionEntity is a design decision inferred from model message content.
type DecisionEntity struct {
	Decision  string
	Context   string
	Rationale string
	EventIds  []string
}

// WorkflowStep is one action within a WorkflowEntity.
type WorkflowStep struct {
	Description string
	Action      string
	Outcome     string
}

// WorkflowEntity is a sequence of successful commands bracketed by user
// messages, long enough to be a repeatable procedure.
type WorkflowEntity struct {
	Title    string
	Steps    []WorkflowStep
	EventIds []string
}

// ExtractedEntities is everything Extract found in one session's events.
type ExtractedEntities struct {
	Commands  []CommandEntity
	Gotchas   []GotchaEntity
	Decisions []DecisionEntity
	Workflows []WorkflowEntity
}

// ExtractionConfig tunes the entity extractor's heuristics.
type ExtractionConfig struct {
	// MinWorkflowSteps is the minimum successful-command run length before
	// it is promoted to a WorkflowEntity.
	MinWorkflowSteps int
	// DecisionKeywords are the phrases that mark a model message as
	// containing a decision worth extracting.
	DecisionKeywords []string
}

// DefaultExtractionConfig matches spec §4.12's decision keyword list and a
// 3-step workflow threshold.
func DefaultExtractionConfig() ExtractionConfig {
	return ExtractionConfig{
		MinWorkflowSteps: 3,
		DecisionKeywords: []string{"decided", "chose", "will use", "selected"},
	}
}

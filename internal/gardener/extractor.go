package gardener

import (
	"fmt"
	"strings"

	"codenerd/internal/model"
)

// EntityExtractor scans a session's events for durable knowledge: shell
// commands, recovered failures, decisions, and repeatable workflows.
type EntityExtractor struct {
	config ExtractionConfig
}

// NewEntityExtractor builds an extractor with the default configuration.
func NewEntityExtractor() *EntityExtractor {
	return &EntityExtractor{config: DefaultExtractionConfig()}
}

// NewEntityExtractorWithConfig builds an extractor with a custom configuration.
func NewEntityExtractorWithConfig(config ExtractionConfig) *EntityExtractor {
	return &EntityExtractor{config: config}
}

// Extract scans every event in order and returns everything found.
func (e *EntityExtractor) Extract(events []model.Envelope) ExtractedEntities {
	var commands []CommandEntity
	var gotchas []GotchaEntity
	var decisions []DecisionEntity
	var commandSequences [][]CommandEntity
	var currentSequence []CommandEntity
	var lastFailedCommand *CommandEntity

	pendingToolCallArgs := make(map[string]map[string]any)

	for _, envelope := range events {
		ev := envelope.Event
		switch ev.Type {
		case model.EventToolCall:
			pendingToolCallArgs[ev.Tool] = ev.Arguments

		case model.EventToolResult:
			if ev.Tool != "shell" {
				continue
			}
			cmd, ok := e.extractShellCommand(ev, pendingToolCallArgs[ev.Tool], envelope.SessionId, envelope.Seq)
			delete(pendingToolCallArgs, ev.Tool)
			if !ok {
				continue
			}

			if cmd.Outcome == CommandFailure {
				failed := cmd
				lastFailedCommand = &failed
				continue
			}

			if lastFailedCommand != nil && e.isResolutionAttempt(lastFailedCommand.Command, cmd.Command) {
				if gotcha, ok := e.extractGotcha(*lastFailedCommand, cmd); ok {
					gotchas = append(gotchas, gotcha)
				}
				lastFailedCommand = nil
			}

			currentSequence = append(currentSequence, cmd)
			commands = append(commands, cmd)

		case model.EventModelMessage:
			if decision, ok := e.extractDecision(ev.Content, envelope.SessionId, envelope.Seq); ok {
				decisions = append(decisions, decision)
			}

		case model.EventUserMessage:
			if len(currentSequence) >= e.config.MinWorkflowSteps {
				commandSequences = append(commandSequences, currentSequence)
			}
			currentSequence = nil
		}
	}

	workflows := e.extractWorkflows(commandSequences)

	return ExtractedEntities{Commands: commands, Gotchas: gotchas, Decisions: decisions, Workflows: workflows}
}

func (e *EntityExtractor) extractShellCommand(ev model.Event, callArgs map[string]any, sessionId string, seq model.Seq) (CommandEntity, bool) {
	cmd, _ := ev.Result["cmd"].(string)
	if cmd == "" {
		cmd, _ = callArgs["cmd"].(string)
	}
	if cmd == "" {
		return CommandEntity{}, false
	}

	cwd, _ := ev.Result["cwd"].(string)
	if cwd == "" {
		cwd, _ = callArgs["cwd"].(string)
	}

	success := true
	if ev.Success != nil {
		success = *ev.Success
	}
	if exitCode, ok := ev.Result["exit_code"].(float64); ok && exitCode != 0 {
		success = false
	}

	outcome := CommandSuccess
	if !success {
		outcome = CommandFailure
	}

	return CommandEntity{
		Command:  cmd,
		Cwd:      cwd,
		Outcome:  outcome,
		EventIds: []string{eventId(sessionId, seq)},
	}, true
}

func (e *EntityExtractor) isResolutionAttempt(failedCmd, resolutionCmd string) bool {
	failedBase := firstWord(failedCmd)
	resolutionBase := firstWord(resolutionCmd)
	return failedBase == resolutionBase || strings.Contains(resolutionCmd, failedBase)
}

func (e *EntityExtractor) extractGotcha(failed, resolution CommandEntity) (GotchaEntity, bool) {
	category := e.classifyGotcha(failed.Command)
	issue := fmt.Sprintf("Command failed: %s", failed.Command)
	resolutionText := fmt.Sprintf("Fixed with: %s", resolution.Command)

	eventIds := append(append([]string{}, failed.EventIds...), resolution.EventIds...)
	return GotchaEntity{Issue: issue, Resolution: resolutionText, Category: category, EventIds: eventIds}, true
}

func (e *EntityExtractor) classifyGotcha(command string) GotchaCategory {
	cmd := strings.ToLower(command)
	switch {
	case containsAny(cmd, "cargo", "build", "compile", "make", "cmake"):
		return GotchaBuild
	case containsAny(cmd, "test", "pytest", "jest"):
		return GotchaTest
	case containsAny(cmd, "config", "settings", ".toml", ".yaml"):
		return GotchaConfig
	case containsAny(cmd, "panic", "error", "exception"):
		return GotchaRuntime
	default:
		return GotchaOther
	}
}

func (e *EntityExtractor) extractDecision(content, sessionId string, seq model.Seq) (DecisionEntity, bool) {
	contentLower := strings.ToLower(content)

	keywordFound := false
	for _, kw := range e.config.DecisionKeywords {
		if strings.Contains(contentLower, " "+kw) || strings.Contains(contentLower, kw+".") {
			keywordFound = true
			break
		}
	}
	if !keywordFound {
		return DecisionEntity{}, false
	}

	var decision, context, rationale strings.Builder
	inDecision, inRationale := false, false

	for _, line := range strings.Split(content, "\n") {
		lineLower := strings.ToLower(line)
		trimmed := strings.TrimSpace(line)

		if containsAnyKeyword(lineLower, e.config.DecisionKeywords) {
			inDecision = true
			decision.WriteString(trimmed)
			decision.WriteByte(' ')
			continue
		}

		switch {
		case inDecision:
			if containsAny(lineLower, "because", "since", "due to", "reason") {
				inDecision, inRationale = false, true
				rationale.WriteString(trimmed)
				rationale.WriteByte(' ')
				continue
			}
			if trimmed != "" {
				decision.WriteString(trimmed)
				decision.WriteByte(' ')
			} else {
				inDecision = false
			}
		case inRationale:
			if trimmed != "" {
				rationale.WriteString(trimmed)
				rationale.WriteByte(' ')
			} else {
				inRationale = false
			}
		case trimmed != "" && context.Len() < 500:
			context.WriteString(trimmed)
			context.WriteByte(' ')
		}
	}

	decisionText := strings.TrimSpace(decision.String())
	if len(decisionText) <= 10 {
		return DecisionEntity{}, false
	}

	return DecisionEntity{
		Decision:  decisionText,
		Context:   strings.TrimSpace(context.String()),
		Rationale: strings.TrimSpace(rationale.String()),
		EventIds:  []string{eventId(sessionId, seq)},
	}, true
}

func (e *EntityExtractor) extractWorkflows(sequences [][]CommandEntity) []WorkflowEntity {
	var workflows []WorkflowEntity

	for _, sequence := range sequences {
		if len(sequence) < e.config.MinWorkflowSteps {
			continue
		}

		title := e.generateWorkflowTitle(sequence)
		steps := make([]WorkflowStep, 0, len(sequence))
		var eventIds []string
		for _, cmd := range sequence {
			outcome := "Command succeeds"
			if cmd.Outcome == CommandFailure {
				outcome = "Command fails"
			}
			steps = append(steps, WorkflowStep{
				Description: "Run: " + cmd.Command,
				Action:      cmd.Command,
				Outcome:     outcome,
			})
			eventIds = append(eventIds, cmd.EventIds...)
		}

		workflows = append(workflows, WorkflowEntity{Title: title, Steps: steps, EventIds: eventIds})
	}

	return workflows
}

func (e *EntityExtractor) generateWorkflowTitle(sequence []CommandEntity) string {
	allCargo, allGit := true, true
	for _, cmd := range sequence {
		if !strings.Contains(cmd.Command, "cargo") {
			allCargo = false
		}
		if !strings.Contains(cmd.Command, "git") {
			allGit = false
		}
	}

	if allCargo {
		switch first := sequence[0].Command; {
		case strings.Contains(first, "fmt"):
			return "Prepare code for commit"
		case strings.Contains(first, "test"):
			return "Run tests"
		case strings.Contains(first, "build"):
			return "Build project"
		}
	}
	if allGit {
		return "Git workflow"
	}

	return fmt.Sprintf("%d-step workflow", len(sequence))
}

func eventId(sessionId string, seq model.Seq) string {
	return fmt.Sprintf("%s_%d", sessionId, seq)
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func containsAnyKeyword(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

package gardener

import (
	"fmt"
	"sort"
	"strings"

	"codenerd/internal/eventlog"
	"codenerd/internal/harnesserr"
	"codenerd/internal/layout"
	"codenerd/internal/memory"
	"codenerd/internal/model"
)

// FactUpdateKind discriminates the three shapes a fact mutation can take.
type FactUpdateKind string

const (
	FactUpdateCreate FactUpdateKind = "create"
	FactUpdateAppend FactUpdateKind = "append"
	FactUpdateNoOp   FactUpdateKind = "noop"
)

// FactUpdate is a proposed mutation to a fact document, not yet written:
// Create starts a new fact, Append adds a section to an existing one, NoOp
// records that nothing needed to change (and why).
type FactUpdate struct {
	Kind       FactUpdateKind
	DocId      string
	Title      string
	Tags       []string
	Section    string
	Content    string
	Provenance []string
	Reason     string
}

// AdrUpdate is a proposed new architecture decision record.
type AdrUpdate struct {
	Number     int
	DocId      string
	Title      string
	Content    string
	Context    string
	Rationale  string
	Provenance []string
}

// ConsolidationResult is everything one gardener run produced, queued as
// patches rather than written directly to the memory tree.
type ConsolidationResult struct {
	Facts     []FactUpdate
	Adrs      []AdrUpdate
	Playbooks []WorkflowEntity
	Recap     string
	Patches   []model.MemoryPatch
	Warnings  []string
}

// ConsolidationJob consolidates one completed session's events into the
// memory tree's pending patch queue.
type ConsolidationJob struct {
	SessionId layout.SessionId
	Dir       *layout.AgentDir
	Config    ExtractionConfig
}

// NewConsolidationJob builds a job for a session, verifying its event log
// exists before any extraction work begins.
func NewConsolidationJob(dir *layout.AgentDir, sessionId layout.SessionId) (*ConsolidationJob, error) {
	events, err := eventlog.ReadEvents(dir, sessionId)
	if err != nil {
		return nil, harnesserr.Wrap(harnesserr.KindNotFound, "gardener", "session has no event log", err)
	}
	if len(events) == 0 {
		return nil, harnesserr.New(harnesserr.KindNotFound, "gardener", "session event log is empty")
	}
	return &ConsolidationJob{SessionId: sessionId, Dir: dir, Config: DefaultExtractionConfig()}, nil
}

// Run extracts entities from the session's events, diffs them against the
// existing memory manifest, and produces a ConsolidationResult. It writes
// nothing to the memory tree; callers review result.Patches and apply them
// through the normal approval path.
func (j *ConsolidationJob) Run(paths memory.Paths) (ConsolidationResult, error) {
	events, err := eventlog.ReadEvents(j.Dir, j.SessionId)
	if err != nil {
		return ConsolidationResult{}, harnesserr.Wrap(harnesserr.KindIO, "gardener", "read session events", err)
	}

	extractor := NewEntityExtractorWithConfig(j.Config)
	entities := extractor.Extract(events)

	manifest, err := memory.Rebuild(paths)
	if err != nil {
		return ConsolidationResult{}, harnesserr.Wrap(harnesserr.KindIO, "gardener", "rebuild manifest", err)
	}

	factUpdates := generateFactUpdates(entities, manifest)
	adrUpdates := generateAdrUpdates(entities, manifest)

	var patches []model.MemoryPatch
	patches = append(patches, generateFactPatches(factUpdates, paths, string(j.SessionId))...)
	patches = append(patches, generateAdrPatches(adrUpdates, paths, string(j.SessionId))...)

	recap := generateRecap(entities, string(j.SessionId))
	warnings := collectWarnings(entities, factUpdates)

	return ConsolidationResult{
		Facts:     factUpdates,
		Adrs:      adrUpdates,
		Playbooks: entities.Workflows,
		Recap:     recap,
		Patches:   patches,
		Warnings:  warnings,
	}, nil
}

// generateFactUpdates buckets successful commands by category and every
// gotcha by its classification, one Append update per non-empty bucket.
func generateFactUpdates(entities ExtractedEntities, manifest memory.Manifest) []FactUpdate {
	var updates []FactUpdate

	buildCommands, testCommands, otherCommands := bucketCommands(entities.Commands)
	updates = append(updates, commandBucketUpdate("fact.commands.build", "Build Commands", buildCommands, manifest)...)
	updates = append(updates, commandBucketUpdate("fact.commands.test", "Test Commands", testCommands, manifest)...)
	updates = append(updates, commandBucketUpdate("fact.commands.other", "Commands", otherCommands, manifest)...)

	byCategory := make(map[GotchaCategory][]GotchaEntity)
	for _, g := range entities.Gotchas {
		byCategory[g.Category] = append(byCategory[g.Category], g)
	}
	for _, category := range []GotchaCategory{GotchaBuild, GotchaTest, GotchaConfig, GotchaRuntime, GotchaOther} {
		gotchas := byCategory[category]
		if len(gotchas) == 0 {
			continue
		}
		docId := fmt.Sprintf("fact.gotchas.%s", category)
		updates = append(updates, gotchaBucketUpdate(docId, gotchas, manifest))
	}

	return updates
}

func bucketCommands(commands []CommandEntity) (build, test, other []CommandEntity) {
	for _, c := range commands {
		if c.Outcome != CommandSuccess {
			continue
		}
		cmd := strings.ToLower(c.Command)
		switch {
		case containsAny(cmd, "build", "compile"):
			build = append(build, c)
		case containsAny(cmd, "test"):
			test = append(test, c)
		default:
			other = append(other, c)
		}
	}
	return build, test, other
}

func commandBucketUpdate(docId, section string, commands []CommandEntity, manifest memory.Manifest) []FactUpdate {
	if len(commands) == 0 {
		return nil
	}

	var lines []string
	var provenance []string
	seen := make(map[string]bool)
	for _, c := range commands {
		if seen[c.Command] {
			continue
		}
		seen[c.Command] = true
		lines = append(lines, fmt.Sprintf("- `%s`", c.Command))
		provenance = append(provenance, c.EventIds...)
	}
	content := strings.Join(lines, "\n")

	if _, exists := manifest.ById(docId); exists {
		return []FactUpdate{{Kind: FactUpdateAppend, DocId: docId, Section: section, Content: content, Provenance: provenance}}
	}
	return []FactUpdate{{
		Kind:       FactUpdateCreate,
		DocId:      docId,
		Title:      section,
		Tags:       []string{"commands"},
		Section:    section,
		Content:    content,
		Provenance: provenance,
	}}
}

func gotchaBucketUpdate(docId string, gotchas []GotchaEntity, manifest memory.Manifest) FactUpdate {
	var lines []string
	var provenance []string
	for _, g := range gotchas {
		lines = append(lines, fmt.Sprintf("- **Issue:** %s\n  **Resolution:** %s", g.Issue, g.Resolution))
		provenance = append(provenance, g.EventIds...)
	}
	content := strings.Join(lines, "\n")

	if _, exists := manifest.ById(docId); exists {
		return FactUpdate{Kind: FactUpdateAppend, DocId: docId, Section: "Gotchas", Content: content, Provenance: provenance}
	}
	return FactUpdate{
		Kind:       FactUpdateCreate,
		DocId:      docId,
		Title:      "Gotchas: " + docId,
		Tags:       []string{"gotchas"},
		Section:    "Gotchas",
		Content:    content,
		Provenance: provenance,
	}
}

// generateAdrUpdates assigns sequential ADR numbers to every decision found,
// continuing from the manifest's highest existing sequence number so two
// decisions in the same run never collide.
func generateAdrUpdates(entities ExtractedEntities, manifest memory.Manifest) []AdrUpdate {
	if len(entities.Decisions) == 0 {
		return nil
	}

	next := nextAdrNumber(manifest)
	updates := make([]AdrUpdate, 0, len(entities.Decisions))
	for i, d := range entities.Decisions {
		number := next + i
		updates = append(updates, AdrUpdate{
			Number:     number,
			DocId:      fmt.Sprintf("adr.%04d", number),
			Title:      d.Decision,
			Content:    d.Decision,
			Context:    d.Context,
			Rationale:  d.Rationale,
			Provenance: d.EventIds,
		})
	}
	return updates
}

func nextAdrNumber(manifest memory.Manifest) int {
	max := 0
	for _, e := range manifest.ByKind(model.MemoryADR) {
		var n int
		if _, err := fmt.Sscanf(strings.TrimPrefix(e.Id, "adr."), "%d", &n); err == nil && n > max {
			max = n
		}
	}
	return max + 1
}

func generateFactPatches(updates []FactUpdate, paths memory.Paths, sessionId string) []model.MemoryPatch {
	var patches []model.MemoryPatch
	for _, u := range updates {
		if u.Kind == FactUpdateNoOp {
			continue
		}
		path := paths.FactFile(u.DocId)
		var diff, description string
		if u.Kind == FactUpdateCreate {
			diff = createFactDiff(u)
			description = "New fact: " + u.Title
		} else {
			diff = appendFactDiff(u)
			description = "Update fact: " + u.DocId
		}
		patches = append(patches, model.MemoryPatch{
			Path:         path,
			DocId:        u.DocId,
			Kind:         model.MemoryFact,
			Description:  description,
			Diff:         diff,
			SourceEvents: u.Provenance,
			SessionId:    sessionId,
		})
	}
	return patches
}

func generateAdrPatches(updates []AdrUpdate, paths memory.Paths, sessionId string) []model.MemoryPatch {
	var patches []model.MemoryPatch
	for _, u := range updates {
		path := paths.DecisionFile(fmt.Sprintf("ADR-%04d", u.Number))
		patches = append(patches, model.MemoryPatch{
			Path:         path,
			DocId:        u.DocId,
			Kind:         model.MemoryADR,
			Description:  fmt.Sprintf("New ADR-%04d: %s", u.Number, u.Title),
			Diff:         createAdrDiff(u),
			SourceEvents: u.Provenance,
			SessionId:    sessionId,
		})
	}
	return patches
}

func createFactDiff(u FactUpdate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "+++ %s\n", u.DocId)
	fmt.Fprintf(&b, "+## %s\n", u.Section)
	for _, line := range strings.Split(u.Content, "\n") {
		fmt.Fprintf(&b, "+%s\n", line)
	}
	return b.String()
}

func appendFactDiff(u FactUpdate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "@@ %s @@\n", u.Section)
	for _, line := range strings.Split(u.Content, "\n") {
		fmt.Fprintf(&b, "+%s\n", line)
	}
	return b.String()
}

func createAdrDiff(u AdrUpdate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "+++ %s\n", u.DocId)
	fmt.Fprintf(&b, "+# %s\n", u.Title)
	if u.Context != "" {
		fmt.Fprintf(&b, "+\n+## Context\n+%s\n", u.Context)
	}
	fmt.Fprintf(&b, "+\n+## Decision\n+%s\n", u.Content)
	if u.Rationale != "" {
		fmt.Fprintf(&b, "+\n+## Rationale\n+%s\n", u.Rationale)
	}
	return b.String()
}

// generateRecap renders a short Markdown summary of a session's extracted
// entities for the episodic store.
func generateRecap(entities ExtractedEntities, sessionId string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Session Recap: %s\n\n", sessionId)

	if len(entities.Commands) > 0 {
		fmt.Fprintf(&b, "## Commands Run\n\n")
		seen := make(map[string]bool)
		for _, c := range entities.Commands {
			if seen[c.Command] {
				continue
			}
			seen[c.Command] = true
			status := "ok"
			if c.Outcome == CommandFailure {
				status = "failed"
			}
			fmt.Fprintf(&b, "- `%s` (%s)\n", c.Command, status)
		}
		b.WriteString("\n")
	}

	if len(entities.Gotchas) > 0 {
		fmt.Fprintf(&b, "## Gotchas\n\n")
		for _, g := range entities.Gotchas {
			fmt.Fprintf(&b, "- %s — %s\n", g.Issue, g.Resolution)
		}
		b.WriteString("\n")
	}

	if len(entities.Decisions) > 0 {
		fmt.Fprintf(&b, "## Decisions\n\n")
		for _, d := range entities.Decisions {
			fmt.Fprintf(&b, "- %s\n", d.Decision)
		}
		b.WriteString("\n")
	}

	if len(entities.Workflows) > 0 {
		fmt.Fprintf(&b, "## Workflows\n\n")
		for _, w := range entities.Workflows {
			fmt.Fprintf(&b, "- %s (%d steps)\n", w.Title, len(w.Steps))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func collectWarnings(entities ExtractedEntities, factUpdates []FactUpdate) []string {
	var warnings []string

	skipped := 0
	for _, u := range factUpdates {
		if u.Kind == FactUpdateNoOp {
			skipped++
		}
	}
	if skipped > 0 {
		warnings = append(warnings, fmt.Sprintf("%d facts already existed and were skipped", skipped))
	}

	total := len(entities.Commands) + len(entities.Gotchas) + len(entities.Decisions) + len(entities.Workflows)
	if total == 0 {
		warnings = append(warnings, "No entities extracted from session")
	}

	sort.Strings(warnings)
	return warnings
}

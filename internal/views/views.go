// Package views projects the event log and memory store into the three
// human-readable Markdown files the harness keeps on disk: MEMORY.md,
// PLAN.md, and DECISIONS.md. Every file is rebuilt from scratch on each
// call, never patched in place, so the projection stays idempotent and is
// always safe to regenerate after any event.
//
// Grounded structurally on internal/transparency/explainer.go's
// strings.Builder-based deterministic Markdown rendering, generalized from
// explaining a derivation trace to projecting event/memory state.
package views

import (
	"fmt"
	"sort"
	"strings"

	"codenerd/internal/memory"
	"codenerd/internal/model"
)

// PlanItem is one line of the reconstructed plan.
type PlanItem struct {
	Item string
	Done bool
}

// BuildPlan replays every PlanUpdate event in order and returns the
// resulting list. add appends a new item; complete marks the first
// matching, not-yet-done item as done; remove deletes the first matching
// item; reorder moves the named item to immediately follow Ref (or to the
// front, if Ref is empty or not found).
func BuildPlan(events []model.Envelope) []PlanItem {
	var items []PlanItem

	indexOf := func(name string) int {
		for i, it := range items {
			if it.Item == name {
				return i
			}
		}
		return -1
	}

	for _, envelope := range events {
		ev := envelope.Event
		if ev.Type != model.EventPlanUpdate {
			continue
		}

		switch ev.Op {
		case model.PlanAdd:
			if indexOf(ev.Item) == -1 {
				items = append(items, PlanItem{Item: ev.Item})
			}

		case model.PlanComplete:
			if i := indexOf(ev.Item); i != -1 {
				items[i].Done = true
			}

		case model.PlanRemove:
			if i := indexOf(ev.Item); i != -1 {
				items = append(items[:i], items[i+1:]...)
			}

		case model.PlanReorder:
			i := indexOf(ev.Item)
			if i == -1 {
				continue
			}
			moved := items[i]
			items = append(items[:i], items[i+1:]...)

			target := len(items)
			if ev.Ref != "" {
				if j := indexOf(ev.Ref); j != -1 {
					target = j + 1
				} else {
					target = 0
				}
			} else {
				target = 0
			}

			items = append(items, PlanItem{})
			copy(items[target+1:], items[target:])
			items[target] = moved
		}
	}

	return items
}

// RenderPlan renders PLAN.md from a reconstructed plan.
func RenderPlan(items []PlanItem) string {
	var b strings.Builder
	b.WriteString("# Plan\n\n")
	if len(items) == 0 {
		b.WriteString("*No plan items yet.*\n")
		return b.String()
	}
	for _, it := range items {
		box := "[ ]"
		if it.Done {
			box = "[x]"
		}
		fmt.Fprintf(&b, "- %s %s\n", box, it.Item)
	}
	return b.String()
}

// RenderMemory renders MEMORY.md: the merged core memory content followed
// by a summary of session-scoped notes (facts and ADRs) seen so far.
func RenderMemory(core memory.CoreMemory, facts []memory.FactDoc, adrs []memory.AdrDoc) string {
	var b strings.Builder
	b.WriteString("# Memory\n\n")

	if core.Content != "" {
		b.WriteString("## Core\n\n")
		b.WriteString(core.BodyContent())
		b.WriteString("\n\n")
	}

	if len(facts) > 0 {
		b.WriteString("## Facts\n\n")
		sorted := append([]memory.FactDoc(nil), facts...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Doc.Frontmatter.Id < sorted[j].Doc.Frontmatter.Id })
		for _, f := range sorted {
			fmt.Fprintf(&b, "- **%s** (`%s`)\n", f.Doc.Frontmatter.Title, f.Doc.Frontmatter.Id)
		}
		b.WriteString("\n")
	}

	if len(adrs) > 0 {
		b.WriteString("## Architecture Decisions\n\n")
		sorted := append([]memory.AdrDoc(nil), adrs...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Doc.Frontmatter.Id < sorted[j].Doc.Frontmatter.Id })
		for _, a := range sorted {
			fmt.Fprintf(&b, "- **%s** (`%s`)\n", a.Doc.Frontmatter.Title, a.Doc.Frontmatter.Id)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// RenderDecisions renders DECISIONS.md: a chronological ADR summary,
// oldest first by document id (ids are assigned in creation order).
func RenderDecisions(adrs []memory.AdrDoc) string {
	var b strings.Builder
	b.WriteString("# Decisions\n\n")

	if len(adrs) == 0 {
		b.WriteString("*No decisions recorded yet.*\n")
		return b.String()
	}

	sorted := append([]memory.AdrDoc(nil), adrs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Doc.Frontmatter.Id < sorted[j].Doc.Frontmatter.Id })

	for _, a := range sorted {
		fm := a.Doc.Frontmatter
		fmt.Fprintf(&b, "## %s\n\n", fm.Title)
		fmt.Fprintf(&b, "- id: `%s`\n", fm.Id)
		fmt.Fprintf(&b, "- updated: %s\n", fm.Updated.Format("2006-01-02"))
		if len(fm.Tags) > 0 {
			fmt.Fprintf(&b, "- tags: %s\n", strings.Join(fm.Tags, ", "))
		}
		b.WriteString("\n")
		b.WriteString(a.Doc.Body)
		b.WriteString("\n\n")
	}

	return b.String()
}

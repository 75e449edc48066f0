// Package memory implements the four-tier memory subsystem: documents
// stored as YAML-frontmatter Markdown files, a manifest cache, a lint
// engine, and CRUD operations over the on-disk memory tree.
//
// document.go is grounded on original_source/crates/core/src/memory/document.rs:
// the same "---\n<yaml>\n---\n\n<body>" framing, the same required-H2-section
// validation per kind, and the same token-count heuristic. YAML
// (de)serialization uses gopkg.in/yaml.v3, the teacher's existing
// configuration-parsing dependency, generalized here to document frontmatter.
package memory

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"codenerd/internal/harnesserr"
	"codenerd/internal/model"
)

// Frontmatter is an alias kept local so callers read memory.Frontmatter
// rather than reaching into internal/model directly for every field.
type Frontmatter = model.MemoryFrontmatter

// Doc is a parsed memory document: frontmatter metadata plus a Markdown body.
type Doc struct {
	Frontmatter Frontmatter
	Body        string
}

// ValidationIssue names one field that failed Doc.Validate.
type ValidationIssue struct {
	Field   string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// New creates a minimal document with both timestamps set to now.
func New(id, title string, kind model.MemoryKind, tags []string, body string) Doc {
	now := time.Now().UTC()
	return Doc{
		Frontmatter: Frontmatter{
			Id:      id,
			Title:   title,
			Kind:    kind,
			Tags:    tags,
			Created: now,
			Updated: now,
		},
		Body: body,
	}
}

// Parse decodes a "---\n<yaml>\n---\n\n<body>" document.
func Parse(content string) (Doc, error) {
	trimmed := strings.TrimLeft(content, " \t\r\n")
	if !strings.HasPrefix(trimmed, "---") {
		return Doc{}, harnesserr.New(harnesserr.KindParse, "memory", "missing frontmatter delimiter")
	}

	afterDelim := trimmed[3:]
	endIdx := strings.Index(afterDelim, "---")
	if endIdx < 0 {
		return Doc{}, harnesserr.New(harnesserr.KindParse, "memory", "unclosed frontmatter delimiter")
	}

	frontmatterStr := afterDelim[:endIdx]
	body := strings.TrimLeft(afterDelim[endIdx+3:], " \t\r\n")

	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(frontmatterStr), &fm); err != nil {
		return Doc{}, harnesserr.Wrap(harnesserr.KindParse, "memory", "invalid YAML frontmatter", err)
	}

	return Doc{Frontmatter: fm, Body: body}, nil
}

// String renders the document back to "---\n<yaml>\n---\n\n<body>" form.
func (d Doc) String() string {
	out, err := yaml.Marshal(d.Frontmatter)
	if err != nil {
		// Frontmatter is always a plain struct of marshalable fields; a
		// failure here means a programming error, not bad input.
		panic("memory: frontmatter marshal failed: " + err.Error())
	}
	return "---\n" + string(out) + "---\n\n" + d.Body
}

var (
	coreRequiredSections     = []string{"## Identity", "## Commands", "## Architecture", "## Conventions"}
	adrRequiredSections      = []string{"## Status", "## Context", "## Decision", "## Consequences"}
	playbookRequiredSections = []string{"## Preconditions", "## Steps", "## Verification"}
)

// Validate checks structural requirements and returns every violation found.
func (d Doc) Validate() []ValidationIssue {
	var issues []ValidationIssue

	if d.Frontmatter.Id == "" {
		issues = append(issues, ValidationIssue{"id", "ID cannot be empty"})
	}
	if d.Frontmatter.Title == "" {
		issues = append(issues, ValidationIssue{"title", "title cannot be empty"})
	}
	if !strings.Contains(d.Frontmatter.Id, ".") && d.Frontmatter.Kind != model.MemoryCore {
		issues = append(issues, ValidationIssue{"id", "ID should use dot notation (e.g. 'fact.testing.coverage')"})
	}
	if len(d.Frontmatter.Tags) == 0 {
		issues = append(issues, ValidationIssue{"tags", "at least one tag is required"})
	}
	if d.Frontmatter.Updated.Before(d.Frontmatter.Created) {
		issues = append(issues, ValidationIssue{"updated", "updated timestamp cannot be before created timestamp"})
	}

	switch d.Frontmatter.Kind {
	case model.MemoryCore:
		issues = append(issues, d.missingSections(coreRequiredSections)...)
	case model.MemoryADR:
		issues = append(issues, d.missingSections(adrRequiredSections)...)
	case model.MemoryPlaybook:
		issues = append(issues, d.missingSections(playbookRequiredSections)...)
	}

	return issues
}

func (d Doc) missingSections(sections []string) []ValidationIssue {
	var issues []ValidationIssue
	for _, s := range sections {
		if !strings.Contains(d.Body, s) {
			issues = append(issues, ValidationIssue{"body", "missing required section: " + s})
		}
	}
	return issues
}

// IsBodyEmpty reports whether the body is empty once whitespace is trimmed.
func (d Doc) IsBodyEmpty() bool {
	return strings.TrimSpace(d.Body) == ""
}

// ApproxTokenCount estimates token count at ~4 characters per token.
func (d Doc) ApproxTokenCount() int {
	return (len(d.Frontmatter.Id) + len(d.Frontmatter.Title) + len(d.Body)) / 4
}

// UpdateBody replaces the body and bumps the updated timestamp.
func (d *Doc) UpdateBody(body string) {
	d.Body = body
	d.Frontmatter.Updated = time.Now().UTC()
}

// AddTag appends tag if it isn't already present.
func (d *Doc) AddTag(tag string) {
	for _, t := range d.Frontmatter.Tags {
		if t == tag {
			return
		}
	}
	d.Frontmatter.Tags = append(d.Frontmatter.Tags, tag)
}

// AddProvenanceEvent records an event id as having contributed to this
// document and bumps the updated timestamp.
func (d *Doc) AddProvenanceEvent(eventId string) {
	d.Frontmatter.Provenance.Events = append(d.Frontmatter.Provenance.Events, eventId)
	d.Frontmatter.Updated = time.Now().UTC()
}

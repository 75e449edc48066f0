// lint.go runs a fixed set of quality rules over memory documents.
//
// Grounded on original_source/crates/core/src/memory/lint.rs: the same
// mem001/mem003-mem009 rule set, severities, and messages; rule interface
// and rule table kept the same shape, reimplemented as a slice of Rule
// closures rather than a trait-object vector since Go has no trait objects.
package memory

import (
	"fmt"
	"strings"

	"codenerd/internal/model"
)

// Severity is a lint diagnostic's importance.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic is one lint finding against a document.
type Diagnostic struct {
	Rule     string
	Severity Severity
	Message  string
	Path     string
	FixHint  string
}

// CoreMemorySoftLimitTokens and CoreMemoryHardLimitTokens bound core
// memory's approximate token count (bytes/4 heuristic).
const (
	CoreMemorySoftLimitTokens = 4000
	CoreMemoryHardLimitTokens = 8000
)

// Rule checks one document and returns any diagnostics it finds.
type Rule struct {
	Id    string
	Check func(doc Doc, path string) []Diagnostic
}

// DefaultRules is the fixed rule set run by Linter.
func DefaultRules() []Rule {
	return []Rule{
		{"mem001", checkRequiredFields},
		{"mem003", checkCoreMemorySoftLimit},
		{"mem004", checkCoreMemoryHardLimit},
		{"mem005", checkProvenanceLinks},
		{"mem006", checkStaleDocument},
		{"mem007", checkEmptyBody},
		{"mem008", checkADRSections},
		{"mem009", checkPlaybookSections},
	}
}

// Linter runs a configurable set of rules over documents.
type Linter struct {
	rules []Rule
}

// NewLinter returns a Linter configured with DefaultRules.
func NewLinter() *Linter {
	return &Linter{rules: DefaultRules()}
}

// AddRule appends a custom rule.
func (l *Linter) AddRule(r Rule) {
	l.rules = append(l.rules, r)
}

// Lint runs every configured rule against doc.
func (l *Linter) Lint(doc Doc, path string) []Diagnostic {
	var out []Diagnostic
	for _, r := range l.rules {
		out = append(out, r.Check(doc, path)...)
	}
	return out
}

// LintAll lints every document the paths tree actually contains: core,
// core-local, facts/, decisions/, playbooks/. Unparseable or missing
// files are skipped rather than surfaced as diagnostics.
func (l *Linter) LintAll(paths Paths) []Diagnostic {
	var all []Diagnostic

	for _, path := range []string{paths.CoreMemoryFile(), paths.CoreLocalMemoryFile()} {
		if doc, ok := tryParseFile(path); ok {
			all = append(all, l.Lint(doc, path)...)
		}
	}

	for _, dir := range []string{paths.Facts, paths.Decisions, paths.Playbooks} {
		entries, err := readMarkdownFiles(dir)
		if err != nil {
			continue
		}
		for _, path := range entries {
			if doc, ok := tryParseFile(path); ok {
				all = append(all, l.Lint(doc, path)...)
			}
		}
	}

	return all
}

// Errors filters diagnostics down to SeverityError.
func Errors(diagnostics []Diagnostic) []Diagnostic {
	return filterSeverity(diagnostics, SeverityError)
}

// Warnings filters diagnostics down to SeverityWarning.
func Warnings(diagnostics []Diagnostic) []Diagnostic {
	return filterSeverity(diagnostics, SeverityWarning)
}

func filterSeverity(diagnostics []Diagnostic, sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range diagnostics {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

func checkRequiredFields(doc Doc, path string) []Diagnostic {
	var out []Diagnostic
	for _, issue := range doc.Validate() {
		if issue.Field == "id" || issue.Field == "title" || issue.Field == "tags" {
			out = append(out, Diagnostic{
				Rule: "mem001", Severity: SeverityError,
				Message: "missing required field: " + issue.Field,
				Path:    path,
				FixHint: "add " + issue.Field + " to the frontmatter",
			})
		}
	}
	return out
}

func checkCoreMemorySoftLimit(doc Doc, path string) []Diagnostic {
	if doc.Frontmatter.Kind != model.MemoryCore {
		return nil
	}
	count := doc.ApproxTokenCount()
	if count <= CoreMemorySoftLimitTokens {
		return nil
	}
	return []Diagnostic{{
		Rule: "mem003", Severity: SeverityWarning,
		Message: fmt.Sprintf("core memory exceeds soft limit: %d tokens (limit: %d)", count, CoreMemorySoftLimitTokens),
		Path:    path,
		FixHint: "consider splitting core memory into smaller documents or moving content to semantic memory",
	}}
}

func checkCoreMemoryHardLimit(doc Doc, path string) []Diagnostic {
	if doc.Frontmatter.Kind != model.MemoryCore {
		return nil
	}
	count := doc.ApproxTokenCount()
	if count <= CoreMemoryHardLimitTokens {
		return nil
	}
	return []Diagnostic{{
		Rule: "mem004", Severity: SeverityError,
		Message: fmt.Sprintf("core memory exceeds hard limit: %d tokens (limit: %d)", count, CoreMemoryHardLimitTokens),
		Path:    path,
		FixHint: "split core memory into smaller documents or move content to semantic memory",
	}}
}

func checkProvenanceLinks(doc Doc, path string) []Diagnostic {
	if doc.Frontmatter.Kind == model.MemoryCore {
		return nil
	}
	p := doc.Frontmatter.Provenance
	if len(p.Events) > 0 || len(p.Patches) > 0 || len(p.Commits) > 0 {
		return nil
	}
	return []Diagnostic{{
		Rule: "mem005", Severity: SeverityWarning,
		Message: "missing provenance links",
		Path:    path,
		FixHint: "add related events, patches, or commits to the provenance field",
	}}
}

func checkStaleDocument(doc Doc, path string) []Diagnostic {
	if doc.Frontmatter.Verification.Status != model.VerificationStale {
		return nil
	}
	return []Diagnostic{{
		Rule: "mem006", Severity: SeverityWarning,
		Message: "document marked as stale (repository changed since last verification)",
		Path:    path,
		FixHint: "review and re-verify document content",
	}}
}

func checkEmptyBody(doc Doc, path string) []Diagnostic {
	if !doc.IsBodyEmpty() {
		return nil
	}
	return []Diagnostic{{
		Rule: "mem007", Severity: SeverityWarning,
		Message: "document has empty body",
		Path:    path,
		FixHint: "add content to the document body",
	}}
}

func checkADRSections(doc Doc, path string) []Diagnostic {
	if doc.Frontmatter.Kind != model.MemoryADR {
		return nil
	}
	return sectionDiagnostics(doc, path, "mem008", "add the required ADR sections: Status, Context, Decision, Consequences")
}

func checkPlaybookSections(doc Doc, path string) []Diagnostic {
	if doc.Frontmatter.Kind != model.MemoryPlaybook {
		return nil
	}
	return sectionDiagnostics(doc, path, "mem009", "add the required playbook sections: Preconditions, Steps, Verification")
}

func sectionDiagnostics(doc Doc, path, rule, hint string) []Diagnostic {
	var out []Diagnostic
	for _, issue := range doc.Validate() {
		if issue.Field == "body" && strings.Contains(issue.Message, "missing required section") {
			out = append(out, Diagnostic{
				Rule: rule, Severity: SeverityWarning,
				Message: issue.Message,
				Path:    path,
				FixHint: hint,
			})
		}
	}
	return out
}

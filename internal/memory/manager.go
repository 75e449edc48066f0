// manager.go is the CRUD layer over memory documents: SemanticMemory for
// facts and ADRs, ProceduralMemory for playbooks, and the hierarchical
// CoreMemory loader.
//
// Grounded on original_source/crates/core/src/memory/semantic.rs (facts and
// ADRs, including ADR sequence numbering and filename derivation),
// procedural.rs (playbooks, section parsing, content validation), and
// core.rs (three-source merge, content-hash dedup, token-limit lints).
package memory

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codenerd/internal/harnesserr"
	"codenerd/internal/model"
)

// FactDoc, AdrDoc, and PlaybookDoc pair a parsed document with the path it
// was loaded from (or will be written to).
type FactDoc struct {
	Path string
	Doc  Doc
}

type AdrDoc struct {
	Path string
	Doc  Doc
}

type PlaybookDoc struct {
	Path string
	Doc  Doc
}

// NewFact, NewAdr, and NewPlaybook are creation inputs.
type NewFact struct {
	Id    string
	Title string
	Tags  []string
	Body  string
}

type NewAdr struct {
	Title string
	Tags  []string
	Body  string
}

type NewPlaybook struct {
	Id    string
	Title string
	Tags  []string
	Body  string
}

// FactUpdate, AdrUpdate, and PlaybookUpdate are partial updates; nil fields
// are left unchanged.
type FactUpdate struct {
	Body            *string
	Tags            *[]string
	ProvenanceEvent *string
}

type AdrUpdate struct {
	Body            *string
	Tags            *[]string
	ProvenanceEvent *string
	Status          *model.VerificationStatus
}

type PlaybookUpdate struct {
	Body            *string
	Tags            *[]string
	ProvenanceEvent *string
	Status          *model.VerificationStatus
}

// SemanticMemory manages Fact and ADR documents.
type SemanticMemory struct {
	paths Paths
}

// NewSemanticMemory builds a SemanticMemory manager rooted at paths.
func NewSemanticMemory(paths Paths) *SemanticMemory {
	return &SemanticMemory{paths: paths}
}

// ListFacts enumerates every fact document.
func (s *SemanticMemory) ListFacts() ([]FactDoc, error) {
	return listKindDocs[FactDoc](s.paths.Facts, model.MemoryFact, func(path string, doc Doc) FactDoc {
		return FactDoc{Path: path, Doc: doc}
	})
}

// ListAdrs enumerates every ADR document.
func (s *SemanticMemory) ListAdrs() ([]AdrDoc, error) {
	return listKindDocs[AdrDoc](s.paths.Decisions, model.MemoryADR, func(path string, doc Doc) AdrDoc {
		return AdrDoc{Path: path, Doc: doc}
	})
}

// LoadFact loads a fact by id, failing KindNotFound if absent.
func (s *SemanticMemory) LoadFact(id string) (FactDoc, error) {
	facts, err := s.ListFacts()
	if err != nil {
		return FactDoc{}, err
	}
	for _, f := range facts {
		if f.Doc.Frontmatter.Id == id {
			return f, nil
		}
	}
	return FactDoc{}, harnesserr.New(harnesserr.KindNotFound, "memory", "fact not found: "+id)
}

// LoadAdr loads an ADR by id, failing KindNotFound if absent.
func (s *SemanticMemory) LoadAdr(id string) (AdrDoc, error) {
	adrs, err := s.ListAdrs()
	if err != nil {
		return AdrDoc{}, err
	}
	for _, a := range adrs {
		if a.Doc.Frontmatter.Id == id {
			return a, nil
		}
	}
	return AdrDoc{}, harnesserr.New(harnesserr.KindNotFound, "memory", "ADR not found: "+id)
}

// CreateFact validates and writes a new fact document.
func (s *SemanticMemory) CreateFact(fact NewFact) (FactDoc, error) {
	doc := New(fact.Id, fact.Title, model.MemoryFact, fact.Tags, fact.Body)
	if err := validateOrErr(doc, "fact"); err != nil {
		return FactDoc{}, err
	}

	path := filepath.Join(s.paths.Facts, strings.ReplaceAll(doc.Frontmatter.Id, ".", "_")+".md")
	if err := writeDocFile(path, doc); err != nil {
		return FactDoc{}, err
	}
	return FactDoc{Path: path, Doc: doc}, nil
}

// CreateAdr validates and writes a new ADR document with the next free
// sequence number.
func (s *SemanticMemory) CreateAdr(adr NewAdr) (AdrDoc, error) {
	seq, err := s.nextAdrSequence()
	if err != nil {
		return AdrDoc{}, err
	}

	doc := New(fmt.Sprintf("adr.%04d", seq), adr.Title, model.MemoryADR, adr.Tags, adr.Body)
	if err := validateOrErr(doc, "ADR"); err != nil {
		return AdrDoc{}, err
	}

	path := filepath.Join(s.paths.Decisions, fmt.Sprintf("ADR-%04d.md", seq))
	if err := writeDocFile(path, doc); err != nil {
		return AdrDoc{}, err
	}
	return AdrDoc{Path: path, Doc: doc}, nil
}

// UpdateFact applies a partial update, re-validates, and rewrites the file.
func (s *SemanticMemory) UpdateFact(id string, update FactUpdate) (FactDoc, error) {
	fact, err := s.LoadFact(id)
	if err != nil {
		return FactDoc{}, err
	}
	applyCommonUpdate(&fact.Doc, update.Body, update.Tags, update.ProvenanceEvent)

	if err := validateOrErr(fact.Doc, "fact"); err != nil {
		return FactDoc{}, err
	}
	if err := writeDocFile(fact.Path, fact.Doc); err != nil {
		return FactDoc{}, err
	}
	return fact, nil
}

// UpdateAdr applies a partial update, re-validates, and rewrites the file.
func (s *SemanticMemory) UpdateAdr(id string, update AdrUpdate) (AdrDoc, error) {
	adr, err := s.LoadAdr(id)
	if err != nil {
		return AdrDoc{}, err
	}
	applyCommonUpdate(&adr.Doc, update.Body, update.Tags, update.ProvenanceEvent)
	if update.Status != nil {
		adr.Doc.Frontmatter.Verification.Status = *update.Status
	}

	if err := validateOrErr(adr.Doc, "ADR"); err != nil {
		return AdrDoc{}, err
	}
	if err := writeDocFile(adr.Path, adr.Doc); err != nil {
		return AdrDoc{}, err
	}
	return adr, nil
}

// DeleteFact removes a fact document by id.
func (s *SemanticMemory) DeleteFact(id string) error {
	fact, err := s.LoadFact(id)
	if err != nil {
		return err
	}
	return removeDocFile(fact.Path)
}

// DeleteAdr removes an ADR document by id.
func (s *SemanticMemory) DeleteAdr(id string) error {
	adr, err := s.LoadAdr(id)
	if err != nil {
		return err
	}
	return removeDocFile(adr.Path)
}

// FindFactsByTag returns every fact carrying tag.
func (s *SemanticMemory) FindFactsByTag(tag string) ([]FactDoc, error) {
	facts, err := s.ListFacts()
	if err != nil {
		return nil, err
	}
	var out []FactDoc
	for _, f := range facts {
		if hasTag(f.Doc.Frontmatter.Tags, tag) {
			out = append(out, f)
		}
	}
	return out, nil
}

// FindAdrsByTag returns every ADR carrying tag.
func (s *SemanticMemory) FindAdrsByTag(tag string) ([]AdrDoc, error) {
	adrs, err := s.ListAdrs()
	if err != nil {
		return nil, err
	}
	var out []AdrDoc
	for _, a := range adrs {
		if hasTag(a.Doc.Frontmatter.Tags, tag) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *SemanticMemory) nextAdrSequence() (int, error) {
	adrs, err := s.ListAdrs()
	if err != nil {
		return 0, err
	}
	max := 0
	for _, a := range adrs {
		seqStr, ok := strings.CutPrefix(a.Doc.Frontmatter.Id, "adr.")
		if !ok {
			continue
		}
		if seq, err := strconv.Atoi(seqStr); err == nil && seq > max {
			max = seq
		}
	}
	return max + 1, nil
}

// ProceduralMemory manages Playbook documents.
type ProceduralMemory struct {
	paths Paths
}

// NewProceduralMemory builds a ProceduralMemory manager rooted at paths.
func NewProceduralMemory(paths Paths) *ProceduralMemory {
	return &ProceduralMemory{paths: paths}
}

// ListPlaybooks enumerates every playbook document.
func (p *ProceduralMemory) ListPlaybooks() ([]PlaybookDoc, error) {
	return listKindDocs[PlaybookDoc](p.paths.Playbooks, model.MemoryPlaybook, func(path string, doc Doc) PlaybookDoc {
		return PlaybookDoc{Path: path, Doc: doc}
	})
}

// LoadPlaybook loads a playbook by id, failing KindNotFound if absent.
func (p *ProceduralMemory) LoadPlaybook(id string) (PlaybookDoc, error) {
	playbooks, err := p.ListPlaybooks()
	if err != nil {
		return PlaybookDoc{}, err
	}
	for _, pb := range playbooks {
		if pb.Doc.Frontmatter.Id == id {
			return pb, nil
		}
	}
	return PlaybookDoc{}, harnesserr.New(harnesserr.KindNotFound, "memory", "playbook not found: "+id)
}

// CreatePlaybook validates and writes a new playbook document.
func (p *ProceduralMemory) CreatePlaybook(playbook NewPlaybook) (PlaybookDoc, error) {
	doc := New(playbook.Id, playbook.Title, model.MemoryPlaybook, playbook.Tags, playbook.Body)
	if err := validateOrErr(doc, "playbook"); err != nil {
		return PlaybookDoc{}, err
	}

	path := filepath.Join(p.paths.Playbooks, strings.ReplaceAll(doc.Frontmatter.Id, ".", "_")+".md")
	if err := writeDocFile(path, doc); err != nil {
		return PlaybookDoc{}, err
	}
	return PlaybookDoc{Path: path, Doc: doc}, nil
}

// UpdatePlaybook applies a partial update, re-validates, and rewrites the
// file.
func (p *ProceduralMemory) UpdatePlaybook(id string, update PlaybookUpdate) (PlaybookDoc, error) {
	playbook, err := p.LoadPlaybook(id)
	if err != nil {
		return PlaybookDoc{}, err
	}
	applyCommonUpdate(&playbook.Doc, update.Body, update.Tags, update.ProvenanceEvent)
	if update.Status != nil {
		playbook.Doc.Frontmatter.Verification.Status = *update.Status
	}

	if err := validateOrErr(playbook.Doc, "playbook"); err != nil {
		return PlaybookDoc{}, err
	}
	if err := writeDocFile(playbook.Path, playbook.Doc); err != nil {
		return PlaybookDoc{}, err
	}
	return playbook, nil
}

// DeletePlaybook removes a playbook document by id.
func (p *ProceduralMemory) DeletePlaybook(id string) error {
	playbook, err := p.LoadPlaybook(id)
	if err != nil {
		return err
	}
	return removeDocFile(playbook.Path)
}

// FindPlaybooksByTag returns every playbook carrying tag.
func (p *ProceduralMemory) FindPlaybooksByTag(tag string) ([]PlaybookDoc, error) {
	playbooks, err := p.ListPlaybooks()
	if err != nil {
		return nil, err
	}
	var out []PlaybookDoc
	for _, pb := range playbooks {
		if hasTag(pb.Doc.Frontmatter.Tags, tag) {
			out = append(out, pb)
		}
	}
	return out, nil
}

// PlaybookSections is a playbook's body broken into its required headings.
type PlaybookSections struct {
	Preconditions string
	Steps         string
	Verification  string
	Rollback      string
}

// ParsePlaybookSections extracts the Preconditions/Steps/Verification/
// Rollback sections from a playbook's body.
func (p *ProceduralMemory) ParsePlaybookSections(playbook PlaybookDoc) PlaybookSections {
	body := playbook.Doc.Body
	return PlaybookSections{
		Preconditions: extractMarkdownSection(body, "## Preconditions"),
		Steps:         extractMarkdownSection(body, "## Steps"),
		Verification:  extractMarkdownSection(body, "## Verification"),
		Rollback:      extractMarkdownSection(body, "## Rollback"),
	}
}

// IssueSeverity grades a playbook content issue.
type IssueSeverity int

const (
	IssueInfo IssueSeverity = iota
	IssueWarning
	IssueError
)

// PlaybookIssue is one finding from ValidatePlaybookContent.
type PlaybookIssue struct {
	Severity IssueSeverity
	Message  string
	Section  string
}

// ValidatePlaybookContent checks that each required section has meaningful
// content, beyond document.go's structural section-presence check.
func (p *ProceduralMemory) ValidatePlaybookContent(playbook PlaybookDoc) []PlaybookIssue {
	sections := p.ParsePlaybookSections(playbook)
	var issues []PlaybookIssue

	if strings.TrimSpace(sections.Preconditions) == "" {
		issues = append(issues, PlaybookIssue{IssueWarning, "Preconditions section is empty", "Preconditions"})
	}
	if strings.TrimSpace(sections.Steps) == "" {
		issues = append(issues, PlaybookIssue{IssueError, "Steps section is empty", "Steps"})
	}
	if strings.TrimSpace(sections.Verification) == "" {
		issues = append(issues, PlaybookIssue{IssueWarning, "Verification section is empty", "Verification"})
	}
	if strings.TrimSpace(sections.Rollback) == "" {
		issues = append(issues, PlaybookIssue{IssueInfo, "Rollback section is empty (optional but recommended)", "Rollback"})
	}
	return issues
}

func extractMarkdownSection(body, heading string) string {
	start := strings.Index(body, heading)
	if start == -1 {
		return ""
	}
	after := body[start+len(heading):]
	end := strings.Index(after, "## ")
	if end == -1 {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(after[:end])
}

// CoreMemorySource is one input to the merged core memory, in priority
// order (1 = highest priority, loaded first and least likely overridden).
type CoreMemorySource struct {
	Path        string
	Priority    int
	ContentHash string
}

// CoreMemory is the hierarchical merge of every core-memory source.
type CoreMemory struct {
	Content    string
	Sources    []CoreMemorySource
	TokenCount int
}

// LoadCoreMemory merges core memory from, in priority order: the project's
// core/CORE.md (paths.CoreMemoryFile), cwd/CORE.md (when cwd carries its own
// override, e.g. running from a worktree or subdirectory), and
// core/CORE.local.md. Sources with a content hash already seen are skipped.
func LoadCoreMemory(paths Paths, cwd string) (CoreMemory, error) {
	var sources []CoreMemorySource
	var merged strings.Builder

	if content, ok := loadSource(paths.CoreMemoryFile()); ok {
		hash := contentHash(content)
		sources = append(sources, CoreMemorySource{Path: paths.CoreMemoryFile(), Priority: 1, ContentHash: hash})
		merged.WriteString(wrapSource(paths.CoreMemoryFile(), content))
	}

	cwdCorePath := filepath.Join(cwd, "CORE.md")
	if content, ok := loadSource(cwdCorePath); ok {
		hash := contentHash(content)
		if !hasHash(sources, hash) {
			sources = append(sources, CoreMemorySource{Path: cwdCorePath, Priority: 2, ContentHash: hash})
			merged.WriteString(wrapSource(cwdCorePath, content))
		}
	}

	if content, ok := loadSource(paths.CoreLocalMemoryFile()); ok {
		hash := contentHash(content)
		if !hasHash(sources, hash) {
			sources = append(sources, CoreMemorySource{Path: paths.CoreLocalMemoryFile(), Priority: 3, ContentHash: hash})
			merged.WriteString(wrapSource(paths.CoreLocalMemoryFile(), content))
		}
	}

	content := merged.String()
	return CoreMemory{Content: content, Sources: sources, TokenCount: len(content) / 4}, nil
}

func loadSource(path string) (string, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(content), true
}

func wrapSource(path, content string) string {
	return fmt.Sprintf("<!-- %s from %s -->\n\n%s\n\n", filepath.Base(path), path, strings.TrimSpace(content))
}

func contentHash(content string) string {
	h := fnv.New64a()
	h.Write([]byte(content))
	return fmt.Sprintf("%x", h.Sum64())
}

func hasHash(sources []CoreMemorySource, hash string) bool {
	for _, s := range sources {
		if s.ContentHash == hash {
			return true
		}
	}
	return false
}

// IsOverSoftLimit reports whether the merged content exceeds the soft
// token limit.
func (c CoreMemory) IsOverSoftLimit() bool { return c.TokenCount > CoreMemorySoftLimitTokens }

// IsOverHardLimit reports whether the merged content exceeds the hard
// token limit.
func (c CoreMemory) IsOverHardLimit() bool { return c.TokenCount > CoreMemoryHardLimitTokens }

// BodyContent strips the `<!-- source -->` wrapper comments, returning just
// the concatenated document bodies.
func (c CoreMemory) BodyContent() string {
	body := c.Content
	for {
		start := strings.Index(body, "<!-- ")
		if start == -1 {
			break
		}
		end := strings.Index(body[start:], "-->")
		if end == -1 {
			break
		}
		body = body[:start] + body[start+end+3:]
	}
	return strings.TrimSpace(body)
}

// HasSource reports whether path contributed to the merge.
func (c CoreMemory) HasSource(path string) bool {
	for _, s := range c.Sources {
		if s.Path == path {
			return true
		}
	}
	return false
}

// SourcesByPriority returns every source at the given priority level.
func (c CoreMemory) SourcesByPriority(priority int) []CoreMemorySource {
	var out []CoreMemorySource
	for _, s := range c.Sources {
		if s.Priority == priority {
			out = append(out, s)
		}
	}
	return out
}

// Validate lints the merged core memory using the same rule ids as the
// per-document linter (mem003/mem004/mem007).
func (c CoreMemory) Validate() []Diagnostic {
	var diagnostics []Diagnostic

	if c.IsOverHardLimit() {
		diagnostics = append(diagnostics, Diagnostic{
			Rule: "mem004", Severity: SeverityError,
			Message: fmt.Sprintf("core memory exceeds hard limit: %d tokens (limit: %d)", c.TokenCount, CoreMemoryHardLimitTokens),
		})
	}
	if c.IsOverSoftLimit() {
		diagnostics = append(diagnostics, Diagnostic{
			Rule: "mem003", Severity: SeverityWarning,
			Message: fmt.Sprintf("core memory exceeds soft limit: %d tokens (limit: %d)", c.TokenCount, CoreMemorySoftLimitTokens),
		})
	}
	if strings.TrimSpace(c.Content) == "" {
		diagnostics = append(diagnostics, Diagnostic{Rule: "mem007", Severity: SeverityWarning, Message: "core memory is empty"})
	}

	return diagnostics
}

func validateOrErr(doc Doc, kind string) error {
	issues := doc.Validate()
	if len(issues) == 0 {
		return nil
	}
	var messages []string
	for _, i := range issues {
		messages = append(messages, i.Message)
	}
	return harnesserr.New(harnesserr.KindValidation, "memory", fmt.Sprintf("invalid %s document: %s", kind, strings.Join(messages, "; ")))
}

// writeDocFile gives readers copy-on-write semantics: it writes the new
// content to a temp file in the same directory, then renames it into place,
// so a concurrent reader only ever sees a complete prior or new version.
func writeDocFile(path string, doc Doc) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return harnesserr.Wrap(harnesserr.KindIO, "memory", "create directory for "+path, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return harnesserr.Wrap(harnesserr.KindIO, "memory", "create temp file for "+path, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(doc.String()); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return harnesserr.Wrap(harnesserr.KindIO, "memory", "write temp file for "+path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return harnesserr.Wrap(harnesserr.KindIO, "memory", "close temp file for "+path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return harnesserr.Wrap(harnesserr.KindIO, "memory", "rename temp file into "+path, err)
	}
	return nil
}

func removeDocFile(path string) error {
	if err := os.Remove(path); err != nil {
		return harnesserr.Wrap(harnesserr.KindIO, "memory", "delete "+path, err)
	}
	return nil
}

func applyCommonUpdate(doc *Doc, body *string, tags *[]string, provenanceEvent *string) {
	if body != nil {
		doc.UpdateBody(*body)
	}
	if tags != nil {
		doc.Frontmatter.Tags = *tags
	}
	if provenanceEvent != nil {
		doc.AddProvenanceEvent(*provenanceEvent)
	}
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func listKindDocs[T any](dir string, kind model.MemoryKind, build func(path string, doc Doc) T) ([]T, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, harnesserr.Wrap(harnesserr.KindIO, "memory", "read directory "+dir, err)
	}

	var out []T
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, harnesserr.Wrap(harnesserr.KindIO, "memory", "read "+path, err)
		}
		doc, err := Parse(string(content))
		if err != nil {
			return nil, harnesserr.Wrap(harnesserr.KindParse, "memory", "parse "+path, err)
		}
		if doc.Frontmatter.Kind != kind {
			continue
		}
		out = append(out, build(path, doc))
	}
	return out, nil
}

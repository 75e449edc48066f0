// Package patch models a proposed code change: a unified diff parsed into
// per-file hunks, with per-hunk approval and intent metadata, and
// reconstruction of a diff containing only the approved hunks.
//
// The teacher's internal/diff/diff.go computes a unified diff FROM two
// content strings (using github.com/sergi/go-diff/diffmatchpatch). This
// package needs the opposite direction: parsing an already-serialized
// unified-diff string into structured hunks. The Hunk/Line/LineType
// vocabulary is kept from internal/diff/diff.go; the parsing algorithm
// itself follows the header-recognition rules spelled out for this
// component (diff --git / --- a / +++ b file boundaries, `@@ -o,on +n,nn @@`
// headers with missing counts defaulting to 1, hunk bodies running until
// the next header or EOF).
package patch

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"codenerd/internal/harnesserr"
	"codenerd/internal/model"
)

// Hunk is one `@@ ... @@` block of a unified diff.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	// Content holds every line of the hunk body verbatim, including its
	// leading ' '/'+'/'-' marker and trailing newline removed.
	Content  []string
	Intent   string
	Approved bool
}

// Lines splits Content back into discrete added/removed/context lines for
// callers that want per-line classification rather than raw text.
func (h Hunk) Lines() []Line {
	out := make([]Line, 0, len(h.Content))
	for _, raw := range h.Content {
		l := Line{Content: raw}
		switch {
		case strings.HasPrefix(raw, "+"):
			l.Type = LineAdded
			l.Content = raw[1:]
		case strings.HasPrefix(raw, "-"):
			l.Type = LineRemoved
			l.Content = raw[1:]
		case strings.HasPrefix(raw, " "):
			l.Type = LineContext
			l.Content = raw[1:]
		default:
			l.Type = LineContext
		}
		out = append(out, l)
	}
	return out
}

// LineType classifies one line of a hunk body.
type LineType int

const (
	LineContext LineType = iota
	LineAdded
	LineRemoved
)

// Line is one decoded line of a hunk body.
type Line struct {
	Type    LineType
	Content string
}

// header renders this hunk's `@@ -o,on +n,nn @@` line.
func (h Hunk) header() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.OldStart, h.OldLines, h.NewStart, h.NewLines)
}

// FileHunks is the ordered set of hunks for one file path.
type FileHunks struct {
	Path  string
	Hunks []Hunk
}

// Patch is a proposed, parsed unified diff awaiting per-hunk review.
type Patch struct {
	Id           string
	Name         string
	BaseSnapshot string
	Diff         string
	SessionId    string
	Seq          model.Seq
	Status       model.PatchStatus

	Files []string
	hunks map[string]*FileHunks
}

// New parses diff into a Patch. The diff text itself is never mutated by
// any later operation; approval/intent live in separate hunk metadata.
func New(id, name, baseSnapshot, diff, sessionId string, seq model.Seq) (*Patch, error) {
	if id == "" {
		id = uuid.NewString()
	}
	files, hunks, err := parseUnifiedDiff(diff)
	if err != nil {
		return nil, err
	}
	return &Patch{
		Id:           id,
		Name:         name,
		BaseSnapshot: baseSnapshot,
		Diff:         diff,
		SessionId:    sessionId,
		Seq:          seq,
		Status:       model.PatchStatusProposed,
		Files:        files,
		hunks:        hunks,
	}, nil
}

// fileHeaderPrefixes recognizes the two file-boundary forms the spec
// names: `diff --git a/<p> b/<p>` and the `--- a/<p>` / `+++ b/<p>` pair.
const (
	gitDiffPrefix  = "diff --git "
	oldFilePrefix  = "--- "
	newFilePrefix  = "+++ "
	hunkHeaderMark = "@@"
)

func parseUnifiedDiff(diff string) ([]string, map[string]*FileHunks, error) {
	var files []string
	hunks := make(map[string]*FileHunks)

	var currentPath string
	var current *Hunk

	flush := func() {
		if current != nil && currentPath != "" {
			hunks[currentPath].Hunks = append(hunks[currentPath].Hunks, *current)
			current = nil
		}
	}

	ensureFile := func(path string) {
		if _, ok := hunks[path]; !ok {
			hunks[path] = &FileHunks{Path: path}
			files = append(files, path)
		}
	}

	scanner := bufio.NewScanner(strings.NewReader(diff))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, gitDiffPrefix):
			flush()
			path := pathFromGitHeader(line)
			if path != "" {
				currentPath = path
				ensureFile(path)
			}

		case strings.HasPrefix(line, oldFilePrefix) && !strings.HasPrefix(line, hunkHeaderMark):
			// A "--- " line closes any open hunk and starts a new file
			// boundary. A removed line whose text begins with "-- " has
			// this form too and is read as a boundary.
			flush()
			path := trimFileMarker(line, oldFilePrefix)
			if path != "" {
				currentPath = path
				ensureFile(path)
			}

		case strings.HasPrefix(line, newFilePrefix):
			if current == nil {
				path := trimFileMarker(line, newFilePrefix)
				if path != "" {
					currentPath = path
					ensureFile(path)
				}
			}

		case strings.HasPrefix(line, hunkHeaderMark):
			flush()
			h, err := parseHunkHeader(line)
			if err != nil {
				return nil, nil, err
			}
			if currentPath == "" {
				return nil, nil, harnesserr.New(harnesserr.KindParse, "patch", "hunk header before any file boundary")
			}
			ensureFile(currentPath)
			current = h

		default:
			if current != nil && (line == "" || strings.HasPrefix(line, " ") || strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-")) {
				current.Content = append(current.Content, line)
			}
			// An empty line inside a hunk is kept as an empty context
			// line; any other line (e.g. "index abc123..def456") is ignored.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, harnesserr.Wrap(harnesserr.KindParse, "patch", "scan diff", err)
	}
	flush()

	return files, hunks, nil
}

func pathFromGitHeader(line string) string {
	rest := strings.TrimPrefix(line, gitDiffPrefix)
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return ""
	}
	return strings.TrimPrefix(fields[1], "b/")
}

func trimFileMarker(line, prefix string) string {
	rest := strings.TrimPrefix(line, prefix)
	rest = strings.TrimPrefix(rest, "a/")
	rest = strings.TrimPrefix(rest, "b/")
	if rest == "/dev/null" {
		return ""
	}
	if idx := strings.IndexByte(rest, '\t'); idx >= 0 {
		rest = rest[:idx]
	}
	return strings.TrimSpace(rest)
}

// parseHunkHeader parses `@@ -old_start,old_lines +new_start,new_lines @@`,
// defaulting any missing count to 1.
func parseHunkHeader(line string) (*Hunk, error) {
	inner := strings.TrimSpace(strings.Trim(line, "@ "))
	fields := strings.Fields(inner)
	if len(fields) < 2 {
		return nil, harnesserr.New(harnesserr.KindParse, "patch", "malformed hunk header: "+line)
	}

	oldStart, oldLines, err := parseRange(fields[0], '-')
	if err != nil {
		return nil, err
	}
	newStart, newLines, err := parseRange(fields[1], '+')
	if err != nil {
		return nil, err
	}

	return &Hunk{OldStart: oldStart, OldLines: oldLines, NewStart: newStart, NewLines: newLines}, nil
}

func parseRange(field string, sigil byte) (start, count int, err error) {
	if len(field) == 0 || field[0] != sigil {
		return 0, 0, harnesserr.New(harnesserr.KindParse, "patch", "malformed hunk range: "+field)
	}
	body := field[1:]
	parts := strings.SplitN(body, ",", 2)
	start, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, harnesserr.Wrap(harnesserr.KindParse, "patch", "malformed hunk start: "+field, err)
	}
	count = 1
	if len(parts) == 2 {
		count, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, harnesserr.Wrap(harnesserr.KindParse, "patch", "malformed hunk count: "+field, err)
		}
	}
	return start, count, nil
}

// ApproveHunk marks the hunk at index for path as approved.
func (p *Patch) ApproveHunk(path string, index int) error {
	return p.setApproval(path, index, true)
}

// RejectHunk marks the hunk at index for path as not approved.
func (p *Patch) RejectHunk(path string, index int) error {
	return p.setApproval(path, index, false)
}

func (p *Patch) setApproval(path string, index int, approved bool) error {
	fh, ok := p.hunks[path]
	if !ok || index < 0 || index >= len(fh.Hunks) {
		return harnesserr.New(harnesserr.KindValidation, "patch", fmt.Sprintf("hunk %s[%d] out of range", path, index))
	}
	fh.Hunks[index].Approved = approved
	return nil
}

// SetHunkIntent stores a free-form human-readable intent label on a hunk.
func (p *Patch) SetHunkIntent(path string, index int, label string) error {
	fh, ok := p.hunks[path]
	if !ok || index < 0 || index >= len(fh.Hunks) {
		return harnesserr.New(harnesserr.KindValidation, "patch", fmt.Sprintf("hunk %s[%d] out of range", path, index))
	}
	fh.Hunks[index].Intent = label
	return nil
}

// Labeler assigns an intent label to a hunk, or "" if none applies.
type Labeler func(h Hunk) (label string, confidence float64)

// LabelHunks runs labeler over every hunk in the patch, recording its
// output as the hunk's Intent.
func (p *Patch) LabelHunks(labeler Labeler) {
	for path, fh := range p.hunks {
		for i := range fh.Hunks {
			label, _ := labeler(fh.Hunks[i])
			if label != "" {
				fh.Hunks[i].Intent = label
			}
		}
		p.hunks[path] = fh
	}
}

// FileHunks returns the hunks recorded for a path.
func (p *Patch) FileHunks(path string) []Hunk {
	fh, ok := p.hunks[path]
	if !ok {
		return nil
	}
	return fh.Hunks
}

// ApprovedDiff reconstructs a unified diff containing only the hunks
// marked approved, preserving file order and per-file hunk order.
func (p *Patch) ApprovedDiff() string {
	var sb strings.Builder
	for _, path := range p.Files {
		fh := p.hunks[path]
		var approved []Hunk
		for _, h := range fh.Hunks {
			if h.Approved {
				approved = append(approved, h)
			}
		}
		if len(approved) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "--- a/%s\n", path)
		fmt.Fprintf(&sb, "+++ b/%s\n", path)
		for _, h := range approved {
			sb.WriteString(h.header())
			sb.WriteByte('\n')
			for _, line := range h.Content {
				sb.WriteString(line)
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String()
}

// Transition validates and applies a status change per the lifecycle:
// Proposed -> {Approved, Rejected}; Approved -> {Applied, Failed}.
func (p *Patch) Transition(to model.PatchStatus) error {
	valid := map[model.PatchStatus][]model.PatchStatus{
		model.PatchStatusProposed: {model.PatchStatusApproved, model.PatchStatusRejected},
		model.PatchStatusApproved: {model.PatchStatusApplied, model.PatchStatusFailed},
	}
	allowed, ok := valid[p.Status]
	if !ok {
		return harnesserr.New(harnesserr.KindValidation, "patch", fmt.Sprintf("patch %s is in terminal state %s", p.Id, p.Status))
	}
	for _, a := range allowed {
		if a == to {
			p.Status = to
			return nil
		}
	}
	return harnesserr.New(harnesserr.KindValidation, "patch", fmt.Sprintf("invalid transition %s -> %s", p.Status, to))
}

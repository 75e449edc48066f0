// Package layout owns the on-disk shape of a workspace's agent data: the
// `.agent/` directory, its sessions/patches/views subdirectories, and the
// SessionId that names each session.
//
// Grounded on the prior Rust implementation's crates/core/src/layout.rs:
// same directory names, same session id format, same list/latest
// semantics.
package layout

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"codenerd/internal/harnesserr"
)

const (
	// AgentDirName is the repo-local, versionable directory holding all
	// harness state.
	AgentDirName = ".agent"
	// SessionsDirName holds one subdirectory per session.
	SessionsDirName = "sessions"
	// EventsFileName is the JSONL event log within a session directory.
	EventsFileName = "events.jsonl"
	// PatchesDirName holds per-session patch files.
	PatchesDirName = "patches"
	// PatchFileExt is appended to patch names that don't already carry it.
	PatchFileExt = ".patch"
	// ViewsDirName holds the materialized Markdown views.
	ViewsDirName = "views"
)

// ViewFile identifies one of the three materialized Markdown projections.
type ViewFile int

const (
	ViewMemory ViewFile = iota
	ViewPlan
	ViewDecisions
)

// Filename returns the on-disk filename for a view.
func (v ViewFile) Filename() string {
	switch v {
	case ViewMemory:
		return "MEMORY.md"
	case ViewPlan:
		return "PLAN.md"
	case ViewDecisions:
		return "DECISIONS.md"
	default:
		return ""
	}
}

// AllViews returns every ViewFile in materialization order.
func AllViews() []ViewFile {
	return []ViewFile{ViewMemory, ViewPlan, ViewDecisions}
}

// SessionId is an opaque, filename-safe session identifier derived from a
// UTC timestamp: YYYY-MM-DDTHH-MM-SSZ.
type SessionId string

const sessionTimeLayout = "2006-01-02T15-04-05Z"

// NewSessionId mints a SessionId from the current time.
func NewSessionId() SessionId {
	return SessionId(time.Now().UTC().Format(sessionTimeLayout))
}

// ParseSessionId validates a session id string, as read back from a
// directory name or a caller-supplied value.
func ParseSessionId(s string) (SessionId, error) {
	if s == "" {
		return "", harnesserr.New(harnesserr.KindValidation, "layout", "session id cannot be empty")
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-' || c == 'T' || c == 'Z' || c == ':':
		default:
			return "", harnesserr.New(harnesserr.KindValidation, "layout", "session id has invalid format: "+s)
		}
	}
	return SessionId(s), nil
}

func (s SessionId) String() string { return string(s) }

// AgentDir resolves all on-disk paths rooted at a workspace's `.agent/`
// directory.
type AgentDir struct {
	root string
}

// New returns an AgentDir rooted at root.
func New(root string) *AgentDir {
	return &AgentDir{root: root}
}

// FromCurrentDir roots the AgentDir at the process's working directory.
func FromCurrentDir() (*AgentDir, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, harnesserr.Wrap(harnesserr.KindIO, "layout", "resolve working directory", err)
	}
	return New(wd), nil
}

// Root returns the workspace root.
func (a *AgentDir) Root() string { return a.root }

// Dir returns `.agent/`.
func (a *AgentDir) Dir() string { return filepath.Join(a.root, AgentDirName) }

// SessionsDir returns `.agent/sessions/`.
func (a *AgentDir) SessionsDir() string { return filepath.Join(a.Dir(), SessionsDirName) }

// ViewsDir returns `.agent/views/`.
func (a *AgentDir) ViewsDir() string { return filepath.Join(a.Dir(), ViewsDirName) }

// SessionDir returns `.agent/sessions/<id>/`.
func (a *AgentDir) SessionDir(id SessionId) string {
	return filepath.Join(a.SessionsDir(), id.String())
}

// EventsFile returns `.agent/sessions/<id>/events.jsonl`.
func (a *AgentDir) EventsFile(id SessionId) string {
	return filepath.Join(a.SessionDir(id), EventsFileName)
}

// PatchesDir returns `.agent/sessions/<id>/patches/`.
func (a *AgentDir) PatchesDir(id SessionId) string {
	return filepath.Join(a.SessionDir(id), PatchesDirName)
}

// PatchFile returns `.agent/sessions/<id>/patches/<name>.patch`, appending
// the extension if the caller didn't supply one.
func (a *AgentDir) PatchFile(id SessionId, name string) string {
	if filepath.Ext(name) != PatchFileExt {
		name += PatchFileExt
	}
	return filepath.Join(a.PatchesDir(id), name)
}

// ViewFilePath returns `.agent/views/<filename>` for a given view.
func (a *AgentDir) ViewFilePath(v ViewFile) string {
	return filepath.Join(a.ViewsDir(), v.Filename())
}

// AllViewFiles returns the full paths of all three materialized views.
func (a *AgentDir) AllViewFiles() []string {
	views := AllViews()
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = a.ViewFilePath(v)
	}
	return out
}

// ListSessions returns every session under sessions/ that has an
// events.jsonl file, newest first.
func (a *AgentDir) ListSessions() []SessionId {
	entries, err := os.ReadDir(a.SessionsDir())
	if err != nil {
		return nil
	}

	var sessions []SessionId
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := ParseSessionId(entry.Name())
		if err != nil {
			continue
		}
		if _, err := os.Stat(a.EventsFile(id)); err != nil {
			continue
		}
		sessions = append(sessions, id)
	}

	sort.Slice(sessions, func(i, j int) bool { return sessions[i] > sessions[j] })
	return sessions
}

// LatestSession returns the most recent session, if any exist.
func (a *AgentDir) LatestSession() (SessionId, bool) {
	sessions := a.ListSessions()
	if len(sessions) == 0 {
		return "", false
	}
	return sessions[0], true
}

// EnsureDirs creates the `.agent/` skeleton (sessions/, views/) if absent.
func (a *AgentDir) EnsureDirs() error {
	for _, dir := range []string{a.SessionsDir(), a.ViewsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return harnesserr.Wrap(harnesserr.KindIO, "layout", "create "+dir, err)
		}
	}
	return nil
}

// EnsureSessionDirs creates a session's directory tree (patches/ included).
func (a *AgentDir) EnsureSessionDirs(id SessionId) error {
	if err := os.MkdirAll(a.PatchesDir(id), 0o755); err != nil {
		return harnesserr.Wrap(harnesserr.KindIO, "layout", "create session dirs", err)
	}
	return nil
}

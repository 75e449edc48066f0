// Package teaching tracks which pedagogical concepts have already been
// shown to a user within a session, and picks an appropriate concept to
// teach given the context of a risky action.
//
// Grounded on original_source/crates/core/src/teaching.rs: the exact
// sixteen concept ids and hint strings, and the suggest_concept dispatch
// table's match order, are preserved verbatim in behavior.
package teaching

import "strings"

// State tracks taught concepts for one session. It is not safe for
// concurrent use without external synchronization; the approval gate
// (internal/approval) owns one State per session and already serializes
// access.
type State struct {
	taught map[string]bool
}

// NewState returns an empty teaching state.
func NewState() *State {
	return &State{taught: make(map[string]bool)}
}

// HasTaught reports whether concept has already been shown.
func (s *State) HasTaught(concept string) bool {
	return s.taught[concept]
}

// MarkTaught records a concept as shown without returning its hint text.
func (s *State) MarkTaught(concept string) {
	s.taught[concept] = true
}

// GetHint returns the hint text for concept the first time it's requested
// in this session, and the empty string (ok=false) on every subsequent
// call for the same concept.
func (s *State) GetHint(concept string) (hint string, ok bool) {
	if s.HasTaught(concept) {
		return "", false
	}
	s.MarkTaught(concept)
	return HintForConcept(concept)
}

// TaughtConcepts returns every concept id shown so far, in no particular
// order.
func (s *State) TaughtConcepts() []string {
	out := make([]string, 0, len(s.taught))
	for c := range s.taught {
		out = append(out, c)
	}
	return out
}

// hints is the fixed concept-id -> hint-text table.
var hints = map[string]string{
	"risky_command_explained": "Risky commands (like rm, sed -i, package installs) require approval because they can " +
		"modify files or system state. Safe commands like grep, cat, and tests run automatically.",
	"network_command_explained": "Network commands (curl, wget, ssh) require approval because they transfer data " +
		"with external systems. Enable network access in config if you need this regularly.",
	"sed_risky_explained": "Using 'sed -i' directly is risky because it modifies files in-place without backups. " +
		"Consider using the Edit tool instead for safer find-replace operations.",
	"edit_tool_benefits": "The Edit tool provides safer file modifications with validation, atomic writes, " +
		"and automatic rollback on failure. It's safer than sed -i for most operations.",
	"read_before_edit": "Files must be Read before editing to ensure you're working with current content. " +
		"This prevents accidental overwrites of changes made outside the session.",
	"approval_modes_explained": "Approval modes: read-only (no edits), auto (safe ops auto-approve, risky ops gate), " +
		"full-access (all logged, no gates). Default is 'auto' for balanced safety.",
	"workspace_boundary": "Files outside your workspace roots require explicit approval. This prevents " +
		"accidental modifications to system files or other projects.",
	"backup_on_risky": "Backups are automatically created before risky operations. You can restore from " +
		"backups if an operation doesn't go as expected.",
	"file_destruction": "File deletion operations (rm, shred, rmdir) are permanent and cannot be undone. " +
		"Consider backing up important files before deletion.",
	"package_install": "Package installation commands modify your project dependencies and may break " +
		"builds if versions conflict. Review changes carefully before approving.",
	"git_write_operations": "Git write operations (commit, push, rebase) modify repository history. These " +
		"changes can be difficult to undo once pushed to remote repositories.",
	"shell_permissions": "Shell commands in full-access mode run without approval gates. All commands are " +
		"still logged to the session for review and debugging.",
	"sed_full_access": "Direct sed exposure in full-access mode with mandatory backups. The Edit tool " +
		"is still safer and more reliable for most find-replace operations.",
	"awk_full_access": "Direct awk exposure in full-access mode. Use read-only patterns (without output " +
		"redirection) for safety. The Read and Edit tools are safer for file manipulation.",
	"sed_backup_created": "A backup was created before running sed -i. If the result is unexpected, you can " +
		"restore from the backup. Use the Edit tool for safer operations with automatic rollback.",
	"awk_read_only_recommended": "Awk works best for read-only data transformation. For file modifications, use " +
		"Read + Edit tools for better safety and validation.",
}

// HintForConcept looks up the static hint text for a concept id,
// independent of any session's taught state.
func HintForConcept(concept string) (string, bool) {
	hint, ok := hints[concept]
	return hint, ok
}

// SuggestConcept picks a concept id to teach given the action type, its
// risk-ness, and a context string (typically the shell command or tool
// argument text). Returns ok=false when nothing applies.
func SuggestConcept(actionType string, risky bool, context string) (string, bool) {
	switch {
	case actionType == "shell" && risky:
		return suggestRiskyShell(context)
	case actionType == "shell" && !risky:
		return suggestSafeShell(context)
	case actionType == "tool" && risky:
		if strings.Contains(context, "edit") || strings.Contains(context, "multiedit") {
			return "edit_tool_benefits", true
		}
		return "backup_on_risky", true
	case actionType == "file_write" && risky:
		return "backup_on_risky", true
	case actionType == "file_delete":
		return "file_destruction", true
	case actionType == "network":
		return "network_command_explained", true
	case actionType == "patch" && risky:
		return "edit_tool_benefits", true
	default:
		return "", false
	}
}

func suggestRiskyShell(c string) (string, bool) {
	switch {
	case strings.Contains(c, "rm") || strings.Contains(c, "shred") || strings.Contains(c, "rmdir"):
		return "file_destruction", true
	case strings.Contains(c, "sed -i") || strings.Contains(c, "sed --in-place"):
		return "sed_risky_explained", true
	case strings.Contains(c, "sed") && !strings.Contains(c, "-i"):
		return "sed_full_access", true
	case strings.Contains(c, "awk") && strings.Contains(c, ">"):
		return "awk_full_access", true
	case strings.Contains(c, "awk"):
		return "awk_read_only_recommended", true
	case strings.Contains(c, "install"):
		return "package_install", true
	case strings.Contains(c, "git push") || strings.Contains(c, "git commit") || strings.Contains(c, "git rebase"):
		return "git_write_operations", true
	case strings.Contains(c, "curl") || strings.Contains(c, "wget") || strings.Contains(c, "ssh"):
		return "network_command_explained", true
	default:
		return "risky_command_explained", true
	}
}

func suggestSafeShell(c string) (string, bool) {
	switch {
	case strings.Contains(c, "sed"):
		return "sed_full_access", true
	case strings.Contains(c, "awk"):
		return "awk_read_only_recommended", true
	default:
		return "", false
	}
}

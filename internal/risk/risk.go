// Package risk classifies a proposed action as Safe or Risky. Classify is
// a pure function of (tool name, argument snapshot); it never consults
// process state, matching the teacher's transparency.classifyViolation
// pattern (a lowercase-and-substring-match switch producing a closed enum
// plus a human-readable reasoning string) generalized from the teacher's
// seven-way violation taxonomy down to the harness's Safe/Risky binary.
package risk

import (
	"fmt"
	"strings"

	"codenerd/internal/model"
)

// Classification is the result of classifying one proposed action.
type Classification struct {
	Risk      model.RiskLevel
	Reasoning string
}

// safeTools are read-only by construction: no arguments can make them
// risky.
var safeTools = map[string]bool{
	"grep":   true,
	"glob":   true,
	"read":   true,
	"search": true,
	"find":   true,
	"status": true,
	"stat":   true,
	"ls":     true,
}

// riskyCommandSubstrings match anywhere in a shell-style command string.
var riskyCommandSubstrings = []string{
	"curl", "wget", "ssh",
	"git push", "git commit", "git rebase", "git filter-branch", "git reset --hard",
}

// riskyInstallPrefixes flag package-manager mutation commands.
var riskyInstallPrefixes = []string{
	"npm install", "npm i ", "yarn add", "pip install", "cargo install",
	"apt install", "apt-get install", "brew install", "go install",
}

// Classify inspects a tool name and its argument snapshot and returns the
// Safe/Risky verdict with a human-readable reason. Unknown tools default to
// Risky with a conservative reasoning string, per spec.
func Classify(toolName string, args map[string]any) Classification {
	nameLower := strings.ToLower(toolName)
	command := commandString(args)
	commandLower := strings.ToLower(command)

	switch {
	case safeTools[nameLower]:
		return Classification{
			Risk:      model.RiskSafe,
			Reasoning: fmt.Sprintf("%q is a read-only introspection tool", toolName),
		}

	case containsAny(nameLower, "write", "edit", "multiedit", "delete", "remove"):
		return Classification{
			Risk:      model.RiskRisky,
			Reasoning: fmt.Sprintf("%q mutates files on disk", toolName),
		}

	case containsAny(commandLower, "rm ", "shred ", "rmdir ") || strings.HasPrefix(commandLower, "rm "):
		return Classification{
			Risk:      model.RiskRisky,
			Reasoning: "command deletes files (rm/shred/rmdir)",
		}

	case strings.Contains(commandLower, "sed -i") || strings.Contains(commandLower, "sed --in-place"):
		return Classification{
			Risk:      model.RiskRisky,
			Reasoning: "sed with in-place editing mutates files without review",
		}

	case strings.Contains(commandLower, "awk") && strings.Contains(commandLower, ">"):
		return Classification{
			Risk:      model.RiskRisky,
			Reasoning: "awk with output redirection writes to disk",
		}

	case containsAny(commandLower, riskyCommandSubstrings...):
		return Classification{
			Risk:      model.RiskRisky,
			Reasoning: "command performs network egress or rewrites git history",
		}

	case hasAnyPrefix(commandLower, riskyInstallPrefixes...):
		return Classification{
			Risk:      model.RiskRisky,
			Reasoning: "command installs a package, mutating the environment",
		}

	case containsAny(nameLower, "shell", "exec", "command", "run"):
		// Generic shell/exec tools are risky whatever their command
		// string; a bare shell invocation can do anything.
		return Classification{
			Risk:      model.RiskRisky,
			Reasoning: "shell/process execution can mutate files or spawn children",
		}

	case toolName == "":
		return Classification{
			Risk:      model.RiskRisky,
			Reasoning: "no tool name supplied; defaulting to conservative classification",
		}

	default:
		return Classification{
			Risk:      model.RiskRisky,
			Reasoning: fmt.Sprintf("unknown tool %q defaults to Risky pending explicit classification", toolName),
		}
	}
}

// commandString pulls a "command" argument out of an arbitrary argument
// map, the shape shell-style tools use.
func commandString(args map[string]any) string {
	if args == nil {
		return ""
	}
	if v, ok := args["command"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

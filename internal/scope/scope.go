// Package scope extracts a human-presentable summary of what a tool call
// touches — which files, directories, glob patterns, whether it's
// project-wide, whether it reaches outside the machine — from the tool
// name and its argument map alone.
//
// Grounded on original_source/crates/tools/src/scope_extraction.rs: the
// same tool-name-substring dispatch table and per-category key extraction.
package scope

import (
	"strconv"
	"strings"
)

// Info describes what a tool call is expected to touch.
type Info struct {
	Files          []string
	Directories    []string
	Patterns       []string
	IsProjectWide  bool
	IsExternal     bool
}

// IsEmpty reports whether no scope could be determined at all.
func (i Info) IsEmpty() bool {
	return len(i.Files) == 0 && len(i.Directories) == 0 && len(i.Patterns) == 0 &&
		!i.IsProjectWide && !i.IsExternal
}

// ToBrief renders a short one-line summary.
func (i Info) ToBrief() string {
	if i.IsExternal {
		return "External system"
	}
	if i.IsProjectWide {
		return "Project-wide"
	}
	var parts []string
	if n := len(i.Files); n > 0 {
		parts = append(parts, plural(n, "file"))
	}
	if n := len(i.Directories); n > 0 {
		parts = append(parts, plural(n, "directory", "directories"))
	}
	if n := len(i.Patterns); n > 0 {
		parts = append(parts, plural(n, "pattern"))
	}
	if len(parts) == 0 {
		return "No specific scope"
	}
	return strings.Join(parts, ", ")
}

func plural(n int, singular string, pluralForm ...string) string {
	word := singular + "s"
	if len(pluralForm) > 0 {
		word = pluralForm[0]
	}
	if n == 1 {
		return "1 " + singular
	}
	return strconv.Itoa(n) + " " + word
}

// Extract dispatches on tool name substrings to pick a per-category
// extractor, matching the original's ordered match arms exactly.
func Extract(toolName string, args map[string]any) Info {
	name := strings.ToLower(toolName)

	switch {
	case strings.Contains(name, "multiedit"):
		return extractMultiedit(args)
	case strings.Contains(name, "read"):
		return extractRead(args)
	case strings.Contains(name, "write") || strings.Contains(name, "edit"):
		return extractWrite(args)
	case strings.Contains(name, "delete") || strings.Contains(name, "remove"):
		return extractDelete(args)
	case strings.Contains(name, "grep") || strings.Contains(name, "search"):
		return extractSearch(args)
	case strings.Contains(name, "glob") || strings.Contains(name, "find"):
		return extractGlob(args)
	case strings.Contains(name, "shell") || strings.Contains(name, "exec") || strings.Contains(name, "command"):
		return extractShell(args)
	case strings.Contains(name, "http") || strings.Contains(name, "fetch") || strings.Contains(name, "request") || strings.Contains(name, "curl"):
		return Info{IsExternal: true}
	case strings.Contains(name, "git"):
		return extractGit(args)
	case strings.Contains(name, "npm") || strings.Contains(name, "yarn") || strings.Contains(name, "pip") || strings.Contains(name, "cargo"):
		return Info{IsProjectWide: true}
	default:
		return extractGeneric(args)
	}
}

func str(args map[string]any, key string) (string, bool) {
	if args == nil {
		return "", false
	}
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func strSlice(args map[string]any, key string) []string {
	if args == nil {
		return nil
	}
	v, ok := args[key]
	if !ok {
		return nil
	}
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func extractRead(args map[string]any) Info {
	var info Info
	if p, ok := str(args, "file_path"); ok {
		info.Files = append(info.Files, p)
	} else if p, ok := str(args, "path"); ok {
		info.Files = append(info.Files, p)
	}
	info.Files = append(info.Files, strSlice(args, "paths")...)
	return info
}

func extractWrite(args map[string]any) Info {
	return extractRead(args)
}

func extractMultiedit(args map[string]any) Info {
	var info Info
	if p, ok := str(args, "file_path"); ok {
		info.Files = append(info.Files, p)
	}
	info.Files = append(info.Files, strSlice(args, "paths")...)
	return info
}

func extractDelete(args map[string]any) Info {
	var info Info
	p, ok := str(args, "path")
	if !ok {
		p, ok = str(args, "file_path")
	}
	if !ok {
		return info
	}
	_, recursive := args["recursive"]
	if strings.HasSuffix(p, "/") || recursive {
		info.Directories = append(info.Directories, p)
	} else {
		info.Files = append(info.Files, p)
	}
	return info
}

func extractSearch(args map[string]any) Info {
	var info Info
	if p, ok := str(args, "path"); ok {
		info.Directories = append(info.Directories, p)
	}
	if p, ok := str(args, "pattern"); ok {
		info.Patterns = append(info.Patterns, p)
	}
	info.Files = append(info.Files, strSlice(args, "paths")...)
	return info
}

func extractGlob(args map[string]any) Info {
	return extractSearch(args)
}

func extractShell(args map[string]any) Info {
	command, _ := str(args, "command")
	return analyzeShellCommandScope(command)
}

func analyzeShellCommandScope(command string) Info {
	lower := strings.ToLower(command)

	switch {
	case strings.Contains(lower, "curl") || strings.Contains(lower, "wget") || strings.Contains(lower, "ssh"),
		strings.Contains(lower, "git push"), strings.Contains(lower, "git pull"):
		return Info{IsExternal: true}
	case strings.Contains(lower, "cargo build"), strings.Contains(lower, "cargo test"),
		strings.Contains(lower, "npm install"), strings.Contains(lower, "npm run"),
		strings.Contains(lower, "yarn"), strings.Contains(lower, "pip install"),
		strings.Contains(lower, "make"), strings.Contains(lower, "cmake"):
		return Info{IsProjectWide: true}
	}

	var info Info
	for _, token := range strings.Fields(command) {
		if strings.HasPrefix(token, "/") || strings.HasPrefix(token, "./") || strings.HasPrefix(token, "../") {
			if strings.HasSuffix(token, "/") {
				info.Directories = append(info.Directories, token)
			} else {
				info.Files = append(info.Files, token)
			}
		}
	}
	if info.IsEmpty() {
		info.IsProjectWide = true
	}
	return info
}

func extractGit(args map[string]any) Info {
	command, ok := str(args, "command")
	if !ok {
		return Info{IsProjectWide: true}
	}
	lower := strings.ToLower(command)
	if strings.Contains(lower, "push") || strings.Contains(lower, "pull") || strings.Contains(lower, "fetch") {
		return Info{IsExternal: true}
	}
	return Info{IsProjectWide: true}
}

var genericPathKeys = []string{"path", "file", "file_path", "filePath", "filename", "source", "destination"}
var genericArrayKeys = []string{"paths", "files", "files_and_folders"}

func extractGeneric(args map[string]any) Info {
	var info Info
	for _, key := range genericPathKeys {
		if p, ok := str(args, key); ok {
			switch {
			case strings.ContainsAny(p, "*?"):
				info.Patterns = append(info.Patterns, p)
			case strings.HasSuffix(p, "/"):
				info.Directories = append(info.Directories, p)
			default:
				info.Files = append(info.Files, p)
			}
			break
		}
	}
	for _, key := range genericArrayKeys {
		info.Files = append(info.Files, strSlice(args, key)...)
	}
	return info
}

// Package applyengine applies an approved patch to a git working tree via
// `git apply` subprocesses, detecting and classifying conflicts.
//
// Grounded on original_source/crates/tools/src/apply_engine.rs: the same
// check-base / apply --check / apply --numstat / apply sequence, the same
// conflict taxonomy and stderr-line parsing, and the same rollback/session
// note plumbing through `git reset --hard` and `git notes`. Subprocess
// invocation follows internal/tools/shell's exec.CommandContext pattern
// (separate stdout/stderr buffers, context-scoped timeout).
package applyengine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"codenerd/internal/harnesserr"
	"codenerd/internal/patch"
)

// ConflictType is the closed taxonomy of reasons a patch failed to apply.
type ConflictType string

const (
	ConflictOverlappingChanges ConflictType = "overlapping_changes"
	ConflictHunkMismatch       ConflictType = "hunk_mismatch"
	ConflictStaleBase          ConflictType = "stale_base"
	ConflictMissingFile        ConflictType = "missing_file"
	ConflictBinaryFile         ConflictType = "binary_file"
	ConflictUnknown            ConflictType = "unknown"
)

// ConflictInfo describes one conflict encountered while applying a patch.
type ConflictInfo struct {
	File        string
	Line        int
	Type        ConflictType
	Explanation string
	Suggestions []string
}

// ResultKind discriminates the three shapes an apply attempt can take.
type ResultKind int

const (
	ResultSuccess ResultKind = iota
	ResultConflict
	ResultError
)

// Result is the outcome of ApplyPatch/ApplyApprovedHunks.
type Result struct {
	Kind          ResultKind
	FilesModified []string
	Conflicts     []ConflictInfo
	Message       string
}

// Engine applies patches against one git working tree.
type Engine struct {
	repoPath string
	timeout  time.Duration
}

// New returns an Engine rooted at repoPath, which must contain a .git
// directory. A relative path is resolved against the current directory.
func New(repoPath string) (*Engine, error) {
	abs := repoPath
	if !filepath.IsAbs(abs) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, harnesserr.Wrap(harnesserr.KindIO, "applyengine", "resolve cwd", err)
		}
		abs = filepath.Join(cwd, repoPath)
	}
	if _, err := os.Stat(filepath.Join(abs, ".git")); err != nil {
		return nil, harnesserr.New(harnesserr.KindValidation, "applyengine", "not a git repository: "+abs)
	}
	return &Engine{repoPath: abs, timeout: 30 * time.Second}, nil
}

// ApplyPatch applies a raw unified diff, first verifying baseSnapshot
// matches the repository's current HEAD.
func (e *Engine) ApplyPatch(ctx context.Context, diff, baseSnapshot string) Result {
	if conflict, err := e.checkBaseSnapshot(ctx, baseSnapshot); err != nil {
		return Result{Kind: ResultConflict, Conflicts: []ConflictInfo{conflict}}
	}

	conflicts, checkErr := e.gitApplyCheck(ctx, diff)
	if checkErr == nil {
		files, err := e.gitApply(ctx, diff)
		if err != nil {
			return Result{Kind: ResultError, Message: fmt.Sprintf("patch apply failed: %v", err)}
		}
		return Result{Kind: ResultSuccess, FilesModified: files}
	}

	for _, c := range conflicts {
		if c.Type != ConflictUnknown {
			return Result{Kind: ResultConflict, Conflicts: conflicts}
		}
	}
	msg := "unknown patch apply error"
	if len(conflicts) > 0 {
		msg = conflicts[0].Explanation
	}
	return Result{Kind: ResultError, Message: msg}
}

// ApplyApprovedHunks filters p down to only its approved hunks and applies
// that subset.
func (e *Engine) ApplyApprovedHunks(ctx context.Context, p *patch.Patch) Result {
	filtered := p.ApprovedDiff()
	if filtered == "" {
		return Result{Kind: ResultError, Message: "no approved hunks to apply"}
	}
	return e.ApplyPatch(ctx, filtered, p.BaseSnapshot)
}

func (e *Engine) checkBaseSnapshot(ctx context.Context, expected string) (ConflictInfo, error) {
	out, _, err := e.run(ctx, nil, "rev-parse", "HEAD")
	if err != nil {
		return ConflictInfo{
			File: ".", Type: ConflictUnknown,
			Explanation: fmt.Sprintf("failed to get current commit: %v", err),
			Suggestions: []string{
				"ensure you're in a valid git repository",
				"check that git is installed and accessible",
			},
		}, err
	}

	current := strings.TrimSpace(out)
	if !strings.HasPrefix(current, expected) {
		err := harnesserr.New(harnesserr.KindConflict, "applyengine", "stale base snapshot")
		return ConflictInfo{
			File: ".", Type: ConflictStaleBase,
			Explanation: fmt.Sprintf("repository state has changed since the patch was created.\nexpected base: %s\ncurrent HEAD: %s", expected, current),
			Suggestions: []string{
				"commit or stash your current changes",
				fmt.Sprintf("reset to the base commit: git reset %s", expected),
				"re-create the patch from the current state",
			},
		}, err
	}
	return ConflictInfo{}, nil
}

// gitApplyCheck runs `git apply --check` and returns a nil error with no
// conflicts on success, or the parsed conflict list on failure.
func (e *Engine) gitApplyCheck(ctx context.Context, diff string) ([]ConflictInfo, error) {
	_, stderr, err := e.run(ctx, strings.NewReader(diff), "apply", "--check", "-")
	if err == nil {
		return nil, nil
	}

	conflicts := e.parseGitApplyErrors(stderr)
	return conflicts, harnesserr.Wrap(harnesserr.KindConflict, "applyengine", "git apply --check failed", err)
}

// gitApply actually applies diff, returning the modified file paths as
// reported by a preceding `git apply --numstat`.
func (e *Engine) gitApply(ctx context.Context, diff string) ([]string, error) {
	numstatOut, _, err := e.run(ctx, strings.NewReader(diff), "apply", "--numstat", "-")
	var files []string
	if err == nil {
		for _, line := range strings.Split(numstatOut, "\n") {
			parts := strings.Fields(line)
			if len(parts) >= 3 {
				files = append(files, parts[2])
			}
		}
	}

	_, stderr, err := e.run(ctx, strings.NewReader(diff), "apply", "-")
	if err != nil {
		return nil, harnesserr.Wrap(harnesserr.KindTool, "applyengine", "patch application failed: "+stderr, err)
	}
	return files, nil
}

// parseGitApplyErrors scans git's stderr output line by line, classifying
// each recognizable failure line into a ConflictInfo.
func (e *Engine) parseGitApplyErrors(stderr string) []ConflictInfo {
	var conflicts []ConflictInfo
	for _, line := range strings.Split(stderr, "\n") {
		if info, ok := e.parseGitApplyErrorLine(line); ok {
			conflicts = append(conflicts, info)
		}
	}
	if len(conflicts) == 0 && strings.TrimSpace(stderr) != "" {
		conflicts = append(conflicts, ConflictInfo{
			File: ".", Type: ConflictUnknown,
			Explanation: stderr,
			Suggestions: []string{
				"review the patch file for formatting errors",
				"ensure the patch was generated with unified diff format",
				"check that the target files exist",
			},
		})
	}
	return conflicts
}

func (e *Engine) parseGitApplyErrorLine(line string) (ConflictInfo, bool) {
	line = strings.TrimSpace(line)

	switch {
	case strings.Contains(line, "does not match index"):
		parts := strings.SplitN(line, ":", 3)
		if len(parts) < 2 {
			return ConflictInfo{}, false
		}
		file := strings.TrimSpace(parts[1])
		return ConflictInfo{
			File: file, Type: ConflictHunkMismatch,
			Explanation: fmt.Sprintf("the patch doesn't match the current state of '%s'.\n\nthis usually means the file has been modified since the patch was created.", file),
			Suggestions: []string{
				"refresh the patch by regenerating it from the current state",
				"review the file and manually apply the changes",
				"reset the file to match the patch's expected state",
			},
		}, true

	case strings.Contains(line, "patch does not apply"):
		parts := strings.SplitN(line, ":", 2)
		if len(parts) < 2 {
			return ConflictInfo{}, false
		}
		file := strings.TrimSpace(parts[1])
		return ConflictInfo{
			File: file, Type: ConflictHunkMismatch,
			Explanation: fmt.Sprintf("the patch cannot be applied to '%s'.\n\nthe changes in the patch conflict with the current file contents.", file),
			Suggestions: []string{
				"view the current file contents and the patch to understand the conflict",
				"apply the patch manually by editing the file",
				"use a 3-way merge: git apply --3way < patchfile",
			},
		}, true

	case strings.Contains(line, "No such file") || strings.Contains(line, "cannot stat"):
		file, ok := quotedSegment(line)
		if !ok {
			return ConflictInfo{}, false
		}
		return ConflictInfo{
			File: file, Type: ConflictMissingFile,
			Explanation: fmt.Sprintf("the file '%s' doesn't exist in the working directory.\n\nthe patch expects this file to be present.", file),
			Suggestions: []string{
				"create the file if it's a new file",
				"check if the file path in the patch is correct",
				"verify you're in the correct directory",
			},
		}, true

	case strings.Contains(line, "patch failed"):
		idx := strings.Index(line, "patch failed: ")
		if idx < 0 {
			return ConflictInfo{}, false
		}
		rest := line[idx+len("patch failed: "):]
		parts := strings.SplitN(rest, ":", 2)
		if len(parts) < 2 {
			return ConflictInfo{}, false
		}
		file := strings.TrimSpace(parts[0])
		lineNo, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return ConflictInfo{}, false
		}
		return ConflictInfo{
			File: file, Line: lineNo, Type: ConflictOverlappingChanges,
			Explanation: fmt.Sprintf("failed to apply patch at %s:%d.\n\nthe hunk at this location doesn't match the file contents.", file, lineNo),
			Suggestions: []string{
				"review the file around the indicated line",
				"check for uncommitted changes that might conflict",
				"apply the patch manually with a text editor",
			},
		}, true

	case strings.Contains(line, "Binary"):
		return ConflictInfo{
			File: "<binary>", Type: ConflictBinaryFile,
			Explanation: "this patch contains binary file changes, which are not supported by the diff-first workflow.",
			Suggestions: []string{
				"use git checkout or git apply to handle binary files directly",
				"consider committing binary file changes separately",
			},
		}, true
	}

	return ConflictInfo{}, false
}

func quotedSegment(line string) (string, bool) {
	for _, q := range []byte{'\'', '"'} {
		parts := strings.Split(line, string(q))
		if len(parts) >= 3 {
			return parts[1], true
		}
	}
	return "", false
}

// Rollback discards all working-tree changes via `git reset --hard HEAD`.
// It refuses to run when there is nothing to roll back.
func (e *Engine) Rollback(ctx context.Context) error {
	status, _, err := e.run(ctx, nil, "status", "--porcelain")
	if err != nil {
		return harnesserr.Wrap(harnesserr.KindTool, "applyengine", "git status failed", err)
	}
	if strings.TrimSpace(status) == "" {
		return harnesserr.New(harnesserr.KindValidation, "applyengine", "no changes to rollback")
	}

	_, stderr, err := e.run(ctx, nil, "reset", "--hard", "HEAD")
	if err != nil {
		return harnesserr.Wrap(harnesserr.KindTool, "applyengine", "rollback failed: "+stderr, err)
	}
	return nil
}

// AddSessionNote attaches a git note to commit recording the session and
// patch that produced it.
func (e *Engine) AddSessionNote(ctx context.Context, commit, sessionId, patchId string) error {
	note := fmt.Sprintf("Session: %s\nPatch: %s", sessionId, patchId)
	_, stderr, err := e.run(ctx, nil, "notes", "add", "-m", note, commit)
	if err != nil {
		return harnesserr.Wrap(harnesserr.KindTool, "applyengine", "add git note failed: "+stderr, err)
	}
	return nil
}

// SessionNote reads the session/patch ids recorded on commit, if any.
func (e *Engine) SessionNote(ctx context.Context, commit string) (sessionId, patchId string, ok bool) {
	out, _, err := e.run(ctx, nil, "notes", "show", commit)
	if err != nil {
		return "", "", false
	}
	for _, line := range strings.Split(out, "\n") {
		if rest, found := strings.CutPrefix(line, "Session: "); found {
			sessionId = rest
		} else if rest, found := strings.CutPrefix(line, "Patch: "); found {
			patchId = rest
		}
	}
	return sessionId, patchId, sessionId != "" && patchId != ""
}

// run executes `git <args>` in the repository, optionally feeding stdin,
// and returns trimmed stdout/stderr.
func (e *Engine) run(ctx context.Context, stdin *strings.Reader, args ...string) (stdout, stderr string, err error) {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "git", args...)
	cmd.Dir = e.repoPath
	if stdin != nil {
		cmd.Stdin = stdin
	}

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	stdout = outBuf.String()
	stderr = errBuf.String()
	if runErr != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return stdout, stderr, harnesserr.New(harnesserr.KindTool, "applyengine", "git command timed out")
		}
		return stdout, stderr, harnesserr.Wrap(harnesserr.KindTool, "applyengine", "git "+strings.Join(args, " ")+" failed", runErr)
	}
	return stdout, stderr, nil
}

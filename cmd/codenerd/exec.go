package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"codenerd/internal/agentsession"
	"codenerd/internal/approval"
	"codenerd/internal/layout"
	"codenerd/internal/model"
	"codenerd/internal/risk"
	"codenerd/internal/tools"
	"codenerd/internal/tools/core"
	"codenerd/internal/tools/shell"
)

var execCmd = &cobra.Command{
	Use:   "exec <cmd> [args...]",
	Short: "Run a single shell command through the approval gate, non-interactively",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		command := strings.Join(args, " ")

		dir := layout.New(agentDir)
		sess, isResumed, err := agentsession.Latest(dir, cliLogger)
		if err != nil {
			return fmt.Errorf("resolve session: %w", err)
		}
		if !isResumed {
			if err := dir.EnsureDirs(); err != nil {
				return fmt.Errorf("initialize agent directory: %w", err)
			}
			sess, err = agentsession.Start(dir, cliLogger)
			if err != nil {
				return fmt.Errorf("start session: %w", err)
			}
			if err := dir.EnsureSessionDirs(sess.Id()); err != nil {
				return fmt.Errorf("initialize session directory: %w", err)
			}
		}
		defer sess.Close()

		registry := tools.NewRegistry()
		if err := core.RegisterAll(registry); err != nil {
			return fmt.Errorf("register file tools: %w", err)
		}
		if err := shell.RegisterAll(registry); err != nil {
			return fmt.Errorf("register shell tools: %w", err)
		}

		mode, err := approval.ParseMode(activeProfile().Mode)
		if err != nil {
			return fmt.Errorf("resolve approval mode: %w", err)
		}
		gate := approval.NewGate(mode, stdinPrompter{})

		toolArgs := map[string]any{"command": command}
		if _, err := sess.AppendToolCall("run_command", toolArgs); err != nil {
			return fmt.Errorf("record tool call: %w", err)
		}

		ctx := context.Background()
		req, err := gate.Request(ctx, command, "run_command", toolArgs)
		if err != nil {
			return fmt.Errorf("approval gate: %w", err)
		}
		if _, err := sess.AppendApprovalDecision(command, req.Outcome, req.Classification.Risk); err != nil {
			return fmt.Errorf("record approval decision: %w", err)
		}

		if req.Outcome != model.ApprovalApproved {
			if _, appendErr := sess.AppendToolResult("run_command", nil, false, string(req.Outcome)); appendErr != nil {
				return fmt.Errorf("record tool result: %w", appendErr)
			}
			return fmt.Errorf("command not approved (%s): %s", req.Outcome, req.Classification.Reasoning)
		}

		result, err := registry.Execute(ctx, "run_command", toolArgs)
		success := err == nil
		toolErr := ""
		if err != nil {
			toolErr = err.Error()
		}
		if _, appendErr := sess.AppendToolResult("run_command", map[string]any{"output": result.Result}, success, toolErr); appendErr != nil {
			return fmt.Errorf("record tool result: %w", appendErr)
		}

		fmt.Println(result.Result)
		return err
	},
}

// stdinPrompter asks a human for an approval decision on the controlling
// terminal. The only approval.Prompter implementation wired into codenerd.
type stdinPrompter struct{}

func (stdinPrompter) Prompt(ctx context.Context, action string, classification risk.Classification, hint string) (model.ApprovalOutcome, error) {
	fmt.Fprintf(os.Stderr, "\nrisky action: %s\nreason: %s\n", action, classification.Reasoning)
	if hint != "" {
		fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
	}
	fmt.Fprint(os.Stderr, "approve? [y/N] ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return model.ApprovalCancelled, nil
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return model.ApprovalApproved, nil
	default:
		return model.ApprovalRejected, nil
	}
}

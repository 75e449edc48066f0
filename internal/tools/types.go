// Package tools provides the tool registry and the five tool surfaces the
// driver exposes to the model: shell, read, edit, grep, glob. Each tool
// publishes a Draft-07-subset JSON schema so the same registry can drive
// both OpenAI-style and Gemini-style function calling.
package tools

import (
	"context"
)

// ToolCategory classifies a tool by which of the harness's five surfaces
// it belongs to.
type ToolCategory string

const (
	// CategoryShell covers command execution: run_command, bash, build,
	// test, and git plumbing.
	CategoryShell ToolCategory = "shell"

	// CategoryRead covers read-only file access: read_file, list_files.
	CategoryRead ToolCategory = "read"

	// CategoryEdit covers file mutation: write_file, edit_file, delete_file.
	CategoryEdit ToolCategory = "edit"

	// CategoryGrep covers content search within files.
	CategoryGrep ToolCategory = "grep"

	// CategoryGlob covers filename pattern matching.
	CategoryGlob ToolCategory = "glob"
)

// Property describes a single parameter property for JSON schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
	Enum        []any  `json:"enum,omitempty"`
	// Items describes array element schema (required for type="array")
	Items *PropertyItems `json:"items,omitempty"`
}

// PropertyItems describes the schema for array elements.
type PropertyItems struct {
	Type string `json:"type"`
}

// ToolSchema defines the JSON schema for tool arguments.
// This enables LLM tool calling with proper validation.
type ToolSchema struct {
	// Required lists parameters that must be provided.
	Required []string `json:"required"`

	// Properties describes each parameter.
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc is the signature for tool execution.
// Returns the result string and any error.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool defines a modular tool that any agent can use.
// Tools are registered in a Registry and looked up by name or category.
type Tool struct {
	// Name is the unique identifier for the tool.
	Name string

	// Description explains what the tool does.
	// Used for LLM tool calling and documentation.
	Description string

	// Category classifies the tool for intent filtering.
	Category ToolCategory

	// Execute runs the tool with the given arguments.
	Execute ExecuteFunc

	// Schema defines the expected arguments.
	Schema ToolSchema

	// Priority is used when multiple tools match.
	// Higher priority tools are preferred (default 50).
	Priority int

	// RequiresContext indicates if the tool needs session context.
	RequiresContext bool
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// WithPriority returns a copy of the tool with the given priority.
func (t *Tool) WithPriority(priority int) *Tool {
	copy := *t
	copy.Priority = priority
	return &copy
}

// ToolResult wraps the result of tool execution with metadata.
type ToolResult struct {
	// ToolName identifies which tool was executed.
	ToolName string

	// Result is the string output from the tool.
	Result string

	// Error is set if the tool failed.
	Error error

	// DurationMs is how long execution took.
	DurationMs int64
}

// IsSuccess returns true if the tool executed without error.
func (r *ToolResult) IsSuccess() bool {
	return r.Error == nil
}

package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractRead(t *testing.T) {
	info := Extract("read_file", map[string]any{"file_path": "main.go"})
	assert.Equal(t, []string{"main.go"}, info.Files)
}

func TestExtractWrite(t *testing.T) {
	info := Extract("write_file", map[string]any{"path": "out.txt"})
	assert.Equal(t, []string{"out.txt"}, info.Files)
}

func TestExtractDeleteDirectory(t *testing.T) {
	info := Extract("delete_path", map[string]any{"path": "build/"})
	assert.Equal(t, []string{"build/"}, info.Directories)
}

func TestExtractHTTPIsExternal(t *testing.T) {
	info := Extract("http_fetch", nil)
	assert.True(t, info.IsExternal)
}

func TestExtractNpmIsProjectWide(t *testing.T) {
	info := Extract("npm_run", nil)
	assert.True(t, info.IsProjectWide)
}

func TestAnalyzeShellCommandScope(t *testing.T) {
	info := analyzeShellCommandScope("curl https://example.com")
	assert.True(t, info.IsExternal)

	info = analyzeShellCommandScope("npm install")
	assert.True(t, info.IsProjectWide)

	info = analyzeShellCommandScope("cat ./foo.txt")
	assert.Equal(t, []string{"./foo.txt"}, info.Files)

	info = analyzeShellCommandScope("echo hello")
	assert.True(t, info.IsProjectWide)
}

func TestExtractGitPushIsExternal(t *testing.T) {
	info := Extract("git_run", map[string]any{"command": "git push origin main"})
	assert.True(t, info.IsExternal)
}

func TestExtractGitStatusIsProjectWide(t *testing.T) {
	info := Extract("git_run", map[string]any{"command": "git status"})
	assert.True(t, info.IsProjectWide)
}

func TestExtractGenericPattern(t *testing.T) {
	info := Extract("unknown_tool", map[string]any{"path": "src/**/*.go"})
	assert.Equal(t, []string{"src/**/*.go"}, info.Patterns)
}

func TestToBrief(t *testing.T) {
	assert.Equal(t, "External system", Info{IsExternal: true}.ToBrief())
	assert.Equal(t, "Project-wide", Info{IsProjectWide: true}.ToBrief())
	assert.Equal(t, "No specific scope", Info{}.ToBrief())
	assert.Equal(t, "1 file", Info{Files: []string{"a"}}.ToBrief())
	assert.Equal(t, "2 files", Info{Files: []string{"a", "b"}}.ToBrief())
}

package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"codenerd/internal/model"
)

func TestClassifySafeTools(t *testing.T) {
	for _, name := range []string{"grep", "glob", "read", "status"} {
		got := Classify(name, nil)
		assert.Equal(t, model.RiskSafe, got.Risk, name)
	}
}

func TestClassifyWriteEditAreRisky(t *testing.T) {
	for _, name := range []string{"write", "edit", "multiedit", "delete_file"} {
		got := Classify(name, nil)
		assert.Equal(t, model.RiskRisky, got.Risk, name)
	}
}

func TestClassifyShellCommands(t *testing.T) {
	cases := []struct {
		command string
		risk    model.RiskLevel
	}{
		{"rm -rf node_modules", model.RiskRisky},
		{"sed -i 's/foo/bar/' file.go", model.RiskRisky},
		{"sed 's/foo/bar/' file.go", model.RiskRisky}, // generic shell tool defaults risky
		{"awk '{print $1}' file.txt > out.txt", model.RiskRisky},
		{"curl https://example.com", model.RiskRisky},
		{"git push origin main", model.RiskRisky},
		{"npm install left-pad", model.RiskRisky},
	}
	for _, c := range cases {
		got := Classify("shell", map[string]any{"command": c.command})
		assert.Equal(t, c.risk, got.Risk, c.command)
		assert.NotEmpty(t, got.Reasoning)
	}
}

func TestClassifyUnknownToolDefaultsRisky(t *testing.T) {
	got := Classify("frobnicate", nil)
	assert.Equal(t, model.RiskRisky, got.Risk)
	assert.Contains(t, got.Reasoning, "unknown tool")
}

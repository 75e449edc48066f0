package teaching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHintFirstTimeThenNil(t *testing.T) {
	s := NewState()
	hint, ok := s.GetHint("sed_risky_explained")
	assert.True(t, ok)
	assert.Contains(t, hint, "sed -i")

	_, ok = s.GetHint("sed_risky_explained")
	assert.False(t, ok)
}

func TestHasTaughtAndMark(t *testing.T) {
	s := NewState()
	assert.False(t, s.HasTaught("x"))
	s.MarkTaught("x")
	assert.True(t, s.HasTaught("x"))
}

func TestSuggestConceptRiskyShell(t *testing.T) {
	cases := map[string]string{
		"rm -rf foo":           "file_destruction",
		"sed -i s/a/b/ f":      "sed_risky_explained",
		"sed s/a/b/ f":         "sed_full_access",
		"awk '{}' > out":       "awk_full_access",
		"awk '{print}'":        "awk_read_only_recommended",
		"npm install left-pad": "package_install",
		"git push origin main": "git_write_operations",
		"curl https://x":       "network_command_explained",
		"echo hi":              "risky_command_explained",
	}
	for command, want := range cases {
		got, ok := SuggestConcept("shell", true, command)
		assert.True(t, ok, command)
		assert.Equal(t, want, got, command)
	}
}

func TestSuggestConceptSafeShell(t *testing.T) {
	got, ok := SuggestConcept("shell", false, "sed 's/a/b/' f")
	assert.True(t, ok)
	assert.Equal(t, "sed_full_access", got)

	_, ok = SuggestConcept("shell", false, "echo hi")
	assert.False(t, ok)
}

func TestSuggestConceptToolAndOthers(t *testing.T) {
	got, ok := SuggestConcept("tool", true, "edit")
	assert.True(t, ok)
	assert.Equal(t, "edit_tool_benefits", got)

	got, ok = SuggestConcept("file_delete", false, "")
	assert.True(t, ok)
	assert.Equal(t, "file_destruction", got)

	got, ok = SuggestConcept("network", false, "")
	assert.True(t, ok)
	assert.Equal(t, "network_command_explained", got)
}

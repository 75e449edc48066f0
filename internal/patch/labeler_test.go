package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hunkOf(lines ...string) Hunk {
	return Hunk{Content: lines}
}

func TestLabelHunkEmptyReturnsFalse(t *testing.T) {
	_, ok := LabelHunk(Hunk{})
	assert.False(t, ok)
}

func TestLabelHunkSecurity(t *testing.T) {
	h := hunkOf(
		"+func sanitizeInput(s string) string {",
		"+    return escapeHTML(s)",
		"+}",
	)
	l, ok := LabelHunk(h)
	require.True(t, ok)
	assert.Equal(t, "Security fix", l.Intent)
	assert.InDelta(t, 0.9, l.Confidence, 1e-9)
}

func TestLabelHunkErrorHandling(t *testing.T) {
	h := hunkOf(
		"+if err != nil {",
		"+    return fmt.Errorf(\"context: %w\", err)",
		"+}",
	)
	l, ok := LabelHunk(h)
	require.True(t, ok)
	assert.Equal(t, "Add error handling", l.Intent)
}

func TestLabelHunkTestAddition(t *testing.T) {
	h := hunkOf(
		"+func TestFoo(t *testing.T) {",
		"+    assert.Equal(t, 1, 1)",
		"+}",
	)
	l, ok := LabelHunk(h)
	require.True(t, ok)
	assert.Equal(t, "Add tests", l.Intent)
}

func TestLabelHunkRemoval(t *testing.T) {
	h := hunkOf(
		"-// deprecated legacy cleanup",
		"-func oldHelper() {}",
	)
	l, ok := LabelHunk(h)
	require.True(t, ok)
	assert.Equal(t, "Remove code", l.Intent)
}

func TestLabelHunkDocumentation(t *testing.T) {
	h := hunkOf(
		"+// Foo does a thing, see doc comment below.",
		"+func Foo() {}",
	)
	l, ok := LabelHunk(h)
	require.True(t, ok)
	assert.Equal(t, "Update documentation", l.Intent)
}

func TestLabelHunkTypes(t *testing.T) {
	h := hunkOf(
		"+type Widget struct {",
		"+    Name string",
		"+}",
	)
	l, ok := LabelHunk(h)
	require.True(t, ok)
	assert.Equal(t, "Add type annotations", l.Intent)
}

func TestLabelHunkPerformance(t *testing.T) {
	h := hunkOf(
		"+cache.Set(key, value)",
		"+// optimize for the common fast path",
	)
	l, ok := LabelHunk(h)
	require.True(t, ok)
	assert.Equal(t, "Performance improvement", l.Intent)
}

func TestLabelHunkFallbackAddition(t *testing.T) {
	h := hunkOf(
		"+foo := 1",
		"+bar := 2",
		"+baz := 3",
	)
	l, ok := LabelHunk(h)
	require.True(t, ok)
	assert.Equal(t, "Add code", l.Intent)
	assert.InDelta(t, 0.4, l.Confidence, 1e-9)
}

func TestLabelHunkFallbackModification(t *testing.T) {
	h := hunkOf(
		"-foo := 1",
		"+foo := 2",
	)
	l, ok := LabelHunk(h)
	require.True(t, ok)
	assert.Equal(t, "Modify code", l.Intent)
}

func TestLabelHunkSkipsContextLines(t *testing.T) {
	h := hunkOf(
		" package foo",
		" ",
		"+sanitize(input)",
	)
	l, ok := LabelHunk(h)
	require.True(t, ok)
	assert.Equal(t, "Security fix", l.Intent)
}

func TestDisplayWithAndWithoutTags(t *testing.T) {
	l := Label{Intent: "Refactor code"}
	assert.Equal(t, "Refactor code", l.Display())

	l = l.WithTag("modification")
	assert.Equal(t, "Refactor code (modification)", l.Display())
}

func TestPatchLabelHunksSetsIntent(t *testing.T) {
	diff := "--- a/a.go\n+++ b/a.go\n@@ -1,1 +1,3 @@\n-x\n+if err != nil {\n+\treturn err\n+}\n"
	p, err := New("", "n", "base", diff, "sess", 0)
	require.NoError(t, err)

	LabelHunks(p)

	hunks := p.FileHunks("a.go")
	require.Len(t, hunks, 1)
	assert.Contains(t, hunks[0].Intent, "Add error handling")
}

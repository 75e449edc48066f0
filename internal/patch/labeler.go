package patch

import (
	"strconv"
	"strings"
)

// Label is a hunk's inferred intent with a confidence in [0,1] and optional
// secondary tags (e.g. "addition", "removal").
type Label struct {
	Intent     string
	Tags       []string
	Confidence float64
}

// WithTag returns a copy of l with tag appended.
func (l Label) WithTag(tag string) Label {
	l.Tags = append(append([]string(nil), l.Tags...), tag)
	return l
}

// WithConfidence returns a copy of l with confidence clamped to [0,1].
func (l Label) WithConfidence(c float64) Label {
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	l.Confidence = c
	return l
}

// Display renders "Intent" or "Intent (tag, tag)".
func (l Label) Display() string {
	if len(l.Tags) == 0 {
		return l.Intent
	}
	return l.Intent + " (" + strings.Join(l.Tags, ", ") + ")"
}

// patternFamily is one ordered keyword family checked by matchIntent.
type patternFamily struct {
	keywords   map[string]bool
	intent     string
	confidence float64
}

func keywordSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

var (
	errorHandlingKeywords = keywordSet(
		"error", "err", "result", "unwrap_or", "unwrap_or_else", "context", "anyhow",
		"bail", "ensure", "catch", "except", "throw", "raise", "try", "recover",
		"fallback", "handle", "validation", "validate",
	)
	testAdditionKeywords = keywordSet(
		"test", "spec", "mock", "fixture", "assert", "expect", "should", "describe",
		"it(", "testcase", "pytest", "unittest",
	)
	removalKeywords = keywordSet(
		"deprecated", "obsolete", "remove", "delete", "unused", "legacy", "cleanup",
		"dead", "code",
	)
	refactoringKeywords = keywordSet(
		"extract", "inline", "rename", "reformat", "restructure", "simplify", "clarify",
		"reorganize", "consolidate", "split",
	)
	dependenciesKeywords = keywordSet(
		"use ", "using ", "import ", "from ", "require(", "include", "dependency",
		"package", "module",
	)
	documentationKeywords = keywordSet(
		"///", "//", "/*", "*", "# ", "doc", "comment", "describe", "explanation",
		"note", "todo:", "fixme:",
	)
	typesKeywords = keywordSet(
		"type ", "typedef", "interface", "struct", "class ", "enum", "annotation",
		"generic", "param", "return ",
	)
	performanceKeywords = keywordSet(
		"cache", "lazy", "async", "await", "parallel", "concurrent", "optimize",
		"efficient", "fast", "slow", "performance", "profile", "benchmark",
	)
	securityKeywords = keywordSet(
		"sanitize", "escape", "hash", "encrypt", "decrypt", "auth", "permission",
		"validate", "verify", "secure", "credential", "token", "csrf", "xss", "injection",
	)
)

// orderedFamilies is checked top to bottom; the first family with any
// keyword present in the hunk's extracted keyword set wins.
var orderedFamilies = []patternFamily{
	{securityKeywords, "Security fix", 0.9},
	{errorHandlingKeywords, "Add error handling", 0.8},
	{performanceKeywords, "Performance improvement", 0.75},
	{testAdditionKeywords, "Add tests", 0.8},
	{typesKeywords, "Add type annotations", 0.7},
	{dependenciesKeywords, "Add dependencies", 0.7},
	{documentationKeywords, "Update documentation", 0.65},
	{refactoringKeywords, "Refactor code", 0.6},
	{removalKeywords, "Remove code", 0.7},
}

// LabelHunk infers a Label for h, or returns ok=false if the hunk has no
// content or no additions/removals at all.
func LabelHunk(h Hunk) (Label, bool) {
	if len(h.Content) == 0 {
		return Label{}, false
	}
	additions, removals := classifyChanges(h.Content)
	if additions == 0 && removals == 0 {
		return Label{}, false
	}
	keywords := extractKeywords(h.Content)
	return matchIntent(keywords, additions, removals), true
}

// Labeler adapts LabelHunk to the patch.Labeler function type.
func Labeler(h Hunk) (string, float64) {
	l, ok := LabelHunk(h)
	if !ok {
		return "", 0
	}
	return l.Display(), l.Confidence
}

func classifyChanges(lines []string) (additions, removals int) {
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "++"):
		case strings.HasPrefix(line, "+"):
			additions++
		case strings.HasPrefix(line, "--"):
		case strings.HasPrefix(line, "-"):
			removals++
		}
	}
	return additions, removals
}

func extractKeywords(lines []string) map[string]bool {
	keywords := make(map[string]bool)
	for _, line := range lines {
		if strings.HasPrefix(line, " ") {
			continue
		}
		content := line
		if len(content) > 0 && (content[0] == '+' || content[0] == '-' || content[0] == ' ') {
			content = content[1:]
		}
		content = strings.TrimSpace(content)
		content = strings.ToLower(content)
		for _, word := range strings.Fields(content) {
			word = strings.Trim(word, "(){}[],;:.\"'")
			if len(word) > 2 && !isAllDigit(word) {
				keywords[word] = true
			}
		}
	}
	return keywords
}

func isAllDigit(s string) bool {
	_, err := strconv.Atoi(s)
	return err == nil
}

func matchIntent(keywords map[string]bool, additions, removals int) Label {
	joined := joinKeywords(keywords)

	for _, fam := range orderedFamilies {
		if matchesAnyPattern(joined, fam.keywords) {
			label := Label{Intent: fam.intent, Confidence: fam.confidence}
			return label.WithTag(changeTag(additions, removals))
		}
	}

	switch {
	case additions > removals*2:
		return Label{Intent: "Add code", Confidence: 0.4}.WithTag("addition")
	case removals > additions*2:
		return Label{Intent: "Remove code", Confidence: 0.4}.WithTag("removal")
	default:
		return Label{Intent: "Modify code", Confidence: 0.3}.WithTag("modification")
	}
}

func changeTag(additions, removals int) string {
	switch {
	case additions > removals*2:
		return "addition"
	case removals > additions*2:
		return "removal"
	default:
		return "modification"
	}
}

func joinKeywords(keywords map[string]bool) string {
	words := make([]string, 0, len(keywords))
	for w := range keywords {
		words = append(words, w)
	}
	return " " + strings.Join(words, " ") + " "
}

func matchesAnyPattern(joinedKeywords string, patterns map[string]bool) bool {
	for p := range patterns {
		if strings.Contains(joinedKeywords, p) {
			return true
		}
	}
	return false
}

// LabelHunks labels every hunk of every file in p, storing the rendered
// label as each hunk's Intent.
func LabelHunks(p *Patch) {
	p.LabelHunks(Labeler)
}

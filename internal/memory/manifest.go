// manifest.go caches an inventory of every memory document on disk so
// callers can look up by id/tag/kind/recency without rescanning the tree.
//
// Grounded on original_source/crates/core/src/memory/manifest.rs: the same
// rebuild-by-directory-scan algorithm, the same ManifestEntry shape, and
// the same JSON-on-disk cache file.
package memory

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"codenerd/internal/harnesserr"
	"codenerd/internal/model"
)

// Entry is one document's manifest record.
type Entry struct {
	Path              string             `json:"path"`
	Id                string             `json:"id"`
	Kind              model.MemoryKind   `json:"kind"`
	Title             string             `json:"title"`
	Tags              []string           `json:"tags"`
	Updated           time.Time          `json:"updated"`
	SizeBytes         int64              `json:"size_bytes"`
	TokenCountApprox  int                `json:"token_count_approx"`
	Provenance        model.Provenance   `json:"provenance"`
	VerificationState string             `json:"verification_status"`
	LastVerifiedHash  string             `json:"last_verified_commit,omitempty"`
}

// Stats summarizes the manifest's document population.
type Stats struct {
	TotalDocs         int            `json:"total_docs"`
	ByKind            map[string]int `json:"by_kind"`
	TotalTokensApprox int            `json:"total_tokens_approx"`
}

// Manifest is the cached inventory of the memory tree.
type Manifest struct {
	Version     int       `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
	Docs        []Entry   `json:"docs"`
	Stats       Stats     `json:"stats"`
}

// Rebuild scans every memory directory under paths and builds a fresh
// manifest. Missing files/directories are skipped rather than erroring.
func Rebuild(paths Paths) (Manifest, error) {
	var docs []Entry
	byKind := make(map[string]int)
	totalTokens := 0

	add := func(e Entry) {
		byKind[string(e.Kind)]++
		totalTokens += e.TokenCountApprox
		docs = append(docs, e)
	}

	if e, err := scanFile(paths.CoreMemoryFile()); err == nil {
		add(e)
	}
	if e, err := scanFile(paths.CoreLocalMemoryFile()); err == nil {
		add(e)
	}

	for _, dir := range []struct {
		path string
		kind model.MemoryKind
	}{
		{paths.Facts, model.MemoryFact},
		{paths.Decisions, model.MemoryADR},
		{paths.Playbooks, model.MemoryPlaybook},
	} {
		entries, err := scanDirectory(dir.path, dir.kind)
		if err != nil {
			return Manifest{}, err
		}
		for _, e := range entries {
			add(e)
		}
	}

	if _, err := os.Stat(paths.Episodic); err == nil {
		entries, err := scanRecursive(paths.Episodic, model.MemoryRecap)
		if err != nil {
			return Manifest{}, err
		}
		for _, e := range entries {
			add(e)
		}
	}

	return Manifest{
		Version:     1,
		GeneratedAt: time.Now().UTC(),
		Docs:        docs,
		Stats:       Stats{TotalDocs: len(docs), ByKind: byKind, TotalTokensApprox: totalTokens},
	}, nil
}

// Load reads a previously saved manifest from paths.ManifestFile().
func Load(paths Paths) (Manifest, error) {
	content, err := os.ReadFile(paths.ManifestFile())
	if err != nil {
		return Manifest{}, harnesserr.Wrap(harnesserr.KindIO, "memory", "read manifest", err)
	}
	var m Manifest
	if err := json.Unmarshal(content, &m); err != nil {
		return Manifest{}, harnesserr.Wrap(harnesserr.KindParse, "memory", "parse manifest", err)
	}
	return m, nil
}

// Save writes m to paths.ManifestFile(), creating parent directories.
func (m Manifest) Save(paths Paths) error {
	if err := os.MkdirAll(filepath.Dir(paths.ManifestFile()), 0o755); err != nil {
		return harnesserr.Wrap(harnesserr.KindIO, "memory", "create manifest directory", err)
	}
	content, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return harnesserr.Wrap(harnesserr.KindParse, "memory", "serialize manifest", err)
	}
	if err := os.WriteFile(paths.ManifestFile(), content, 0o644); err != nil {
		return harnesserr.Wrap(harnesserr.KindIO, "memory", "write manifest", err)
	}
	return nil
}

// ByKind returns every entry of the given kind.
func (m Manifest) ByKind(kind model.MemoryKind) []Entry {
	var out []Entry
	for _, e := range m.Docs {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// ByTag returns every entry carrying tag.
func (m Manifest) ByTag(tag string) []Entry {
	var out []Entry
	for _, e := range m.Docs {
		for _, t := range e.Tags {
			if t == tag {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// ById returns the entry with the given document id, if any.
func (m Manifest) ById(id string) (Entry, bool) {
	for _, e := range m.Docs {
		if e.Id == id {
			return e, true
		}
	}
	return Entry{}, false
}

// ByPath returns the entry recorded at path, if any.
func (m Manifest) ByPath(path string) (Entry, bool) {
	for _, e := range m.Docs {
		if e.Path == path {
			return e, true
		}
	}
	return Entry{}, false
}

// ByRecent returns every entry sorted newest-updated-first.
func (m Manifest) ByRecent() []Entry {
	out := append([]Entry(nil), m.Docs...)
	sort.Slice(out, func(i, j int) bool { return out[i].Updated.After(out[j].Updated) })
	return out
}

func scanFile(path string) (Entry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, harnesserr.Wrap(harnesserr.KindIO, "memory", "read "+path, err)
	}
	doc, err := Parse(string(content))
	if err != nil {
		return Entry{}, harnesserr.Wrap(harnesserr.KindParse, "memory", "parse "+path, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Entry{}, harnesserr.Wrap(harnesserr.KindIO, "memory", "stat "+path, err)
	}

	fm := doc.Frontmatter
	return Entry{
		Path:              path,
		Id:                fm.Id,
		Kind:              fm.Kind,
		Title:             fm.Title,
		Tags:              fm.Tags,
		Updated:           fm.Updated,
		SizeBytes:         info.Size(),
		TokenCountApprox:  doc.ApproxTokenCount(),
		Provenance:        fm.Provenance,
		VerificationState: strings.ToLower(string(fm.Verification.Status)),
		LastVerifiedHash:  fm.Verification.LastVerifiedCommit,
	}, nil
}

func scanDirectory(dir string, kind model.MemoryKind) ([]Entry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, harnesserr.Wrap(harnesserr.KindIO, "memory", "read directory "+dir, err)
	}

	var out []Entry
	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".md" {
			continue
		}
		e, err := scanFile(filepath.Join(dir, de.Name()))
		if err != nil || e.Kind != kind {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func scanRecursive(dir string, kind model.MemoryKind) ([]Entry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, harnesserr.Wrap(harnesserr.KindIO, "memory", "read directory "+dir, err)
	}

	var out []Entry
	for _, de := range entries {
		path := filepath.Join(dir, de.Name())
		if de.IsDir() {
			sub, err := scanRecursive(path, kind)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}
		if filepath.Ext(de.Name()) != ".md" {
			continue
		}
		e, err := scanFile(path)
		if err != nil || e.Kind != kind {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// tryParseFile reads and parses path, reporting ok=false for anything that
// doesn't exist or doesn't parse rather than erroring.
func tryParseFile(path string) (Doc, bool) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Doc{}, false
	}
	doc, err := Parse(string(content))
	if err != nil {
		return Doc{}, false
	}
	return doc, true
}

// readMarkdownFiles lists every *.md file directly inside dir (not recursive).
func readMarkdownFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, de := range entries {
		if !de.IsDir() && filepath.Ext(de.Name()) == ".md" {
			out = append(out, filepath.Join(dir, de.Name()))
		}
	}
	return out, nil
}

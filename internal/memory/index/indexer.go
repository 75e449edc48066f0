package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codenerd/internal/harnesserr"
	"codenerd/internal/memory"
)

// Result summarizes one indexing pass.
type Result struct {
	DocsAdded   int
	DocsUpdated int
	DocsDeleted int
	Errors      []IndexError
	Duration    time.Duration
}

// IndexError records a single document that failed to index.
type IndexError struct {
	Path    string
	Message string
}

// Indexer scans the memory tree and keeps the Store synchronized with it.
type Indexer struct {
	store    *Store
	paths    memory.Paths
	repoRoot string
}

// NewIndexer wires a Store to a memory tree rooted at repoRoot.
func NewIndexer(store *Store, paths memory.Paths, repoRoot string) *Indexer {
	return &Indexer{store: store, paths: paths, repoRoot: repoRoot}
}

// ReindexAll scans every memory document and (re)indexes it unconditionally.
func (ix *Indexer) ReindexAll(ctx context.Context) (Result, error) {
	start := time.Now()
	result := Result{}

	for _, path := range ix.scanMemoryDirs() {
		if err := ix.IndexDoc(ctx, path); err != nil {
			result.Errors = append(result.Errors, IndexError{Path: path, Message: err.Error()})
			continue
		}
		result.DocsAdded++
	}

	result.Duration = time.Since(start)
	return result, nil
}

// IndexChanged indexes only documents modified since the store's last index
// run.
func (ix *Indexer) IndexChanged(ctx context.Context) (Result, error) {
	start := time.Now()
	result := Result{}

	stats, err := ix.store.Stats(ctx)
	if err != nil {
		return Result{}, err
	}

	for _, path := range ix.scanMemoryDirs() {
		info, err := os.Stat(path)
		if err != nil {
			result.Errors = append(result.Errors, IndexError{Path: path, Message: err.Error()})
			continue
		}
		if info.ModTime().After(stats.LastIndexed) {
			if err := ix.IndexDoc(ctx, path); err != nil {
				result.Errors = append(result.Errors, IndexError{Path: path, Message: err.Error()})
				continue
			}
			result.DocsUpdated++
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

// IndexDoc reads, parses, and indexes a single document by path.
func (ix *Indexer) IndexDoc(ctx context.Context, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return harnesserr.Wrap(harnesserr.KindIO, "index", "read "+path, err)
	}

	namespace, key, body, meta, err := ix.processDoc(path, string(content))
	if err != nil {
		return err
	}
	return ix.store.Put(ctx, namespace, key, body, meta)
}

// RemoveDoc removes a document given a "namespace:key" doc id.
func (ix *Indexer) RemoveDoc(ctx context.Context, docId string) (bool, error) {
	parts := strings.SplitN(docId, ":", 2)
	if len(parts) != 2 {
		return false, harnesserr.New(harnesserr.KindValidation, "index", "invalid doc id format: "+docId)
	}
	return ix.store.Delete(ctx, parts[0], parts[1])
}

func (ix *Indexer) scanMemoryDirs() []string {
	var paths []string

	if dirExists(ix.paths.Core) {
		paths = append(paths, scanDirForMarkdown(ix.paths.Core)...)
	}
	if dirExists(ix.paths.Facts) {
		paths = append(paths, scanDirForMarkdown(ix.paths.Facts)...)
	}
	if dirExists(ix.paths.Decisions) {
		paths = append(paths, scanDirForMarkdown(ix.paths.Decisions)...)
	}
	if dirExists(ix.paths.Playbooks) {
		paths = append(paths, scanDirForMarkdown(ix.paths.Playbooks)...)
	}
	if dirExists(ix.paths.Episodic) {
		paths = append(paths, scanDirRecursive(ix.paths.Episodic)...)
	}

	return paths
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func scanDirForMarkdown(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".md" {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out
}

func scanDirRecursive(dir string) []string {
	var out []string
	stack := []string{dir}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(current)
		if err != nil {
			continue
		}
		for _, e := range entries {
			path := filepath.Join(current, e.Name())
			if e.IsDir() {
				stack = append(stack, path)
			} else if filepath.Ext(e.Name()) == ".md" {
				out = append(out, path)
			}
		}
	}
	return out
}

// processDoc parses path's content into the namespace/key/body/meta tuple
// the store indexes by.
func (ix *Indexer) processDoc(path, content string) (namespace, key string, body string, meta Meta, err error) {
	doc, err := memory.Parse(content)
	if err != nil {
		return "", "", "", Meta{}, harnesserr.Wrap(harnesserr.KindParse, "index", "parse "+path, err)
	}

	namespace, err = ix.namespaceFromPath(path)
	if err != nil {
		return "", "", "", Meta{}, err
	}
	key = filepath.Base(path)

	relPath, err := ix.relativePath(path)
	if err != nil {
		return "", "", "", Meta{}, err
	}

	meta = Meta{
		Id:         doc.Frontmatter.Id,
		Kind:       doc.Frontmatter.Kind,
		Title:      doc.Frontmatter.Title,
		Tags:       doc.Frontmatter.Tags,
		Headings:   extractHeadings(doc.Body),
		Path:       relPath,
		Updated:    doc.Frontmatter.Updated,
		EventIds:   doc.Frontmatter.Provenance.Events,
		PatchIds:   doc.Frontmatter.Provenance.Patches,
		TokenCount: doc.ApproxTokenCount(),
	}

	return namespace, key, doc.String(), meta, nil
}

// extractHeadings converts "## Commands" style headings into anchor slugs
// like "commands".
func extractHeadings(body string) []string {
	var out []string
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "#") {
			continue
		}
		slug := strings.ToLower(strings.TrimSpace(strings.TrimLeft(line, "#")))
		slug = strings.ReplaceAll(slug, " ", "-")
		out = append(out, slug)
	}
	return out
}

func (ix *Indexer) namespaceFromPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	coreFile, _ := filepath.Abs(ix.paths.CoreMemoryFile())
	coreLocalFile, _ := filepath.Abs(ix.paths.CoreLocalMemoryFile())
	facts, _ := filepath.Abs(ix.paths.Facts)
	decisions, _ := filepath.Abs(ix.paths.Decisions)
	playbooks, _ := filepath.Abs(ix.paths.Playbooks)
	episodic, _ := filepath.Abs(ix.paths.Episodic)

	switch {
	case abs == coreFile || abs == coreLocalFile:
		return "core", nil
	case strings.HasPrefix(abs, facts+string(filepath.Separator)):
		return "semantic/facts", nil
	case strings.HasPrefix(abs, decisions+string(filepath.Separator)):
		return "semantic/decisions", nil
	case strings.HasPrefix(abs, playbooks+string(filepath.Separator)):
		return "procedural/playbooks", nil
	case strings.HasPrefix(abs, episodic+string(filepath.Separator)):
		rel, err := filepath.Rel(episodic, filepath.Dir(abs))
		if err != nil || rel == "." {
			return "episodic", nil
		}
		return "episodic/" + rel, nil
	default:
		return "", harnesserr.New(harnesserr.KindValidation, "index", "unknown memory path: "+path)
	}
}

func (ix *Indexer) relativePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	root, err := filepath.Abs(ix.repoRoot)
	if err != nil {
		root = ix.repoRoot
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", harnesserr.Wrap(harnesserr.KindValidation, "index", "compute relative path", err)
	}
	return rel, nil
}

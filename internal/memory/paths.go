package memory

import "path/filepath"

// MemoryRootDirName is the top-level directory holding the durable memory
// tree, sitting alongside (not inside) the per-session .agent directory.
const MemoryRootDirName = ".thunderus"

const (
	memoryDirName     = "memory"
	coreDirName       = "core"
	coreFileName      = "CORE.md"
	coreLocalFileName = "CORE.local.md"
	semanticDirName   = "semantic"
	factsDirName      = "facts"
	decisionsDirName  = "decisions"
	proceduralDirName = "procedural"
	playbooksDirName  = "playbooks"
	episodicDirName   = "episodic"
	manifestFileName  = "manifest.json"
	indexFileName     = "index.db"
)

// Paths resolves every path under the memory tree rooted at root/.thunderus,
// matching the on-disk layout: core/, semantic/facts/, semantic/decisions/,
// procedural/playbooks/, episodic/.
type Paths struct {
	Root      string
	Core      string
	Facts     string
	Decisions string
	Playbooks string
	Episodic  string
}

// NewPaths roots a memory tree at projectRoot/.thunderus/memory.
func NewPaths(projectRoot string) Paths {
	root := filepath.Join(projectRoot, MemoryRootDirName, memoryDirName)
	semantic := filepath.Join(root, semanticDirName)
	procedural := filepath.Join(root, proceduralDirName)
	return Paths{
		Root:      root,
		Core:      filepath.Join(root, coreDirName),
		Facts:     filepath.Join(semantic, factsDirName),
		Decisions: filepath.Join(semantic, decisionsDirName),
		Playbooks: filepath.Join(procedural, playbooksDirName),
		Episodic:  filepath.Join(root, episodicDirName),
	}
}

func (p Paths) CoreMemoryFile() string      { return filepath.Join(p.Core, coreFileName) }
func (p Paths) CoreLocalMemoryFile() string { return filepath.Join(p.Core, coreLocalFileName) }
func (p Paths) ManifestFile() string        { return filepath.Join(p.Root, manifestFileName) }
func (p Paths) IndexFile() string           { return filepath.Join(p.Root, indexFileName) }

func (p Paths) FactFile(id string) string      { return filepath.Join(p.Facts, id+".md") }
func (p Paths) DecisionFile(adr string) string { return filepath.Join(p.Decisions, adr+".md") }
func (p Paths) PlaybookFile(id string) string  { return filepath.Join(p.Playbooks, id+".md") }
func (p Paths) RecapFile(sessionId string) string {
	return filepath.Join(p.Episodic, sessionId, "recap.md")
}

// Dirs returns every directory that must exist for the memory tree to be
// usable.
func (p Paths) Dirs() []string {
	return []string{p.Root, p.Core, p.Facts, p.Decisions, p.Playbooks, p.Episodic}
}

package discovery

import "time"

// ProjectType identifies the ecosystem a project belongs to
type ProjectType string

const (
	ProjectRust       ProjectType = "rust"
	ProjectJavaScript ProjectType = "javascript"
	ProjectPython     ProjectType = "python"
	ProjectGo         ProjectType = "go"
	ProjectKotlin     ProjectType = "kotlin"
	ProjectJava       ProjectType = "java"
	ProjectGit        ProjectType = "git"
	ProjectGeneric    ProjectType = "generic"
)

// ProjectInfo is the result of project detection
type ProjectInfo struct {
	Type           ProjectType `json:"type"`
	RootPath       string      `json:"root_path"`
	EntryPoints    []string    `json:"entry_points,omitempty"`    // relative paths
	ImportantFiles []string    `json:"important_files,omitempty"` // relative paths
	Confidence     float64     `json:"confidence"`                // 0..1
}

// FileType categorizes a candidate file
type FileType string

const (
	FileSource FileType = "source"
	FileTest   FileType = "test"
	FileConfig FileType = "config"
	FileDoc    FileType = "documentation"
	FileOther  FileType = "other"
)

// ImportanceFactor tags why a file scored the way it did
type ImportanceFactor string

const (
	FactorEntryPoint ImportanceFactor = "entry_point"
	FactorMainModule ImportanceFactor = "main_module"
	FactorManifest   ImportanceFactor = "manifest"
	FactorReadme     ImportanceFactor = "readme"
	FactorPriority   ImportanceFactor = "priority_match"
	FactorReferenced ImportanceFactor = "referenced"
	FactorQueryMatch ImportanceFactor = "query_match"
)

// FileScore holds the relevance assessment for one candidate file.
// Relevance is always in [0,1]; adjustments only ever raise it.
type FileScore struct {
	Path      string             `json:"path"` // relative to project root
	Relevance float64            `json:"relevance"`
	Type      FileType           `json:"type"`
	Factors   []ImportanceFactor `json:"factors,omitempty"`
	SizeBytes int64              `json:"size_bytes"`
}

// HasFactor reports whether the score carries the given importance factor
func (f *FileScore) HasFactor(factor ImportanceFactor) bool {
	for _, have := range f.Factors {
		if have == factor {
			return true
		}
	}
	return false
}

func (f *FileScore) addFactor(factor ImportanceFactor) {
	if !f.HasFactor(factor) {
		f.Factors = append(f.Factors, factor)
	}
}

// FileContent is a materialized file ready to hand to a model.
// Truncated marks explicit content loss; consumers can detect it.
type FileContent struct {
	Path      string `json:"path"`
	Content   string `json:"content"`
	Tokens    int    `json:"tokens"`
	Truncated bool   `json:"truncated,omitempty"`
}

// ChunkType categorizes a context chunk
type ChunkType string

const (
	ChunkOverview ChunkType = "overview"
	ChunkCore     ChunkType = "core"
	ChunkUtils    ChunkType = "utils"
	ChunkTests    ChunkType = "tests"
	ChunkConfig   ChunkType = "config"
	ChunkDocs     ChunkType = "docs"
)

// ContextChunk is one self-contained, budget-respecting group of files.
// Chunks are immutable once built; slice order is delivery order.
type ContextChunk struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Description     string        `json:"description"`
	Files           []FileContent `json:"files"`
	EstimatedTokens int           `json:"estimated_tokens"`
	Type            ChunkType     `json:"type"`
	Priority        float64       `json:"priority"`
}

// CacheEntry stores the outcome of one full project scan
type CacheEntry struct {
	ProjectPath string       `json:"project_path"`
	ConfigHash  string       `json:"config_hash"`
	Project     *ProjectInfo `json:"project"`
	Scores      []FileScore  `json:"scores"`
	CreatedAt   time.Time    `json:"created_at"`
}

// OptimizeStrategy selects how the optimizer handles files that exceed
// the remaining budget
type OptimizeStrategy string

const (
	// StrategyTruncate includes the first over-budget file with its
	// content cut to fit the remaining budget
	StrategyTruncate OptimizeStrategy = "truncate"
)

// OptimizationConfig is immutable for the lifetime of one discovery call
type OptimizationConfig struct {
	MaxTokens          int
	Strategy           OptimizeStrategy
	PreserveSignatures bool
	PreserveImports    bool
}

// SelectedFile is a scored file admitted by the optimizer. TokenBudget is
// the estimated token allotment the file may occupy after materialization.
type SelectedFile struct {
	FileScore
	TokenBudget int
	Truncated   bool
}

// Result is the outcome of one discovery call
type Result struct {
	Project     *ProjectInfo   `json:"project"`
	Scores      []FileScore    `json:"scores"`
	Files       []FileContent  `json:"files,omitempty"`
	Chunks      []ContextChunk `json:"chunks,omitempty"`
	Warnings    []string       `json:"warnings,omitempty"`
	FromCache   bool           `json:"from_cache"`
	TotalTokens int            `json:"total_tokens"`
}

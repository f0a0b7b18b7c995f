package discovery

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Base relevance by well-known file name. Entry points and main modules
// score highest; manifests and READMEs follow.
var entryPointScores = map[string]float64{
	"main.go":   0.90,
	"main.rs":   0.90,
	"main.py":   0.90,
	"main.js":   0.90,
	"main.ts":   0.90,
	"main.kt":   0.90,
	"main.java": 0.90,
	"index.js":  0.85,
	"index.ts":  0.85,
	"index.tsx": 0.85,
	"app.py":    0.85,
	"app.js":    0.85,
	"app.ts":    0.85,
	"lib.rs":    0.85,
	"manage.py": 0.80,
}

var moduleScores = map[string]float64{
	"mod.rs":      0.75,
	"__init__.py": 0.70,
}

var manifestScores = map[string]float64{
	"cargo.toml":          0.70,
	"package.json":        0.70,
	"go.mod":              0.70,
	"pyproject.toml":      0.70,
	"setup.py":            0.65,
	"requirements.txt":    0.65,
	"build.gradle":        0.65,
	"build.gradle.kts":    0.65,
	"settings.gradle":     0.60,
	"settings.gradle.kts": 0.60,
	"pom.xml":             0.65,
	"makefile":            0.60,
	"dockerfile":          0.55,
	"tsconfig.json":       0.55,
}

var docScores = map[string]float64{
	"readme.md":       0.75,
	"readme":          0.70,
	"readme.rst":      0.70,
	"architecture.md": 0.60,
	"contributing.md": 0.45,
	"changelog.md":    0.40,
}

// sourceExtensions map file extensions to a source-code classification
var sourceExtensions = map[string]bool{
	".go": true, ".rs": true, ".py": true, ".js": true, ".jsx": true,
	".ts": true, ".tsx": true, ".kt": true, ".kts": true, ".java": true,
	".c": true, ".h": true, ".cpp": true, ".cc": true, ".hpp": true,
	".rb": true, ".php": true, ".swift": true, ".scala": true, ".sh": true,
	".sql": true, ".proto": true, ".vue": true, ".svelte": true,
}

var configExtensions = map[string]bool{
	".yaml": true, ".yml": true, ".toml": true, ".json": true,
	".ini": true, ".env": true, ".cfg": true, ".conf": true, ".hcl": true,
}

var docExtensions = map[string]bool{
	".md": true, ".rst": true, ".txt": true, ".adoc": true,
}

// preferredDirs are top-level directories whose files get a small bonus
var preferredDirs = map[string]bool{
	"src": true, "cmd": true, "internal": true, "lib": true,
	"pkg": true, "app": true, "api": true,
}

const (
	baseSourceScore   = 0.50
	baseConfigScore   = 0.40
	baseDocScore      = 0.35
	baseOtherScore    = 0.25
	preferredDirBonus = 0.05
	priorityBonus     = 0.15
	depthPenalty      = 0.03 // per component beyond depth 2
	minDepthScore     = 0.10

	// dependency analysis: files at or above the threshold count as
	// referencing sources; referenced files gain the boost once
	depSourceThreshold = 0.70
	depBoost           = 0.30

	// query re-ranking bonuses, additive onto the base relevance
	queryNameBonus = 0.25
	queryPathBonus = 0.15

	// dependency extraction reads at most this many lines per file
	maxScanLines = 400
)

// FileAnalyzer scores candidate files. Scoring is deterministic: fixed
// tables, stable sorts, no clocks, no randomness.
type FileAnalyzer struct {
	cfg    Config
	logger *zap.Logger
}

// NewFileAnalyzer creates an analyzer for one discovery call
func NewFileAnalyzer(cfg Config, logger *zap.Logger) *FileAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileAnalyzer{cfg: cfg, logger: logger}
}

// AnalyzeFiles assigns a base relevance score to every candidate from
// path/name heuristics alone. Candidates are already filtered; anything
// passed in gets a score. Output is sorted by relevance descending with
// path as the tie-break.
func (a *FileAnalyzer) AnalyzeFiles(root string, paths []string, project *ProjectInfo) []FileScore {
	entrySet := make(map[string]bool)
	if project != nil {
		for _, rel := range project.EntryPoints {
			entrySet[filepath.ToSlash(rel)] = true
		}
	}

	scores := make([]FileScore, 0, len(paths))
	for _, rel := range paths {
		stat, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			continue // vanished since collection, skip
		}
		score := a.scoreFile(rel, stat.Size(), entrySet)
		scores = append(scores, score)
	}

	sortScores(scores)
	return scores
}

func (a *FileAnalyzer) scoreFile(rel string, size int64, entrySet map[string]bool) FileScore {
	base := strings.ToLower(filepath.Base(rel))

	score := FileScore{
		Path:      rel,
		Type:      classifyFileType(rel),
		SizeBytes: size,
	}

	switch {
	case entrySet[rel]:
		score.Relevance = 0.90
		if s, ok := entryPointScores[base]; ok && s > score.Relevance {
			score.Relevance = s
		}
		score.addFactor(FactorEntryPoint)
	default:
		if s, ok := entryPointScores[base]; ok {
			score.Relevance = s
			score.addFactor(FactorEntryPoint)
			break
		}
		if s, ok := moduleScores[base]; ok {
			score.Relevance = s
			score.addFactor(FactorMainModule)
			break
		}
		if s, ok := manifestScores[base]; ok {
			score.Relevance = s
			score.addFactor(FactorManifest)
			break
		}
		if s, ok := docScores[base]; ok {
			score.Relevance = s
			if strings.HasPrefix(base, "readme") {
				score.addFactor(FactorReadme)
			}
			break
		}
		switch score.Type {
		case FileSource, FileTest:
			score.Relevance = baseSourceScore
		case FileConfig:
			score.Relevance = baseConfigScore
		case FileDoc:
			score.Relevance = baseDocScore
		default:
			score.Relevance = baseOtherScore
		}
	}

	parts := strings.Split(rel, "/")
	if len(parts) > 1 && preferredDirs[parts[0]] {
		score.Relevance += preferredDirBonus
	}
	if depth := len(parts) - 1; depth > 2 {
		score.Relevance -= depthPenalty * float64(depth-2)
		if score.Relevance < minDepthScore {
			score.Relevance = minDepthScore
		}
	}
	if matchesAny(rel, a.cfg.PriorityPatterns) {
		score.Relevance += priorityBonus
		score.addFactor(FactorPriority)
	}

	score.Relevance = clampScore(score.Relevance)
	return score
}

// classifyFileType buckets a path into the coarse file taxonomy
func classifyFileType(rel string) FileType {
	if isTestPath(rel) {
		return FileTest
	}

	base := strings.ToLower(filepath.Base(rel))
	if _, ok := manifestScores[base]; ok {
		return FileConfig
	}
	if _, ok := docScores[base]; ok {
		return FileDoc
	}

	ext := filepath.Ext(base)
	switch {
	case sourceExtensions[ext]:
		return FileSource
	case configExtensions[ext]:
		return FileConfig
	case docExtensions[ext]:
		return FileDoc
	default:
		return FileOther
	}
}

// AnalyzeDependencies performs the second scoring pass: files referenced
// by a high-scoring file gain a bounded bonus. Boosting is additive and
// applied at most once per file; scores are clamped to 1.0 and never
// lowered. Only one hop is followed — a file referenced by a boosted file
// does not itself get boosted (known limitation, kept deliberately).
func (a *FileAnalyzer) AnalyzeDependencies(root string, scores []FileScore) {
	if len(scores) == 0 {
		return
	}

	// Index candidates by name stem for reference matching
	stems := make(map[string][]int)
	for i := range scores {
		stem := pathStem(scores[i].Path)
		stems[stem] = append(stems[stem], i)
	}

	// Snapshot the referencing sources before any boost is applied so
	// boosted files cannot become sources mid-pass
	var sources []int
	for i := range scores {
		if scores[i].Relevance >= depSourceThreshold {
			sources = append(sources, i)
		}
	}

	boosted := make(map[int]bool)
	for _, si := range sources {
		refs := a.extractReferences(root, scores[si].Path)
		for _, ref := range refs {
			for _, ti := range stems[ref] {
				if ti == si || boosted[ti] {
					continue
				}
				boosted[ti] = true
				scores[ti].Relevance = clampScore(scores[ti].Relevance + depBoost)
				scores[ti].addFactor(FactorReferenced)
			}
		}
	}

	sortScores(scores)
}

// extractReferences pulls imported/used module names out of a source file.
// Pattern-based, not an AST pass; close enough for ranking.
func (a *FileAnalyzer) extractReferences(root, rel string) []string {
	file, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		a.logger.Debug("skipping unreadable file in dependency pass",
			zap.String("path", rel), zap.Error(err))
		return nil
	}
	defer file.Close()

	extract := referenceExtractor(filepath.Ext(rel))
	if extract == nil {
		return nil
	}

	var refs []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(file)
	for lines := 0; scanner.Scan() && lines < maxScanLines; lines++ {
		for _, ref := range extract(scanner.Text()) {
			ref = strings.ToLower(ref)
			if ref != "" && !seen[ref] {
				seen[ref] = true
				refs = append(refs, ref)
			}
		}
	}
	return refs
}

var (
	goImportRe     = regexp.MustCompile(`"([^"]+)"`)
	jsImportRe     = regexp.MustCompile(`from\s+['"]([^'"]+)['"]|require\(\s*['"]([^'"]+)['"]`)
	pythonImportRe = regexp.MustCompile(`^\s*(?:from|import)\s+([\w.]+)`)
	rustUseRe      = regexp.MustCompile(`^\s*(?:pub\s+)?use\s+(?:crate::)?([\w:]+)`)
	rustModRe      = regexp.MustCompile(`^\s*(?:pub\s+)?mod\s+(\w+)`)
	javaImportRe   = regexp.MustCompile(`^\s*import\s+(?:static\s+)?([\w.]+)`)
)

// referenceExtractor returns a per-line reference extractor for the given
// file extension, or nil when the language is not recognized
func referenceExtractor(ext string) func(line string) []string {
	switch strings.ToLower(ext) {
	case ".go":
		return extractGoRefs
	case ".js", ".jsx", ".ts", ".tsx", ".mjs":
		return extractJSRefs
	case ".py":
		return extractPythonRefs
	case ".rs":
		return extractRustRefs
	case ".java", ".kt", ".kts":
		return extractJavaRefs
	default:
		return nil
	}
}

func extractGoRefs(line string) []string {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "import ") &&
		!(strings.HasPrefix(trimmed, `"`) && strings.HasSuffix(trimmed, `"`)) &&
		!strings.HasPrefix(trimmed, "_ \"") {
		return nil
	}
	m := goImportRe.FindStringSubmatch(trimmed)
	if len(m) < 2 {
		return nil
	}
	return []string{lastSegment(m[1], "/")}
}

func extractJSRefs(line string) []string {
	var refs []string
	for _, m := range jsImportRe.FindAllStringSubmatch(line, -1) {
		target := m[1]
		if target == "" {
			target = m[2]
		}
		target = strings.TrimSuffix(lastSegment(target, "/"), filepath.Ext(target))
		if target != "" {
			refs = append(refs, target)
		}
	}
	return refs
}

func extractPythonRefs(line string) []string {
	m := pythonImportRe.FindStringSubmatch(line)
	if len(m) < 2 {
		return nil
	}
	return []string{lastSegment(m[1], ".")}
}

func extractRustRefs(line string) []string {
	var refs []string
	if m := rustUseRe.FindStringSubmatch(line); len(m) > 1 {
		refs = append(refs, firstSegment(m[1], "::"))
	}
	if m := rustModRe.FindStringSubmatch(line); len(m) > 1 {
		refs = append(refs, m[1])
	}
	return refs
}

func extractJavaRefs(line string) []string {
	m := javaImportRe.FindStringSubmatch(line)
	if len(m) < 2 {
		return nil
	}
	return []string{lastSegment(m[1], ".")}
}

// FilterByQuery re-ranks scores by lexical overlap with a free-text query.
// Nothing is dropped: non-matching files keep their score and simply sort
// lower. An empty query returns an unmodified copy.
func (a *FileAnalyzer) FilterByQuery(scores []FileScore, query string) []FileScore {
	out := make([]FileScore, len(scores))
	copy(out, scores)

	terms := queryTerms(query)
	if len(terms) == 0 {
		return out
	}

	for i := range out {
		path := strings.ToLower(out[i].Path)
		name := strings.ToLower(filepath.Base(out[i].Path))
		var bonus float64
		for _, term := range terms {
			switch {
			case strings.Contains(name, term):
				bonus += queryNameBonus
			case strings.Contains(path, term):
				bonus += queryPathBonus
			}
		}
		if bonus > 0 {
			out[i].Relevance = clampScore(out[i].Relevance + bonus)
			out[i].addFactor(FactorQueryMatch)
		}
	}

	sortScores(out)
	return out
}

func queryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_')
	})
	var terms []string
	for _, f := range fields {
		if len(f) >= 2 {
			terms = append(terms, f)
		}
	}
	return terms
}

// sortScores orders by relevance descending, path ascending. The path
// tie-break keeps repeated scoring passes byte-identical.
func sortScores(scores []FileScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Relevance != scores[j].Relevance {
			return scores[i].Relevance > scores[j].Relevance
		}
		return scores[i].Path < scores[j].Path
	})
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// pathStem is the base name without extension, lowercased
func pathStem(rel string) string {
	base := filepath.Base(rel)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

func lastSegment(s, sep string) string {
	parts := strings.Split(s, sep)
	return parts[len(parts)-1]
}

func firstSegment(s, sep string) string {
	return strings.Split(s, sep)[0]
}

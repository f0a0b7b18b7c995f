package discovery

import "testing"

func makeScore(path string, relevance float64, sizeBytes int64) FileScore {
	return FileScore{Path: path, Relevance: relevance, Type: FileSource, SizeBytes: sizeBytes}
}

func TestOptimizerRespectsBudget(t *testing.T) {
	scores := []FileScore{
		makeScore("a.go", 0.9, 400),  // 100 tokens
		makeScore("b.go", 0.8, 400),  // 100 tokens
		makeScore("c.go", 0.7, 400),  // 100 tokens
		makeScore("d.go", 0.6, 4000), // 1000 tokens, never fits
	}

	opt := NewTokenOptimizer(OptimizationConfig{MaxTokens: 250, Strategy: StrategyTruncate})
	selected := opt.OptimizeFiles(scores)

	total := 0
	truncated := 0
	for _, sel := range selected {
		total += sel.TokenBudget
		if sel.Truncated {
			truncated++
		}
	}
	if total > 250 {
		t.Errorf("Selection budget exceeded: %d > 250", total)
	}
	if truncated > 1 {
		t.Errorf("At most one file may be truncated, got %d", truncated)
	}
}

func TestOptimizerSelectsByRelevance(t *testing.T) {
	scores := []FileScore{
		makeScore("low.go", 0.2, 400),
		makeScore("high.go", 0.9, 400),
		makeScore("mid.go", 0.5, 400),
	}

	opt := NewTokenOptimizer(OptimizationConfig{MaxTokens: 200, Strategy: StrategyTruncate})
	selected := opt.OptimizeFiles(scores)

	if len(selected) < 1 || selected[0].Path != "high.go" {
		t.Fatalf("Expected high.go selected first, got %v", selected)
	}
}

func TestOptimizerTruncatesFirstOverflow(t *testing.T) {
	scores := []FileScore{
		makeScore("first.go", 0.9, 400),  // 100 tokens
		makeScore("second.go", 0.8, 400), // 100 tokens, only 50 left
		makeScore("third.go", 0.7, 40),   // would fit, but selection stopped
	}

	opt := NewTokenOptimizer(OptimizationConfig{MaxTokens: 150, Strategy: StrategyTruncate})
	selected := opt.OptimizeFiles(scores)

	if len(selected) != 2 {
		t.Fatalf("Expected 2 selections, got %d: %v", len(selected), selected)
	}
	if selected[0].Truncated {
		t.Error("First file fits and must not be truncated")
	}
	last := selected[1]
	if !last.Truncated {
		t.Error("Overflowing file must be marked truncated")
	}
	if last.TokenBudget != 50 {
		t.Errorf("Truncated allotment should be the remaining 50 tokens, got %d", last.TokenBudget)
	}
}

func TestOptimizerEmptyInput(t *testing.T) {
	opt := NewTokenOptimizer(OptimizationConfig{MaxTokens: 100})
	if selected := opt.OptimizeFiles(nil); len(selected) != 0 {
		t.Errorf("Expected empty selection, got %v", selected)
	}
}

func TestOptimizerDoesNotMutateInput(t *testing.T) {
	scores := []FileScore{
		makeScore("z.go", 0.5, 400),
		makeScore("a.go", 0.9, 400),
	}
	opt := NewTokenOptimizer(OptimizationConfig{MaxTokens: 1000})
	opt.OptimizeFiles(scores)

	if scores[0].Path != "z.go" {
		t.Error("OptimizeFiles reordered its input slice")
	}
}

package discovery

// TokenOptimizer selects the subset of scored files that fits a token
// budget. Token costs are the character-count approximation from
// EstimateTokens — fast, not tokenizer-exact.
type TokenOptimizer struct {
	cfg OptimizationConfig
}

// NewTokenOptimizer creates an optimizer for one discovery call
func NewTokenOptimizer(cfg OptimizationConfig) *TokenOptimizer {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyTruncate
	}
	return &TokenOptimizer{cfg: cfg}
}

// OptimizeFiles walks the scores in descending relevance order and admits
// files while their cumulative estimated cost stays within MaxTokens.
// Under StrategyTruncate, the first file that no longer fits is still
// admitted with its token allotment cut to the remaining budget — content
// loss stays explicit via the Truncated flag — and selection stops there,
// so at most one selected file is ever truncated.
func (o *TokenOptimizer) OptimizeFiles(scores []FileScore) []SelectedFile {
	ordered := make([]FileScore, len(scores))
	copy(ordered, scores)
	sortScores(ordered)

	remaining := o.cfg.MaxTokens
	selected := make([]SelectedFile, 0, len(ordered))

	for _, score := range ordered {
		if remaining <= 0 {
			break
		}
		cost := EstimateFileTokens(score.SizeBytes)
		if cost <= remaining {
			selected = append(selected, SelectedFile{
				FileScore:   score,
				TokenBudget: cost,
			})
			remaining -= cost
			continue
		}
		if o.cfg.Strategy == StrategyTruncate {
			selected = append(selected, SelectedFile{
				FileScore:   score,
				TokenBudget: remaining,
				Truncated:   true,
			})
		}
		break
	}

	return selected
}

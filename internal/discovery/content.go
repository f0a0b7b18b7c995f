package discovery

import (
	"fmt"
	"os"
	"path/filepath"
)

// loadSelected reads one selected file from disk and cuts it to its token
// allotment when needed
func loadSelected(root string, sel SelectedFile) (FileContent, error) {
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(sel.Path)))
	if err != nil {
		return FileContent{}, fmt.Errorf("read %s: %w", sel.Path, err)
	}
	return fitContent(sel.Path, string(data), sel.TokenBudget), nil
}

// fitContent returns the file content cut to the given token budget. A cut
// is never silent: the content gets an explicit trailing marker and the
// Truncated flag, and the post-cut estimate stays within the budget.
func fitContent(path, text string, budgetTokens int) FileContent {
	if EstimateTokens(text) <= budgetTokens {
		return FileContent{
			Path:    path,
			Content: text,
			Tokens:  EstimateTokens(text),
		}
	}

	limit := budgetTokens * charsPerToken
	marker := fmt.Sprintf("\n...[truncated, %d chars total]", len(text))
	keep := limit - len(marker)
	if keep < 0 {
		keep = 0
	}
	if keep > len(text) {
		keep = len(text)
	}
	content := text[:keep] + marker
	if len(content) > limit {
		content = content[:limit]
	}

	return FileContent{
		Path:      path,
		Content:   content,
		Tokens:    EstimateTokens(content),
		Truncated: true,
	}
}

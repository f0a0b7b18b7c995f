package discovery

import (
	"fmt"
	"strings"
)

const previewBarWidth = 10

// FormatPreview renders a human-readable summary of a discovery result:
// file count, estimated tokens against the budget, and a per-file
// relevance bar with importance tags. Safe to show before any network
// call is made.
func FormatPreview(res *Result, maxTokens int) string {
	if res == nil {
		return ""
	}

	var sb strings.Builder
	source := "fresh scan"
	if res.FromCache {
		source = "cached"
	}
	fmt.Fprintf(&sb, "Project: %s (confidence %.2f, %s)\n",
		res.Project.Type, res.Project.Confidence, source)

	if len(res.Chunks) > 0 {
		fmt.Fprintf(&sb, "Chunks: %d, ~%d tokens total\n", len(res.Chunks), res.TotalTokens)
		for _, chunk := range res.Chunks {
			fmt.Fprintf(&sb, "  [%s] %-12s %2d files  ~%d tokens  (priority %.2f)\n",
				chunk.Type, chunk.Name, len(chunk.Files), chunk.EstimatedTokens, chunk.Priority)
		}
		return sb.String()
	}

	fmt.Fprintf(&sb, "Selection: %d files, ~%d/%d tokens\n",
		len(res.Files), res.TotalTokens, maxTokens)

	relevance := make(map[string]*FileScore, len(res.Scores))
	for i := range res.Scores {
		relevance[res.Scores[i].Path] = &res.Scores[i]
	}
	for _, file := range res.Files {
		score := relevance[file.Path]
		if score == nil {
			continue
		}
		line := fmt.Sprintf("  [%s] %.2f  %s", relevanceBar(score.Relevance), score.Relevance, file.Path)
		var tags []string
		for _, factor := range score.Factors {
			tags = append(tags, string(factor))
		}
		if file.Truncated {
			tags = append(tags, "truncated")
		}
		if len(tags) > 0 {
			line += " (" + strings.Join(tags, ", ") + ")"
		}
		sb.WriteString(line + "\n")
	}

	for _, warning := range res.Warnings {
		fmt.Fprintf(&sb, "  ! %s\n", warning)
	}
	return sb.String()
}

func relevanceBar(relevance float64) string {
	filled := int(relevance*previewBarWidth + 0.5)
	if filled > previewBarWidth {
		filled = previewBarWidth
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", previewBarWidth-filled)
}

// Package risk computes a bounded, deterministic risk assessment for a
// project from aggregated code metrics and static findings (C3).
package risk

import (
	"strings"

	"github.com/aidino/aicode-reviewer/internal/model"
)

var branchKeywords = []string{"if", "elif", "for", "while", "except", "and", "or"}

// FallbackFileMetrics computes per-file metrics from raw source text when no
// external metrics collaborator is available. It is a deterministic,
// language-agnostic stand-in: callers only invoke it for source files in a
// supported language, per §4.3.
func FallbackFileMetrics(source string) model.FileMetrics {
	// A trailing newline ends the last line; it does not start another one.
	lines := strings.Split(strings.TrimSuffix(source, "\n"), "\n")

	var blank, comment int
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			blank++
		case strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//"):
			comment++
		}
	}
	logical := len(lines) - blank - comment

	complexity := 1
	for _, line := range lines {
		complexity += countBranchTokens(line)
	}

	var mi float64
	if logical > 0 {
		base := 100 - float64(logical)/10
		if base < 0 {
			base = 0
		}
		mi = base + (float64(comment)/float64(logical))*20
		if mi > 100 {
			mi = 100
		}
	}

	return model.FileMetrics{
		LinesOfCode:          len(lines),
		BlankLines:           blank,
		CommentLines:         comment,
		LogicalLines:         logical,
		CyclomaticComplexity: complexity,
		MaintainabilityIndex: mi,
	}
}

func countBranchTokens(line string) int {
	count := 0
	for _, tok := range strings.Fields(line) {
		tok = strings.Trim(tok, "(){}:,;")
		for _, kw := range branchKeywords {
			if tok == kw {
				count++
			}
		}
	}
	return count
}

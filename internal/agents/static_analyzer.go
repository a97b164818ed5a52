package agents

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aidino/aicode-reviewer/internal/model"
)

const maxLineLength = 120

var (
	todoPattern       = regexp.MustCompile(`(?i)\b(TODO|FIXME|HACK)\b`)
	bareExceptPattern = regexp.MustCompile(`^\s*except\s*:`)
	debugPrintPattern = regexp.MustCompile(`\b(console\.log|print)\s*\(`)
	pdbTracePattern   = regexp.MustCompile(`\bpdb\.set_trace\s*\(`)
	secretPattern     = regexp.MustCompile(`(?i)(api_key|secret|password|token)\s*=\s*["'][^"']+["']`)
)

// HeuristicStaticAnalyzer flags a small, stable set of line-level smells
// across every parsed file. Rule IDs and categories are deliberately kept
// constant strings so downstream risk scoring and reporting can key off
// them reliably.
type HeuristicStaticAnalyzer struct{}

// NewHeuristicStaticAnalyzer constructs a HeuristicStaticAnalyzer.
func NewHeuristicStaticAnalyzer() *HeuristicStaticAnalyzer { return &HeuristicStaticAnalyzer{} }

func (a *HeuristicStaticAnalyzer) Analyze(parsed map[string]model.ParsedFile) ([]model.Finding, error) {
	var findings []model.Finding
	for path, file := range parsed {
		source, ok := file.TreeHandle.(string)
		if !ok {
			continue
		}
		findings = append(findings, analyzeLines(path, source)...)
	}
	return findings, nil
}

func analyzeLines(path, source string) []model.Finding {
	var findings []model.Finding
	for i, line := range strings.Split(source, "\n") {
		lineNo := i + 1

		if len(line) > maxLineLength {
			findings = append(findings, model.Finding{
				RuleID: "style.long-line", Message: fmt.Sprintf("line exceeds %d characters", maxLineLength),
				File: path, Line: lineNo, Severity: model.SeverityInfo, Category: "style",
			})
		}
		if todoPattern.MatchString(line) {
			findings = append(findings, model.Finding{
				RuleID: "maintainability.todo-comment", Message: "unresolved TODO/FIXME/HACK marker",
				File: path, Line: lineNo, Severity: model.SeverityInfo, Category: "maintainability",
			})
		}
		if bareExceptPattern.MatchString(line) {
			findings = append(findings, model.Finding{
				RuleID: "quality.bare-except", Message: "bare except clause swallows all exceptions",
				File: path, Line: lineNo, Severity: model.SeverityWarning, Category: "code_quality",
				Suggestion: "catch a specific exception type",
			})
		}
		if debugPrintPattern.MatchString(line) {
			findings = append(findings, model.Finding{
				RuleID: "PRINT_STATEMENT_FOUND", Message: "print() statement found - use logging instead",
				File: path, Line: lineNo, Severity: model.SeverityInfo, Category: "code_quality",
			})
		}
		if pdbTracePattern.MatchString(line) {
			findings = append(findings, model.Finding{
				RuleID: "PDB_TRACE_FOUND", Message: "pdb.set_trace() found - remove before production",
				File: path, Line: lineNo, Severity: model.SeverityWarning, Category: "code_quality",
				Suggestion: "remove debugger breakpoint before merging",
			})
		}
		if secretPattern.MatchString(line) {
			findings = append(findings, model.Finding{
				RuleID: "security.hardcoded-secret", Message: "possible hardcoded credential",
				File: path, Line: lineNo, Severity: model.SeverityError, Category: "security",
				Suggestion: "load this value from configuration or a secret store instead",
			})
		}
	}
	return findings
}

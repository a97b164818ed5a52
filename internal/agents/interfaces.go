// Package agents defines the polymorphic contracts the orchestrator (C5)
// speaks through, plus mock implementations suitable for tests and for
// wiring before a real analysis backend is available (C4).
package agents

import "github.com/aidino/aicode-reviewer/internal/model"

// CodeFetcher retrieves PR diffs and whole-project file sets.
type CodeFetcher interface {
	GetPRDiff(repoURL, prID, targetBranch, sourceBranch string) (string, error)
	GetProjectFiles(repoURL, branch string) (map[string]string, error)
	GetChangedFilesFromDiff(diff string) ([]string, error)
}

// ASTParser turns source text into an opaque parsed-tree handle plus a
// structural summary. Unsupported or binary files are omitted from the
// result rather than failing the whole batch.
type ASTParser interface {
	Parse(files map[string]string) (map[string]model.ParsedFile, error)
}

// StaticAnalyzer produces a list of findings from parsed files. An empty
// result is valid.
type StaticAnalyzer interface {
	Analyze(parsed map[string]model.ParsedFile) ([]model.Finding, error)
}

// LLMClient produces free-text insight. An empty return means "no LLM
// analysis" to the orchestrator, not an error.
type LLMClient interface {
	AnalyzePRDiff(diff string, findings []model.Finding) (string, error)
	AnalyzeCode(files map[string]string, findings []model.Finding) (string, error)
}

// ProjectScanner performs whole-project analysis, only invoked on
// project-wide scans.
type ProjectScanner interface {
	ScanEntireProject(files map[string]string, findings []model.Finding) (model.ProjectScanResult, error)
}

// ImpactAnalyzer traces how a set of changed files propagates through a
// dependency graph.
type ImpactAnalyzer interface {
	Analyze(diff string, dependencyGraph map[string][]string, changedFiles []string) ([]model.ImpactedEntity, error)
}

// Reporter assembles the final report from accumulated findings and
// insight text. Must be callable with empty inputs without failing.
type Reporter interface {
	Generate(findings []model.Finding, insights string, scanDetails model.ScanInfo) (model.ReportData, string, string, error)
}

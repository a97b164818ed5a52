package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aidino/aicode-reviewer/internal/model"
)

// stageStartScan validates the inbound request and seeds metadata. On a
// missing repository URL it routes straight to ERROR (§4.5 stage 1).
func stageStartScan(_ context.Context, o *Orchestrator, state *model.GraphState) {
	if strings.TrimSpace(state.Request.RepoURL) == "" {
		state.Error = "Repository URL is required"
		state.CurrentStep = model.StepError
		return
	}

	state.RepoURL = state.Request.RepoURL
	state.PRID = state.Request.PRID
	if state.Metadata == nil {
		state.Metadata = make(map[string]any)
	}
	state.Metadata["scan_type"] = string(state.Request.ScanType)
	state.Metadata["started_at"] = o.clock()
	if state.Request.Options != nil {
		state.Metadata["options"] = state.Request.Options
	}
	state.CurrentStep = model.StepFetchCode
}

// stageFetchCode implements the PR-then-project fallback of §4.5 stage 2:
// a PR scan that cannot obtain a diff degrades to a project scan on the
// source branch, recording metadata.fallback_mode so the distinction
// survives into the report (P9 fallback exclusivity).
func stageFetchCode(_ context.Context, o *Orchestrator, state *model.GraphState) {
	branch := resolveBranch(state.Request)
	target := state.Request.TargetBranch

	if state.PRID != "" {
		diff, err := o.bundle.Fetcher.GetPRDiff(state.RepoURL, state.PRID, target, branch)
		if err == nil && strings.TrimSpace(diff) != "" {
			state.PRDiff = diff
			changed, _ := o.bundle.Fetcher.GetChangedFilesFromDiff(diff)
			state.Metadata["changed_files"] = changed
			state.CurrentStep = model.StepParseCode
			return
		}

		state.Metadata["fallback_mode"] = true
		files, ferr := o.bundle.Fetcher.GetProjectFiles(state.RepoURL, branch)
		if ferr != nil || len(files) == 0 {
			state.Error = fmt.Sprintf("fetch_code: PR diff unavailable (%v) and project fallback produced no files", firstNonNil(err, ferr))
			state.CurrentStep = model.StepError
			return
		}
		state.ProjectCode = files
		state.CurrentStep = model.StepParseCode
		return
	}

	files, err := o.bundle.Fetcher.GetProjectFiles(state.RepoURL, branch)
	if err != nil || len(files) == 0 {
		state.Error = fmt.Sprintf("fetch_code: no project files retrieved: %v", err)
		state.CurrentStep = model.StepError
		return
	}
	state.ProjectCode = files
	state.CurrentStep = model.StepParseCode
}

func resolveBranch(req model.ScanRequest) string {
	if req.SourceBranch != "" {
		return req.SourceBranch
	}
	return req.Branch
}

func firstNonNil(errs ...error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// stageParseCode invokes ASTParser on whichever of project_code/pr_diff is
// present. When only a diff exists and no per-file content can be
// extracted, it synthesizes a single diff_summary entry rather than
// failing the stage (§4.5 stage 3).
func stageParseCode(_ context.Context, o *Orchestrator, state *model.GraphState) {
	switch {
	case len(state.ProjectCode) > 0:
		parsed, err := o.bundle.Parser.Parse(state.ProjectCode)
		if err != nil {
			state.Error = fmt.Sprintf("parse_code: %v", err)
			state.CurrentStep = model.StepError
			return
		}
		if len(parsed) == 0 {
			state.Error = "parse_code: no files could be parsed"
			state.CurrentStep = model.StepError
			return
		}
		state.ParsedASTs = parsed

	case state.PRDiff != "":
		state.ParsedASTs = map[string]model.ParsedFile{
			"diff_summary": {
				TreeHandle:        state.PRDiff,
				StructuralSummary: model.StructuralSummary{},
			},
		}
		state.Metadata["diff_summary_note"] = "kind=diff: individual files could not be extracted from the unified diff"

	default:
		state.Error = "parse_code: neither project_code nor pr_diff is present"
		state.CurrentStep = model.StepError
		return
	}
	state.CurrentStep = model.StepStaticAnalysis
}

// stageStaticAnalysis runs StaticAnalyzer over the parsed map, then picks
// the conditional edge of §4.5 stage 5: PR scans go to impact analysis,
// whole-project scans with no PR id go to project scanning, everything
// else goes straight to LLM analysis. A diff (and so the diff_summary-only
// parse) exists only when a PR id is set, so that path goes to impact
// analysis.
func stageStaticAnalysis(_ context.Context, o *Orchestrator, state *model.GraphState) {
	if len(state.ParsedASTs) == 0 {
		state.Error = "static_analysis: no parsed files available"
		state.CurrentStep = model.StepError
		return
	}

	findings, err := o.bundle.Analyzer.Analyze(state.ParsedASTs)
	if err != nil {
		state.Error = fmt.Sprintf("static_analysis: %v", err)
		state.CurrentStep = model.StepError
		return
	}
	state.StaticFindings = findings

	switch {
	case state.PRID != "":
		state.CurrentStep = model.StepImpactAnalysis
	case len(state.ProjectCode) > 0:
		state.CurrentStep = model.StepProjectScanning
	default:
		state.CurrentStep = model.StepLLMAnalysis
	}
}

// stageImpactAnalysis traces changed-file propagation through a
// dependency graph inferred from parsed imports. Failures here are
// recorded but non-fatal (§4.5 stage 6): the scan always continues to
// LLM analysis regardless of outcome.
func stageImpactAnalysis(_ context.Context, o *Orchestrator, state *model.GraphState) {
	changed, _ := state.Metadata["changed_files"].([]string)
	graph := dependencyGraph(state.ParsedASTs)

	result, err := o.bundle.ImpactAnalyzer.Analyze(state.PRDiff, graph, changed)
	if err != nil {
		state.Metadata["impact_analysis_error"] = err.Error()
	} else {
		state.ImpactResult = result
	}
	state.CurrentStep = model.StepLLMAnalysis
}

// dependencyGraph derives a best-effort forward dependency edge set
// (importee -> importer) from each file's structural summary, matching
// import paths to parsed files by basename stem. There is no real module
// resolver in scope (§1 Non-goals); this is the closest signal available
// to the impact analyzer's BFS without one.
func dependencyGraph(parsed map[string]model.ParsedFile) map[string][]string {
	stems := make(map[string]string, len(parsed))
	for p := range parsed {
		stems[stemOf(p)] = p
	}

	graph := make(map[string][]string)
	for p, pf := range parsed {
		for _, imp := range pf.StructuralSummary.Imports {
			dep, ok := stems[stemOf(imp)]
			if !ok || dep == p {
				continue
			}
			graph[dep] = append(graph[dep], p)
		}
	}
	return graph
}

func stemOf(p string) string {
	base := path.Base(p)
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[:i]
	}
	return base
}

// stageProjectScanning invokes ProjectScanner on whole-project scans and
// bypasses llm_analysis entirely (§4.5 stage 7): the project scanner
// already produces an architectural summary, so a redundant LLM pass adds
// nothing.
func stageProjectScanning(_ context.Context, o *Orchestrator, state *model.GraphState) {
	result, err := o.bundle.ProjectScanner.ScanEntireProject(state.ProjectCode, state.StaticFindings)
	if err != nil {
		state.Error = fmt.Sprintf("project_scanning: %v", err)
		state.CurrentStep = model.StepError
		return
	}
	state.ProjectScanResult = &result
	state.Metadata["project_scan_completed"] = true
	if result.RiskAssessment != nil {
		state.Metadata["risk_level"] = string(result.RiskAssessment.RiskLevel)
	}
	state.Metadata["recommendations_count"] = len(result.Recommendations)
	state.CurrentStep = model.StepReporting
}

// stageLLMAnalysis invokes LLMClient against whichever of diff/files is
// present, then routes per §4.5 stage 8: if project scanning already ran,
// or this is a PR scan, go straight to reporting; otherwise (a project
// scan reached here without project_scan_completed set — not expected on
// the documented paths, but kept as the spec's explicit fallback) proceed
// to project scanning.
func stageLLMAnalysis(_ context.Context, o *Orchestrator, state *model.GraphState) {
	var insight string
	var err error
	if state.PRDiff != "" {
		insight, err = o.bundle.LLM.AnalyzePRDiff(state.PRDiff, state.StaticFindings)
	} else {
		insight, err = o.bundle.LLM.AnalyzeCode(state.ProjectCode, state.StaticFindings)
	}
	if err != nil {
		state.Error = fmt.Sprintf("llm_analysis: %v", err)
		state.CurrentStep = model.StepError
		return
	}
	state.LLMInsights = insight

	switch {
	case state.Metadata["project_scan_completed"] == true:
		state.CurrentStep = model.StepReporting
	case state.PRID != "":
		state.CurrentStep = model.StepReporting
	default:
		state.CurrentStep = model.StepProjectScanning
	}
}

// stageReporting assembles the final report from accumulated state
// (§4.5 stage 9) and always terminates in COMPLETED.
func stageReporting(_ context.Context, o *Orchestrator, state *model.GraphState) {
	info := buildScanInfo(state, o.clock())

	data, markdown, jsonStr, err := o.bundle.Reporter.Generate(state.StaticFindings, state.LLMInsights, info)
	if err != nil {
		state.Error = fmt.Sprintf("reporting: %v", err)
		state.CurrentStep = model.StepError
		return
	}

	data.ScanInfo = info
	data.Metadata.GenerationTime = o.clock()
	data.Metadata.SuccessfulParses = len(state.ParsedASTs)
	data.Metadata.TotalFilesAnalyzed = len(state.ProjectCode)
	if data.Metadata.TotalFilesAnalyzed == 0 {
		data.Metadata.TotalFilesAnalyzed = len(state.ParsedASTs)
	}
	data.Metadata.AgentVersions = map[string]string{
		"fetcher":         fmt.Sprintf("%T", o.bundle.Fetcher),
		"parser":          fmt.Sprintf("%T", o.bundle.Parser),
		"static_analyzer": fmt.Sprintf("%T", o.bundle.Analyzer),
		"llm_client":      fmt.Sprintf("%T", o.bundle.LLM),
		"project_scanner": fmt.Sprintf("%T", o.bundle.ProjectScanner),
		"impact_analyzer": fmt.Sprintf("%T", o.bundle.ImpactAnalyzer),
		"reporter":        fmt.Sprintf("%T", o.bundle.Reporter),
	}

	state.ReportData = &data
	state.ReportMarkdown = markdown
	state.ReportJSON = jsonStr
	state.CurrentStep = model.StepCompleted
}

// stageHandleError writes a minimal error report — never the product of
// the full Reporter pipeline (§7: "No partial real report is ever emitted
// on error") — and terminates in ERROR_HANDLED.
func stageHandleError(_ context.Context, o *Orchestrator, state *model.GraphState) {
	now := o.clock()
	info := buildScanInfo(state, now)

	data := model.ReportData{
		ScanInfo: info,
		Summary: model.Summary{
			ScanStatus:   "error",
			ErrorMessage: state.Error,
		},
		Metadata: model.ReportMetadata{
			GenerationTime: now,
			Error:          state.Error,
		},
	}

	state.ReportData = &data
	state.ReportMarkdown = fmt.Sprintf("# Code Review Report\n\n**Status:** error\n\n%s\n", state.Error)
	jsonBytes, jerr := json.MarshalIndent(data, "", "  ")
	if jerr == nil {
		state.ReportJSON = string(jsonBytes)
	}
	state.CurrentStep = model.StepErrorHandled
}

func buildScanInfo(state *model.GraphState, now time.Time) model.ScanInfo {
	scanID, _ := state.Metadata["scan_id"].(string)
	return model.ScanInfo{
		ScanID:        scanID,
		Repository:    state.RepoURL,
		PRID:          state.PRID,
		Branch:        resolveBranch(state.Request),
		ScanType:      state.Request.ScanType,
		Timestamp:     now,
		ReportVersion: "1.0",
	}
}

package model

import "time"

// StepName identifies a workflow stage. It doubles as the routing function's
// return value: Run dispatches to the stage whose name matches CurrentStep.
type StepName string

const (
	StepStartScan        StepName = "start_scan"
	StepFetchCode        StepName = "fetch_code"
	StepParseCode        StepName = "parse_code"
	StepStaticAnalysis   StepName = "static_analysis"
	StepImpactAnalysis   StepName = "impact_analysis"
	StepProjectScanning  StepName = "project_scanning"
	StepLLMAnalysis      StepName = "llm_analysis"
	StepReporting        StepName = "reporting"
	StepHandleError      StepName = "handle_error"
	StepError            StepName = "ERROR"
	StepCompleted        StepName = "COMPLETED"
	StepErrorHandled     StepName = "ERROR_HANDLED"
)

// ProjectScanResult is ProjectScanner's output, populated only for
// whole-project scans.
type ProjectScanResult struct {
	ComplexityMetrics     map[string]any
	RiskAssessment        *RiskAssessment
	Recommendations       []Recommendation
	ArchitecturalAnalysis map[string]any
}

// ReportData is Reporter's structured output, mirrored into Markdown/JSON
// text for the external report shape (§6).
type ReportData struct {
	ScanInfo              ScanInfo
	Summary               Summary
	StaticAnalysisFindings []Finding
	LLMReview             LLMReview
	Diagrams              []Diagram
	Metadata              ReportMetadata
}

type ScanInfo struct {
	ScanID        string
	Repository    string
	PRID          string
	Branch        string
	ScanType      ScanType
	Timestamp     time.Time
	ReportVersion string
}

type Summary struct {
	TotalFindings      int
	SeverityBreakdown  map[Severity]int
	CategoryBreakdown  map[string]int
	ScanStatus         string
	HasLLMAnalysis     bool
	ErrorMessage       string
}

type LLMReview struct {
	Insights   string
	HasContent bool
	Sections   map[string]string
}

type Diagram struct {
	Type        string
	Format      string
	Content     string
	Title       string
	Description string
}

type ReportMetadata struct {
	AgentVersions       map[string]string
	GenerationTime      time.Time
	TotalFilesAnalyzed  int
	SuccessfulParses    int
	Error               string
}

// GraphState is the single mutable record threaded through every workflow
// stage. request is immutable; everything else is mutated in place by the
// stage that owns it, which returns only the fields it changed.
type GraphState struct {
	Request ScanRequest

	RepoURL string
	PRID    string

	ProjectCode map[string]string // path -> file content
	PRDiff      string

	ParsedASTs     map[string]ParsedFile
	StaticFindings []Finding
	LLMInsights    string

	ProjectScanResult *ProjectScanResult
	ImpactResult      []ImpactedEntity

	ReportData     *ReportData
	ReportMarkdown string
	ReportJSON     string

	Error       string
	CurrentStep StepName
	Metadata    map[string]any
}

// NewGraphState builds the initial state for a scan request. metadata is
// always non-nil so stages can write into it without a nil check.
func NewGraphState(req ScanRequest) *GraphState {
	return &GraphState{
		Request:     req,
		RepoURL:     req.RepoURL,
		PRID:        req.PRID,
		Metadata:    make(map[string]any),
		CurrentStep: StepStartScan,
	}
}

// Terminal reports whether the state has reached a stage that ends the
// workflow (P1: COMPLETED or ERROR_HANDLED).
func (gs *GraphState) Terminal() bool {
	return gs.CurrentStep == StepCompleted || gs.CurrentStep == StepErrorHandled
}

// Failed reports whether the scan ended (or is ending) in error.
func (gs *GraphState) Failed() bool {
	return gs.Error != ""
}

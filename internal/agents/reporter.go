package agents

import (
	"bytes"
	"encoding/json"
	"fmt"
	"text/template"

	"github.com/aidino/aicode-reviewer/internal/model"
)

// reportTemplate renders ReportData into the markdown shape of the
// external report (§6). It must render sensibly even with zero findings
// and no LLM insight.
const reportTemplate = `# Code Review Report

**Scan ID:** {{ .Info.ScanID }}
**Repository:** {{ .Info.Repository }}
{{- if .Info.PRID }}
**Pull Request:** {{ .Info.PRID }}
{{- end }}
**Branch:** {{ .Info.Branch }}
**Generated:** {{ .Info.Timestamp.Format "2006-01-02T15:04:05Z07:00" }}

## Summary

- Total findings: {{ .Summary.TotalFindings }}
- Status: {{ .Summary.ScanStatus }}
{{- range $severity, $count := .Summary.SeverityBreakdown }}
- {{ $severity }}: {{ $count }}
{{- end }}

{{ if .Findings }}## Findings
{{ range .Findings }}
- **[{{ .Severity }}]** {{ .File }}:{{ .Line }} ({{ .RuleID }}) — {{ .Message }}
{{- end }}
{{ else }}No static analysis findings.
{{ end }}
{{ if .LLM.HasContent }}## LLM Review

{{ .LLM.Insights }}
{{ end }}`

// TemplateReporter renders the final ReportData into markdown via
// text/template and into JSON via encoding/json.
type TemplateReporter struct {
	tpl *template.Template
}

// NewTemplateReporter parses the report template once at construction.
func NewTemplateReporter() (*TemplateReporter, error) {
	tpl, err := template.New("report").Parse(reportTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}
	return &TemplateReporter{tpl: tpl}, nil
}

type reportView struct {
	Info     model.ScanInfo
	Summary  model.Summary
	Findings []model.Finding
	LLM      model.LLMReview
}

func (r *TemplateReporter) Generate(findings []model.Finding, insights string, scanInfo model.ScanInfo) (model.ReportData, string, string, error) {
	severityBreakdown := make(map[model.Severity]int)
	categoryBreakdown := make(map[string]int)
	for _, f := range findings {
		severityBreakdown[f.Severity]++
		categoryBreakdown[f.Category]++
	}

	llm := model.LLMReview{Insights: insights, HasContent: insights != ""}

	data := model.ReportData{
		ScanInfo: scanInfo,
		Summary: model.Summary{
			TotalFindings:     len(findings),
			SeverityBreakdown: severityBreakdown,
			CategoryBreakdown: categoryBreakdown,
			ScanStatus:        "completed",
			HasLLMAnalysis:    llm.HasContent,
		},
		StaticAnalysisFindings: findings,
		LLMReview:              llm,
		Metadata: model.ReportMetadata{
			GenerationTime:     scanInfo.Timestamp,
			TotalFilesAnalyzed: len(findings),
		},
	}

	var buf bytes.Buffer
	view := reportView{Info: scanInfo, Summary: data.Summary, Findings: findings, LLM: llm}
	if err := r.tpl.Execute(&buf, view); err != nil {
		return model.ReportData{}, "", "", fmt.Errorf("render report markdown: %w", err)
	}

	jsonBytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return model.ReportData{}, "", "", fmt.Errorf("marshal report json: %w", err)
	}

	return data, buf.String(), string(jsonBytes), nil
}

package agents

import (
	"github.com/aidino/aicode-reviewer/internal/model"
	"github.com/aidino/aicode-reviewer/internal/risk"
)

const (
	highComplexityThreshold   = 10
	lowMaintainabilityThreshold = 20.0
	largeFileLineThreshold    = 500
)

// RiskProjectScanner aggregates per-file fallback metrics into whole-project
// complexity metrics, runs them through the risk predictor, and derives a
// minimal architectural summary from each file's import list.
type RiskProjectScanner struct {
	predictor *risk.Predictor
}

// NewRiskProjectScanner constructs a RiskProjectScanner using the
// specification's default risk weights.
func NewRiskProjectScanner() *RiskProjectScanner {
	return &RiskProjectScanner{predictor: risk.NewDefault()}
}

func (s *RiskProjectScanner) ScanEntireProject(files map[string]string, findings []model.Finding) (model.ProjectScanResult, error) {
	metrics, complexityDetail := aggregateMetrics(files)
	assessment := s.predictor.Predict(metrics, findings, nil)

	architectural := buildArchitecturalAnalysis(files)

	return model.ProjectScanResult{
		ComplexityMetrics:     complexityDetail,
		RiskAssessment:        &assessment,
		Recommendations:       assessment.Recommendations,
		ArchitecturalAnalysis: architectural,
	}, nil
}

func aggregateMetrics(files map[string]string) (model.CodeMetrics, map[string]any) {
	var m model.CodeMetrics
	m.FileCount = len(files)

	var complexitySum, maintainSum float64
	for _, source := range files {
		fm := risk.FallbackFileMetrics(source)
		m.TotalLines += fm.LinesOfCode

		complexitySum += float64(fm.CyclomaticComplexity)
		if float64(fm.CyclomaticComplexity) > m.MaxComplexity {
			m.MaxComplexity = float64(fm.CyclomaticComplexity)
		}
		if fm.CyclomaticComplexity > highComplexityThreshold {
			m.HighComplexityFiles++
		}

		maintainSum += fm.MaintainabilityIndex
		if fm.MaintainabilityIndex < lowMaintainabilityThreshold {
			m.LowMaintainFiles++
		}

		if fm.LinesOfCode > largeFileLineThreshold {
			m.LargeFiles++
		}
	}

	if m.FileCount > 0 {
		m.AvgComplexity = complexitySum / float64(m.FileCount)
		m.AvgMaintainability = maintainSum / float64(m.FileCount)
		m.AvgFileSize = float64(m.TotalLines) / float64(m.FileCount)
	}

	detail := map[string]any{
		"file_count":            m.FileCount,
		"total_lines":           m.TotalLines,
		"average_complexity":    m.AvgComplexity,
		"max_complexity":        m.MaxComplexity,
		"high_complexity_files": m.HighComplexityFiles,
		"average_maintainability": m.AvgMaintainability,
		"low_maintainability_files": m.LowMaintainFiles,
		"large_files":           m.LargeFiles,
	}
	return m, detail
}

// buildArchitecturalAnalysis derives a coarse per-file import fan-out, the
// closest analog available without a real dependency graph builder.
func buildArchitecturalAnalysis(files map[string]string) map[string]any {
	fanOut := make(map[string]int, len(files))
	parser := NewRegexASTParser()
	parsed, _ := parser.Parse(files)
	for path, pf := range parsed {
		fanOut[path] = len(pf.StructuralSummary.Imports)
	}
	return map[string]any{
		"import_fan_out": fanOut,
		"files_analyzed": len(parsed),
	}
}

package risk

import (
	"strings"

	"github.com/aidino/aicode-reviewer/internal/model"
)

// Predictor produces a bounded numeric risk assessment from aggregated code
// metrics and static findings. It holds no state beyond its weights and is
// safe for concurrent use; every method is a pure function of its inputs.
type Predictor struct {
	weights model.RiskWeights
}

// New returns a Predictor using the given weights.
func New(weights model.RiskWeights) *Predictor {
	return &Predictor{weights: weights}
}

// NewDefault returns a Predictor using the specification's default weights.
func NewDefault() *Predictor {
	return New(model.DefaultRiskWeights())
}

// Predict computes a RiskAssessment from aggregated code metrics, optional
// static findings, and an optional architectural analysis blob carried
// through as passthrough metadata.
func (p *Predictor) Predict(metrics model.CodeMetrics, findings []model.Finding, architecturalAnalysis map[string]any) model.RiskAssessment {
	scores := map[string]float64{
		"complexity_score":       complexityScore(metrics),
		"maintainability_score":  maintainabilityScore(metrics),
		"size_score":             sizeScore(metrics),
		"findings_density_score": findingsDensityScore(metrics, findings),
		"security_score":         securityScore(findings),
		"code_smell_score":       codeSmellScore(findings),
	}

	overall := p.weights.Complexity*scores["complexity_score"] +
		p.weights.Maintainability*scores["maintainability_score"] +
		p.weights.Size*scores["size_score"] +
		p.weights.FindingsDensity*scores["findings_density_score"] +
		p.weights.Security*scores["security_score"] +
		p.weights.CodeSmells*scores["code_smell_score"]

	meta := map[string]any{
		"weights": p.weights,
	}
	if architecturalAnalysis != nil {
		meta["architectural_analysis"] = architecturalAnalysis
	}

	return model.RiskAssessment{
		OverallScore:    overall,
		RiskLevel:       determineRiskLevel(overall),
		ComponentScores: scores,
		RiskFactors:     identifyRiskFactors(scores, metrics, findings),
		Recommendations: generateRecommendations(scores),
		CalculationMeta: meta,
	}
}

func clamp100(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}

func complexityScore(m model.CodeMetrics) float64 {
	if m.FileCount == 0 {
		return 0
	}
	avgTerm := clamp100(m.AvgComplexity / 20 * 100)
	maxTerm := clamp100(m.MaxComplexity / 50 * 100)
	highRatio := float64(m.HighComplexityFiles) / float64(m.FileCount) * 100
	return clamp100(0.4*avgTerm + 0.4*maxTerm + 0.2*highRatio)
}

func maintainabilityScore(m model.CodeMetrics) float64 {
	if m.FileCount == 0 {
		return 0
	}
	inverseMI := 100 - m.AvgMaintainability
	lowRatio := float64(m.LowMaintainFiles) / float64(m.FileCount) * 100
	return clamp100(0.7*inverseMI + 0.3*lowRatio)
}

func sizeScore(m model.CodeMetrics) float64 {
	if m.FileCount == 0 {
		return 0
	}
	totalTerm := clamp100(float64(m.TotalLines) / 100000 * 100)
	avgTerm := clamp100(m.AvgFileSize / 1000 * 100)
	largeRatio := float64(m.LargeFiles) / float64(m.FileCount) * 100
	return clamp100(0.3*totalTerm + 0.4*avgTerm + 0.3*largeRatio)
}

func findingsDensityScore(m model.CodeMetrics, findings []model.Finding) float64 {
	total := m.TotalLines
	if total < 1 {
		total = 1
	}
	rate := float64(len(findings)) / float64(total) * 1000
	return clamp100(rate * 10)
}

func securityScore(findings []model.Finding) float64 {
	if len(findings) == 0 {
		return 0
	}
	count := countByCategory(findings, isSecurityCategory)
	return clamp100(float64(count) / float64(len(findings)) * 200)
}

func codeSmellScore(findings []model.Finding) float64 {
	if len(findings) == 0 {
		return 0
	}
	count := countByCategory(findings, isCodeSmellCategory)
	return clamp100(float64(count) / float64(len(findings)) * 150)
}

func countByCategory(findings []model.Finding, match func(string) bool) int {
	count := 0
	for _, f := range findings {
		if match(strings.ToLower(f.Category)) {
			count++
		}
	}
	return count
}

func isSecurityCategory(category string) bool {
	return strings.Contains(category, "security")
}

func isCodeSmellCategory(category string) bool {
	for _, kw := range []string{"style", "complexity", "duplication", "maintainability"} {
		if strings.Contains(category, kw) {
			return true
		}
	}
	return false
}

func determineRiskLevel(overall float64) model.RiskLevel {
	switch {
	case overall >= 80:
		return model.RiskCritical
	case overall >= 60:
		return model.RiskHigh
	case overall >= 40:
		return model.RiskMedium
	case overall >= 20:
		return model.RiskLow
	default:
		return model.RiskMinimal
	}
}

package risk

import (
	"fmt"

	"github.com/aidino/aicode-reviewer/internal/model"
)

// identifyRiskFactors emits short human-readable strings describing why a
// project scored the way it did, one per component that crossed its
// threshold (§4.3).
func identifyRiskFactors(scores map[string]float64, metrics model.CodeMetrics, findings []model.Finding) []string {
	var factors []string

	if scores["complexity_score"] > 60 && metrics.HighComplexityFiles > 0 {
		factors = append(factors, fmt.Sprintf(
			"High cyclomatic complexity: %d functions with complexity > 10", metrics.HighComplexityFiles))
	}

	if scores["maintainability_score"] > 60 && metrics.LowMaintainFiles > 0 {
		factors = append(factors, fmt.Sprintf(
			"Low maintainability: %d files with maintainability index < 20", metrics.LowMaintainFiles))
	}

	if scores["size_score"] > 60 && metrics.LargeFiles > 0 {
		factors = append(factors, fmt.Sprintf(
			"Large files: %d files exceed 500 lines", metrics.LargeFiles))
	}

	if len(findings) > 0 && scores["findings_density_score"] > 40 {
		factors = append(factors, fmt.Sprintf(
			"High issue density: %d static analysis findings detected", len(findings)))
	}

	if len(findings) > 0 && scores["security_score"] > 40 {
		secCount := countByCategory(findings, isSecurityCategory)
		if secCount > 0 {
			factors = append(factors, fmt.Sprintf(
				"Security concerns: %d potential security issues found", secCount))
		}
	}

	return factors
}

// generateRecommendations produces actionable recommendations keyed by
// component, with priority tiers per §4.3.
func generateRecommendations(scores map[string]float64) []model.Recommendation {
	var recs []model.Recommendation

	if scores["complexity_score"] > 40 {
		recs = append(recs, model.Recommendation{
			Category:       "Complexity",
			Priority:       priority(scores["complexity_score"], 60, "HIGH", "MEDIUM"),
			Recommendation: "Refactor high-complexity functions to improve readability and maintainability",
			Action:         "Break down complex functions into smaller, single-purpose functions",
		})
	}

	if scores["maintainability_score"] > 40 {
		recs = append(recs, model.Recommendation{
			Category:       "Maintainability",
			Priority:       priority(scores["maintainability_score"], 60, "HIGH", "MEDIUM"),
			Recommendation: "Improve code maintainability through better documentation and structure",
			Action:         "Add comprehensive docstrings, reduce code duplication, and improve naming conventions",
		})
	}

	if scores["size_score"] > 40 {
		recs = append(recs, model.Recommendation{
			Category:       "Code Organization",
			Priority:       "MEDIUM",
			Recommendation: "Split large files and reorganize code structure",
			Action:         "Break large files into smaller modules and extract reusable components",
		})
	}

	if scores["security_score"] > 30 {
		recs = append(recs, model.Recommendation{
			Category:       "Security",
			Priority:       priority(scores["security_score"], 60, "CRITICAL", "HIGH"),
			Recommendation: "Address security vulnerabilities and implement security best practices",
			Action:         "Review and fix security issues, add input validation, and follow secure coding guidelines",
		})
	}

	if scores["code_smell_score"] > 40 {
		recs = append(recs, model.Recommendation{
			Category:       "Code Quality",
			Priority:       "MEDIUM",
			Recommendation: "Improve overall code quality and consistency",
			Action:         "Apply consistent coding standards, remove code duplication, and improve error handling",
		})
	}

	return recs
}

func priority(score, highThreshold float64, high, low string) string {
	if score > highThreshold {
		return high
	}
	return low
}

package model

// RiskLevel buckets an overall risk score into a human-facing label.
type RiskLevel string

const (
	RiskMinimal  RiskLevel = "MINIMAL"
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Recommendation is one actionable item produced alongside a risk score.
type Recommendation struct {
	Category      string
	Priority      string
	Recommendation string
	Action        string
}

// RiskAssessment is the risk predictor's (C3) pure output.
type RiskAssessment struct {
	OverallScore     float64
	RiskLevel        RiskLevel
	ComponentScores  map[string]float64
	RiskFactors      []string
	Recommendations  []Recommendation
	CalculationMeta  map[string]any
}

// CodeMetrics aggregates per-file metrics into the inputs the risk
// predictor consumes. Every field is an aggregate across the scanned file
// set; FileCount is the denominator used by several component formulas.
type CodeMetrics struct {
	FileCount           int
	TotalLines          int
	AvgComplexity       float64
	MaxComplexity       float64
	HighComplexityFiles int
	AvgMaintainability  float64
	LowMaintainFiles    int
	AvgFileSize         float64
	LargeFiles          int
}

// FileMetrics is the fallback metric set computed for a single file when no
// external metrics collaborator is available (§4.3).
type FileMetrics struct {
	LinesOfCode         int
	BlankLines          int
	CommentLines        int
	LogicalLines        int
	CyclomaticComplexity int
	MaintainabilityIndex float64
}

// RiskWeights are the literal multipliers applied to each component score.
// They are not required to sum to 1.0.
type RiskWeights struct {
	Complexity      float64
	Maintainability float64
	Size            float64
	FindingsDensity float64
	Security        float64
	CodeSmells      float64
}

// DefaultRiskWeights returns the specification's default weighting.
func DefaultRiskWeights() RiskWeights {
	return RiskWeights{
		Complexity:      0.25,
		Maintainability: 0.20,
		Size:            0.15,
		FindingsDensity: 0.25,
		Security:        0.10,
		CodeSmells:      0.05,
	}
}

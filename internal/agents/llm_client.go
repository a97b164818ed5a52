package agents

import "github.com/aidino/aicode-reviewer/internal/model"

// NullLLMClient is a no-op LLMClient: it always returns an empty string,
// which the orchestrator treats as "no LLM analysis" rather than an error.
// It stands in until a real provider-backed client is wired.
type NullLLMClient struct{}

// NewNullLLMClient constructs a NullLLMClient.
func NewNullLLMClient() *NullLLMClient { return &NullLLMClient{} }

func (c *NullLLMClient) AnalyzePRDiff(diff string, findings []model.Finding) (string, error) {
	return "", nil
}

func (c *NullLLMClient) AnalyzeCode(files map[string]string, findings []model.Finding) (string, error) {
	return "", nil
}

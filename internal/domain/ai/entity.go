package ai

// Analysis is the structured result derived from a model reply.
type Analysis struct {
	Explanation string   `json:"explanation"`
	Summary     string   `json:"summary"`
	KeyPoints   []string `json:"keyPoints"`
	Model       string   `json:"model,omitempty"`
	TokensUsed  int      `json:"tokensUsed,omitempty"`
	// Error is set when the model could not be reached and the fields above
	// hold fallback text.
	Error string `json:"error,omitempty"`
}

// Degraded reports whether the analysis is a fallback.
func (a Analysis) Degraded() bool { return a.Error != "" }

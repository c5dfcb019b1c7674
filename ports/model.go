package ports

import "context"

// Role is a functional slot filled by one external model provider.
type Role string

const (
	RoleGenerator Role = "generator"
	RoleRefiner   Role = "refiner"
	RoleEvaluator Role = "evaluator"
)

// ModelRequest is one fully rendered instruction for a provider. Context
// values the binding may inline into the prompt (user tags, behavior
// summaries) are already part of Prompt/System by the time a request is
// built.
type ModelRequest struct {
	System      string  // optional system message
	Prompt      string  // fully rendered user prompt
	Temperature float64 // 0 means provider default
	MaxTokens   int     // 0 means binding default
}

// ModelPort is the single capability every provider binding exposes:
// call the model, get text back or fail with a classified model error
// (Timeout, ProviderRejected, MalformedResponse, TransientNetwork).
type ModelPort interface {
	Invoke(ctx context.Context, req ModelRequest) (string, error)
	Provider() string
}

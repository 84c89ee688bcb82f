package split

import "context"

// LLM completes a decomposition prompt and returns raw JSON text.
type LLM interface {
	Complete(ctx context.Context, task, system, user string) (string, error)
}

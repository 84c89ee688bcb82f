package constraints

import "context"

// LLM is the completion contract for constraint extraction.
type LLM interface {
	Complete(ctx context.Context, task, system, user string) (string, error)
}

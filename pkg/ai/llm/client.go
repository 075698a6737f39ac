package llm

import "context"

// Client is the generation gateway: given an assembled prompt it returns
// up to n suggestion strings. Everything behind it is opaque to the core.
type Client interface {
	Suggest(ctx context.Context, prompt string, n int) ([]string, error)
	Provider() string
}

package llm

import "context"

// MockClient serves canned suggestions when no OpenAI key is configured.
// Keeps local development and tests off the network.
type MockClient struct{}

func (MockClient) Provider() string { return "mock" }

func (MockClient) Suggest(ctx context.Context, prompt string, n int) ([]string, error) {
	canned := []string{
		"Sure, I can help with that!",
		"Got it, will do.",
		"Sounds good to me.",
	}
	if n < len(canned) {
		canned = canned[:n]
	}
	return canned, nil
}

package install

import "sync"

// Prompter is the interactive prompt surface: one-time verification codes and
// destructive-action confirmations. Implementations block until the user
// responds.
type Prompter interface {
	// RequestOneTimeCode asks for a verification code. ok=false means the
	// user declined.
	RequestOneTimeCode() (code string, ok bool)

	// RequestConfirmation asks the user to confirm a destructive action.
	RequestConfirmation(message string) bool
}

// PromptGate serializes access to a Prompter. Only one modal prompt may be
// active at a time system-wide; concurrent installations requesting a prompt
// queue here instead of overlapping.
type PromptGate struct {
	mu       sync.Mutex
	prompter Prompter
}

// NewPromptGate wraps a prompter in a serializing gate. Share one gate
// between all installations that use the same interaction surface.
func NewPromptGate(prompter Prompter) *PromptGate {
	return &PromptGate{prompter: prompter}
}

// RequestOneTimeCode forwards to the prompter, one caller at a time.
func (g *PromptGate) RequestOneTimeCode() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prompter.RequestOneTimeCode()
}

// RequestConfirmation forwards to the prompter, one caller at a time.
func (g *PromptGate) RequestConfirmation(message string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.prompter.RequestConfirmation(message)
}

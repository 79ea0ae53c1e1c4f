package agent

import (
	"sync"

	"github.com/firebase/genkit/go/ai"
)

// transcripts holds the in-memory conversation history per identity.
// History is working state, not durable data; it restarts empty and is
// bounded by a token budget so long conversations stay inside the model
// context window.
type transcripts struct {
	budget int

	mu      sync.Mutex
	byEmail map[string][]*ai.Message
}

func newTranscripts(budget int) *transcripts {
	return &transcripts{
		budget:  budget,
		byEmail: make(map[string][]*ai.Message),
	}
}

// history returns a copy of the identity's transcript.
func (t *transcripts) history(email string) []*ai.Message {
	t.mu.Lock()
	defer t.mu.Unlock()

	msgs := t.byEmail[email]
	out := make([]*ai.Message, len(msgs))
	copy(out, msgs)
	return out
}

// append adds messages and re-applies the token budget.
func (t *transcripts) append(email string, msgs ...*ai.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	combined := append(t.byEmail[email], msgs...)
	t.byEmail[email] = truncateHistory(combined, t.budget)
}

// reset drops the identity's transcript, e.g. after logout.
func (t *transcripts) reset(email string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byEmail, email)
}

// truncateHistory drops the oldest messages until the estimated token
// count fits the budget. The most recent message always survives.
func truncateHistory(msgs []*ai.Message, budget int) []*ai.Message {
	if len(msgs) == 0 {
		return msgs
	}

	total := 0
	for _, m := range msgs {
		total += estimateTokens(m)
	}

	start := 0
	for total > budget && start < len(msgs)-1 {
		total -= estimateTokens(msgs[start])
		start++
	}
	// Never let the transcript open with an orphan tool result; drop it
	// along with the request it answered.
	for start < len(msgs)-1 && msgs[start].Role == ai.RoleTool {
		start++
	}
	return msgs[start:]
}

// estimateTokens approximates token usage at four characters per token.
// The estimate only needs to be stable, not exact.
func estimateTokens(m *ai.Message) int {
	chars := 0
	for _, part := range m.Content {
		chars += len(part.Text)
	}
	// Structural overhead per message.
	return chars/4 + 4
}

// Package agent orchestrates the dialogue between the user, the model
// and the platform tools.
//
// Each user turn runs up to two model passes. The first pass sees the
// transcript and the tool declarations and either answers directly or
// requests one tool call. When a tool runs, a second pass with a fresh,
// tool-free prompt restyles the raw tool result into prose. The second
// pass never sees the transcript, so it cannot leak earlier context into
// an unrelated answer.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/cpxbuddy/cpxbuddy/internal/log"
	"github.com/cpxbuddy/cpxbuddy/internal/tools"
)

// Config holds agent dependencies.
type Config struct {
	Genkit   *genkit.Genkit
	Model    string
	Registry *tools.Registry
	Logger   log.Logger

	// HistoryTokens bounds the transcript sent on the first pass.
	HistoryTokens int
}

func (c *Config) validate() error {
	if c.Genkit == nil {
		return errors.New("agent: genkit instance is required")
	}
	if c.Model == "" {
		return errors.New("agent: model name is required")
	}
	if c.Registry == nil {
		return errors.New("agent: tool registry is required")
	}
	if c.Logger == nil {
		return errors.New("agent: logger is required")
	}
	if c.HistoryTokens <= 0 {
		return errors.New("agent: history token budget must be positive")
	}
	return nil
}

// generateFunc is the seam between the orchestrator and Genkit; tests
// substitute a scripted fake.
type generateFunc func(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error)

// Model provider quota headroom: at most two passes per turn, so this
// allows roughly one concurrent turn per second sustained.
const (
	modelRateLimit = rate.Limit(2)
	modelRateBurst = 4
)

// Agent answers user turns, calling platform tools when the model asks.
type Agent struct {
	model    string
	registry *tools.Registry
	logger   log.Logger

	history  *transcripts
	toolRefs []ai.ToolRef
	limiter  *rate.Limiter
	generate generateFunc
}

// New creates an Agent and registers the tool declarations.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	g := cfg.Genkit
	return &Agent{
		model:    cfg.Model,
		registry: cfg.Registry,
		logger:   cfg.Logger.With("component", "agent"),
		history:  newTranscripts(cfg.HistoryTokens),
		toolRefs: defineTools(g, cfg.Registry),
		limiter:  rate.NewLimiter(modelRateLimit, modelRateBurst),
		generate: func(ctx context.Context, opts ...ai.GenerateOption) (*ai.ModelResponse, error) {
			return genkit.Generate(ctx, g, opts...)
		},
	}, nil
}

// Respond handles one user turn for the identity and returns the reply.
func (a *Agent) Respond(ctx context.Context, email, message string) (string, error) {
	if email == "" {
		return "", errors.New("agent: email is required")
	}
	if message == "" {
		return "", errors.New("agent: message is required")
	}

	userMsg := ai.NewUserMessage(ai.NewTextPart(message))
	transcript := append(a.history.history(email), userMsg)

	if err := a.waitQuota(ctx); err != nil {
		return "", err
	}
	resp, err := a.generate(ctx,
		ai.WithModelName(a.model),
		ai.WithSystem(systemPrompt(email)),
		ai.WithMessages(transcript...),
		ai.WithTools(a.toolRefs...),
		ai.WithReturnToolRequests(true),
	)
	if err != nil {
		return "", fmt.Errorf("agent: first pass: %w", err)
	}
	if resp == nil {
		return "", ErrNoModelResponse
	}

	requests := resp.ToolRequests()
	if len(requests) == 0 {
		text := resp.Text()
		if text == "" {
			return "", ErrNoModelResponse
		}
		a.history.append(email, userMsg, ai.NewModelMessage(ai.NewTextPart(text)))
		return text, nil
	}

	// One tool per turn. Extra requests are dropped, not queued; the
	// model can ask again on its next turn.
	req := requests[0]
	if len(requests) > 1 {
		a.logger.Warn("dropping extra tool requests",
			"email", email, "kept", req.Name, "dropped", len(requests)-1)
	}

	kind, err := tools.ParseKind(req.Name)
	if err != nil {
		return "", err
	}

	args := namedArgs(req.Input)
	args["email"] = email // pin the identity server-side

	a.logger.Info("tool requested", "email", email, "tool", kind.String())
	result, err := a.registry.Dispatch(ctx, kind, args)
	if err != nil {
		return "", err
	}

	answer, err := a.restyle(ctx, result)
	if err != nil {
		return "", err
	}

	if kind == tools.KindLogout {
		// The session is gone; the transcript goes with it.
		a.history.reset(email)
		return answer, nil
	}

	toolMsg := &ai.Message{
		Role: ai.RoleTool,
		Content: []*ai.Part{ai.NewToolResponsePart(&ai.ToolResponse{
			Name:   req.Name,
			Ref:    req.Ref,
			Output: result,
		})},
	}
	a.history.append(email, userMsg, resp.Message, toolMsg, ai.NewModelMessage(ai.NewTextPart(answer)))
	return answer, nil
}

// restyle runs the second pass: a fresh, tool-free generation that turns
// the raw tool result into a user-facing reply.
func (a *Agent) restyle(ctx context.Context, result string) (string, error) {
	if err := a.waitQuota(ctx); err != nil {
		return "", err
	}
	resp, err := a.generate(ctx,
		ai.WithModelName(a.model),
		ai.WithSystem(persona),
		ai.WithMessages(ai.NewUserMessage(ai.NewTextPart(toolResultPrompt(result)))),
	)
	if err != nil {
		return "", fmt.Errorf("agent: second pass: %w", err)
	}
	if resp == nil {
		return "", ErrNoConversationalResponse
	}
	answer := resp.Text()
	if answer == "" {
		return "", ErrNoConversationalResponse
	}
	return answer, nil
}

// waitQuota paces model calls against provider quotas.
func (a *Agent) waitQuota(ctx context.Context) error {
	if a.limiter == nil {
		return nil
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("agent: model rate limit wait: %w", err)
	}
	return nil
}

// namedArgs normalizes a tool request input into named arguments.
func namedArgs(input any) map[string]any {
	if m, ok := input.(map[string]any); ok {
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out
	}
	return map[string]any{}
}

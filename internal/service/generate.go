package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/telemetry"
)

// Chat message roles used in the provider-neutral turn representation.
const (
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCallRequest is the model asking for one tool invocation.
type ToolCallRequest struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ChatTurn is one provider-neutral message exchanged after the user query:
// either the assistant's tool-call request or a tool result.
type ChatTurn struct {
	Role       string
	Content    string
	ToolCallID string
	ToolCalls  []ToolCallRequest
}

// ModelResponse is what the language-model capability returns: either direct
// answer text, or one or more tool-call requests.
type ModelResponse struct {
	Text      string
	ToolCalls []ToolCallRequest
}

// ChatInput is a single generation call: system context, the user query,
// any prior turns from an executed tool round, and the advertised tools.
// An empty Tools slice means the model cannot request tool use.
type ChatInput struct {
	System string
	Query  string
	Turns  []ChatTurn
	Tools  []ToolSchema
}

// ChatClient defines the opaque language-model capability.
type ChatClient interface {
	CreateResponse(ctx context.Context, input ChatInput) (*ModelResponse, error)
}

// systemPrelude is the fixed instruction prefix for every generation call.
const systemPrelude = `You are an AI assistant specialized in course materials and educational content, with access to a search tool over indexed course content.

Tool usage:
- Use the search tool only for questions about specific course content or detailed educational materials
- One search per query maximum
- If the search yields no results, say so clearly without offering alternatives

Responses must be brief, concise and focused, without meta-commentary about the search process. Answer general knowledge questions directly from your own knowledge.`

// generationState tracks progress through the two-call protocol.
type generationState int

const (
	stateAwaitingFirstResponse generationState = iota
	stateAwaitingSecondResponse
	stateAnswered
)

// GenerateInput carries one query plus its formatted conversation history.
type GenerateInput struct {
	Query   string
	History string
}

// GenerateOutput is the final answer with the sources consulted while
// producing it (empty when the model answered without retrieval).
type GenerateOutput struct {
	Answer  string
	Sources []domain.Source
}

// Generator drives the two-call generation protocol: a first call that may
// request tool use, sequential execution of any requested calls, and a
// second call that must produce the final answer. Tool use is bounded to a
// single round.
type Generator struct {
	chat     ChatClient
	registry *ToolRegistry
}

// NewGenerator creates a Generator over the given model capability and tool
// registry.
func NewGenerator(chat ChatClient, registry *ToolRegistry) *Generator {
	return &Generator{chat: chat, registry: registry}
}

// Generate answers one query. The first call advertises the registry's
// tools; when the model answers directly the second call is skipped
// entirely. Requested tool calls execute sequentially in request order and
// their results feed the second call, which is issued without tools so the
// provider cannot open another round.
func (g *Generator) Generate(ctx context.Context, input GenerateInput) (*GenerateOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "Generator.Generate", telemetry.SpanAttributes{
		Operation: "generate",
	})
	defer span.End()

	system := buildSystemContext(input.History)

	var (
		state   = stateAwaitingFirstResponse
		answer  string
		sources []domain.Source
		turns   []ChatTurn
	)

	for state != stateAnswered {
		switch state {
		case stateAwaitingFirstResponse:
			resp, err := g.chat.CreateResponse(ctx, ChatInput{
				System: system,
				Query:  input.Query,
				Tools:  g.registry.Schemas(),
			})
			if err != nil {
				span.SetError(err)
				return nil, fmt.Errorf("generation call failed: %w", err)
			}

			if len(resp.ToolCalls) == 0 {
				answer = resp.Text
				state = stateAnswered
				break
			}

			turns = append(turns, ChatTurn{Role: RoleAssistant, ToolCalls: resp.ToolCalls})
			for _, call := range resp.ToolCalls {
				telemetry.AddBreadcrumb(ctx, "tool", call.Name)
				result, err := g.registry.Execute(ctx, call.Name, call.Arguments)
				if err != nil {
					span.SetError(err)
					return nil, fmt.Errorf("tool %s failed: %w", call.Name, err)
				}
				sources = append(sources, result.Sources...)
				turns = append(turns, ChatTurn{
					Role:       RoleTool,
					ToolCallID: call.ID,
					Content:    result.Content,
				})
			}
			state = stateAwaitingSecondResponse

		case stateAwaitingSecondResponse:
			// No tools on the second call; whatever text comes back is
			// final even if the provider tries to request more tool use.
			resp, err := g.chat.CreateResponse(ctx, ChatInput{
				System: system,
				Query:  input.Query,
				Turns:  turns,
			})
			if err != nil {
				span.SetError(err)
				return nil, fmt.Errorf("generation call failed: %w", err)
			}
			answer = resp.Text
			state = stateAnswered
		}
	}

	return &GenerateOutput{Answer: answer, Sources: sources}, nil
}

func buildSystemContext(history string) string {
	if history == "" {
		return systemPrelude
	}
	return systemPrelude + "\n\nPrevious conversation:\n" + history
}

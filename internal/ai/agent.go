package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"github.com/hightemp/topic-trainer-ai/internal/models"
	"github.com/hightemp/topic-trainer-ai/internal/tools"
)

const DefaultMaxSteps = 8

// ErrTooManySteps is returned when the model keeps calling tools past the
// step limit.
var ErrTooManySteps = errors.New("agent exceeded the tool call limit")

// ToolRunner is the tool surface the agent may use.
type ToolRunner interface {
	Specs() []tools.Spec
	Call(ctx context.Context, name string, args map[string]any) map[string]any
}

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// ToolCall records one tool invocation made during a turn.
type ToolCall struct {
	Name   string         `json:"name"`
	Args   map[string]any `json:"args"`
	Result map[string]any `json:"result"`
}

type Reply struct {
	Text      string     `json:"text"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// Agent runs a bounded loop: send the user message, execute any function
// calls the model asks for, feed their results back, and stop at the first
// plain text answer.
type Agent struct {
	client   *Client
	tools    ToolRunner
	maxSteps int
	start    func(history []*genai.Content) chatSession
	log      *slog.Logger
}

const systemPrompt = `You help a learner manage a library of study questions organised in nested categories.
Use the provided tools to read and change categories and questions; never invent IDs, look them up with list_categories or list_questions first.
Deleting a category also deletes everything below it, so confirm with the user before calling delete_category.
Reply in the user's language and keep answers short.`

func NewAgent(c *Client, runner ToolRunner, maxSteps int) *Agent {
	if maxSteps < 1 {
		maxSteps = DefaultMaxSteps
	}
	model := c.model()
	model.SetTemperature(0.3)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	model.Tools = []*genai.Tool{{FunctionDeclarations: declarations(runner.Specs())}}

	a := &Agent{
		client:   c,
		tools:    runner,
		maxSteps: maxSteps,
		log:      c.log.With("component", "agent"),
	}
	a.start = func(history []*genai.Content) chatSession {
		cs := model.StartChat()
		cs.History = history
		return cs
	}
	return a
}

// Chat answers message in the context of history. Tool calls run through the
// ToolRunner; their failures go back to the model as error objects.
func (a *Agent) Chat(ctx context.Context, history []models.ChatMessage, message string) (Reply, error) {
	if strings.TrimSpace(message) == "" {
		return Reply{}, &models.ValidationError{Field: "message", Message: "must not be empty"}
	}
	if a.client != nil {
		if err := a.client.acquire(ctx); err != nil {
			return Reply{}, err
		}
		defer a.client.release()
	}

	cs := a.start(toContents(history))
	resp, err := cs.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return Reply{}, fmt.Errorf("Gemini API error: %w", err)
	}

	var reply Reply
	for step := 0; ; step++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			reply.Text = strings.TrimSpace(extractText(resp))
			return reply, nil
		}
		if step >= a.maxSteps {
			a.log.Warn("tool call limit reached", "steps", step)
			return reply, ErrTooManySteps
		}

		parts := make([]genai.Part, 0, len(calls))
		for _, fc := range calls {
			result := a.tools.Call(ctx, fc.Name, fc.Args)
			a.log.Debug("tool executed", "tool", fc.Name, "step", step)
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{Name: fc.Name, Args: fc.Args, Result: result})
			parts = append(parts, genai.FunctionResponse{Name: fc.Name, Response: result})
		}
		resp, err = cs.SendMessage(ctx, parts...)
		if err != nil {
			return reply, fmt.Errorf("Gemini API error: %w", err)
		}
	}
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	if resp == nil {
		return nil
	}
	var out []genai.FunctionCall
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			switch fc := part.(type) {
			case genai.FunctionCall:
				out = append(out, fc)
			case *genai.FunctionCall:
				out = append(out, *fc)
			}
		}
	}
	return out
}

func toContents(history []models.ChatMessage) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Role == "model" || m.Role == "assistant" {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(m.Content)}})
	}
	return out
}

func declarations(specs []tools.Spec) []*genai.FunctionDeclaration {
	out := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, s := range specs {
		decl := &genai.FunctionDeclaration{Name: s.Name, Description: s.Description}
		if len(s.Params) > 0 {
			schema := &genai.Schema{Type: genai.TypeObject, Properties: make(map[string]*genai.Schema, len(s.Params))}
			for _, p := range s.Params {
				schema.Properties[p.Name] = paramSchema(p)
				if p.Required {
					schema.Required = append(schema.Required, p.Name)
				}
			}
			decl.Parameters = schema
		}
		out = append(out, decl)
	}
	return out
}

func paramSchema(p tools.Param) *genai.Schema {
	switch p.Type {
	case "integer":
		return &genai.Schema{Type: genai.TypeInteger, Description: p.Description}
	case "number":
		return &genai.Schema{Type: genai.TypeNumber, Description: p.Description}
	case "boolean":
		return &genai.Schema{Type: genai.TypeBoolean, Description: p.Description}
	case "array":
		return &genai.Schema{Type: genai.TypeArray, Description: p.Description, Items: &genai.Schema{Type: genai.TypeString}}
	default:
		return &genai.Schema{Type: genai.TypeString, Description: p.Description}
	}
}

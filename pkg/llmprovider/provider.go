// Package llmprovider wraps google.golang.org/genai behind the four-field
// contract the agent invocation layer requires: messages + model +
// max_tokens in, text + stop_reason + token counts out. Nothing above
// this package ever touches a genai type directly.
package llmprovider

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/emergent-company/codeforge/internal/config"
)

// Message is one turn of the conversation sent to the provider.
type Message struct {
	Role    string // "system", "user", or "model"
	Content string
}

// Request is the complete input contract: messages, model, and the
// step's token budget. Callers MUST NOT override MaxTokens outside the
// token policy table — that's enforced by domain/agentinvoke, not here.
type Request struct {
	Messages  []Message
	Model     string
	MaxTokens int
}

// Response is the complete output contract.
type Response struct {
	Text         string
	StopReason   string
	InputTokens  int
	OutputTokens int
}

// Provider is the agent invocation layer's only dependency on an LLM
// backend.
type Provider interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// GenAIProvider implements Provider over google.golang.org/genai, talking
// to either Vertex AI or the Gemini API depending on configuration —
// mirroring pkg/adk's ModelFactory backend selection, minus the ADK
// model-runner layer this repo replaces with domain/workflow.
type GenAIProvider struct {
	client *genai.Client
	log    *slog.Logger
}

// NewGenAIProvider constructs a GenAIProvider from LLMConfig.
func NewGenAIProvider(ctx context.Context, cfg *config.LLMConfig, log *slog.Logger) (*GenAIProvider, error) {
	clientCfg := &genai.ClientConfig{}
	if cfg.UseVertexAI() {
		clientCfg.Backend = genai.BackendVertexAI
		clientCfg.Project = cfg.GCPProjectID
		clientCfg.Location = cfg.VertexAILocation
	} else {
		clientCfg.Backend = genai.BackendGeminiAPI
		clientCfg.APIKey = cfg.GoogleAPIKey
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GenAIProvider{client: client, log: log}, nil
}

// Complete sends req to the configured model and maps the response onto
// the four-field output contract.
func (p *GenAIProvider) Complete(ctx context.Context, req Request) (Response, error) {
	contents := make([]*genai.Content, 0, len(req.Messages))
	var systemInstruction *genai.Content

	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			systemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		default:
			role := genai.RoleUser
			if m.Role == "model" {
				role = genai.RoleModel
			}
			contents = append(contents, genai.NewContentFromText(m.Content, role))
		}
	}

	maxTokens := int32(req.MaxTokens)
	genConfig := &genai.GenerateContentConfig{
		MaxOutputTokens:   maxTokens,
		SystemInstruction: systemInstruction,
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, genConfig)
	if err != nil {
		return Response{}, fmt.Errorf("genai generate content: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return Response{}, fmt.Errorf("genai response had no candidates")
	}

	candidate := resp.Candidates[0]
	text := candidateText(candidate)

	out := Response{
		Text:       text,
		StopReason: string(candidate.FinishReason),
	}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

func candidateText(c *genai.Candidate) string {
	if c == nil || c.Content == nil {
		return ""
	}
	var text string
	for _, part := range c.Content.Parts {
		if part.Text != "" {
			text += part.Text
		}
	}
	return text
}

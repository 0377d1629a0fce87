package genai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// PromptContext carries the conversation signals a free-form step
// hands to the text backend.
type PromptContext struct {
	LeadName    string
	Channel     string
	LastMessage string
	Instruction string
}

// Generator produces a free-form reply for flow steps that are not
// scripted. Implementations are fallible and possibly slow; callers
// must treat a failure as a failed step.
type Generator interface {
	Generate(ctx context.Context, prompt PromptContext) (string, error)
}

const defaultTimeout = 20 * time.Second

// OpenAIGenerator is the production Generator
type OpenAIGenerator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewOpenAIGenerator(apiKey, model string) *OpenAIGenerator {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIGenerator{
		client:  openai.NewClient(apiKey),
		model:   model,
		timeout: defaultTimeout,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt PromptContext) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	system := "Você é um assistente comercial educado e objetivo. Responda em uma ou duas frases curtas."
	if prompt.Instruction != "" {
		system = prompt.Instruction
	}

	user := prompt.LastMessage
	if prompt.LeadName != "" {
		user = fmt.Sprintf("Lead %s escreveu: %s", prompt.LeadName, prompt.LastMessage)
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens: 200,
	})
	if err != nil {
		return "", fmt.Errorf("text generation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("text generation: empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

package provider

import (
	"context"
	"errors"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var errNoChoices = errors.New("completion has no choices")

// OpenAI speaks to the OpenAI audio and chat endpoints.
type OpenAI struct {
	client     *openai.Client
	audioModel string
	chatModel  string
}

// NewOpenAI builds a client. An empty baseURL uses the public endpoint.
func NewOpenAI(apiKey, baseURL, audioModel, chatModel string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if audioModel == "" {
		audioModel = openai.Whisper1
	}
	return &OpenAI{
		client:     openai.NewClientWithConfig(cfg),
		audioModel: audioModel,
		chatModel:  chatModel,
	}
}

func (o *OpenAI) TranscribeSegment(ctx context.Context, filePath, language string) (string, error) {
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.audioModel,
		FilePath: filePath,
		Language: language,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (o *OpenAI) DetectLanguage(ctx context.Context, text string) (string, error) {
	return o.complete(ctx, detectTemperature, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: detectPrompt(text),
	})
}

func (o *OpenAI) Translate(ctx context.Context, text, from, to string) (string, error) {
	return o.complete(ctx, translateTemperature,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: translationSystemPrompt},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: translatePrompt(text, from, to)},
	)
}

func (o *OpenAI) complete(ctx context.Context, temperature float32, messages ...openai.ChatCompletionMessage) (string, error) {
	// A zero temperature is dropped by omitempty.
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.chatModel,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errNoChoices
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

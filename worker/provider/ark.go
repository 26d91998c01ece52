package provider

import (
	"context"
	"strings"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	"github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"
)

// Ark translates through Volcengine Ark chat completions. It has no
// speech-to-text endpoint.
type Ark struct {
	client *arkruntime.Client
	model  string
}

func NewArk(apiKey, modelID string) *Ark {
	return &Ark{
		client: arkruntime.NewClientWithApiKey(apiKey),
		model:  modelID,
	}
}

func (a *Ark) DetectLanguage(ctx context.Context, text string) (string, error) {
	return a.complete(ctx, userMessage(detectPrompt(text)))
}

func (a *Ark) Translate(ctx context.Context, text, from, to string) (string, error) {
	return a.complete(ctx,
		&model.ChatCompletionMessage{
			Role:    model.ChatMessageRoleSystem,
			Content: &model.ChatCompletionMessageContent{StringValue: volcengine.String(translationSystemPrompt)},
		},
		userMessage(translatePrompt(text, from, to)),
	)
}

func (a *Ark) complete(ctx context.Context, messages ...*model.ChatCompletionMessage) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, model.CreateChatCompletionRequest{
		Model:    a.model,
		Messages: messages,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == nil || resp.Choices[0].Message.Content.StringValue == nil {
		return "", errNoChoices
	}
	return strings.TrimSpace(*resp.Choices[0].Message.Content.StringValue), nil
}

func userMessage(content string) *model.ChatCompletionMessage {
	return &model.ChatCompletionMessage{
		Role:    model.ChatMessageRoleUser,
		Content: &model.ChatCompletionMessageContent{StringValue: volcengine.String(content)},
	}
}

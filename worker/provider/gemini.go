package provider

import (
	"context"
	"errors"
	"os"
	"strings"

	"google.golang.org/genai"
)

const segmentMimeType = "audio/wav"

var errEmptyGenerate = errors.New("genai: empty generate response")

// Gemini transcribes inline audio and translates through GenerateContent.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) TranscribeSegment(ctx context.Context, filePath, language string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", err
	}

	parts := []*genai.Part{
		genai.NewPartFromText(transcribePrompt(language)),
		genai.NewPartFromBytes(data, segmentMimeType),
	}
	return g.generate(ctx, parts, nil)
}

func (g *Gemini) DetectLanguage(ctx context.Context, text string) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(detectPrompt(text))}
	return g.generate(ctx, parts, &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](detectTemperature),
	})
}

func (g *Gemini) Translate(ctx context.Context, text, from, to string) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(translatePrompt(text, from, to))}
	return g.generate(ctx, parts, &genai.GenerateContentConfig{
		Temperature:       genai.Ptr[float32](translateTemperature),
		SystemInstruction: genai.NewContentFromText(translationSystemPrompt, genai.RoleUser),
	})
}

func (g *Gemini) generate(ctx context.Context, parts []*genai.Part, cfg *genai.GenerateContentConfig) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", errEmptyGenerate
	}
	return strings.TrimSpace(result.Text()), nil
}

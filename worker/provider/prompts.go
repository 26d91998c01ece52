package provider

import "fmt"

const (
	translationSystemPrompt = "You are a helpful translation assistant."

	detectTemperature    = 0
	translateTemperature = 0.3
)

func detectPrompt(text string) string {
	return fmt.Sprintf("Detect the language of the following text and respond with only its ISO 639-1 code (e.g. ro, de, en):\n\n\"%s\"", text)
}

func translatePrompt(text, from, to string) string {
	return fmt.Sprintf("Translate this from %s to %s:\n\n\"%s\"", from, to, text)
}

func transcribePrompt(language string) string {
	if language == "" {
		return "Transcribe this audio verbatim. Respond with the transcript only."
	}
	return fmt.Sprintf("Transcribe this audio verbatim. The speech is in the language with ISO 639-1 code %q. Respond with the transcript only.", language)
}

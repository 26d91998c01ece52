package dispatcher

import (
	"regexp"
	"strings"

	"chatWorker/worker/apperrors"
	"chatWorker/worker/models"
)

var commandPattern = regexp.MustCompile(`^/(stt|translate)(?:/([a-zA-Z]{2}))?(!)?(?:\s+|$)`)

// Command is a parsed chat command such as "/translate/de! hallo".
type Command struct {
	Kind     models.TaskKind
	Language string // empty when no /xx suffix was given
	Private  bool
	Args     string
}

// ParseCommand recognises /stt and /translate with an optional /xx language
// suffix and a trailing "!" privacy flag.
func ParseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	m := commandPattern.FindStringSubmatchIndex(text)
	if m == nil {
		return Command{}, false
	}

	cmd := Command{
		Kind:    models.TaskKind(text[m[2]:m[3]]),
		Private: m[6] >= 0,
		Args:    strings.TrimSpace(text[m[1]:]),
	}
	if m[4] >= 0 {
		cmd.Language = strings.ToLower(text[m[4]:m[5]])
	}
	return cmd, true
}

// Request is a command resolved against its chat event.
type Request struct {
	Key     models.TaskKey
	Command Command
	Query   string
	Media   *models.Attachment
}

// messageID picks the replied-to message for replies so that a reply and a
// direct command on the same content share a key.
func messageID(ev *models.ChatEvent) (string, error) {
	if ev.Quoted != nil {
		if id := strings.TrimSpace(ev.Quoted.ID); id != "" {
			return id, nil
		}
		return "", apperrors.KeyDerivation("dispatcher.key", "quoted message has no id")
	}
	if id := strings.TrimSpace(ev.ID); id != "" {
		return id, nil
	}
	return "", apperrors.KeyDerivation("dispatcher.key", "message has no id")
}

func buildRequest(ev *models.ChatEvent, cmd Command, defaultSTTLanguage string) (Request, error) {
	id, err := messageID(ev)
	if err != nil {
		return Request{}, err
	}

	req := Request{Command: cmd}
	language := cmd.Language

	switch cmd.Kind {
	case models.KindSTT:
		if language == "" {
			language = defaultSTTLanguage
		}
		switch {
		case ev.Quoted != nil && ev.Quoted.Attachment != nil:
			req.Media = ev.Quoted.Attachment
		case ev.Attachment != nil:
			req.Media = ev.Attachment
		}
	case models.KindTranslate:
		if language == "" {
			language = models.LanguageAuto
		}
		if ev.Quoted != nil {
			req.Query = strings.TrimSpace(ev.Quoted.Text)
		} else {
			req.Query = cmd.Args
		}
	}

	req.Key = models.NewTaskKey(id, cmd.Kind, language)
	return req, nil
}

package models

// Attachment points at media the transport bridge has made reachable,
// either as an http(s) URL or a local file path.
type Attachment struct {
	Ref      string `json:"ref"`
	MimeType string `json:"mime_type,omitempty"`
}

type QuotedMessage struct {
	ID         string      `json:"id"`
	Text       string      `json:"text,omitempty"`
	Attachment *Attachment `json:"attachment,omitempty"`
}

// ChatEvent is an inbound message as delivered by the chat transport.
type ChatEvent struct {
	ID         string         `json:"id"`
	ChatID     string         `json:"chat_id"`
	SenderID   string         `json:"sender_id"`
	Text       string         `json:"text"`
	Quoted     *QuotedMessage `json:"quoted,omitempty"`
	Attachment *Attachment    `json:"attachment,omitempty"`
}

// Reply is an outbound message handed back to the chat transport.
type Reply struct {
	ChatID   string `json:"chat_id"`
	ToSender string `json:"to_sender,omitempty"`
	QuotedID string `json:"quoted_id,omitempty"`
	Text     string `json:"text"`
	Private  bool   `json:"private,omitempty"`
	TraceID  string `json:"trace_id,omitempty"`
}

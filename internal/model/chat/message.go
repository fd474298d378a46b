package chat

import (
	"bytes"
	"encoding/json"
)

// MessageType identifies the author of a transcript entry.
type MessageType string

const (
	MessageUser      MessageType = "user"
	MessageAssistant MessageType = "assistant"
)

// MessageStatus tracks whether an entry has been acknowledged by the server.
// Messages fetched from the server carry the zero value and count as confirmed.
type MessageStatus string

const (
	StatusConfirmed MessageStatus = ""
	StatusPending   MessageStatus = "pending"
	StatusFailed    MessageStatus = "failed"
)

// Message is a single transcript entry.
type Message struct {
	ID            int64         `json:"id"`
	SessionID     int64         `json:"session_id,omitempty"`
	MessageType   MessageType   `json:"message_type"`
	Content       string        `json:"content"`
	Timestamp     Timestamp     `json:"timestamp"`
	Status        MessageStatus `json:"status,omitempty"`
	CorrelationID string        `json:"correlation_id,omitempty"`
}

// Pending reports whether the message is still awaiting server confirmation.
func (m Message) Pending() bool {
	return m.Status == StatusPending
}

// SendMessageRequest is the body of POST /chat/sessions/:id/messages.
type SendMessageRequest struct {
	Message     string      `json:"message"`
	ContextType ContextType `json:"context_type"`
}

// SendResponse covers every reply shape the backend has produced for a send.
type SendResponse struct {
	Response    string         `json:"response,omitempty"`
	Message     *ReplyEnvelope `json:"message,omitempty"`
	UserMessage *Message       `json:"user_message,omitempty"`
	AIResponse  *Message       `json:"ai_response,omitempty"`
}

// ReplyEnvelope is the legacy {message: {content}} reply shape.
type ReplyEnvelope struct {
	Content string `json:"content"`
}

// NoResponseContent is shown when a reply carries no usable text.
const NoResponseContent = "No response received"

// ReplyContent picks the assistant text: response, then message.content,
// then ai_response.content.
func (r SendResponse) ReplyContent() string {
	if r.Response != "" {
		return r.Response
	}
	if r.Message != nil && r.Message.Content != "" {
		return r.Message.Content
	}
	if r.AIResponse != nil && r.AIResponse.Content != "" {
		return r.AIResponse.Content
	}
	return NoResponseContent
}

// UnmarshalJSON ignores non-object values so a plain string "message"
// field does not fail the whole decode.
func (e *ReplyEnvelope) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var raw struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return err
	}
	e.Content = raw.Content
	return nil
}

package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/wiko-cutlery/assistant-portal/internal/model/auth"
	"github.com/wiko-cutlery/assistant-portal/internal/model/chat"
	"github.com/wiko-cutlery/assistant-portal/internal/model/tools"
)

// call issues a request and decodes the JSON reply into out.
func (c *Client) call(ctx context.Context, endpoint, method, path string, in, out any) error {
	resp, err := c.Request(ctx, path, RequestOptions{
		Method:   method,
		JSON:     in,
		Endpoint: endpoint,
	})
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := decodeResult(resp, method, path, out); err != nil {
		log.Printf("[gateway] %s %s rejected: %v", method, path, err)
		return err
	}
	return nil
}

// Login sends credentials. A reply without "success": true is an error.
func (c *Client) Login(ctx context.Context, credentials auth.Credentials) (*auth.LoginResponse, error) {
	raw, err := c.Request(ctx, "/auth/login", RequestOptions{
		Method:   http.MethodPost,
		JSON:     credentials,
		Endpoint: "auth.login",
	})
	if err != nil {
		return nil, err
	}

	var resp auth.LoginResponse
	if err := raw.Decode(&resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &Error{
			Kind:    KindApplication,
			Method:  http.MethodPost,
			Path:    "/auth/login",
			Message: "Login failed",
		}
	}
	return &resp, nil
}

// Logout terminates the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.Request(ctx, "/auth/logout", RequestOptions{
		Method:   http.MethodPost,
		Endpoint: "auth.logout",
	})
	return err
}

// AuthStatus reports whether the current cookie identifies an employee.
func (c *Client) AuthStatus(ctx context.Context) (*auth.StatusResponse, error) {
	var resp auth.StatusResponse
	if err := c.call(ctx, "auth.status", http.MethodGet, "/auth/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListSessions returns the employee's chat sessions, most recent first.
func (c *Client) ListSessions(ctx context.Context) ([]chat.Session, error) {
	var sessions []chat.Session
	if err := c.call(ctx, "chat.sessions.list", http.MethodGet, "/chat/sessions", nil, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// CreateSession creates a named chat session.
func (c *Client) CreateSession(ctx context.Context, name string) (*chat.Session, error) {
	var session chat.Session
	req := chat.CreateSessionRequest{SessionName: name}
	if err := c.call(ctx, "chat.sessions.create", http.MethodPost, "/chat/sessions", req, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ListMessages returns the transcript of a session in server order.
func (c *Client) ListMessages(ctx context.Context, sessionID int64) ([]chat.Message, error) {
	var messages []chat.Message
	path := fmt.Sprintf("/chat/sessions/%d/messages", sessionID)
	if err := c.call(ctx, "chat.messages.list", http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessage posts a user message and returns the assistant's reply.
func (c *Client) SendMessage(ctx context.Context, sessionID int64, text string, contextType chat.ContextType) (*chat.SendResponse, error) {
	var resp chat.SendResponse
	path := fmt.Sprintf("/chat/sessions/%d/messages", sessionID)
	req := chat.SendMessageRequest{Message: text, ContextType: contextType.OrDefault()}
	if err := c.call(ctx, "chat.messages.send", http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadPDF uploads a document as multipart field "file".
func (c *Client) UploadPDF(ctx context.Context, filename string, content io.Reader) (*tools.UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("gateway: create form file: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("gateway: copy upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("gateway: close multipart writer: %w", err)
	}

	resp, err := c.Request(ctx, "/upload/pdf", RequestOptions{
		Method:   http.MethodPost,
		Body:     &body,
		Header:   http.Header{"Content-Type": {writer.FormDataContentType()}},
		Endpoint: "upload.pdf",
	})
	if err != nil {
		return nil, err
	}

	var result tools.UploadResult
	if err := decodeResult(resp, http.MethodPost, "/upload/pdf", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListDocuments returns the employee's unexpired uploads.
func (c *Client) ListDocuments(ctx context.Context) ([]tools.Document, error) {
	var documents []tools.Document
	if err := c.call(ctx, "documents.list", http.MethodGet, "/documents", nil, &documents); err != nil {
		return nil, err
	}
	return documents, nil
}

// Translate translates text. Empty languages default to auto-detect → English.
func (c *Client) Translate(ctx context.Context, req tools.TranslateRequest) (*tools.TranslateResult, error) {
	if req.SourceLang == "" {
		req.SourceLang = "auto"
	}
	if req.TargetLang == "" {
		req.TargetLang = "en"
	}
	var result tools.TranslateResult
	if err := c.call(ctx, "translate", http.MethodPost, "/translate", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GenerateEmail drafts a customer email.
func (c *Client) GenerateEmail(ctx context.Context, req tools.EmailRequest) (*tools.EmailResult, error) {
	var result tools.EmailResult
	if err := c.call(ctx, "email.generate", http.MethodPost, "/email/generate", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// AnalyzeComplaint returns handling recommendations for a complaint.
func (c *Client) AnalyzeComplaint(ctx context.Context, complaintText string) (*tools.ComplaintAnalysis, error) {
	var result tools.ComplaintAnalysis
	req := tools.ComplaintRequest{ComplaintText: complaintText}
	if err := c.call(ctx, "complaint.analyze", http.MethodPost, "/complaint/analyze", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Health probes the backend. A 503 is returned as an *Error.
func (c *Client) Health(ctx context.Context) (*tools.Health, error) {
	var health tools.Health
	if err := c.call(ctx, "health", http.MethodGet, "/health", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

package mockapi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/wiko-cutlery/assistant-portal/internal/model/auth"
	"github.com/wiko-cutlery/assistant-portal/internal/model/chat"
	"github.com/wiko-cutlery/assistant-portal/internal/model/tools"
)

func setupServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	srv, err := New(Options{})
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	return srv, srv.Routes()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal err: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func login(t *testing.T, h http.Handler, username, password string) *http.Cookie {
	t.Helper()
	resp := doJSON(t, h, http.MethodPost, "/api/auth/login", auth.Credentials{Username: username, Password: password}, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("login expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	for _, c := range resp.Result().Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func errorOf(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	msg, _ := body["error"].(string)
	return msg
}

func TestLoginValidation(t *testing.T) {
	_, h := setupServer(t)

	resp := doJSON(t, h, http.MethodPost, "/api/auth/login", map[string]string{"username": "sales"}, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	resp = doJSON(t, h, http.MethodPost, "/api/auth/login", auth.Credentials{Username: "sales", Password: "wrong"}, nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	if msg := errorOf(t, resp); msg != "Invalid credentials" {
		t.Fatalf("unexpected error: %q", msg)
	}
}

func TestLoginStatusLogout(t *testing.T) {
	_, h := setupServer(t)
	cookie := login(t, h, "sales", "sales123")

	resp := doJSON(t, h, http.MethodGet, "/api/auth/status", nil, cookie)
	var status auth.StatusResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status err: %v", err)
	}
	if !status.Authenticated || status.Employee == nil || status.Employee.Department != "Sales" {
		t.Fatalf("unexpected status: %+v", status)
	}

	if resp := doJSON(t, h, http.MethodPost, "/api/auth/logout", nil, cookie); resp.Code != http.StatusOK {
		t.Fatalf("logout expected 200, got %d", resp.Code)
	}

	resp = doJSON(t, h, http.MethodGet, "/api/auth/status", nil, cookie)
	status = auth.StatusResponse{}
	if err := json.Unmarshal(resp.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode status err: %v", err)
	}
	if status.Authenticated {
		t.Fatal("token should be invalid after logout")
	}
}

func TestProtectedRoutesRequireLogin(t *testing.T) {
	_, h := setupServer(t)
	for _, path := range []string{"/api/chat/sessions", "/api/documents"} {
		resp := doJSON(t, h, http.MethodGet, path, nil, nil)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s expected 401, got %d", path, resp.Code)
		}
		if msg := errorOf(t, resp); msg != "Not authenticated" {
			t.Fatalf("unexpected error: %q", msg)
		}
	}
}

func TestChatFlow(t *testing.T) {
	_, h := setupServer(t)
	cookie := login(t, h, "customer_service", "cs123")

	resp := doJSON(t, h, http.MethodPost, "/api/chat/sessions", chat.CreateSessionRequest{SessionName: "Returns"}, cookie)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create expected 201, got %d", resp.Code)
	}
	var session chat.Session
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session err: %v", err)
	}
	if session.ID == 0 || session.SessionName != "Returns" {
		t.Fatalf("unexpected session: %+v", session)
	}

	path := "/api/chat/sessions/" + itoa(session.ID) + "/messages"
	resp = doJSON(t, h, http.MethodPost, path, chat.SendMessageRequest{Message: "Hello", ContextType: chat.ContextGeneral}, cookie)
	if resp.Code != http.StatusOK {
		t.Fatalf("send expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var sent chat.SendResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &sent); err != nil {
		t.Fatalf("decode send err: %v", err)
	}
	if sent.UserMessage == nil || sent.UserMessage.Content != "Hello" {
		t.Fatalf("unexpected user message: %+v", sent.UserMessage)
	}
	if sent.AIResponse == nil || sent.AIResponse.Content != generalReply {
		t.Fatalf("unexpected ai response: %+v", sent.AIResponse)
	}

	resp = doJSON(t, h, http.MethodGet, path, nil, cookie)
	var messages []chat.Message
	if err := json.Unmarshal(resp.Body.Bytes(), &messages); err != nil {
		t.Fatalf("decode messages err: %v", err)
	}
	if len(messages) != 2 || messages[0].MessageType != chat.MessageUser || messages[1].MessageType != chat.MessageAssistant {
		t.Fatalf("unexpected transcript: %+v", messages)
	}

	resp = doJSON(t, h, http.MethodPost, path, chat.SendMessageRequest{Message: "   "}, cookie)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("empty message expected 400, got %d", resp.Code)
	}
}

func TestSessionsAreScopedToEmployee(t *testing.T) {
	_, h := setupServer(t)
	owner := login(t, h, "sales", "sales123")
	other := login(t, h, "manager", "manager123")

	resp := doJSON(t, h, http.MethodPost, "/api/chat/sessions", chat.CreateSessionRequest{SessionName: "Private"}, owner)
	var session chat.Session
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode session err: %v", err)
	}

	resp = doJSON(t, h, http.MethodGet, "/api/chat/sessions/"+itoa(session.ID)+"/messages", nil, other)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for another employee, got %d", resp.Code)
	}

	resp = doJSON(t, h, http.MethodPost, "/api/chat/sessions/"+itoa(session.ID)+"/messages", chat.SendMessageRequest{Message: "hi"}, other)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 when sending to another employee's session, got %d", resp.Code)
	}

	resp = doJSON(t, h, http.MethodGet, "/api/chat/sessions", nil, other)
	var sessions []chat.Session
	if err := json.Unmarshal(resp.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("decode sessions err: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("expected no sessions for other employee, got %+v", sessions)
	}

	resp = doJSON(t, h, http.MethodGet, "/api/chat/sessions/abc/messages", nil, owner)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for non-numeric id, got %d", resp.Code)
	}
}

func TestSessionsOrderedByActivity(t *testing.T) {
	srv, h := setupServer(t)
	clock := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	srv.Store().now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	cookie := login(t, h, "sales", "sales123")

	var first, second chat.Session
	json.Unmarshal(doJSON(t, h, http.MethodPost, "/api/chat/sessions", chat.CreateSessionRequest{SessionName: "first"}, cookie).Body.Bytes(), &first)
	json.Unmarshal(doJSON(t, h, http.MethodPost, "/api/chat/sessions", chat.CreateSessionRequest{SessionName: "second"}, cookie).Body.Bytes(), &second)

	var sessions []chat.Session
	json.Unmarshal(doJSON(t, h, http.MethodGet, "/api/chat/sessions", nil, cookie).Body.Bytes(), &sessions)
	if len(sessions) != 2 || sessions[0].ID != second.ID {
		t.Fatalf("newest session should come first: %+v", sessions)
	}

	doJSON(t, h, http.MethodPost, "/api/chat/sessions/"+itoa(first.ID)+"/messages", chat.SendMessageRequest{Message: "bump"}, cookie)

	json.Unmarshal(doJSON(t, h, http.MethodGet, "/api/chat/sessions", nil, cookie).Body.Bytes(), &sessions)
	if sessions[0].ID != first.ID {
		t.Fatalf("most recently active session should come first: %+v", sessions)
	}
}

func TestCreateSessionDefaultName(t *testing.T) {
	_, h := setupServer(t)
	cookie := login(t, h, "sales", "sales123")

	req := httptest.NewRequest(http.MethodPost, "/api/chat/sessions", nil)
	req.AddCookie(cookie)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var session chat.Session
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if !strings.HasPrefix(session.SessionName, "Chat ") {
		t.Fatalf("unexpected default name: %q", session.SessionName)
	}
}

func TestTranslateEndpoint(t *testing.T) {
	_, h := setupServer(t)
	cookie := login(t, h, "sales", "sales123")

	resp := doJSON(t, h, http.MethodPost, "/api/translate", tools.TranslateRequest{Text: "Hello", SourceLang: "en", TargetLang: "en"}, cookie)
	var result tools.TranslateResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if result.Method != "no_translation_needed" || result.TranslatedText != "Hello" {
		t.Fatalf("unexpected result: %+v", result)
	}

	resp = doJSON(t, h, http.MethodPost, "/api/translate", tools.TranslateRequest{Text: "Hello", TargetLang: "xx"}, cookie)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	if msg := errorOf(t, resp); msg != "Unsupported target language: xx" {
		t.Fatalf("unexpected error: %q", msg)
	}

	resp = doJSON(t, h, http.MethodPost, "/api/translate", tools.TranslateRequest{Text: " "}, cookie)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestEmailEndpoint(t *testing.T) {
	_, h := setupServer(t)
	cookie := login(t, h, "customer_service", "cs123")

	resp := doJSON(t, h, http.MethodPost, "/api/email/generate", tools.EmailRequest{EmailType: "complaint_response"}, cookie)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}

	resp = doJSON(t, h, http.MethodPost, "/api/email/generate", tools.EmailRequest{
		EmailType:    "order_status",
		CustomerName: "Ms. Weber",
		OrderNumber:  "WK-1001",
	}, cookie)
	var result tools.EmailResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if result.Subject != "Your Wiko Cutlery Order Status" {
		t.Fatalf("unexpected subject: %q", result.Subject)
	}
	if strings.Contains(result.Body, "Subject:") || !strings.Contains(result.Body, "WK-1001") {
		t.Fatalf("unexpected body: %q", result.Body)
	}
}

func TestComplaintEndpoint(t *testing.T) {
	_, h := setupServer(t)
	cookie := login(t, h, "customer_service", "cs123")

	resp := doJSON(t, h, http.MethodPost, "/api/complaint/analyze", tools.ComplaintRequest{ComplaintText: "The handle is loose"}, cookie)
	var result tools.ComplaintAnalysis
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if !result.Success || !strings.Contains(result.Analysis, "Issue Severity") {
		t.Fatalf("unexpected analysis: %+v", result)
	}

	resp = doJSON(t, h, http.MethodPost, "/api/complaint/analyze", tools.ComplaintRequest{}, cookie)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func uploadRequest(t *testing.T, filename string, content []byte, cookie *http.Cookie) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile err: %v", err)
	}
	part.Write(content)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/upload/pdf", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.AddCookie(cookie)
	return req
}

func TestUploadPDF(t *testing.T) {
	_, h := setupServer(t)
	cookie := login(t, h, "sales", "sales123")

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, uploadRequest(t, "notes.txt", []byte("hello"), cookie))
	if resp.Code != http.StatusBadRequest || errorOf(t, resp) != "Only PDF files are allowed" {
		t.Fatalf("expected extension rejection, got %d %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, uploadRequest(t, "fake.pdf", []byte("not a pdf"), cookie))
	if resp.Code != http.StatusBadRequest || errorOf(t, resp) != "Invalid PDF file" {
		t.Fatalf("expected magic rejection, got %d %s", resp.Code, resp.Body.String())
	}

	pdf := []byte("%PDF-1.4\n1 0 obj << /Type /Page >> endobj\nBT (Q4 revenue $125,000 from Wiko Cutlery Inc on 2024-01-15) Tj ET\n%%EOF")
	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, uploadRequest(t, "report.pdf", pdf, cookie))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var result tools.UploadResult
	if err := json.Unmarshal(resp.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if result.PDFInfo.PageCount != 1 || result.PDFInfo.WordCount == 0 {
		t.Fatalf("unexpected pdf info: %+v", result.PDFInfo)
	}
	if len(result.BusinessAnalysis.Amounts) == 0 || result.BusinessAnalysis.Amounts[0] != "$125,000" {
		t.Fatalf("unexpected amounts: %v", result.BusinessAnalysis.Amounts)
	}
	if len(result.BusinessAnalysis.Dates) == 0 || result.BusinessAnalysis.Dates[0] != "2024-01-15" {
		t.Fatalf("unexpected dates: %v", result.BusinessAnalysis.Dates)
	}
	if result.Document.OriginalFilename != "report.pdf" || result.Document.ExpiresAt.IsZero() {
		t.Fatalf("unexpected document: %+v", result.Document)
	}

	listResp := doJSON(t, h, http.MethodGet, "/api/documents", nil, cookie)
	var docs []tools.Document
	if err := json.Unmarshal(listResp.Body.Bytes(), &docs); err != nil {
		t.Fatalf("decode docs err: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != result.Document.ID {
		t.Fatalf("unexpected documents: %+v", docs)
	}
}

func TestHealthStatusCodes(t *testing.T) {
	srv, h := setupServer(t)

	if resp := doJSON(t, h, http.MethodGet, "/api/health", nil, nil); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	srv.SetServiceStatus(ServiceLLM, "unavailable")
	resp := doJSON(t, h, http.MethodGet, "/api/health", nil, nil)
	if resp.Code != http.StatusPartialContent {
		t.Fatalf("expected 206, got %d", resp.Code)
	}

	srv.SetServiceStatus(ServiceDatabase, "error")
	resp = doJSON(t, h, http.MethodGet, "/api/health", nil, nil)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
	var health tools.Health
	if err := json.Unmarshal(resp.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if health.Overall != "unhealthy" {
		t.Fatalf("unexpected overall: %s", health.Overall)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, h := setupServer(t)
	doJSON(t, h, http.MethodGet, "/api/health", nil, nil)

	resp := doJSON(t, h, http.MethodGet, "/metrics", nil, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `mockapi_http_requests_total{method="GET",route="/api/health",status="200"} 1`) {
		t.Fatalf("request counter missing:\n%s", resp.Body.String())
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

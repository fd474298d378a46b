package tools

import "github.com/wiko-cutlery/assistant-portal/internal/model/chat"

// TranslateRequest is the body of POST /translate.
type TranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// TranslateResult is the body of a successful translation.
type TranslateResult struct {
	Success        bool   `json:"success"`
	TranslatedText string `json:"translated_text"`
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`
	Method         string `json:"method"`
}

// EmailRequest is the body of POST /email/generate.
type EmailRequest struct {
	EmailType       string `json:"email_type,omitempty"`
	CustomerMessage string `json:"customer_message,omitempty"`
	CustomerName    string `json:"customer_name,omitempty"`
	OrderNumber     string `json:"order_number,omitempty"`
	ProductName     string `json:"product_name,omitempty"`
	Context         string `json:"context,omitempty"`
}

// EmailResult is the generated draft.
type EmailResult struct {
	Success   bool   `json:"success"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	FullEmail string `json:"full_email"`
	EmailType string `json:"email_type"`
	Tone      string `json:"tone"`
}

// ComplaintRequest is the body of POST /complaint/analyze.
type ComplaintRequest struct {
	ComplaintText string `json:"complaint_text"`
}

// ComplaintAnalysis is the handling recommendation for a complaint.
type ComplaintAnalysis struct {
	Success       bool   `json:"success"`
	ComplaintText string `json:"complaint_text"`
	Analysis      string `json:"analysis"`
}

// Document is an uploaded file retained by the backend.
type Document struct {
	ID               int64          `json:"id"`
	Filename         string         `json:"filename"`
	OriginalFilename string         `json:"original_filename"`
	FileSize         int64          `json:"file_size"`
	MimeType         string         `json:"mime_type"`
	UploadedAt       chat.Timestamp `json:"uploaded_at"`
	ExpiresAt        chat.Timestamp `json:"expires_at"`
	AnalysisSummary  string         `json:"analysis_summary,omitempty"`
}

// PDFInfo describes the parsed file.
type PDFInfo struct {
	PageCount int   `json:"page_count"`
	WordCount int   `json:"word_count"`
	FileSize  int64 `json:"file_size"`
}

// BusinessAnalysis holds data points extracted from a document.
type BusinessAnalysis struct {
	Dates     []string `json:"dates"`
	Amounts   []string `json:"amounts"`
	Companies []string `json:"companies"`
	KeyTerms  []string `json:"key_terms"`
}

// UploadResult is the reply to a PDF upload.
type UploadResult struct {
	Success          bool             `json:"success"`
	Document         Document         `json:"document"`
	PDFInfo          PDFInfo          `json:"pdf_info"`
	BusinessAnalysis BusinessAnalysis `json:"business_analysis"`
	AIAnalysis       string           `json:"ai_analysis"`
}

// Health is the reply of GET /health.
type Health struct {
	Overall   string                   `json:"overall"`
	Services  map[string]ServiceHealth `json:"services"`
	Timestamp string                   `json:"timestamp"`
}

// ServiceHealth is the status of one backend dependency.
type ServiceHealth struct {
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
	Error  string `json:"error,omitempty"`
}

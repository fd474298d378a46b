package mockapi

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wiko-cutlery/assistant-portal/internal/analysis/complaint"
	"github.com/wiko-cutlery/assistant-portal/internal/model/tools"
	"github.com/wiko-cutlery/assistant-portal/pkg/utils"
)

const maxUploadSize = 16 << 20

// handleUploadPDF 校验并分析上传的 PDF
func (s *Server) handleUploadPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "No file provided")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	filename := filepath.Base(strings.TrimSpace(header.Filename))
	if filename == "" || filename == "." || filename == "/" {
		utils.RespondError(w, http.StatusBadRequest, "No file selected")
		return
	}
	if strings.ToLower(filepath.Ext(filename)) != ".pdf" {
		utils.RespondError(w, http.StatusBadRequest, "Only PDF files are allowed")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		log.Printf("[mockapi] failed to read upload %s: %v", filename, err)
		utils.RespondError(w, http.StatusInternalServerError, "Failed to process PDF")
		return
	}

	info, text, err := inspectPDF(data)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	analysis := analyzeBusinessContent(text)
	summary := pdfReply

	doc := s.store.SaveDocument(r.Context(), employeeID(r.Context()), tools.Document{
		Filename:         fmt.Sprintf("%s_%s", uuid.NewString(), filename),
		OriginalFilename: filename,
		FileSize:         info.FileSize,
		MimeType:         "application/pdf",
		AnalysisSummary:  summary,
	})

	utils.RespondJSON(w, http.StatusOK, tools.UploadResult{
		Success:          true,
		Document:         doc,
		PDFInfo:          info,
		BusinessAnalysis: analysis,
		AIAnalysis:       summary,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, s.store.ListDocuments(r.Context(), employeeID(r.Context())))
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	var payload tools.TranslateRequest
	if err := utils.DecodeJSON(r, &payload, false); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	payload.Text = strings.TrimSpace(payload.Text)
	if payload.Text == "" {
		utils.RespondError(w, http.StatusBadRequest, "Text to translate is required")
		return
	}

	result, err := Translate(payload)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

func (s *Server) handleGenerateEmail(w http.ResponseWriter, r *http.Request) {
	var payload tools.EmailRequest
	if err := utils.DecodeJSON(r, &payload, false); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.EmailType == "" {
		payload.EmailType = "general_response"
	}
	if (payload.EmailType == "complaint_response" || payload.EmailType == "general_response") && strings.TrimSpace(payload.CustomerMessage) == "" {
		utils.RespondError(w, http.StatusBadRequest, "Customer message is required for responses")
		return
	}

	utils.RespondJSON(w, http.StatusOK, DraftEmail(payload))
}

func (s *Server) handleAnalyzeComplaint(w http.ResponseWriter, r *http.Request) {
	var payload tools.ComplaintRequest
	if err := utils.DecodeJSON(r, &payload, false); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := strings.TrimSpace(payload.ComplaintText)
	if text == "" {
		utils.RespondError(w, http.StatusBadRequest, "Complaint text is required")
		return
	}

	assessment := complaint.Analyze(text)
	log.Printf("[mockapi] complaint assessed as %s (score %d)", assessment.Severity, assessment.Score)
	utils.RespondJSON(w, http.StatusOK, tools.ComplaintAnalysis{
		Success:       true,
		ComplaintText: text,
		Analysis:      complaint.Report(assessment),
	})
}

// handleHealth 汇总依赖状态：数据库异常为 unhealthy，其余异常为 degraded
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.healthMu.RLock()
	services := make(map[string]tools.ServiceHealth, len(s.services))
	for name, entry := range s.services {
		services[name] = entry
	}
	s.healthMu.RUnlock()

	overall := "healthy"
	for name, entry := range services {
		if entry.Status == "healthy" {
			continue
		}
		if name == ServiceDatabase {
			overall = "unhealthy"
			break
		}
		overall = "degraded"
	}

	status := http.StatusOK
	switch overall {
	case "degraded":
		status = http.StatusPartialContent
	case "unhealthy":
		status = http.StatusServiceUnavailable
	}

	utils.RespondJSON(w, status, tools.Health{
		Overall:   overall,
		Services:  services,
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000000"),
	})
}

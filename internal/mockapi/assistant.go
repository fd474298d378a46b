package mockapi

import (
	"fmt"
	"strings"

	"github.com/wiko-cutlery/assistant-portal/internal/analysis/complaint"
	"github.com/wiko-cutlery/assistant-portal/internal/model/chat"
	"github.com/wiko-cutlery/assistant-portal/internal/model/tools"
)

const generalReply = "I'm a helpful AI assistant for Wiko cutlery employees. I can help with document analysis, translations, email responses, and complaint handling. How can I assist you today?"

const pdfReply = `Based on the document analysis:

**Document Summary:**
This appears to be a business document for Wiko Cutlery.

**Key Business Insights:**
- Figures and dates have been extracted below for review
- Customer-facing statements should be checked against current policy

**Recommended Actions:**
1. Verify the extracted amounts against the ledger
2. Share relevant findings with the responsible department`

const emailReply = `Subject: Re: Your Recent Experience with Wiko Cutlery

Dear Valued Customer,

Thank you for taking the time to share your concerns about your recent Wiko Cutlery purchase. We sincerely apologize for any inconvenience you've experienced.

To resolve this matter promptly, we will send you a replacement product at no charge.

Best regards,

Customer Service Team
Wiko Cutlery Inc.`

var cannedTranslations = map[string]string{
	"de": "Vielen Dank für Ihren Kauf. Ihre Bestellung wird innerhalb von 2 Werktagen versandt.",
	"fr": "Merci pour votre achat. Votre commande sera expédiée dans les 2 jours ouvrables.",
	"en": "Thank you for your purchase. Your order will be shipped within 2 business days.",
}

var supportedLanguages = map[string]string{
	"en":   "English",
	"de":   "German",
	"fr":   "French",
	"auto": "Auto-detect",
}

type emailTemplate struct {
	subject string
	tone    string
}

var emailTemplates = map[string]emailTemplate{
	"complaint_response": {"Re: Your Recent Experience with Wiko Cutlery", "empathetic and solution-oriented"},
	"warranty_inquiry":   {"Wiko Cutlery Warranty Information", "informative and helpful"},
	"product_inquiry":    {"Wiko Cutlery Product Information", "enthusiastic and informative"},
	"order_status":       {"Your Wiko Cutlery Order Status", "professional and reassuring"},
	"thank_you":          {"Thank You for Choosing Wiko Cutlery", "grateful and warm"},
	"general_response":   {"Re: Your Inquiry to Wiko Cutlery", "professional and friendly"},
}

// Reply produces the canned assistant answer. An explicit context wins;
// general chat is routed by keywords.
func Reply(message string, contextType chat.ContextType) string {
	switch contextType.OrDefault() {
	case chat.ContextPDFAnalysis:
		return pdfReply
	case chat.ContextTranslation:
		return cannedTranslations[targetFromPrompt(message)]
	case chat.ContextEmailAssistance:
		return emailReply
	case chat.ContextComplaintHandling:
		return complaint.Report(complaint.Analyze(message))
	}

	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, "translate", "german", "french", "übersetzen"):
		return cannedTranslations[targetFromPrompt(message)]
	case containsAny(lower, "analyze", "document", "pdf", "business"):
		return pdfReply
	case containsAny(lower, "email", "response", "customer", "letter"):
		return emailReply
	case containsAny(lower, "complaint", "issue", "problem", "dissatisfied"):
		return complaint.Report(complaint.Analyze(message))
	default:
		return generalReply
	}
}

func targetFromPrompt(message string) string {
	lower := strings.ToLower(message)
	switch {
	case containsAny(lower, "german", "deutsch"):
		return "de"
	case containsAny(lower, "french", "français"):
		return "fr"
	default:
		return "en"
	}
}

// Translate mirrors the translation service: identical languages
// short-circuit, unknown codes are rejected.
func Translate(req tools.TranslateRequest) (tools.TranslateResult, error) {
	source, target := req.SourceLang, req.TargetLang
	if source == "" {
		source = "auto"
	}
	if target == "" {
		target = "en"
	}

	if source == target {
		return tools.TranslateResult{
			Success:        true,
			TranslatedText: req.Text,
			SourceLanguage: source,
			TargetLanguage: target,
			Method:         "no_translation_needed",
		}, nil
	}
	if _, ok := supportedLanguages[target]; !ok || target == "auto" {
		return tools.TranslateResult{}, fmt.Errorf("Unsupported target language: %s", target)
	}
	if _, ok := supportedLanguages[source]; !ok {
		return tools.TranslateResult{}, fmt.Errorf("Unsupported source language: %s", source)
	}

	detected := source
	if source == "auto" {
		detected = DetectLanguage(req.Text)
	}
	translated := req.Text
	if detected != target {
		translated = cannedTranslations[target]
	}

	return tools.TranslateResult{
		Success:        true,
		TranslatedText: translated,
		SourceLanguage: source,
		TargetLanguage: target,
		Method:         "ai",
	}, nil
}

var languageHints = map[string][]string{
	"de": {"der", "die", "das", "und", "ist", "mit", "für", "von", "auf", "zu", "ich", "sie", "wir"},
	"fr": {"le", "la", "les", "et", "est", "avec", "pour", "de", "sur", "à", "je", "il", "nous"},
	"en": {"the", "and", "is", "with", "for", "of", "on", "to", "i", "you", "we", "they"},
}

// DetectLanguage scores common function words; ties and misses fall back to
// English.
func DetectLanguage(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == ' ' || r == '\n' || r == '\t' || strings.ContainsRune(".,;:!?\"'()", r)
	})
	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[w]++
	}

	best, bestScore := "en", 0
	for _, lang := range []string{"en", "de", "fr"} {
		score := 0
		for _, hint := range languageHints[lang] {
			score += counts[hint]
		}
		if score > bestScore {
			best, bestScore = lang, score
		}
	}
	return best
}

// DraftEmail builds an email for the given request and splits the subject
// line from the body.
func DraftEmail(req tools.EmailRequest) tools.EmailResult {
	emailType := req.EmailType
	if emailType == "" {
		emailType = "general_response"
	}
	template, ok := emailTemplates[emailType]
	if !ok {
		template = emailTemplates["general_response"]
	}

	greeting := "Dear Valued Customer,"
	if req.CustomerName != "" {
		greeting = fmt.Sprintf("Dear %s,", req.CustomerName)
	}
	var body strings.Builder
	fmt.Fprintf(&body, "Subject: %s\n\n%s\n\n", template.subject, greeting)
	body.WriteString("Thank you for contacting Wiko Cutlery.")
	if req.ProductName != "" {
		fmt.Fprintf(&body, " We appreciate your interest in the %s.", req.ProductName)
	}
	if req.OrderNumber != "" {
		fmt.Fprintf(&body, " We have located your order %s.", req.OrderNumber)
	}
	body.WriteString("\n\nWe will follow up within one business day.\n\nBest regards,\n\nCustomer Service Team\nWiko Cutlery Inc.")

	full := body.String()
	subject, text := splitSubject(full, template.subject)
	return tools.EmailResult{
		Success:   true,
		Subject:   subject,
		Body:      text,
		FullEmail: full,
		EmailType: emailType,
		Tone:      template.tone,
	}
}

// splitSubject pulls a leading "Subject:" line out of an email draft.
func splitSubject(email, fallback string) (string, string) {
	subject := fallback
	var body []string
	for _, line := range strings.Split(email, "\n") {
		if trimmed := strings.TrimSpace(line); strings.HasPrefix(trimmed, "Subject:") {
			subject = strings.TrimSpace(strings.TrimPrefix(trimmed, "Subject:"))
			continue
		}
		body = append(body, line)
	}
	return subject, strings.TrimSpace(strings.Join(body, "\n"))
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

package chat

import "fmt"

// ContextType steers which backend capability handles a message.
type ContextType string

const (
	ContextGeneral           ContextType = "general"
	ContextPDFAnalysis       ContextType = "pdf_analysis"
	ContextTranslation       ContextType = "translation"
	ContextEmailAssistance   ContextType = "email_assistance"
	ContextComplaintHandling ContextType = "complaint_handling"
)

// ContextTypes lists every supported context in display order.
func ContextTypes() []ContextType {
	return []ContextType{
		ContextGeneral,
		ContextPDFAnalysis,
		ContextTranslation,
		ContextEmailAssistance,
		ContextComplaintHandling,
	}
}

// ParseContextType validates raw. An empty string maps to ContextGeneral.
func ParseContextType(raw string) (ContextType, error) {
	if raw == "" {
		return ContextGeneral, nil
	}
	for _, ct := range ContextTypes() {
		if string(ct) == raw {
			return ct, nil
		}
	}
	return "", fmt.Errorf("unknown context type %q", raw)
}

// OrDefault returns ContextGeneral for the zero value.
func (c ContextType) OrDefault() ContextType {
	if c == "" {
		return ContextGeneral
	}
	return c
}

// Label is the human-readable name of the context.
func (c ContextType) Label() string {
	switch c.OrDefault() {
	case ContextGeneral:
		return "General Chat"
	case ContextPDFAnalysis:
		return "PDF Analysis"
	case ContextTranslation:
		return "Translation"
	case ContextEmailAssistance:
		return "Email Assistant"
	case ContextComplaintHandling:
		return "Complaint Handling"
	default:
		return string(c)
	}
}

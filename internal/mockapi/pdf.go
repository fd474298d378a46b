package mockapi

import (
	"bytes"
	"errors"
	"regexp"
	"strings"

	"github.com/wiko-cutlery/assistant-portal/internal/model/tools"
)

var errInvalidPDF = errors.New("Invalid PDF file")

var (
	pdfMagic    = []byte("%PDF-")
	pageObject  = regexp.MustCompile(`/Type\s*/Page\b`)
	textShowing = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)\s*Tj`)

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b`),
		regexp.MustCompile(`\b\d{4}[/-]\d{1,2}[/-]\d{1,2}\b`),
		regexp.MustCompile(`(?i)\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2},? \d{4}\b`),
	}
	amountPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\$\d{1,3}(?:,\d{3})*(?:\.\d{2})?`),
		regexp.MustCompile(`€\d{1,3}(?:,\d{3})*(?:\.\d{2})?`),
		regexp.MustCompile(`(?i)\b\d{1,3}(?:,\d{3})*(?:\.\d{2})?\s*(?:USD|EUR|GBP|dollars?|euros?)\b`),
	}
	companyPattern = regexp.MustCompile(`\b[A-Z][A-Za-z&]+(?: [A-Z][A-Za-z&]+)* (?:Inc|Ltd|GmbH|LLC|Corp|AG)\b\.?`)
)

var businessTerms = []string{
	"revenue", "profit", "invoice", "order", "contract", "complaint", "warranty",
	"shipment", "delivery", "customer", "refund", "quarter", "sales", "product",
}

// inspectPDF validates the upload and pulls out page count and visible
// text from uncompressed content streams.
func inspectPDF(data []byte) (tools.PDFInfo, string, error) {
	if !bytes.HasPrefix(data, pdfMagic) {
		return tools.PDFInfo{}, "", errInvalidPDF
	}

	var text []string
	for _, match := range textShowing.FindAllSubmatch(data, -1) {
		text = append(text, unescapePDFString(string(match[1])))
	}
	fullText := strings.Join(text, " ")

	pages := len(pageObject.FindAll(data, -1))
	if pages == 0 {
		pages = 1
	}

	return tools.PDFInfo{
		PageCount: pages,
		WordCount: len(strings.Fields(fullText)),
		FileSize:  int64(len(data)),
	}, fullText, nil
}

func unescapePDFString(s string) string {
	replacer := strings.NewReplacer(`\(`, "(", `\)`, ")", `\\`, `\`, `\n`, " ", `\r`, " ", `\t`, " ")
	return replacer.Replace(s)
}

// analyzeBusinessContent extracts dates, amounts, companies and key terms.
func analyzeBusinessContent(text string) tools.BusinessAnalysis {
	analysis := tools.BusinessAnalysis{
		Dates:     []string{},
		Amounts:   []string{},
		Companies: []string{},
		KeyTerms:  []string{},
	}
	for _, pattern := range datePatterns {
		analysis.Dates = appendUnique(analysis.Dates, pattern.FindAllString(text, -1)...)
	}
	for _, pattern := range amountPatterns {
		analysis.Amounts = appendUnique(analysis.Amounts, pattern.FindAllString(text, -1)...)
	}
	analysis.Companies = appendUnique(analysis.Companies, companyPattern.FindAllString(text, -1)...)

	lower := strings.ToLower(text)
	for _, term := range businessTerms {
		if strings.Contains(lower, term) {
			analysis.KeyTerms = append(analysis.KeyTerms, term)
		}
	}
	return analysis
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		seen := false
		for _, existing := range dst {
			if existing == v {
				seen = true
				break
			}
		}
		if !seen {
			dst = append(dst, v)
		}
	}
	return dst
}

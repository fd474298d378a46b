package complaint

import (
	"fmt"
	"sort"
	"strings"
)

// Severity 表示投诉的严重程度。
type Severity string

const (
	Low      Severity = "Low"
	Medium   Severity = "Medium"
	High     Severity = "High"
	Critical Severity = "Critical"
)

// Concern 是投诉中识别出的问题类别。
type Concern string

const (
	Durability   Concern = "Product durability"
	Construction Concern = "Construction quality"
	Delivery     Concern = "Shipping and delivery"
	Billing      Concern = "Billing and refunds"
	Safety       Concern = "Product safety"
	Service      Concern = "Customer service experience"
)

// Assessment 给出投诉的严重程度与识别出的问题。
type Assessment struct {
	Severity Severity
	Score    int
	Concerns []Concern
}

var concernKeywords = map[Concern][]string{
	Durability:   {"dull", "blunt", "rust", "rusty", "stain", "chipped", "wore out", "stumpf", "rostet"},
	Construction: {"loose", "handle", "broken", "crack", "bent", "wobbl", "defect", "kaputt", "locker"},
	Delivery:     {"late", "delay", "never arrived", "not arrived", "shipping", "tracking", "lieferung", "damaged in transit"},
	Billing:      {"refund", "charged", "invoice", "overcharged", "payment", "money back", "rechnung"},
	Safety:       {"injur", "cut myself", "bleed", "hospital", "dangerous", "unsafe", "verletzt"},
	Service:      {"rude", "no response", "ignored", "unhelpful", "waiting for weeks", "nobody answered"},
}

// 部分类别天然更严重，额外加权。
var concernWeight = map[Concern]int{
	Safety:  6,
	Billing: 1,
}

var escalationKeywords = []string{
	"lawyer", "legal", "sue", "chargeback", "press", "social media", "anwalt",
	"never buy", "unacceptable", "disgusted", "furious", "worst",
}

// Analyze 根据投诉文本给出严重程度评估。
func Analyze(text string) Assessment {
	normalized := strings.TrimSpace(strings.ToLower(text))
	if normalized == "" {
		return Assessment{Severity: Low}
	}

	scores := make(map[Concern]int)
	for concern, keywords := range concernKeywords {
		for _, word := range keywords {
			if strings.Contains(normalized, word) {
				scores[concern] += 3 + concernWeight[concern]
			}
		}
	}

	total := 0
	concerns := make([]Concern, 0, len(scores))
	for concern, score := range scores {
		total += score
		concerns = append(concerns, concern)
	}
	sort.Slice(concerns, func(i, j int) bool {
		if scores[concerns[i]] != scores[concerns[j]] {
			return scores[concerns[i]] > scores[concerns[j]]
		}
		return concerns[i] < concerns[j]
	})

	for _, word := range escalationKeywords {
		if strings.Contains(normalized, word) {
			total += 4
		}
	}
	// 感叹号代表情绪强烈，封顶避免刷分。
	total += min(strings.Count(text, "!"), 3)

	return Assessment{Severity: severityFor(total, scores[Safety] > 0), Score: total, Concerns: concerns}
}

func severityFor(score int, safety bool) Severity {
	switch {
	case safety || score >= 16:
		return Critical
	case score >= 9:
		return High
	case score >= 3:
		return Medium
	default:
		return Low
	}
}

// Report 生成与后端模拟服务格式一致的分析报告。
func Report(a Assessment) string {
	var b strings.Builder
	b.WriteString("**Complaint Analysis Report**\n\n")
	fmt.Fprintf(&b, "**Issue Severity:** %s\n", a.Severity)

	b.WriteString("\n**Main Concerns Identified:**\n")
	if len(a.Concerns) == 0 {
		b.WriteString("1. General dissatisfaction\n")
	}
	for i, concern := range a.Concerns {
		fmt.Fprintf(&b, "%d. %s\n", i+1, concern)
	}

	b.WriteString("\n**Recommended Response Strategy:**\n")
	fmt.Fprintf(&b, "1. **Immediate Acknowledgment**: Respond within %s\n", responseWindow(a.Severity))
	b.WriteString("2. **Empathetic Approach**: Acknowledge frustration and apologize\n")
	b.WriteString("3. **Solution-Focused**: Offer replacement and quality assurance\n")

	b.WriteString("\n**Escalation Recommendations:**\n")
	switch a.Severity {
	case Critical:
		b.WriteString("- Escalate to a manager immediately\n")
	case High:
		b.WriteString("- Escalate to a manager if the first response does not resolve the issue\n")
	default:
		b.WriteString("- If customer remains unsatisfied after replacement, escalate to manager\n")
	}
	return b.String()
}

func responseWindow(s Severity) string {
	switch s {
	case Critical:
		return "1 hour"
	case High:
		return "2 hours"
	case Medium:
		return "4 hours"
	default:
		return "1 business day"
	}
}

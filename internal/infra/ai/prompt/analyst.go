package prompt

import (
	"fmt"
	"strings"
)

const truncatedSuffix = " ...(truncated)"

// GetSystemPrompt is the system message for content analysis.
func GetSystemPrompt() string {
	return `You are an expert content analyzer. Your job is to read extracted text from various sources (images, videos, PDFs, documents, etc.) and provide comprehensive, intelligent explanations. Focus on clarity, key insights, and actionable information.`
}

// GetStreamSystemPrompt is the shorter system message used for streamed explanations.
func GetStreamSystemPrompt() string {
	return `You are an expert content analyzer. Provide comprehensive, intelligent explanations of extracted text content.`
}

// Hints are the optional facts mentioned in the user prompt. Zero values are omitted.
type Hints struct {
	OriginalName string
	FrameCount   int
	PageCount    int
}

// BuildUserPrompt wraps the extracted text in the analysis instructions.
// Text longer than maxChars characters is cut and marked as truncated.
func BuildUserPrompt(text, fileType string, h Hints, maxChars int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I've extracted text from a %s file. Please analyze this content and provide:\n\n", fileType)
	b.WriteString("1. **Comprehensive Explanation**: A detailed explanation of what this content is about\n")
	b.WriteString("2. **Key Summary**: A concise summary (2-3 sentences)\n")
	b.WriteString("3. **Key Points**: Main takeaways or important information (bullet points)\n\n")

	if h.OriginalName != "" {
		fmt.Fprintf(&b, "Original File: %s\n", h.OriginalName)
	}
	if h.FrameCount > 0 {
		fmt.Fprintf(&b, "Note: This video contained %d analyzed frames\n", h.FrameCount)
	}
	if h.PageCount > 0 {
		fmt.Fprintf(&b, "Note: This document has %d pages\n", h.PageCount)
	}

	b.WriteString("\nExtracted Content:\n---\n")
	b.WriteString(Truncate(text, maxChars))
	b.WriteString("\n---\n\n")
	b.WriteString(`Please provide your analysis in this format:

**EXPLANATION:**
[Your detailed explanation here]

**SUMMARY:**
[Your concise summary here]

**KEY POINTS:**
- [Point 1]
- [Point 2]
- [Point 3]
...`)
	return b.String()
}

// Truncate cuts s to at most max characters and appends the truncation marker
// when anything was dropped. max <= 0 disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + truncatedSuffix
}

// GetChatSystemPrompt builds the system message for a follow-up question,
// embedding previously extracted content when there is any.
func GetChatSystemPrompt(context string, maxChars int) string {
	if strings.TrimSpace(context) == "" {
		return "You are a helpful AI assistant. Answer questions clearly and accurately."
	}
	r := []rune(context)
	if maxChars > 0 && len(r) > maxChars {
		context = string(r[:maxChars])
	}
	return "You are a helpful AI assistant. You have access to previously analyzed content. " +
		"Use this context to answer the user's questions accurately and comprehensively.\n\nContext:\n" + context
}

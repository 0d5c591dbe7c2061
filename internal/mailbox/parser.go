package mailbox

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ExtractSenderEmail extracts just the email address from a "From" header
// e.g., "John Doe <john@example.com>" -> "john@example.com"
func ExtractSenderEmail(from string) string {
	emailRegex := regexp.MustCompile(`<([^>]+)>`)
	matches := emailRegex.FindStringSubmatch(from)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	// If no angle brackets, assume the whole thing is an email
	return strings.TrimSpace(from)
}

// ExtractSenderName extracts the display name from a "From" header
// e.g., "John Doe <john@example.com>" -> "John Doe"
func ExtractSenderName(from string) string {
	if idx := strings.Index(from, "<"); idx > 0 {
		name := strings.TrimSpace(from[:idx])
		name = strings.Trim(name, "\"'")
		return name
	}

	return ExtractSenderEmail(from)
}

// TruncateText truncates text to a maximum length on a rune boundary,
// adding ellipsis if needed
func TruncateText(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return text[:runeBoundary(text, maxLen)]
	}
	return text[:runeBoundary(text, maxLen-3)] + "..."
}

// runeBoundary moves idx back to the start of the UTF-8 rune it lands in.
func runeBoundary(s string, idx int) int {
	for idx > 0 && !utf8.RuneStart(s[idx]) {
		idx--
	}
	return idx
}

var quotedLineRegex = regexp.MustCompile(`(?m)^>.*$`)
var multiNewlineRegex = regexp.MustCompile(`\n{3,}`)

// CleanBody normalizes an email body for analysis: strips signatures and
// quoted thread history, collapses whitespace.
func CleanBody(body string) string {
	// Wire-format bodies arrive with CRLF endings
	body = strings.ReplaceAll(body, "\r\n", "\n")

	sigPatterns := []string{
		"-- \n",           // Standard signature delimiter
		"---\n",           // Alternative delimiter
		"Sent from my",    // Mobile signatures
		"Get Outlook for", // Outlook mobile signature
	}

	for _, pattern := range sigPatterns {
		if idx := strings.Index(body, pattern); idx > 0 {
			body = body[:idx]
		}
	}

	body = quotedLineRegex.ReplaceAllString(body, "")
	body = multiNewlineRegex.ReplaceAllString(body, "\n\n")

	return strings.TrimSpace(body)
}

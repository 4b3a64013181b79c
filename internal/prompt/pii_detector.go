package prompt

import (
	"regexp"
	"sort"
	"strings"
)

// PIIType represents different types of PII that can be detected
type PIIType string

const (
	PIITypeEmail      PIIType = "email"
	PIITypePhone      PIIType = "phone"
	PIITypeCreditCard PIIType = "credit_card"
)

// PIIDetection represents a detected PII instance
type PIIDetection struct {
	Type     PIIType
	Value    string
	StartPos int
	EndPos   int
}

var (
	// Email pattern - RFC 5322 simplified
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	// Card numbers: 13-19 digits, optionally grouped by spaces or dashes
	creditCardPattern = regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`)

	// Phone numbers: optional country code, optional area code in parens,
	// then digit groups separated by space, dot or dash
	phonePattern = regexp.MustCompile(`(?:\+\d{1,3}[\s.\-]?)?(?:\(\d{1,4}\)[\s.\-]?)?\d{2,4}(?:[\s.\-]?\d{2,4}){1,3}`)
)

const minPhoneDigits = 7

// DetectPII returns true if the text likely contains PII.
func DetectPII(text string) bool {
	return len(DetectAllPII(text)) > 0
}

// DetectAllPII returns non-overlapping PII detections ordered by position.
// When matches overlap, cards win over emails and emails over phones.
func DetectAllPII(text string) []PIIDetection {
	var detections []PIIDetection

	for _, m := range creditCardPattern.FindAllStringIndex(text, -1) {
		if luhnCheck(text[m[0]:m[1]]) {
			detections = appendIfFree(detections, PIITypeCreditCard, text, m)
		}
	}
	for _, m := range emailPattern.FindAllStringIndex(text, -1) {
		detections = appendIfFree(detections, PIITypeEmail, text, m)
	}
	for _, m := range phonePattern.FindAllStringIndex(text, -1) {
		if countDigits(text[m[0]:m[1]]) >= minPhoneDigits && standsAlone(text, m[0]) {
			detections = appendIfFree(detections, PIITypePhone, text, m)
		}
	}

	sort.Slice(detections, func(i, j int) bool {
		return detections[i].StartPos < detections[j].StartPos
	})
	return detections
}

// RedactPII replaces every detected PII span with a typed placeholder
func RedactPII(text string) string {
	detections := DetectAllPII(text)
	if len(detections) == 0 {
		return text
	}

	var b strings.Builder
	last := 0
	for _, d := range detections {
		b.WriteString(text[last:d.StartPos])
		b.WriteString(getRedactionString(d.Type))
		last = d.EndPos
	}
	b.WriteString(text[last:])
	return b.String()
}

func appendIfFree(detections []PIIDetection, typ PIIType, text string, m []int) []PIIDetection {
	for _, d := range detections {
		if m[0] < d.EndPos && d.StartPos < m[1] {
			return detections
		}
	}
	return append(detections, PIIDetection{
		Type:     typ,
		Value:    text[m[0]:m[1]],
		StartPos: m[0],
		EndPos:   m[1],
	})
}

// getRedactionString returns an appropriate redaction string for the PII type
func getRedactionString(piiType PIIType) string {
	switch piiType {
	case PIITypeEmail:
		return "[EMAIL_REDACTED]"
	case PIITypePhone:
		return "[PHONE_REDACTED]"
	case PIITypeCreditCard:
		return "[CC_REDACTED]"
	default:
		return "[REDACTED]"
	}
}

// standsAlone rejects digit runs glued to an identifier, such as INV-202405-0003
func standsAlone(text string, start int) bool {
	if start == 0 {
		return true
	}
	c := text[start-1]
	isAlnum := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
	return !isAlnum && c != '-' && c != '_'
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// luhnCheck validates a credit card number using the Luhn algorithm
func luhnCheck(cardNumber string) bool {
	cardNumber = strings.ReplaceAll(cardNumber, " ", "")
	cardNumber = strings.ReplaceAll(cardNumber, "-", "")

	if len(cardNumber) < 13 || len(cardNumber) > 19 {
		return false
	}

	sum := 0
	isSecond := false

	// Traverse from right to left
	for i := len(cardNumber) - 1; i >= 0; i-- {
		digit := int(cardNumber[i] - '0')

		if isSecond {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}

		sum += digit
		isSecond = !isSecond
	}

	return sum%10 == 0
}

package prompt

import (
	"testing"
)

func TestDetectPII(t *testing.T) {
	tests := []struct {
		name     string
		prompt   string
		expected bool
	}{
		{
			name:     "no PII",
			prompt:   "Draft a caption for the spring campaign launch",
			expected: false,
		},
		{
			name:     "contains email",
			prompt:   "Contact me at john.doe@example.com for more info",
			expected: true,
		},
		{
			name:     "contains phone",
			prompt:   "Call me at 555-123-4567",
			expected: true,
		},
		{
			name:     "contains international phone",
			prompt:   "WhatsApp +57 300 123 4567",
			expected: true,
		},
		{
			name:     "contains credit card",
			prompt:   "Use card 4532015112830366",
			expected: true,
		},
		{
			name:     "short numbers are not phones",
			prompt:   "Budget is 2500 for 12 posts",
			expected: false,
		},
		{
			name:     "card-shaped number failing luhn",
			prompt:   "Order 4532015112830367 shipped",
			expected: true, // still long enough to read as a phone-like digit run
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := DetectPII(tt.prompt)
			if result != tt.expected {
				t.Errorf("DetectPII() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestDetectAllPII(t *testing.T) {
	tests := []struct {
		name          string
		prompt        string
		expectedTypes []PIIType
	}{
		{
			name:          "no PII",
			prompt:        "Hello world",
			expectedTypes: nil,
		},
		{
			name:          "single email",
			prompt:        "Contact: user@example.com",
			expectedTypes: []PIIType{PIITypeEmail},
		},
		{
			name:          "email then phone in order",
			prompt:        "Email ana@agency.co or call (604) 555-0199",
			expectedTypes: []PIIType{PIITypeEmail, PIITypePhone},
		},
		{
			name:          "grouped card wins over phone",
			prompt:        "Card: 4111 1111 1111 1111 thanks",
			expectedTypes: []PIIType{PIITypeCreditCard},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detections := DetectAllPII(tt.prompt)
			if len(detections) != len(tt.expectedTypes) {
				t.Fatalf("got %d detections (%+v), want %d", len(detections), detections, len(tt.expectedTypes))
			}
			for i, d := range detections {
				if d.Type != tt.expectedTypes[i] {
					t.Errorf("detection %d type = %s, want %s", i, d.Type, tt.expectedTypes[i])
				}
				if tt.prompt[d.StartPos:d.EndPos] != d.Value {
					t.Errorf("detection %d span does not match value %q", i, d.Value)
				}
			}
		})
	}
}

func TestRedactPII(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "no PII",
			input:    "Hello world",
			expected: "Hello world",
		},
		{
			name:     "email",
			input:    "Send the deck to maria@client.com today",
			expected: "Send the deck to [EMAIL_REDACTED] today",
		},
		{
			name:     "phone",
			input:    "Her number is 555-123-4567.",
			expected: "Her number is [PHONE_REDACTED].",
		},
		{
			name:     "card",
			input:    "Charge 4111-1111-1111-1111 now",
			expected: "Charge [CC_REDACTED] now",
		},
		{
			name:     "invoice numbers are kept",
			input:    "Invoice INV-202405-0003 is due",
			expected: "Invoice INV-202405-0003 is due",
		},
		{
			name:     "mixed",
			input:    "a@b.io / 555 123 4567",
			expected: "[EMAIL_REDACTED] / [PHONE_REDACTED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RedactPII(tt.input); got != tt.expected {
				t.Errorf("RedactPII() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestLuhnCheck(t *testing.T) {
	tests := []struct {
		number string
		valid  bool
	}{
		{"4532015112830366", true},
		{"4111 1111 1111 1111", true},
		{"5425-2334-3010-9903", true},
		{"4532015112830367", false},
		{"123", false},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			if got := luhnCheck(tt.number); got != tt.valid {
				t.Errorf("luhnCheck(%s) = %v, want %v", tt.number, got, tt.valid)
			}
		})
	}
}

func BenchmarkRedactPII(b *testing.B) {
	text := "Reach the client at ops@brand.com or +1 604 555 0199 about invoice INV-202405-0003"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RedactPII(text)
	}
}

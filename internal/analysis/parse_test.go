package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vbonduro/arogya/internal/domain"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantValue string
		wantOK    bool
	}{
		{name: "plain label", line: "Condition: Eczema", wantValue: "Eczema", wantOK: true},
		{name: "bold markdown label", line: "**Disease Name:** Tinea corporis", wantValue: "Tinea corporis", wantOK: true},
		{name: "label without value", line: "Description:", wantValue: "", wantOK: true},
		{name: "unknown label", line: "Treatment: moisturise", wantOK: false},
		{name: "no colon", line: "The image shows a red patch", wantOK: false},
		{name: "empty", line: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, value, ok := ParseLabel(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantValue, value)
		})
	}
}

func TestParseAssessment(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected domain.Assessment
	}{
		{
			name: "all sections",
			raw: `Disease Name: Atopic dermatitis
Confidence Score: 70%
Description: Dry, itchy patches
on the inner elbow.
Medical Disclaimer: This is not a diagnosis.`,
			expected: domain.Assessment{
				Condition:   "Atopic dermatitis",
				Confidence:  "70%",
				Description: "Dry, itchy patches on the inner elbow.",
				Disclaimer:  "This is not a diagnosis.",
			},
		},
		{
			name: "markdown with preamble",
			raw: `Here is my analysis of the image.

## **Condition:** Acne vulgaris
- **Confidence:** Moderate
**Description:**
Inflamed papules across the cheek.

*Disclaimer:* Consult a dermatologist.`,
			expected: domain.Assessment{
				Condition:   "Acne vulgaris",
				Confidence:  "Moderate",
				Description: "Inflamed papules across the cheek.",
				Disclaimer:  "Consult a dermatologist.",
			},
		},
		{
			name:     "free text without labels",
			raw:      "I cannot determine a condition from this image.",
			expected: domain.Assessment{},
		},
		{
			name:     "empty",
			raw:      "",
			expected: domain.Assessment{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseAssessment(tt.raw))
		})
	}
}

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterContent(t *testing.T) {
	ms := NewModerationService()
	tests := []struct {
		text   string
		ok     bool
		reason string
	}{
		{"Rob sorted our leak in an hour. Highly recommend.", true, ""},
		{"", true, ""},
		{"What a scam", false, "inappropriate_language"},
		{"see https://example.com", false, "url_not_allowed"},
		{"email me at ann@example.com", false, "contact_info_not_allowed"},
		{"call 555-123-4567", false, "contact_info_not_allowed"},
		{"sooooo good", false, "spam_detected"},
		{"GREAT WORK AMAZING SERVICE THANKS", false, "excessive_caps"},
		{"Classic brass fittings", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			ok, reason := ms.FilterContent(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestCheckReturnsFieldMessage(t *testing.T) {
	ms := NewModerationService()
	assert.NoError(t, ms.Check("text", "Lovely job"))

	err := ms.Check("text", "!!!!! bad")
	assert.EqualError(t, err, "text: Your review appears to be spam.")
}

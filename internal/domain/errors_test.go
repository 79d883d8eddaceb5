package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("load: %w", NewError(KindInvalidImage, errors.New("unknown format")))

	assert.ErrorIs(t, err, ErrInvalidImage)
	assert.NotErrorIs(t, err, ErrNoImage)
	assert.Equal(t, KindInvalidImage, KindOf(err))
}

func TestTransportFailureMessageCarriesCause(t *testing.T) {
	err := NewError(KindTransportFailure, errors.New("connection refused"))

	assert.Equal(t, "Analysis failed: connection refused", err.Message)
	assert.Equal(t, "Analysis failed: connection refused", UserMessage(err))
}

func TestUserMessageFallsBackToErrorText(t *testing.T) {
	assert.Equal(t, "boom", UserMessage(errors.New("boom")))
	assert.Equal(t, "Please select an image first", UserMessage(ErrNoImage))
}

func TestParseFacingMode(t *testing.T) {
	tests := []struct {
		in   string
		want FacingMode
		ok   bool
	}{
		{"", FacingBack, true},
		{"environment", FacingBack, true},
		{"user", FacingFront, true},
		{"front", FacingFront, true},
		{"sideways", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseFacingMode(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.Equal(t, FacingFront, FacingBack.Opposite())
	assert.Equal(t, FacingBack, FacingFront.Opposite())
}

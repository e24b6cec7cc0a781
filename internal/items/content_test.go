package items

import (
	"errors"
	"testing"
)

func TestEncodeAnswerRejectsBadMultipleChoice(t *testing.T) {
	tests := []struct {
		name    string
		payload MultipleChoicePayload
	}{
		{name: "no-options", payload: MultipleChoicePayload{CorrectOption: 0}},
		{name: "correct-too-high", payload: MultipleChoicePayload{Options: []string{"a", "b"}, CorrectOption: 2}},
		{name: "correct-negative", payload: MultipleChoicePayload{Options: []string{"a", "b"}, CorrectOption: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := encodeAnswer(tt.payload); !errors.Is(err, ErrInvalidPayload) {
				t.Fatalf("expected ErrInvalidPayload, got %v", err)
			}
		})
	}
}

func TestDecodeAnswerDispatchesOnFormat(t *testing.T) {
	encoded, err := encodeAnswer(MultipleChoicePayload{Options: []string{"x", "y"}, CorrectOption: 1})
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}

	decoded, err := decodeAnswer(FormatMultipleChoice, encoded)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	mc, ok := decoded.(MultipleChoicePayload)
	if !ok {
		t.Fatalf("expected MultipleChoicePayload, got %T", decoded)
	}
	if mc.CorrectOption != 1 || len(mc.Options) != 2 {
		t.Fatalf("decoded payload mismatch: %#v", mc)
	}

	fr, err := decodeAnswer(FormatFreeResponse, "free text answer")
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if fr.(FreeResponsePayload).Text != "free text answer" {
		t.Fatalf("free response text should pass through untouched")
	}
}

func TestDecodeAnswerRejectsUnknownFormat(t *testing.T) {
	if _, err := decodeAnswer(Format("essay"), "raw"); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestNewFormatValidatesTag(t *testing.T) {
	if _, err := NewFormat("MC"); err != nil {
		t.Fatalf("MC should be valid: %v", err)
	}
	if _, err := NewFormat("FR"); err != nil {
		t.Fatalf("FR should be valid: %v", err)
	}
	if _, err := NewFormat("TF"); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat for TF, got %v", err)
	}
}

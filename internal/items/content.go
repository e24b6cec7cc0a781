package items

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Format discriminates the answer payload shape of a snapshot.
type Format string

const (
	// FormatMultipleChoice marks a structured options-plus-key payload.
	FormatMultipleChoice Format = "MC"
	// FormatFreeResponse marks an opaque free-text payload.
	FormatFreeResponse Format = "FR"
)

var (
	// ErrInvalidFormat indicates an unrecognised format tag.
	ErrInvalidFormat = errors.New("items: invalid format")
	// ErrInvalidPayload indicates an answer payload that cannot be encoded or decoded.
	ErrInvalidPayload = errors.New("items: invalid answer payload")
)

// Payload is the format-specific answer content of a snapshot.
type Payload interface {
	Format() Format
}

// MultipleChoicePayload carries answer options and the index of the correct one.
type MultipleChoicePayload struct {
	Options       []string `json:"options"`
	CorrectOption int      `json:"correct_option"`
}

// Format identifies the payload as multiple choice.
func (MultipleChoicePayload) Format() Format {
	return FormatMultipleChoice
}

// FreeResponsePayload carries an opaque model answer.
type FreeResponsePayload struct {
	Text string `json:"text"`
}

// Format identifies the payload as free response.
func (FreeResponsePayload) Format() Format {
	return FormatFreeResponse
}

// NewFormat validates a raw format tag.
func NewFormat(rawInput string) (Format, error) {
	switch Format(rawInput) {
	case FormatMultipleChoice:
		return FormatMultipleChoice, nil
	case FormatFreeResponse:
		return FormatFreeResponse, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, rawInput)
	}
}

// encodeAnswer serializes a payload into the text column representation.
// Multiple choice payloads are stored as JSON; free response text is stored raw.
func encodeAnswer(payload Payload) (string, error) {
	switch typed := payload.(type) {
	case MultipleChoicePayload:
		if len(typed.Options) == 0 {
			return "", fmt.Errorf("%w: multiple choice payload without options", ErrInvalidPayload)
		}
		if typed.CorrectOption < 0 || typed.CorrectOption >= len(typed.Options) {
			return "", fmt.Errorf("%w: correct option %d out of range", ErrInvalidPayload, typed.CorrectOption)
		}
		encoded, err := json.Marshal(typed)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return string(encoded), nil
	case FreeResponsePayload:
		return typed.Text, nil
	case nil:
		return "", fmt.Errorf("%w: nil payload", ErrInvalidPayload)
	default:
		return "", fmt.Errorf("%w: unsupported payload type %T", ErrInvalidPayload, payload)
	}
}

// decodeAnswer restores the typed payload from the stored column value.
func decodeAnswer(format Format, raw string) (Payload, error) {
	switch format {
	case FormatMultipleChoice:
		var payload MultipleChoicePayload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return payload, nil
	case FormatFreeResponse:
		return FreeResponsePayload{Text: raw}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
	}
}

// SnapshotDraft is the caller-supplied content for a new item version.
type SnapshotDraft struct {
	Question               string
	Answer                 Payload
	Difficulty             string
	WrongAnswerExplanation string
}

func (d SnapshotDraft) validate() error {
	if d.Question == "" {
		return fmt.Errorf("%w: empty question", ErrInvalidPayload)
	}
	if d.Answer == nil {
		return fmt.Errorf("%w: nil answer", ErrInvalidPayload)
	}
	if d.Difficulty == "" {
		return fmt.Errorf("%w: empty difficulty", ErrInvalidPayload)
	}
	return nil
}

// ItemView is the read model for one item version plus its tags.
type ItemView struct {
	ItemID                 ItemID
	Version                int64
	Question               string
	Answer                 Payload
	Format                 Format
	Difficulty             string
	WrongAnswerExplanation string
	Topics                 []string
	Skills                 []string
}

// CompositionItem pairs an item view with its rank inside a composition.
type CompositionItem struct {
	ItemView
	OrderNumber int64
}

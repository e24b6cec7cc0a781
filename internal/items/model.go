package items

import (
	"errors"
	"fmt"
	"strings"
)

const maxIdentifierLength = 190

var (
	// ErrInvalidUserID indicates that a user identifier is empty or exceeds storage bounds.
	ErrInvalidUserID = errors.New("items: invalid user id")
	// ErrInvalidClassID indicates that a class identifier is empty or exceeds storage bounds.
	ErrInvalidClassID = errors.New("items: invalid class id")
	// ErrInvalidItemID indicates that an item identifier is empty or exceeds storage bounds.
	ErrInvalidItemID = errors.New("items: invalid item id")
	// ErrInvalidTestID indicates that a test identifier is empty or exceeds storage bounds.
	ErrInvalidTestID = errors.New("items: invalid test id")
	// ErrInvalidRequirementID indicates that a requirement identifier is empty or exceeds storage bounds.
	ErrInvalidRequirementID = errors.New("items: invalid requirement id")
)

func validateIdentifier(rawInput string, invalid error) (string, error) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty", invalid)
	}
	if len(trimmed) > maxIdentifierLength {
		return "", fmt.Errorf("%w: exceeds %d characters", invalid, maxIdentifierLength)
	}
	return trimmed, nil
}

// UserID represents a validated user identifier.
type UserID string

// NewUserID validates raw input and returns a UserID.
func NewUserID(rawInput string) (UserID, error) {
	value, err := validateIdentifier(rawInput, ErrInvalidUserID)
	if err != nil {
		return "", err
	}
	return UserID(value), nil
}

// String returns the underlying string identifier.
func (id UserID) String() string {
	return string(id)
}

// ClassID represents a validated class identifier.
type ClassID string

// NewClassID validates raw input and returns a ClassID.
func NewClassID(rawInput string) (ClassID, error) {
	value, err := validateIdentifier(rawInput, ErrInvalidClassID)
	if err != nil {
		return "", err
	}
	return ClassID(value), nil
}

// String returns the underlying string identifier.
func (id ClassID) String() string {
	return string(id)
}

// ItemID represents a validated item identifier.
type ItemID string

// NewItemID validates raw input and returns an ItemID.
func NewItemID(rawInput string) (ItemID, error) {
	value, err := validateIdentifier(rawInput, ErrInvalidItemID)
	if err != nil {
		return "", err
	}
	return ItemID(value), nil
}

// String returns the underlying string identifier.
func (id ItemID) String() string {
	return string(id)
}

// TestID represents a validated test (composition) identifier.
type TestID string

// NewTestID validates raw input and returns a TestID.
func NewTestID(rawInput string) (TestID, error) {
	value, err := validateIdentifier(rawInput, ErrInvalidTestID)
	if err != nil {
		return "", err
	}
	return TestID(value), nil
}

// String returns the underlying string identifier.
func (id TestID) String() string {
	return string(id)
}

// RequirementID represents a validated requirement identifier.
type RequirementID string

// NewRequirementID validates raw input and returns a RequirementID.
func NewRequirementID(rawInput string) (RequirementID, error) {
	value, err := validateIdentifier(rawInput, ErrInvalidRequirementID)
	if err != nil {
		return "", err
	}
	return RequirementID(value), nil
}

// String returns the underlying string identifier.
func (id RequirementID) String() string {
	return string(id)
}

// Owner scopes items, compositions and id namespaces to a (user, class) pair.
type Owner struct {
	UserID  UserID
	ClassID ClassID
}

// NewOwner validates both identifiers and returns the owner scope.
func NewOwner(rawUserID, rawClassID string) (Owner, error) {
	userID, err := NewUserID(rawUserID)
	if err != nil {
		return Owner{}, err
	}
	classID, err := NewClassID(rawClassID)
	if err != nil {
		return Owner{}, err
	}
	return Owner{UserID: userID, ClassID: classID}, nil
}

package items

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// TargetFlags marks which content fields a requirement applies to.
type TargetFlags struct {
	Question               bool
	Answer                 bool
	WrongAnswerExplanation bool
	Topics                 bool
	Skills                 bool
}

// Requirement is the read model for one stored modification instruction.
type Requirement struct {
	RequirementID    RequirementID
	TestID           TestID
	ItemID           string
	Version          int64
	Content          string
	UsageCount       int64
	ApplicationCount int64
	Targets          TargetFlags
}

// SimilarityOracle reports whether a candidate requirement duplicates one the
// owner already stored. The store performs no similarity matching itself.
type SimilarityOracle interface {
	IsDuplicate(ctx context.Context, owner Owner, content string) (bool, error)
}

// RequirementDraft is the caller-supplied input for a new requirement. Usage
// and application counts are fixed at creation; the ledger never increments
// them on reuse.
type RequirementDraft struct {
	RequirementID RequirementID
	TestID        TestID
	ItemID        string
	Content       string
	Targets       TargetFlags
}

func (d RequirementDraft) validate() error {
	if d.Content == "" {
		return fmt.Errorf("%w: empty requirement content", ErrInvalidPayload)
	}
	return nil
}

// addRequirementTx appends one immutable requirement record.
func addRequirementTx(tx *gorm.DB, owner Owner, draft RequirementDraft) (Requirement, error) {
	if err := draft.validate(); err != nil {
		return Requirement{}, err
	}
	record := RequirementRecord{
		UserID:                 owner.UserID.String(),
		ClassID:                owner.ClassID.String(),
		TestID:                 draft.TestID.String(),
		RequirementID:          draft.RequirementID.String(),
		ItemID:                 draft.ItemID,
		Version:                0,
		Content:                draft.Content,
		UsageCount:             1,
		ApplicationCount:       1,
		Question:               draft.Targets.Question,
		Answer:                 draft.Targets.Answer,
		WrongAnswerExplanation: draft.Targets.WrongAnswerExplanation,
		Topics:                 draft.Targets.Topics,
		Skills:                 draft.Targets.Skills,
	}
	if err := tx.Create(&record).Error; err != nil {
		return Requirement{}, err
	}
	return requirementFromRecord(record), nil
}

// findRequirementTx looks one requirement up by id within the owner scope.
func findRequirementTx(tx *gorm.DB, owner Owner, requirementID RequirementID) (Requirement, error) {
	var record RequirementRecord
	err := ownerScope(tx, owner).
		Where("req_id = ?", requirementID.String()).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Requirement{}, fmt.Errorf("%w: requirement %s", ErrNotFound, requirementID.String())
	}
	if err != nil {
		return Requirement{}, err
	}
	return requirementFromRecord(record), nil
}

func requirementFromRecord(record RequirementRecord) Requirement {
	return Requirement{
		RequirementID:    RequirementID(record.RequirementID),
		TestID:           TestID(record.TestID),
		ItemID:           record.ItemID,
		Version:          record.Version,
		Content:          record.Content,
		UsageCount:       record.UsageCount,
		ApplicationCount: record.ApplicationCount,
		Targets: TargetFlags{
			Question:               record.Question,
			Answer:                 record.Answer,
			WrongAnswerExplanation: record.WrongAnswerExplanation,
			Topics:                 record.Topics,
			Skills:                 record.Skills,
		},
	}
}

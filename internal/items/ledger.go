package items

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func ownerScope(tx *gorm.DB, owner Owner) *gorm.DB {
	return tx.Where("user_id = ? AND class_id = ?", owner.UserID.String(), owner.ClassID.String())
}

func itemScope(tx *gorm.DB, owner Owner, itemID ItemID) *gorm.DB {
	return ownerScope(tx, owner).Where("item_id = ?", itemID.String())
}

// latestVersionTx resolves the current version pointer for an item. Mutating
// callers pass forUpdate to hold the pointer row for the whole transaction.
func latestVersionTx(tx *gorm.DB, owner Owner, itemID ItemID, forUpdate bool) (int64, error) {
	query := tx
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var pointer ItemPointer
	err := itemScope(query, owner, itemID).Take(&pointer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: item %s", ErrNotFound, itemID.String())
	}
	if err != nil {
		return 0, err
	}
	return pointer.Version, nil
}

// ensureOwnerLinkTx lazily records the (user, class) membership the first
// time anything is written under that owner.
func ensureOwnerLinkTx(tx *gorm.DB, owner Owner) error {
	link := UserClass{UserID: owner.UserID.String(), ClassID: owner.ClassID.String()}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error
}

// ensureTestLinkTx registers a composition under its owner on first use.
func ensureTestLinkTx(tx *gorm.DB, owner Owner, testID TestID) error {
	link := UserTest{
		UserID:  owner.UserID.String(),
		ClassID: owner.ClassID.String(),
		TestID:  testID.String(),
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error
}

// writeVersionTx persists the snapshot row and tag rows for one version. The
// tag allocator is seeded from the owner's current maxima inside the same
// transaction so concurrent allocations cannot claim the same id.
func writeVersionTx(tx *gorm.DB, owner Owner, itemID ItemID, version int64, draft SnapshotDraft, topics, skills []string) error {
	if err := draft.validate(); err != nil {
		return err
	}
	answer, err := encodeAnswer(draft.Answer)
	if err != nil {
		return err
	}

	snapshot := ItemSnapshot{
		UserID:                 owner.UserID.String(),
		ClassID:                owner.ClassID.String(),
		ItemID:                 itemID.String(),
		Version:                version,
		QuestionPart:           draft.Question,
		AnswerPart:             answer,
		Format:                 string(draft.Answer.Format()),
		Difficulty:             draft.Difficulty,
		WrongAnswerExplanation: draft.WrongAnswerExplanation,
	}
	if err := tx.Create(&snapshot).Error; err != nil {
		return err
	}

	return writeTagsTx(tx, owner, itemID, version, topics, skills)
}

// createItemTx writes version 0 of a fresh item: pointer, snapshot, tags,
// and the lazy owner link.
func createItemTx(tx *gorm.DB, owner Owner, itemID ItemID, draft SnapshotDraft, topics, skills []string) error {
	if err := ensureOwnerLinkTx(tx, owner); err != nil {
		return err
	}
	pointer := ItemPointer{
		UserID:  owner.UserID.String(),
		ClassID: owner.ClassID.String(),
		ItemID:  itemID.String(),
		Version: 0,
	}
	if err := tx.Create(&pointer).Error; err != nil {
		return err
	}
	return writeVersionTx(tx, owner, itemID, 0, draft, topics, skills)
}

// appendVersionTx writes the next snapshot for an existing item and advances
// the pointer. Prior versions are untouched.
func appendVersionTx(tx *gorm.DB, owner Owner, itemID ItemID, draft SnapshotDraft, topics, skills []string) (int64, error) {
	current, err := latestVersionTx(tx, owner, itemID, true)
	if err != nil {
		return 0, err
	}
	newVersion := current + 1
	if err := writeVersionTx(tx, owner, itemID, newVersion, draft, topics, skills); err != nil {
		return 0, err
	}
	err = itemScope(tx.Model(&ItemPointer{}), owner, itemID).
		Update("version", newVersion).Error
	if err != nil {
		return 0, err
	}
	return newVersion, nil
}

// undoTx deletes the newest snapshot and its tags, then retreats the pointer.
// The truncation is destructive: the removed version cannot be redone.
func undoTx(tx *gorm.DB, owner Owner, itemID ItemID) (int64, error) {
	current, err := latestVersionTx(tx, owner, itemID, true)
	if err != nil {
		return 0, err
	}
	if current <= 0 {
		return 0, fmt.Errorf("%w: cannot undo the base version", ErrInvalidState)
	}

	for _, model := range []any{&ItemTopic{}, &ItemSkill{}, &ItemSnapshot{}} {
		err := itemScope(tx, owner, itemID).Where("version = ?", current).Delete(model).Error
		if err != nil {
			return 0, err
		}
	}

	restored := current - 1
	err = itemScope(tx.Model(&ItemPointer{}), owner, itemID).
		Update("version", restored).Error
	if err != nil {
		return 0, err
	}
	return restored, nil
}

// deleteItemRowsTx removes every snapshot, tag row and the pointer for an
// item. Composition entries are the caller's responsibility.
func deleteItemRowsTx(tx *gorm.DB, owner Owner, itemID ItemID) error {
	for _, model := range []any{&ItemSkill{}, &ItemTopic{}, &ItemSnapshot{}, &ItemPointer{}} {
		if err := itemScope(tx, owner, itemID).Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

// readSnapshotTx loads the snapshot and tag names for one version. Both the
// history row and the pointer row must exist; the two tables must agree that
// the item is alive.
func readSnapshotTx(tx *gorm.DB, owner Owner, itemID ItemID, version int64) (ItemView, error) {
	if _, err := latestVersionTx(tx, owner, itemID, false); err != nil {
		return ItemView{}, err
	}

	var snapshot ItemSnapshot
	err := itemScope(tx, owner, itemID).Where("version = ?", version).Take(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ItemView{}, fmt.Errorf("%w: item %s version %d", ErrNotFound, itemID.String(), version)
	}
	if err != nil {
		return ItemView{}, err
	}

	format, err := NewFormat(snapshot.Format)
	if err != nil {
		return ItemView{}, err
	}
	answer, err := decodeAnswer(format, snapshot.AnswerPart)
	if err != nil {
		return ItemView{}, err
	}

	topics, skills, err := listTagNamesTx(tx, owner, itemID, version)
	if err != nil {
		return ItemView{}, err
	}

	return ItemView{
		ItemID:                 itemID,
		Version:                version,
		Question:               snapshot.QuestionPart,
		Answer:                 answer,
		Format:                 format,
		Difficulty:             snapshot.Difficulty,
		WrongAnswerExplanation: snapshot.WrongAnswerExplanation,
		Topics:                 topics,
		Skills:                 skills,
	}, nil
}

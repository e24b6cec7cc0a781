package items

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ranks are dense and 1-based: at all times the order numbers of a
// composition form the contiguous run {1..N}. Every mutation below preserves
// that by shifting the affected band inside the caller's transaction.

func testScope(tx *gorm.DB, owner Owner, testID TestID) *gorm.DB {
	return ownerScope(tx, owner).Where("test_id = ?", testID.String())
}

// nextRankTx reserves the rank for count new entries. With no desired rank it
// appends after the current maximum. With a desired rank it opens a gap of
// width count at that position; the new rows must be inserted before the
// transaction commits.
func nextRankTx(tx *gorm.DB, owner Owner, testID TestID, desired *int64, count int64) (int64, error) {
	if desired != nil {
		err := testScope(tx.Model(&TestEntry{}), owner, testID).
			Where("order_number >= ?", *desired).
			Update("order_number", gorm.Expr("order_number + ?", count)).Error
		if err != nil {
			return 0, err
		}
		return *desired, nil
	}

	var maxRank int64
	err := testScope(tx.Model(&TestEntry{}), owner, testID).
		Select("COALESCE(MAX(order_number), 0)").
		Scan(&maxRank).Error
	if err != nil {
		return 0, err
	}
	return maxRank + 1, nil
}

// insertEntryTx adds one composition entry at a rank already reserved via
// nextRankTx.
func insertEntryTx(tx *gorm.DB, owner Owner, testID TestID, itemID ItemID, rank int64) error {
	entry := TestEntry{
		UserID:      owner.UserID.String(),
		ClassID:     owner.ClassID.String(),
		TestID:      testID.String(),
		ItemID:      itemID.String(),
		OrderNumber: rank,
	}
	return tx.Create(&entry).Error
}

// entryRankTx returns the rank of an item inside a composition, locking the
// row for the transaction.
func entryRankTx(tx *gorm.DB, owner Owner, testID TestID, itemID ItemID) (int64, error) {
	var entry TestEntry
	err := testScope(tx.Clauses(clause.Locking{Strength: "UPDATE"}), owner, testID).
		Where("item_id = ?", itemID.String()).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: item %s not in test %s", ErrNotFound, itemID.String(), testID.String())
	}
	if err != nil {
		return 0, err
	}
	return entry.OrderNumber, nil
}

// moveEntryTx rotates the band between the old and new rank and drops the
// moved item at its new position. Only entries inside the band shift.
func moveEntryTx(tx *gorm.DB, owner Owner, testID TestID, itemID ItemID, oldRank, newRank int64) error {
	if oldRank == newRank {
		return nil
	}

	var count int64
	err := testScope(tx.Model(&TestEntry{}), owner, testID).Count(&count).Error
	if err != nil {
		return err
	}
	if newRank < 1 || newRank > count || oldRank < 1 || oldRank > count {
		return fmt.Errorf("%w: rank %d -> %d outside composition of size %d", ErrInvalidState, oldRank, newRank, count)
	}

	others := testScope(tx.Model(&TestEntry{}), owner, testID).
		Where("item_id <> ?", itemID.String())
	if newRank > oldRank {
		err = others.Where("order_number > ? AND order_number <= ?", oldRank, newRank).
			Update("order_number", gorm.Expr("order_number - 1")).Error
	} else {
		err = others.Where("order_number >= ? AND order_number < ?", newRank, oldRank).
			Update("order_number", gorm.Expr("order_number + 1")).Error
	}
	if err != nil {
		return err
	}

	return testScope(tx.Model(&TestEntry{}), owner, testID).
		Where("item_id = ?", itemID.String()).
		Update("order_number", newRank).Error
}

// removeEntryTx deletes the entry and closes the rank gap it leaves behind.
func removeEntryTx(tx *gorm.DB, owner Owner, testID TestID, itemID ItemID, rank int64) error {
	err := testScope(tx, owner, testID).
		Where("item_id = ?", itemID.String()).
		Delete(&TestEntry{}).Error
	if err != nil {
		return err
	}
	return testScope(tx.Model(&TestEntry{}), owner, testID).
		Where("order_number > ?", rank).
		Update("order_number", gorm.Expr("order_number - 1")).Error
}

// listEntriesTx returns the composition entries ascending by rank. This
// ordering is the externally visible contract for test item order.
func listEntriesTx(tx *gorm.DB, owner Owner, testID TestID) ([]TestEntry, error) {
	var entries []TestEntry
	err := testScope(tx, owner, testID).
		Order("order_number ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

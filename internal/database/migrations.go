package database

import (
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationBackfillUserClasses = "2026-04-18_backfill_user_classes"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillUserClasses, apply: backfillUserClasses},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// backfillUserClasses repairs owner membership rows for items written before
// the lazy user_classes insert existed.
func backfillUserClasses(db *gorm.DB) error {
	const insertMissing = `
INSERT INTO user_classes (user_id, class_id)
SELECT DISTINCT ic.user_id, ic.class_id
FROM item_current ic
WHERE NOT EXISTS (
    SELECT 1 FROM user_classes uc
    WHERE uc.user_id = ic.user_id AND uc.class_id = ic.class_id
);`
	return db.Exec(insertMissing).Error
}

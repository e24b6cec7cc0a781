package items

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type sequenceIDGenerator struct {
	next int
}

func (g *sequenceIDGenerator) NewID() (string, error) {
	g.next++
	return fmt.Sprintf("uid%06d", g.next), nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:itemstore_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db := newTestDB(t)
	service, err := NewService(ServiceConfig{
		Database:   db,
		IDProvider: &sequenceIDGenerator{},
	})
	if err != nil {
		t.Fatalf("failed to construct item service: %v", err)
	}

	return service, db
}

func mustOwner(t *testing.T, userID, classID string) Owner {
	t.Helper()
	owner, err := NewOwner(userID, classID)
	if err != nil {
		t.Fatalf("unexpected owner error: %v", err)
	}
	return owner
}

func mustItemID(t *testing.T, value string) ItemID {
	t.Helper()
	id, err := NewItemID(value)
	if err != nil {
		t.Fatalf("unexpected item id error: %v", err)
	}
	return id
}

func mustTestID(t *testing.T, value string) TestID {
	t.Helper()
	id, err := NewTestID(value)
	if err != nil {
		t.Fatalf("unexpected test id error: %v", err)
	}
	return id
}

func mustRequirementID(t *testing.T, value string) RequirementID {
	t.Helper()
	id, err := NewRequirementID(value)
	if err != nil {
		t.Fatalf("unexpected requirement id error: %v", err)
	}
	return id
}

func freeResponseDraft(question string) ItemDraft {
	return ItemDraft{
		Snapshot: SnapshotDraft{
			Question:   question,
			Answer:     FreeResponsePayload{Text: "answer to " + question},
			Difficulty: "medium",
		},
	}
}

func multipleChoiceDraft(question string, topics, skills []string) ItemDraft {
	return ItemDraft{
		Snapshot: SnapshotDraft{
			Question: question,
			Answer: MultipleChoicePayload{
				Options:       []string{"alpha", "beta", "gamma", "delta"},
				CorrectOption: 1,
			},
			Difficulty:             "hard",
			WrongAnswerExplanation: "beta is the only option consistent with the premise",
		},
		Topics: topics,
		Skills: skills,
	}
}

func mustCreateItem(t *testing.T, service *Service, owner Owner, testID TestID, draft ItemDraft) CreatedItem {
	t.Helper()
	created, err := service.CreateItem(context.Background(), owner, testID, draft, nil)
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	return created
}

func compositionRanks(t *testing.T, db *gorm.DB, owner Owner, testID TestID) map[string]int64 {
	t.Helper()
	var entries []TestEntry
	err := db.Where("user_id = ? AND class_id = ? AND test_id = ?",
		owner.UserID.String(), owner.ClassID.String(), testID.String()).
		Find(&entries).Error
	if err != nil {
		t.Fatalf("failed to load composition entries: %v", err)
	}
	ranks := make(map[string]int64, len(entries))
	for _, entry := range entries {
		ranks[entry.ItemID] = entry.OrderNumber
	}
	return ranks
}

func assertDenseRanks(t *testing.T, ranks map[string]int64) {
	t.Helper()
	seen := make(map[int64]string, len(ranks))
	for itemID, rank := range ranks {
		if rank < 1 || rank > int64(len(ranks)) {
			t.Fatalf("rank %d of %s outside [1,%d]", rank, itemID, len(ranks))
		}
		if other, ok := seen[rank]; ok {
			t.Fatalf("rank %d duplicated by %s and %s", rank, other, itemID)
		}
		seen[rank] = itemID
	}
}

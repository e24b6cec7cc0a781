package items

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrNotFound indicates a referenced owner, item, version, entry or
	// requirement that does not exist. Callers must not retry.
	ErrNotFound = errors.New("items: not found")
	// ErrInvalidState indicates an operation that violates a lifecycle
	// invariant, such as undoing the base version or moving to an
	// out-of-range rank. Callers must not retry unmodified.
	ErrInvalidState = errors.New("items: invalid state")
	// ErrDuplicateRequirement indicates the similarity oracle matched the
	// candidate against an existing requirement.
	ErrDuplicateRequirement = errors.New("items: duplicate requirement")

	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// ServiceError carries a stable operation.reason code alongside the cause so
// callers map failures without parsing driver error text.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the stable operation.reason identifier.
func (e *ServiceError) Code() string {
	return e.code
}

const (
	opServiceNew           = "items.service.new"
	opCreateItems          = "items.create_items"
	opUpdateItem           = "items.update_item"
	opUndoItem             = "items.undo_item"
	opCopyItem             = "items.copy_item"
	opDeleteItem           = "items.delete_item"
	opReorderItem          = "items.reorder_item"
	opGetSnapshot          = "items.get_snapshot"
	opListComposition      = "items.list_composition"
	opDuplicateComposition = "items.duplicate_composition"
	opAddRequirement       = "items.add_requirement"
	opGetRequirement       = "items.get_requirement"
)

func newServiceError(operation, reason string, cause error) error {
	code := fmt.Sprintf("%s.%s", operation, reason)
	return &ServiceError{code: code, err: cause}
}

// IDProvider issues opaque unique identifiers for new items.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies of the store facade.
type ServiceConfig struct {
	Database *gorm.DB
	// IDProvider seeds fresh item identifiers and copy suffixes.
	IDProvider IDProvider
	// Oracle, when present, gates AddRequirement on semantic duplicates.
	Oracle SimilarityOracle
	Logger *zap.Logger
}

// Service is the transactional facade over the versioned item store. Every
// composite operation runs inside one database transaction; a failure rolls
// the whole operation back.
type Service struct {
	db         *gorm.DB
	idProvider IDProvider
	oracle     SimilarityOracle
	logger     *zap.Logger
}

// NewService validates the configuration and constructs the facade.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:         cfg.Database,
		idProvider: cfg.IDProvider,
		oracle:     cfg.Oracle,
		logger:     logger,
	}, nil
}

// ItemDraft bundles the snapshot content and tag names for one new item.
type ItemDraft struct {
	Snapshot SnapshotDraft
	Topics   []string
	Skills   []string
}

// CreatedItem reports the identity assigned to one created item.
type CreatedItem struct {
	ItemID      ItemID
	Version     int64
	OrderNumber int64
}

// CreateItem writes one new item at version 0 and places it in the
// composition, either at the desired rank or appended at the end.
func (s *Service) CreateItem(ctx context.Context, owner Owner, testID TestID, draft ItemDraft, desiredRank *int64) (CreatedItem, error) {
	created, err := s.CreateItems(ctx, owner, testID, []ItemDraft{draft}, desiredRank)
	if err != nil {
		return CreatedItem{}, err
	}
	return created[0], nil
}

// CreateItems writes a batch of new items in caller order. When a desired
// rank is supplied the gap opened is as wide as the batch, so the new entries
// take consecutive ranks without colliding with shifted survivors.
func (s *Service) CreateItems(ctx context.Context, owner Owner, testID TestID, drafts []ItemDraft, desiredRank *int64) ([]CreatedItem, error) {
	if len(drafts) == 0 {
		return nil, newServiceError(opCreateItems, "empty_batch", ErrInvalidState)
	}
	if desiredRank != nil && *desiredRank < 1 {
		return nil, newServiceError(opCreateItems, "rank_out_of_range", ErrInvalidState)
	}

	created := make([]CreatedItem, 0, len(drafts))
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureTestLinkTx(tx, owner, testID); err != nil {
			return newServiceError(opCreateItems, "test_link_failed", err)
		}
		firstRank, err := nextRankTx(tx, owner, testID, desiredRank, int64(len(drafts)))
		if err != nil {
			return newServiceError(opCreateItems, "rank_reserve_failed", err)
		}
		for i, draft := range drafts {
			itemID, err := s.newItemID(owner)
			if err != nil {
				return newServiceError(opCreateItems, "id_generation_failed", err)
			}
			if err := createItemTx(tx, owner, itemID, draft.Snapshot, draft.Topics, draft.Skills); err != nil {
				return newServiceError(opCreateItems, "create_failed", err)
			}
			rank := firstRank + int64(i)
			if err := insertEntryTx(tx, owner, testID, itemID, rank); err != nil {
				return newServiceError(opCreateItems, "entry_insert_failed", err)
			}
			created = append(created, CreatedItem{ItemID: itemID, Version: 0, OrderNumber: rank})
		}
		return nil
	})
	if txErr != nil {
		s.logError(opCreateItems, txErr,
			zap.String("user_id", owner.UserID.String()),
			zap.String("test_id", testID.String()))
		return nil, txErr
	}
	return created, nil
}

// UpdateItem appends a new version for an existing item and advances the
// current pointer. The item's composition rank is untouched.
func (s *Service) UpdateItem(ctx context.Context, owner Owner, itemID ItemID, draft ItemDraft) (int64, error) {
	var newVersion int64
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		version, err := appendVersionTx(tx, owner, itemID, draft.Snapshot, draft.Topics, draft.Skills)
		if err != nil {
			return newServiceError(opUpdateItem, reasonFor(err, "append_failed"), err)
		}
		newVersion = version
		return nil
	})
	if txErr != nil {
		s.logError(opUpdateItem, txErr,
			zap.String("user_id", owner.UserID.String()),
			zap.String("item_id", itemID.String()))
		return 0, txErr
	}
	return newVersion, nil
}

// UndoItem discards the newest version of an item and returns the restored
// snapshot. The discarded version is deleted; there is no redo.
func (s *Service) UndoItem(ctx context.Context, owner Owner, itemID ItemID) (ItemView, error) {
	var restored ItemView
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		version, err := undoTx(tx, owner, itemID)
		if err != nil {
			return newServiceError(opUndoItem, reasonFor(err, "undo_failed"), err)
		}
		view, err := readSnapshotTx(tx, owner, itemID, version)
		if err != nil {
			return newServiceError(opUndoItem, "restored_read_failed", err)
		}
		restored = view
		return nil
	})
	if txErr != nil {
		s.logError(opUndoItem, txErr,
			zap.String("user_id", owner.UserID.String()),
			zap.String("item_id", itemID.String()))
		return ItemView{}, txErr
	}
	return restored, nil
}

// CopyItem duplicates the source item's latest snapshot and tags as version 0
// of a fresh item id and inserts it directly below the source, shifting later
// entries down by one. Tag rows get freshly allocated ids; names carry over.
func (s *Service) CopyItem(ctx context.Context, owner Owner, testID TestID, sourceItemID ItemID) (CreatedItem, error) {
	var created CreatedItem
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sourceRank, err := entryRankTx(tx, owner, testID, sourceItemID)
		if err != nil {
			return newServiceError(opCopyItem, reasonFor(err, "source_entry_failed"), err)
		}
		sourceVersion, err := latestVersionTx(tx, owner, sourceItemID, false)
		if err != nil {
			return newServiceError(opCopyItem, reasonFor(err, "source_version_failed"), err)
		}
		source, err := readSnapshotTx(tx, owner, sourceItemID, sourceVersion)
		if err != nil {
			return newServiceError(opCopyItem, reasonFor(err, "source_read_failed"), err)
		}

		copyID, err := s.newCopyID(sourceItemID)
		if err != nil {
			return newServiceError(opCopyItem, "id_generation_failed", err)
		}

		newRank := sourceRank + 1
		if _, err := nextRankTx(tx, owner, testID, &newRank, 1); err != nil {
			return newServiceError(opCopyItem, "rank_reserve_failed", err)
		}

		draft := SnapshotDraft{
			Question:               source.Question,
			Answer:                 source.Answer,
			Difficulty:             source.Difficulty,
			WrongAnswerExplanation: source.WrongAnswerExplanation,
		}
		if err := createItemTx(tx, owner, copyID, draft, source.Topics, source.Skills); err != nil {
			return newServiceError(opCopyItem, "create_failed", err)
		}
		if err := insertEntryTx(tx, owner, testID, copyID, newRank); err != nil {
			return newServiceError(opCopyItem, "entry_insert_failed", err)
		}
		created = CreatedItem{ItemID: copyID, Version: 0, OrderNumber: newRank}
		return nil
	})
	if txErr != nil {
		s.logError(opCopyItem, txErr,
			zap.String("user_id", owner.UserID.String()),
			zap.String("test_id", testID.String()),
			zap.String("item_id", sourceItemID.String()))
		return CreatedItem{}, txErr
	}
	return created, nil
}

// DeleteItem removes every version of an item, its tags, and its composition
// entry, then closes the rank gap. All effects commit or roll back together.
func (s *Service) DeleteItem(ctx context.Context, owner Owner, testID TestID, itemID ItemID) error {
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rank, err := entryRankTx(tx, owner, testID, itemID)
		if err != nil {
			return newServiceError(opDeleteItem, reasonFor(err, "entry_lookup_failed"), err)
		}
		if err := deleteItemRowsTx(tx, owner, itemID); err != nil {
			return newServiceError(opDeleteItem, "row_delete_failed", err)
		}
		if err := removeEntryTx(tx, owner, testID, itemID, rank); err != nil {
			return newServiceError(opDeleteItem, "entry_delete_failed", err)
		}
		return nil
	})
	if txErr != nil {
		s.logError(opDeleteItem, txErr,
			zap.String("user_id", owner.UserID.String()),
			zap.String("test_id", testID.String()),
			zap.String("item_id", itemID.String()))
	}
	return txErr
}

// ReorderItem moves an item to a new rank, rotating the band in between.
func (s *Service) ReorderItem(ctx context.Context, owner Owner, testID TestID, itemID ItemID, oldRank, newRank int64) error {
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		storedRank, err := entryRankTx(tx, owner, testID, itemID)
		if err != nil {
			return newServiceError(opReorderItem, reasonFor(err, "entry_lookup_failed"), err)
		}
		if storedRank != oldRank {
			return newServiceError(opReorderItem, "stale_rank",
				fmt.Errorf("%w: stored rank %d, caller rank %d", ErrInvalidState, storedRank, oldRank))
		}
		if err := moveEntryTx(tx, owner, testID, itemID, oldRank, newRank); err != nil {
			return newServiceError(opReorderItem, reasonFor(err, "move_failed"), err)
		}
		return nil
	})
	if txErr != nil {
		s.logError(opReorderItem, txErr,
			zap.String("user_id", owner.UserID.String()),
			zap.String("test_id", testID.String()),
			zap.String("item_id", itemID.String()))
	}
	return txErr
}

// GetSnapshot reads one item version. A nil version resolves the current one.
func (s *Service) GetSnapshot(ctx context.Context, owner Owner, itemID ItemID, version *int64) (ItemView, error) {
	db := s.db.WithContext(ctx)
	resolved := int64(0)
	if version != nil {
		resolved = *version
	} else {
		latest, err := latestVersionTx(db, owner, itemID, false)
		if err != nil {
			wrapped := newServiceError(opGetSnapshot, reasonFor(err, "version_lookup_failed"), err)
			s.logError(opGetSnapshot, wrapped, zap.String("item_id", itemID.String()))
			return ItemView{}, wrapped
		}
		resolved = latest
	}
	view, err := readSnapshotTx(db, owner, itemID, resolved)
	if err != nil {
		wrapped := newServiceError(opGetSnapshot, reasonFor(err, "read_failed"), err)
		s.logError(opGetSnapshot, wrapped, zap.String("item_id", itemID.String()))
		return ItemView{}, wrapped
	}
	return view, nil
}

// PreviousSnapshot reads the version directly below the current one, without
// modifying anything. It fails with ErrInvalidState at the base version.
func (s *Service) PreviousSnapshot(ctx context.Context, owner Owner, itemID ItemID) (ItemView, error) {
	db := s.db.WithContext(ctx)
	latest, err := latestVersionTx(db, owner, itemID, false)
	if err != nil {
		wrapped := newServiceError(opGetSnapshot, reasonFor(err, "version_lookup_failed"), err)
		s.logError(opGetSnapshot, wrapped, zap.String("item_id", itemID.String()))
		return ItemView{}, wrapped
	}
	if latest <= 0 {
		wrapped := newServiceError(opGetSnapshot, "no_previous_version",
			fmt.Errorf("%w: item %s has no previous version", ErrInvalidState, itemID.String()))
		return ItemView{}, wrapped
	}
	view, err := readSnapshotTx(db, owner, itemID, latest-1)
	if err != nil {
		wrapped := newServiceError(opGetSnapshot, reasonFor(err, "read_failed"), err)
		s.logError(opGetSnapshot, wrapped, zap.String("item_id", itemID.String()))
		return ItemView{}, wrapped
	}
	return view, nil
}

// ListComposition returns the composition's items in rank order, each at its
// current version with its tags.
func (s *Service) ListComposition(ctx context.Context, owner Owner, testID TestID) ([]CompositionItem, error) {
	db := s.db.WithContext(ctx)
	entries, err := listEntriesTx(db, owner, testID)
	if err != nil {
		wrapped := newServiceError(opListComposition, "list_failed", err)
		s.logError(opListComposition, wrapped, zap.String("test_id", testID.String()))
		return nil, wrapped
	}

	views := make([]CompositionItem, 0, len(entries))
	for _, entry := range entries {
		itemID := ItemID(entry.ItemID)
		version, err := latestVersionTx(db, owner, itemID, false)
		if err != nil {
			wrapped := newServiceError(opListComposition, reasonFor(err, "version_lookup_failed"), err)
			s.logError(opListComposition, wrapped, zap.String("item_id", entry.ItemID))
			return nil, wrapped
		}
		view, err := readSnapshotTx(db, owner, itemID, version)
		if err != nil {
			wrapped := newServiceError(opListComposition, reasonFor(err, "read_failed"), err)
			s.logError(opListComposition, wrapped, zap.String("item_id", entry.ItemID))
			return nil, wrapped
		}
		views = append(views, CompositionItem{ItemView: view, OrderNumber: entry.OrderNumber})
	}
	return views, nil
}

// DuplicateComposition registers a "copy of" test id for the source
// composition and clones its entries at identical ranks. The entries
// reference the same items; snapshots are not duplicated.
func (s *Service) DuplicateComposition(ctx context.Context, owner Owner, sourceTestID TestID) (TestID, error) {
	var newTestID TestID
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entries, err := listEntriesTx(tx, owner, sourceTestID)
		if err != nil {
			return newServiceError(opDuplicateComposition, "list_failed", err)
		}
		if len(entries) == 0 {
			return newServiceError(opDuplicateComposition, "source_empty",
				fmt.Errorf("%w: test %s", ErrNotFound, sourceTestID.String()))
		}

		candidate, err := uniqueCopyTestIDTx(tx, owner, sourceTestID)
		if err != nil {
			return newServiceError(opDuplicateComposition, "id_generation_failed", err)
		}
		if err := ensureTestLinkTx(tx, owner, candidate); err != nil {
			return newServiceError(opDuplicateComposition, "test_link_failed", err)
		}
		for _, entry := range entries {
			if err := insertEntryTx(tx, owner, candidate, ItemID(entry.ItemID), entry.OrderNumber); err != nil {
				return newServiceError(opDuplicateComposition, "entry_insert_failed", err)
			}
		}
		newTestID = candidate
		return nil
	})
	if txErr != nil {
		s.logError(opDuplicateComposition, txErr,
			zap.String("user_id", owner.UserID.String()),
			zap.String("test_id", sourceTestID.String()))
		return "", txErr
	}
	return newTestID, nil
}

// AddRequirement stores one immutable requirement. When a similarity oracle
// is configured, semantically duplicate candidates are rejected before any
// write happens.
func (s *Service) AddRequirement(ctx context.Context, owner Owner, draft RequirementDraft) (Requirement, error) {
	if s.oracle != nil {
		duplicate, err := s.oracle.IsDuplicate(ctx, owner, draft.Content)
		if err != nil {
			wrapped := newServiceError(opAddRequirement, "oracle_failed", err)
			s.logError(opAddRequirement, wrapped, zap.String("req_id", draft.RequirementID.String()))
			return Requirement{}, wrapped
		}
		if duplicate {
			return Requirement{}, newServiceError(opAddRequirement, "duplicate_requirement",
				fmt.Errorf("%w: %s", ErrDuplicateRequirement, draft.RequirementID.String()))
		}
	}

	var stored Requirement
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		requirement, err := addRequirementTx(tx, owner, draft)
		if err != nil {
			return newServiceError(opAddRequirement, "insert_failed", err)
		}
		stored = requirement
		return nil
	})
	if txErr != nil {
		s.logError(opAddRequirement, txErr, zap.String("req_id", draft.RequirementID.String()))
		return Requirement{}, txErr
	}
	return stored, nil
}

// GetRequirement looks up one stored requirement by id.
func (s *Service) GetRequirement(ctx context.Context, owner Owner, requirementID RequirementID) (Requirement, error) {
	requirement, err := findRequirementTx(s.db.WithContext(ctx), owner, requirementID)
	if err != nil {
		wrapped := newServiceError(opGetRequirement, reasonFor(err, "lookup_failed"), err)
		s.logError(opGetRequirement, wrapped, zap.String("req_id", requirementID.String()))
		return Requirement{}, wrapped
	}
	return requirement, nil
}

// newItemID composes a fresh item identifier scoped under the owner.
func (s *Service) newItemID(owner Owner) (ItemID, error) {
	unique, err := s.idProvider.NewID()
	if err != nil {
		return "", err
	}
	return NewItemID(fmt.Sprintf("%s_%s_%s", owner.UserID.String(), owner.ClassID.String(), unique))
}

// newCopyID derives the copy's identifier from the source plus a short
// random suffix so repeated copies never collide.
func (s *Service) newCopyID(sourceItemID ItemID) (ItemID, error) {
	unique, err := s.idProvider.NewID()
	if err != nil {
		return "", err
	}
	suffix := strings.ReplaceAll(unique, "-", "")
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return NewItemID(fmt.Sprintf("%s_%s", sourceItemID.String(), suffix))
}

// uniqueCopyTestIDTx probes user_tests for an unused "copy of" identifier.
func uniqueCopyTestIDTx(tx *gorm.DB, owner Owner, sourceTestID TestID) (TestID, error) {
	candidate := fmt.Sprintf("copy of %s", sourceTestID.String())
	for attempt := 2; ; attempt++ {
		var count int64
		err := ownerScope(tx.Model(&UserTest{}), owner).
			Where("test_id = ?", candidate).
			Count(&count).Error
		if err != nil {
			return "", err
		}
		if count == 0 {
			return NewTestID(candidate)
		}
		candidate = fmt.Sprintf("copy (%d) of %s", attempt, sourceTestID.String())
	}
}

// reasonFor keeps taxonomy errors recognisable in the code while defaulting
// unexpected causes to the operation-specific reason.
func reasonFor(err error, fallback string) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	default:
		return fallback
	}
}

func (s *Service) loggerOrDefault() *zap.Logger {
	if s == nil || s.logger == nil {
		return noOpLogger
	}
	return s.logger
}

func (s *Service) logError(operation string, err error, fields ...zap.Field) {
	attrs := []zap.Field{zap.String("operation", operation)}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.loggerOrDefault().Error("item store error", attrs...)
}

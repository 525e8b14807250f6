package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
	"github.com/biroman/pkmnbindrnew-sub000/internal/layout"
	"github.com/biroman/pkmnbindrnew-sub000/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Binder Service — binder catalog, preferences and layout reads
// ─────────────────────────────────────────────────────────────

// BinderService manages binders and answers layout questions against their
// effective state.
type BinderService struct {
	store     *storage.BinderStore
	cards     *storage.CardStore
	snapshots *storage.SnapshotStore
	ledger    *storage.LedgerStore
	emitter   EventEmitter
	cache     Invalidator
}

// NewBinderService creates a BinderService.
func NewBinderService(
	store *storage.BinderStore,
	cards *storage.CardStore,
	snapshots *storage.SnapshotStore,
	ledger *storage.LedgerStore,
	emitter EventEmitter,
	cache Invalidator,
) *BinderService {
	return &BinderService{
		store:     store,
		cards:     cards,
		snapshots: snapshots,
		ledger:    ledger,
		emitter:   emitter,
		cache:     cache,
	}
}

// ── Binder CRUD ────────────────────────────────────────────

type CreateBinderInput struct {
	OwnerID            string `json:"ownerId"`
	Name               string `json:"name"`
	GridSize           string `json:"gridSize"`
	PageCount          int    `json:"pageCount"`
	ReverseHoloEnabled bool   `json:"reverseHoloEnabled"`
	AutoSyncCron       string `json:"autoSyncCron"`
}

func (s *BinderService) CreateBinder(ctx context.Context, input CreateBinderInput) (*domain.Binder, error) {
	if input.GridSize == "" {
		input.GridSize = "3x3"
	}
	if _, err := layout.ParseGridSize(input.GridSize); err != nil {
		return nil, err
	}
	if input.PageCount < 1 {
		input.PageCount = 1
	}

	b := &domain.Binder{
		ID:                 uuid.New().String(),
		OwnerID:            input.OwnerID,
		Name:               input.Name,
		GridSize:           input.GridSize,
		PageCount:          input.PageCount,
		ReverseHoloEnabled: input.ReverseHoloEnabled,
		AutoSyncCron:       input.AutoSyncCron,
	}
	if err := s.store.CreateBinder(b); err != nil {
		return nil, fmt.Errorf("create binder: %w", err)
	}
	s.cache.MarkStale(ctx, []string{BinderListKey(b.OwnerID), UserTotalsKey(b.OwnerID)})
	return b, nil
}

func (s *BinderService) GetBinder(id string) (*domain.Binder, error) {
	return s.store.GetBinder(id)
}

func (s *BinderService) ListBinders(ownerID string) ([]domain.Binder, error) {
	return s.store.ListBinders(ownerID)
}

func (s *BinderService) RenameBinder(ctx context.Context, id, name string) error {
	b, err := s.store.GetBinder(id)
	if err != nil {
		return err
	}
	b.Name = name
	if err := s.store.UpdateBinder(b); err != nil {
		return err
	}
	s.cache.MarkStale(ctx, []string{BinderListKey(b.OwnerID)})
	return nil
}

// DeleteBinder removes the binder with its snapshot, queued changes and
// sync history.
func (s *BinderService) DeleteBinder(ctx context.Context, id string) error {
	b, err := s.store.GetBinder(id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteBinder(id); err != nil {
		return err
	}
	s.cache.MarkStale(ctx, StaleKeysFor(b))
	return nil
}

// ReorderBinders persists a new display order for the owner's binders.
func (s *BinderService) ReorderBinders(ctx context.Context, ownerID string, binderIDs []string) error {
	if err := s.store.ReorderBinders(ownerID, binderIDs); err != nil {
		return err
	}
	s.cache.MarkStale(ctx, []string{BinderListKey(ownerID)})
	return nil
}

// ── Preferences ────────────────────────────────────────────

// SetGridSize changes the binder's grid after checking every effective
// placement still fits inside the new page dimensions.
func (s *BinderService) SetGridSize(ctx context.Context, id, token string) (*domain.Binder, error) {
	grid, err := layout.ParseGridSize(token)
	if err != nil {
		return nil, err
	}
	b, err := s.store.GetBinder(id)
	if err != nil {
		return nil, err
	}
	occ, err := s.effective(b)
	if err != nil {
		return nil, err
	}
	for cardID, ref := range occ.byCard {
		if ref.SlotInPage > grid.SlotsPerPage() {
			return nil, fmt.Errorf("card %s at page %d slot %d does not fit a %s grid", cardID, ref.PageNumber, ref.SlotInPage, token)
		}
	}

	b.GridSize = token
	if err := s.store.UpdateBinder(b); err != nil {
		return nil, err
	}
	s.cache.MarkStale(ctx, StaleKeysFor(b))
	return b, nil
}

// SetPageCount resizes the binder, refusing to shrink below a page that
// still holds cards.
func (s *BinderService) SetPageCount(ctx context.Context, id string, pageCount int) (*domain.Binder, error) {
	if pageCount < 1 {
		return nil, fmt.Errorf("page count must be at least 1")
	}
	b, err := s.store.GetBinder(id)
	if err != nil {
		return nil, err
	}
	occ, err := s.effective(b)
	if err != nil {
		return nil, err
	}
	last := layout.PhysicalPages(pageCount)
	for cardID, ref := range occ.byCard {
		if ref.PageNumber > last {
			return nil, fmt.Errorf("cannot shrink to %d pages: card %s is still placed on page %d", pageCount, cardID, ref.PageNumber)
		}
	}

	b.PageCount = pageCount
	if err := s.store.UpdateBinder(b); err != nil {
		return nil, err
	}
	s.cache.MarkStale(ctx, StaleKeysFor(b))
	return b, nil
}

// AddPages grows the binder by n pages.
func (s *BinderService) AddPages(ctx context.Context, id string, n int) (*domain.Binder, error) {
	if n < 1 {
		return nil, fmt.Errorf("page count must grow by at least 1")
	}
	b, err := s.store.GetBinder(id)
	if err != nil {
		return nil, err
	}
	return s.SetPageCount(ctx, id, b.PageCount+n)
}

// SetReverseHolo toggles the reverse-holo display mode.
func (s *BinderService) SetReverseHolo(ctx context.Context, id string, enabled bool) (*domain.Binder, error) {
	b, err := s.store.GetBinder(id)
	if err != nil {
		return nil, err
	}
	b.ReverseHoloEnabled = enabled
	if err := s.store.UpdateBinder(b); err != nil {
		return nil, err
	}
	s.cache.MarkStale(ctx, []string{PreferencesKey(b.ID), CardListKey(b.ID)})
	return b, nil
}

// ── Layout reads ───────────────────────────────────────────

// BinderCapacity reports slot usage for one binder.
type BinderCapacity struct {
	TotalSlots int `json:"totalSlots"`
	UsedSlots  int `json:"usedSlots"`
	FreeSlots  int `json:"freeSlots"`
}

func (s *BinderService) Capacity(id string) (*BinderCapacity, error) {
	b, err := s.store.GetBinder(id)
	if err != nil {
		return nil, err
	}
	occ, err := s.effective(b)
	if err != nil {
		return nil, err
	}
	total := layout.ComputeSlots(occ.grid, b.PageCount)
	used := len(occ.slots)
	return &BinderCapacity{TotalSlots: total, UsedSlots: used, FreeSlots: total - used}, nil
}

// FindAvailableSlots returns the first count free slots in reading order,
// skipping slots held by the snapshot or by queued changes.
func (s *BinderService) FindAvailableSlots(id string, count int) ([]layout.SlotAddress, error) {
	b, err := s.store.GetBinder(id)
	if err != nil {
		return nil, err
	}
	occ, err := s.effective(b)
	if err != nil {
		return nil, err
	}
	return layout.FindAvailableSlots(count, occ.grid, b.PageCount, occ.occupiedSet(), 0)
}

// RenderLayout returns the placements the UI should draw. With reverse
// holo enabled the effective card sequence is re-laid compactly with a
// derived variant inserted after each eligible card.
func (s *BinderService) RenderLayout(id string) ([]domain.CardPlacement, error) {
	b, err := s.store.GetBinder(id)
	if err != nil {
		return nil, err
	}
	occ, err := s.effective(b)
	if err != nil {
		return nil, err
	}
	placed := occ.placements()
	if !b.ReverseHoloEnabled {
		return placed, nil
	}
	eligible, err := s.eligibility()
	if err != nil {
		return nil, err
	}
	return layout.ApplyReverseHoloLayout(placed, eligible, occ.grid)
}

// ── Totals ─────────────────────────────────────────────────

// UserTotals aggregates collection counts across an owner's binders.
type UserTotals struct {
	Binders        int `json:"binders"`
	TotalSlots     int `json:"totalSlots"`
	PlacedCards    int `json:"placedCards"`
	PendingChanges int `json:"pendingChanges"`
}

func (s *BinderService) UserTotals(ownerID string) (*UserTotals, error) {
	binders, err := s.store.ListBinders(ownerID)
	if err != nil {
		return nil, err
	}
	totals := &UserTotals{Binders: len(binders)}
	for i := range binders {
		b := &binders[i]
		occ, err := s.effective(b)
		if err != nil {
			return nil, err
		}
		totals.TotalSlots += layout.ComputeSlots(occ.grid, b.PageCount)
		totals.PlacedCards += len(occ.slots)
		n, err := s.ledger.CountChanges(b.ID)
		if err != nil {
			return nil, err
		}
		totals.PendingChanges += n
	}
	return totals, nil
}

// effective loads the binder's snapshot and queued changes and replays
// them into an occupancy.
func (s *BinderService) effective(b *domain.Binder) (*occupancy, error) {
	grid, err := layout.ParseGridSize(b.GridSize)
	if err != nil {
		return nil, err
	}
	snap, err := s.snapshots.GetSnapshot(b.ID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	changes, err := s.ledger.ListChanges(b.ID)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	return newOccupancy(grid, b.PageCount, snap, changes)
}

// eligibility builds the reverse-holo predicate from the card catalog.
func (s *BinderService) eligibility() (func(domain.CardPlacement) bool, error) {
	cards, err := s.cards.ListCards()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.RarityTier, len(cards))
	for _, c := range cards {
		byID[c.ID] = c.Rarity
	}
	return func(p domain.CardPlacement) bool {
		return domain.ReverseHoloEligible(byID[p.CardID])
	}, nil
}

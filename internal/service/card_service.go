package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
	"github.com/biroman/pkmnbindrnew-sub000/internal/importer"
	"github.com/biroman/pkmnbindrnew-sub000/internal/storage"
)

// ─────────────────────────────────────────────────────────────
// Card Service — card catalog and list imports
// ─────────────────────────────────────────────────────────────

// CardService manages the card catalog.
type CardService struct {
	store   *storage.CardStore
	emitter EventEmitter
}

// NewCardService creates a CardService.
func NewCardService(store *storage.CardStore, emitter EventEmitter) *CardService {
	return &CardService{store: store, emitter: emitter}
}

// ── Card CRUD ──────────────────────────────────────────────

type CreateCardInput struct {
	Name     string            `json:"name"`
	SetCode  string            `json:"setCode"`
	Number   string            `json:"number"`
	Rarity   domain.RarityTier `json:"rarity"`
	ImageURL string            `json:"imageUrl"`
}

func (s *CardService) CreateCard(input CreateCardInput) (*domain.Card, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("card name is required")
	}
	if input.Rarity == "" {
		input.Rarity = domain.RarityCommon
	}
	if !input.Rarity.Valid() {
		return nil, fmt.Errorf("unknown rarity tier: %q", input.Rarity)
	}

	c := &domain.Card{
		ID:       uuid.New().String(),
		Name:     input.Name,
		SetCode:  input.SetCode,
		Number:   input.Number,
		Rarity:   input.Rarity,
		ImageURL: input.ImageURL,
	}
	if err := s.store.CreateCard(c); err != nil {
		return nil, fmt.Errorf("create card: %w", err)
	}
	return c, nil
}

func (s *CardService) GetCard(id string) (*domain.Card, error) {
	return s.store.GetCard(id)
}

func (s *CardService) ListCards() ([]domain.Card, error) {
	return s.store.ListCards()
}

func (s *CardService) UpdateCard(id string, input CreateCardInput) (*domain.Card, error) {
	c, err := s.store.GetCard(id)
	if err != nil {
		return nil, err
	}
	if input.Rarity != "" && !input.Rarity.Valid() {
		return nil, fmt.Errorf("unknown rarity tier: %q", input.Rarity)
	}

	c.Name = input.Name
	c.SetCode = input.SetCode
	c.Number = input.Number
	if input.Rarity != "" {
		c.Rarity = input.Rarity
	}
	c.ImageURL = input.ImageURL
	if err := s.store.UpdateCard(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CardService) DeleteCard(id string) error {
	return s.store.DeleteCard(id)
}

// ── Import ─────────────────────────────────────────────────

// ImportResult summarizes one import drop.
type ImportResult struct {
	Format  string `json:"format"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
}

// ImportFile loads a card-list drop into the catalog. Existing cards are
// matched by set code and collector number and updated in place;
// everything else is created.
func (s *CardService) ImportFile(ctx context.Context, path string) (*ImportResult, error) {
	format, err := importer.ForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	rows, err := format.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	result := &ImportResult{Format: format.Name()}
	for _, row := range rows {
		existing, err := s.findExisting(row)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			existing.Name = row.Name
			existing.Rarity = row.Rarity
			if row.ImageURL != "" {
				existing.ImageURL = row.ImageURL
			}
			if err := s.store.UpdateCard(existing); err != nil {
				return nil, fmt.Errorf("update card %s: %w", existing.ID, err)
			}
			result.Updated++
			continue
		}

		c := &domain.Card{
			ID:       uuid.New().String(),
			Name:     row.Name,
			SetCode:  row.SetCode,
			Number:   row.Number,
			Rarity:   row.Rarity,
			ImageURL: row.ImageURL,
		}
		if err := s.store.CreateCard(c); err != nil {
			return nil, fmt.Errorf("create card %q: %w", row.Name, err)
		}
		result.Created++
	}

	s.emitter.Emit(ctx, "cards:imported", result)
	return result, nil
}

// findExisting matches a parsed row against the catalog. Rows without a
// set code and number never match.
func (s *CardService) findExisting(row importer.Row) (*domain.Card, error) {
	if row.SetCode == "" || row.Number == "" {
		return nil, nil
	}
	return s.store.GetCardBySetNumber(row.SetCode, row.Number)
}

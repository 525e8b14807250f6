package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
)

// CardStore implements domain.CardStore using SQLite.
type CardStore struct {
	db *DB
}

func NewCardStore(db *DB) *CardStore {
	return &CardStore{db: db}
}

func (s *CardStore) CreateCard(c *domain.Card) error {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := s.db.conn.Exec(
		`INSERT INTO cards (id, name, set_code, number, rarity, image_url, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.SetCode, c.Number, c.Rarity, c.ImageURL, c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (s *CardStore) GetCard(id string) (*domain.Card, error) {
	c := &domain.Card{}
	err := s.db.conn.QueryRow(
		`SELECT id, name, set_code, number, rarity, image_url, created_at, updated_at
		 FROM cards WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.SetCode, &c.Number, &c.Rarity, &c.ImageURL, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get card: %w", err)
	}
	return c, nil
}

func (s *CardStore) ListCards() ([]domain.Card, error) {
	rows, err := s.db.conn.Query(
		`SELECT id, name, set_code, number, rarity, image_url, created_at, updated_at
		 FROM cards ORDER BY set_code ASC, number ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		var c domain.Card
		if err := rows.Scan(&c.ID, &c.Name, &c.SetCode, &c.Number, &c.Rarity, &c.ImageURL, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

func (s *CardStore) UpdateCard(c *domain.Card) error {
	c.UpdatedAt = time.Now()
	_, err := s.db.conn.Exec(
		`UPDATE cards SET name=?, set_code=?, number=?, rarity=?, image_url=?, updated_at=? WHERE id=?`,
		c.Name, c.SetCode, c.Number, c.Rarity, c.ImageURL, c.UpdatedAt, c.ID,
	)
	return err
}

func (s *CardStore) DeleteCard(id string) error {
	_, err := s.db.conn.Exec(`DELETE FROM cards WHERE id = ?`, id)
	return err
}

// GetCardBySetNumber finds a card by set code and collector number.
// Returns (nil, nil) when no card matches; the importer uses this to
// decide between create and update.
func (s *CardStore) GetCardBySetNumber(setCode, number string) (*domain.Card, error) {
	c := &domain.Card{}
	err := s.db.conn.QueryRow(
		`SELECT id, name, set_code, number, rarity, image_url, created_at, updated_at
		 FROM cards WHERE set_code = ? AND number = ?`, setCode, number,
	).Scan(&c.ID, &c.Name, &c.SetCode, &c.Number, &c.Rarity, &c.ImageURL, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get card by set/number: %w", err)
	}
	return c, nil
}

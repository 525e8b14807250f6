package importer

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ── JSON card list ──────────────────────────────────────────
// Accepts either a bare array of cards or an export envelope with a
// top-level "cards" array.

type jsonFormat struct{}

func init() { Register(&jsonFormat{}) }

func (f *jsonFormat) Name() string { return "json" }

func (f *jsonFormat) Extensions() []string { return []string{"json"} }

type jsonCard struct {
	Name     string `json:"name"`
	SetCode  string `json:"setCode"`
	Number   string `json:"number"`
	Rarity   string `json:"rarity"`
	ImageURL string `json:"imageUrl"`
}

func (f *jsonFormat) Parse(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cards []jsonCard
	if err := json.Unmarshal(data, &cards); err != nil {
		var envelope struct {
			Cards []jsonCard `json:"cards"`
		}
		if err2 := json.Unmarshal(data, &envelope); err2 != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
		cards = envelope.Cards
	}

	rows := make([]Row, 0, len(cards))
	for i, c := range cards {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("card %d: name is required", i+1)
		}
		tier, err := NormalizeRarity(c.Rarity)
		if err != nil {
			return nil, fmt.Errorf("card %d (%s): %w", i+1, name, err)
		}
		rows = append(rows, Row{
			Name:     name,
			SetCode:  strings.TrimSpace(c.SetCode),
			Number:   strings.TrimSpace(c.Number),
			Rarity:   tier,
			ImageURL: strings.TrimSpace(c.ImageURL),
		})
	}
	return rows, nil
}

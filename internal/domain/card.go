package domain

import "time"

// RarityTier classifies a card for layout purposes.
type RarityTier string

const (
	RarityCommon     RarityTier = "common"
	RarityUncommon   RarityTier = "uncommon"
	RarityRare       RarityTier = "rare"
	RarityHoloRare   RarityTier = "holo_rare"
	RarityUltraRare  RarityTier = "ultra_rare"
	RaritySecretRare RarityTier = "secret_rare"
)

// reverseHoloEligible is the closed set of tiers that get a reverse holo
// variant. Holo and above never do; the set is fixed, not configurable.
var reverseHoloEligible = map[RarityTier]bool{
	RarityCommon:   true,
	RarityUncommon: true,
	RarityRare:     true,
}

// ReverseHoloEligible reports whether a card of the given tier receives a
// synthesized reverse holo variant in the rendered layout.
func ReverseHoloEligible(tier RarityTier) bool {
	return reverseHoloEligible[tier]
}

// Valid reports whether t is one of the known tiers.
func (t RarityTier) Valid() bool {
	switch t {
	case RarityCommon, RarityUncommon, RarityRare, RarityHoloRare, RarityUltraRare, RaritySecretRare:
		return true
	}
	return false
}

// Card is a catalog entry the user can place into binders.
type Card struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	SetCode   string     `json:"setCode"`
	Number    string     `json:"number"` // collector number within the set, e.g. "104/165"
	Rarity    RarityTier `json:"rarity"`
	ImageURL  string     `json:"imageUrl"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type CardStore interface {
	CreateCard(c *Card) error
	GetCard(id string) (*Card, error)
	ListCards() ([]Card, error)
	UpdateCard(c *Card) error
	DeleteCard(id string) error
}

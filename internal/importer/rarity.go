package importer

import (
	"fmt"
	"strings"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
)

// NormalizeRarity maps the rarity spellings found in export files onto the
// catalog's tiers. Matching is case-insensitive and tolerates hyphens and
// underscores.
func NormalizeRarity(raw string) (domain.RarityTier, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "-", " ")
	key = strings.ReplaceAll(key, "_", " ")

	switch key {
	case "", "common", "c":
		return domain.RarityCommon, nil
	case "uncommon", "u":
		return domain.RarityUncommon, nil
	case "rare", "r":
		return domain.RarityRare, nil
	case "holo rare", "rare holo", "holo", "holofoil", "holofoil rare":
		return domain.RarityHoloRare, nil
	case "ultra rare", "rare ultra", "double rare", "illustration rare":
		return domain.RarityUltraRare, nil
	case "secret rare", "rare secret", "hyper rare", "special illustration rare":
		return domain.RaritySecretRare, nil
	}
	return "", fmt.Errorf("unknown rarity %q", raw)
}

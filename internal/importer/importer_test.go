package importer

import (
	"strings"
	"testing"

	"github.com/biroman/pkmnbindrnew-sub000/internal/domain"
)

func TestForPath(t *testing.T) {
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"cards.json", "json", true},
		{"/drops/Collection.JSON", "json", true},
		{"cards.csv", "csv", true},
		{"cards.txt", "", false},
		{"cards.json.done", "", false},
	}
	for _, tt := range tests {
		f, err := ForPath(tt.path)
		if tt.ok != (err == nil) {
			t.Errorf("ForPath(%q): err = %v", tt.path, err)
			continue
		}
		if tt.ok && f.Name() != tt.want {
			t.Errorf("ForPath(%q) = %s, want %s", tt.path, f.Name(), tt.want)
		}
	}
}

func TestJSONParse_BareArray(t *testing.T) {
	f, _ := Get("json")
	rows, err := f.Parse(strings.NewReader(`[
		{"name": "Pidgey", "setCode": "MEW", "number": "016/165", "rarity": "Common"},
		{"name": "Charizard ex", "setCode": "MEW", "number": "199/165", "rarity": "secret-rare", "imageUrl": "https://img/199.png"}
	]`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Rarity != domain.RarityCommon {
		t.Errorf("expected common, got %s", rows[0].Rarity)
	}
	if rows[1].Rarity != domain.RaritySecretRare || rows[1].ImageURL == "" {
		t.Errorf("row 2 mismatch: %+v", rows[1])
	}
}

func TestJSONParse_Envelope(t *testing.T) {
	f, _ := Get("json")
	rows, err := f.Parse(strings.NewReader(`{"cards": [{"name": "Snorlax", "rarity": "rare holo"}]}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 1 || rows[0].Rarity != domain.RarityHoloRare {
		t.Fatalf("envelope rows mismatch: %+v", rows)
	}
}

func TestJSONParse_MissingNameFailsWhole(t *testing.T) {
	f, _ := Get("json")
	_, err := f.Parse(strings.NewReader(`[{"name": "Pidgey"}, {"rarity": "common"}]`))
	if err == nil {
		t.Fatal("expected a row without a name to fail the whole file")
	}
}

func TestCSVParse(t *testing.T) {
	f, _ := Get("csv")
	rows, err := f.Parse(strings.NewReader(
		"Name,Set,Number,Rarity\n" +
			"Pidgey,MEW,016/165,c\n" +
			"\n" +
			"Mew ex,MEW,151/165,Ultra-Rare\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows (blank line skipped), got %d", len(rows))
	}
	if rows[0].SetCode != "MEW" || rows[0].Rarity != domain.RarityCommon {
		t.Errorf("row 1 mismatch: %+v", rows[0])
	}
	if rows[1].Rarity != domain.RarityUltraRare {
		t.Errorf("expected ultra_rare, got %s", rows[1].Rarity)
	}
}

func TestCSVParse_RequiresNameColumn(t *testing.T) {
	f, _ := Get("csv")
	if _, err := f.Parse(strings.NewReader("set,number\nMEW,1\n")); err == nil {
		t.Fatal("expected rejection of a header without a name column")
	}
}

func TestNormalizeRarity(t *testing.T) {
	tests := []struct {
		raw  string
		want domain.RarityTier
		ok   bool
	}{
		{"", domain.RarityCommon, true},
		{"Common", domain.RarityCommon, true},
		{"u", domain.RarityUncommon, true},
		{"Rare Holo", domain.RarityHoloRare, true},
		{"holofoil", domain.RarityHoloRare, true},
		{"ILLUSTRATION_RARE", domain.RarityUltraRare, true},
		{"hyper-rare", domain.RaritySecretRare, true},
		{"mythic", "", false},
	}
	for _, tt := range tests {
		got, err := NormalizeRarity(tt.raw)
		if tt.ok != (err == nil) {
			t.Errorf("NormalizeRarity(%q): err = %v", tt.raw, err)
			continue
		}
		if tt.ok && got != tt.want {
			t.Errorf("NormalizeRarity(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}
}

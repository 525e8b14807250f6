package layout

import (
	"errors"
	"testing"
)

func TestParseGridSize(t *testing.T) {
	tests := []struct {
		token string
		cols  int
		rows  int
	}{
		{"1x1", 1, 1},
		{"2x2", 2, 2},
		{"3x3", 3, 3},
		{"4x3", 4, 3},
		{"4x4", 4, 4},
	}
	for _, tt := range tests {
		g, err := ParseGridSize(tt.token)
		if err != nil {
			t.Fatalf("ParseGridSize(%q): %v", tt.token, err)
		}
		if g.Columns != tt.cols || g.Rows != tt.rows {
			t.Errorf("ParseGridSize(%q) = %dx%d, want %dx%d", tt.token, g.Columns, g.Rows, tt.cols, tt.rows)
		}
		if g.SlotsPerPage() != tt.cols*tt.rows {
			t.Errorf("SlotsPerPage(%q) = %d, want %d", tt.token, g.SlotsPerPage(), tt.cols*tt.rows)
		}
		if g.String() != tt.token {
			t.Errorf("String() = %q, want %q", g.String(), tt.token)
		}
	}
}

func TestParseGridSize_Invalid(t *testing.T) {
	bad := []string{"", "3", "x", "3x", "x3", "3x3x3", "0x3", "3x0", "-1x3", "axb", "3 x 3", "3X3"}
	for _, token := range bad {
		_, err := ParseGridSize(token)
		if err == nil {
			t.Errorf("ParseGridSize(%q): expected error, got nil", token)
			continue
		}
		var tokenErr *InvalidGridTokenError
		if !errors.As(err, &tokenErr) {
			t.Errorf("ParseGridSize(%q): error %v is not an InvalidGridTokenError", token, err)
		} else if tokenErr.Token != token {
			t.Errorf("ParseGridSize(%q): error carries token %q", token, tokenErr.Token)
		}
	}
}

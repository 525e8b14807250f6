// Package layout implements the slot-layout core of a binder: grid geometry,
// book-style slot numbering, free-slot allocation, and the reverse holo
// expansion of a card sequence. Everything here is pure; callers own all
// state and I/O.
package layout

import (
	"strconv"
	"strings"
)

// GridSize is the slot grid of one binder page side.
type GridSize struct {
	Columns int `json:"columns"`
	Rows    int `json:"rows"`
}

// ParseGridSize parses a token like "3x3" into a GridSize. The token must be
// "<columns>x<rows>" with both dimensions at least 1.
func ParseGridSize(token string) (GridSize, error) {
	cols, rows, ok := strings.Cut(token, "x")
	if !ok {
		return GridSize{}, &InvalidGridTokenError{Token: token}
	}
	c, err := strconv.Atoi(cols)
	if err != nil {
		return GridSize{}, &InvalidGridTokenError{Token: token}
	}
	r, err := strconv.Atoi(rows)
	if err != nil {
		return GridSize{}, &InvalidGridTokenError{Token: token}
	}
	if c < 1 || r < 1 {
		return GridSize{}, &InvalidGridTokenError{Token: token}
	}
	return GridSize{Columns: c, Rows: r}, nil
}

// SlotsPerPage returns the slot count of one page side.
func (g GridSize) SlotsPerPage() int {
	return g.Columns * g.Rows
}

// String renders the canonical token form ("3x3").
func (g GridSize) String() string {
	return strconv.Itoa(g.Columns) + "x" + strconv.Itoa(g.Rows)
}

// valid reports whether the grid has at least one slot per page.
func (g GridSize) valid() bool {
	return g.Columns >= 1 && g.Rows >= 1
}

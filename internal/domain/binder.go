package domain

import "time"

// Binder is a paginated, grid-sliced collection a user arranges cards into.
// GridSize holds the raw token ("3x3"); layout.ParseGridSize interprets it.
// PageCount counts binder pages as the user flips them: page 1 is a single
// right-hand page, every further page is a two-sided spread.
type Binder struct {
	ID                 string    `json:"id"`
	OwnerID            string    `json:"ownerId"`
	Name               string    `json:"name"`
	GridSize           string    `json:"gridSize"`
	PageCount          int       `json:"pageCount"`
	ReverseHoloEnabled bool      `json:"reverseHoloEnabled"`
	AutoSyncCron       string    `json:"autoSyncCron"` // cron expression, empty = manual sync only
	SortOrder          int       `json:"sortOrder"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

type BinderStore interface {
	CreateBinder(b *Binder) error
	GetBinder(id string) (*Binder, error)
	ListBinders(ownerID string) ([]Binder, error)
	UpdateBinder(b *Binder) error
	DeleteBinder(id string) error
	CountBinders(ownerID string) (int, error)
}

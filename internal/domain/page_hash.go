package domain

import (
	"time"
)

// PageHash stores the change-detection digest for one logical feed page.
// PageKey is "<source>:<feed>" (plus a page number for paginated feeds);
// one record exists per key.
type PageHash struct {
	ID          int64     `db:"id"           json:"id"`
	PageKey     string    `db:"page_key"     json:"page_key"`
	ContentHash string    `db:"content_hash" json:"content_hash"`
	LastChecked time.Time `db:"last_checked" json:"last_checked"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
}

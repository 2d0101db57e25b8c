package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem represents a product added to the shopping cart.
type CartItem struct {
	ID      uuid.UUID `json:"id"`
	ItemID  string    `json:"item_id"`
	Title   string    `json:"title"`
	AddedAt time.Time `json:"added_at"`
}

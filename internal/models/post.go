package models

import (
	"time"

	"github.com/google/uuid"
)

// Post represents a submitted post from one of the form examples.
type Post struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

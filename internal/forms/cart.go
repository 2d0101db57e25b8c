package forms

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/hookcase/internal/metrics"
	"github.com/eldtechnologies/hookcase/internal/models"
	"github.com/eldtechnologies/hookcase/internal/session"
	"github.com/eldtechnologies/hookcase/internal/store"
	"github.com/eldtechnologies/hookcase/internal/validation"
)

// CatalogItem is a product offered by the shopping cart.
type CatalogItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Catalog lists the products that can be added to the cart.
var Catalog = []CatalogItem{
	{ID: "1", Title: "JavaScript: The Good Parts"},
	{ID: "2", Title: "5000 V-Bucks Gift Card"},
}

// LookupItem finds a catalog item by ID.
func LookupItem(id string) (CatalogItem, bool) {
	for _, item := range Catalog {
		if item.ID == id {
			return item, true
		}
	}
	return CatalogItem{}, false
}

// Cart adds catalog items to the session's cart after a simulated API delay.
type Cart struct {
	store  store.DataStore
	delay  time.Duration
	logger zerolog.Logger
}

// NewCart creates a cart backed by s.
func NewCart(s store.DataStore, delay time.Duration, logger zerolog.Logger) *Cart {
	return &Cart{store: s, delay: delay, logger: logger.With().Str("form", FormCart).Logger()}
}

// Add waits for the delay and then appends itemID to the cart of the session
// in ctx.
func (c *Cart) Add(ctx context.Context, itemID string) (*models.CartItem, error) {
	item, ok := LookupItem(itemID)
	if !ok {
		metrics.FormSubmissions.WithLabelValues(FormCart, "invalid").Inc()
		return nil, validation.New("item_id", "is not in the catalog")
	}

	if err := wait(ctx, c.delay); err != nil {
		return nil, err
	}

	added, err := c.store.AddCartItem(ctx, session.IDFromContext(ctx), item.ID, item.Title)
	if err != nil {
		c.logger.Error().Err(err).Str("item_id", itemID).Msg("error adding item to cart")
		return nil, err
	}
	metrics.FormSubmissions.WithLabelValues(FormCart, "accepted").Inc()
	return added, nil
}

// Items returns the cart of the session in ctx.
func (c *Cart) Items(ctx context.Context) ([]models.CartItem, error) {
	return c.store.ListCartItems(ctx, session.IDFromContext(ctx))
}

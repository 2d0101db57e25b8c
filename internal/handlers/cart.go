package handlers

import (
	"net/http"

	"github.com/eldtechnologies/hookcase/internal/forms"
	"github.com/eldtechnologies/hookcase/internal/models"
	"github.com/eldtechnologies/hookcase/internal/session"
)

// CartResponse represents the shopping cart and the catalog it draws from.
type CartResponse struct {
	Items   []models.CartItem   `json:"items"`
	Catalog []forms.CatalogItem `json:"catalog"`
}

// ActionStateResponse is the state left by the last add-to-cart action.
type ActionStateResponse struct {
	forms.CartState
	Pending bool `json:"pending"`
}

// itemID accepts both the snake_case field and the web form's camelCase name.
func itemID(r *http.Request) (string, bool) {
	values, err := formValues(r)
	if err != nil {
		return "", false
	}
	if id := values.Get("item_id"); id != "" {
		return id, true
	}
	return values.Get("itemID"), true
}

// GetCart returns the session's cart.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx := session.WithID(r.Context(), sessionID(r))

	items, err := h.cart.Items(ctx)
	if err != nil {
		h.fail(w, err, "failed to list cart")
		return
	}
	if items == nil {
		items = []models.CartItem{}
	}

	h.JSON(w, http.StatusOK, CartResponse{Items: items, Catalog: forms.Catalog})
}

// AddToCart adds a catalog item to the session's cart after the cart delay.
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(r)
	if !ok {
		h.Error(w, http.StatusBadRequest, "invalid form body")
		return
	}

	ctx := session.WithID(r.Context(), sessionID(r))
	item, err := h.cart.Add(ctx, id)
	if err != nil {
		h.fail(w, err, "failed to add item to cart")
		return
	}

	h.JSON(w, http.StatusCreated, item)
}

// CartAction runs the add-to-cart reducer and returns its new state.
func (h *Handler) CartAction(w http.ResponseWriter, r *http.Request) {
	id, ok := itemID(r)
	if !ok {
		h.Error(w, http.StatusBadRequest, "invalid form body")
		return
	}

	action := h.cartActions.Get(sessionID(r))
	state, err := action.Dispatch(r.Context(), id)
	if err != nil {
		h.fail(w, err, "failed to run action")
		return
	}

	h.JSON(w, http.StatusOK, ActionStateResponse{CartState: state})
}

// GetCartAction returns the last action state without dispatching.
func (h *Handler) GetCartAction(w http.ResponseWriter, r *http.Request) {
	state, pending := h.cartActions.Get(sessionID(r)).State()
	h.JSON(w, http.StatusOK, ActionStateResponse{CartState: state, Pending: pending})
}

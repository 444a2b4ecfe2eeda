// internal/adapters/in/http/handler/cart_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"atelier/internal/adapters/in/http/middleware"
	usecase "atelier/internal/application/usecase"
	cartdom "atelier/internal/domain/cart"
)

// CartHandler serves the storefront cart endpoints. Every request resolves
// its per-device store through the manager, so anonymous and signed-in
// sessions share one code path.
type CartHandler struct {
	Stores *usecase.StoreManager
	Log    *logrus.Logger
}

func NewCartHandler(stores *usecase.StoreManager, log *logrus.Logger) *CartHandler {
	return &CartHandler{Stores: stores, Log: log}
}

type cartKeyDTO struct {
	ItemFamily string `json:"itemFamily"`
	ProductRef string `json:"productRef,omitempty"`
	MerchRef   string `json:"merchRef,omitempty"`
	VariantRef string `json:"variantRef,omitempty"`
}

func (d cartKeyDTO) toKey() (cartdom.Key, error) {
	return cartdom.NewKey(cartdom.Family(strings.TrimSpace(d.ItemFamily)), d.ProductRef, d.MerchRef, d.VariantRef)
}

type cartItemRequest struct {
	cartKeyDTO
	Qty int `json:"qty"`
}

type cartResponse struct {
	Items     []cartdom.Item `json:"items"`
	ItemCount int            `json:"itemCount"`
	Total     int            `json:"total"`
	IsLoading bool           `json:"isLoading"`
}

func (h *CartHandler) storeFor(w http.ResponseWriter, r *http.Request) (*usecase.CartStore, bool) {
	if h.Stores == nil {
		writeErr(w, http.StatusInternalServerError, "cart handler is not configured")
		return nil, false
	}
	deviceID := middleware.DeviceIDFrom(r)
	if deviceID == "" {
		writeErr(w, http.StatusBadRequest, "device id is required")
		return nil, false
	}
	store, err := h.Stores.StoreFor(r.Context(), deviceID)
	if err != nil {
		if h.Log != nil {
			h.Log.WithError(err).WithField("deviceId", deviceID).Error("cart: store resolution failed")
		}
		writeErr(w, http.StatusInternalServerError, "cart unavailable")
		return nil, false
	}
	return store, true
}

func (h *CartHandler) respond(w http.ResponseWriter, store *usecase.CartStore) {
	items := store.Items()
	sum := cartdom.Summarize(items)
	writeJSON(w, http.StatusOK, cartResponse{
		Items:     items,
		ItemCount: sum.ItemCount,
		Total:     sum.Total,
		IsLoading: store.IsLoading(),
	})
}

func (h *CartHandler) writeCartError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cartdom.ErrInvalidItem), errors.Is(err, usecase.ErrCartInvalidArgument):
		writeErr(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, cartdom.ErrNotFound):
		writeErr(w, http.StatusNotFound, err.Error())
	default:
		if h.Log != nil {
			h.Log.WithError(err).Error("cart: operation failed")
		}
		writeErr(w, http.StatusInternalServerError, "cart operation failed")
	}
}

// Get handles GET /mall/cart.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeFor(w, r)
	if !ok {
		return
	}
	h.respond(w, store)
}

// Clear handles DELETE /mall/cart.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeFor(w, r)
	if !ok {
		return
	}
	if err := store.ClearCart(r.Context()); err != nil {
		h.writeCartError(w, err)
		return
	}
	h.respond(w, store)
}

// AddItem handles POST /mall/cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeFor(w, r)
	if !ok {
		return
	}

	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json body")
		return
	}
	k, err := req.toKey()
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.AddItem(r.Context(), k, req.Qty); err != nil {
		h.writeCartError(w, err)
		return
	}
	h.respond(w, store)
}

// UpdateItem handles PATCH /mall/cart/items. Qty at or below zero removes the
// line.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeFor(w, r)
	if !ok {
		return
	}

	var req cartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json body")
		return
	}
	k, err := req.toKey()
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.UpdateQuantity(r.Context(), k, req.Qty); err != nil {
		h.writeCartError(w, err)
		return
	}
	h.respond(w, store)
}

// RemoveItem handles DELETE /mall/cart/items.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeFor(w, r)
	if !ok {
		return
	}

	var req cartKeyDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json body")
		return
	}
	k, err := req.toKey()
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := store.RemoveItem(r.Context(), k); err != nil {
		h.writeCartError(w, err)
		return
	}
	h.respond(w, store)
}

// SignOut handles POST /mall/session/signout: drop the device's in-memory
// store so the next request rebuilds it against a fresh identity. The device
// record itself is untouched.
func (h *CartHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if h.Stores == nil {
		writeErr(w, http.StatusInternalServerError, "cart handler is not configured")
		return
	}
	deviceID := middleware.DeviceIDFrom(r)
	if deviceID == "" {
		writeErr(w, http.StatusBadRequest, "device id is required")
		return
	}
	h.Stores.Teardown(deviceID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// Sync handles POST /mall/cart/sync: reload from the backing store so the
// response reflects writes made by other devices or tabs.
func (h *CartHandler) Sync(w http.ResponseWriter, r *http.Request) {
	store, ok := h.storeFor(w, r)
	if !ok {
		return
	}
	if err := store.SyncCart(r.Context()); err != nil {
		h.writeCartError(w, err)
		return
	}
	h.respond(w, store)
}

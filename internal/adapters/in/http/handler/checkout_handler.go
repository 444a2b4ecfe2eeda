// internal/adapters/in/http/handler/checkout_handler.go
package handler

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"atelier/internal/adapters/in/http/middleware"
	usecase "atelier/internal/application/usecase"
)

// CheckoutHandler finalizes an order from the cart's point of view.
// Payment capture happens upstream; this endpoint clears the cart and fires
// the confirmation mail.
type CheckoutHandler struct {
	Stores   *usecase.StoreManager
	Checkout *usecase.CheckoutUsecase
	Log      *logrus.Logger
}

func NewCheckoutHandler(stores *usecase.StoreManager, checkout *usecase.CheckoutUsecase, log *logrus.Logger) *CheckoutHandler {
	return &CheckoutHandler{Stores: stores, Checkout: checkout, Log: log}
}

// Complete handles POST /mall/checkout/complete.
func (h *CheckoutHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if h.Stores == nil || h.Checkout == nil {
		writeErr(w, http.StatusInternalServerError, "checkout handler is not configured")
		return
	}
	deviceID := middleware.DeviceIDFrom(r)
	if deviceID == "" {
		writeErr(w, http.StatusBadRequest, "device id is required")
		return
	}

	store, err := h.Stores.StoreFor(r.Context(), deviceID)
	if err != nil {
		if h.Log != nil {
			h.Log.WithError(err).WithField("deviceId", deviceID).Error("checkout: store resolution failed")
		}
		writeErr(w, http.StatusInternalServerError, "cart unavailable")
		return
	}

	if err := h.Checkout.Complete(r.Context(), store); err != nil {
		if h.Log != nil {
			h.Log.WithError(err).Error("checkout: completion failed")
		}
		writeErr(w, http.StatusInternalServerError, "checkout failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// internal/application/usecase/checkout.go
package usecase

import (
	"context"

	"github.com/sirupsen/logrus"

	cartdom "atelier/internal/domain/cart"
	"atelier/internal/domain/session"
)

// OrderNotifier dispatches a purchase confirmation. Implementations live in
// adapters (SendGrid mail today; SMS / chat-bot dispatchers share the port).
type OrderNotifier interface {
	NotifyOrderPlaced(ctx context.Context, id *session.Identity, items []cartdom.Item, summary cartdom.Summary) error
}

// CheckoutUsecase finishes a purchase from the cart core's point of view:
// payment has already happened elsewhere, so the cart is cleared, resynced and
// a confirmation is dispatched best-effort.
type CheckoutUsecase struct {
	notifier OrderNotifier
	log      logrus.FieldLogger
}

func NewCheckoutUsecase(notifier OrderNotifier, log logrus.FieldLogger) *CheckoutUsecase {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &CheckoutUsecase{notifier: notifier, log: log}
}

// Complete snapshots the cart, clears it and resyncs, then notifies.
// Notification failure never fails the checkout.
func (uc *CheckoutUsecase) Complete(ctx context.Context, store *CartStore) error {
	if store == nil {
		return ErrCartInvalidArgument
	}

	items := store.Items()
	summary := store.Summary()

	if err := store.ClearCart(ctx); err != nil {
		return err
	}
	if err := store.SyncCart(ctx); err != nil {
		return err
	}

	if uc.notifier != nil && len(items) > 0 {
		id := session.FromContext(ctx)
		if err := uc.notifier.NotifyOrderPlaced(ctx, id, items, summary); err != nil {
			uc.log.WithError(err).Warn("checkout: confirmation dispatch failed")
		}
	}
	return nil
}

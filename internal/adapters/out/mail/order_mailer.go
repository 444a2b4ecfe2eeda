// internal/adapters/out/mail/order_mailer.go
package mail

import (
	"context"
	"fmt"
	"strings"

	cartdom "atelier/internal/domain/cart"
	"atelier/internal/domain/session"
)

// OrderMailer sends the order-placed confirmation after checkout.
// It implements usecase.OrderNotifier.
type OrderMailer struct {
	client   EmailClient
	fromAddr string
}

func NewOrderMailer(client EmailClient, fromAddr string) *OrderMailer {
	return &OrderMailer{
		client:   client,
		fromAddr: strings.TrimSpace(fromAddr),
	}
}

func (m *OrderMailer) NotifyOrderPlaced(ctx context.Context, who *session.Identity, items []cartdom.Item, sum cartdom.Summary) error {
	if m == nil || m.client == nil {
		return fmt.Errorf("mail: order mailer is not configured")
	}
	if who == nil || strings.TrimSpace(who.Email) == "" {
		// guest checkout has no mailbox to confirm to
		return nil
	}
	if len(items) == 0 {
		return nil
	}

	subject := fmt.Sprintf("Order confirmation (%d items)", sum.ItemCount)
	body := buildOrderBody(items, sum)

	return m.client.Send(ctx, m.fromAddr, strings.TrimSpace(who.Email), subject, body)
}

func buildOrderBody(items []cartdom.Item, sum cartdom.Summary) string {
	var b strings.Builder
	b.WriteString("Thank you for your order.\n\n")
	for _, it := range items {
		name := strings.TrimSpace(it.DisplayName)
		if name == "" {
			name = it.Ref()
		}
		if v := strings.TrimSpace(it.VariantRef); v != "" {
			name = name + " (" + v + ")"
		}
		fmt.Fprintf(&b, "  %s x%d  %d\n", name, it.Qty, it.UnitPrice*it.Qty)
	}
	fmt.Fprintf(&b, "\nTotal: %d (%d items)\n", sum.Total, sum.ItemCount)
	return b.String()
}

package mail

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartdom "atelier/internal/domain/cart"
	"atelier/internal/domain/session"
)

type fakeEmailClient struct {
	sent []struct{ from, to, subject, body string }
}

func (f *fakeEmailClient) Send(_ context.Context, from, to, subject, body string) error {
	f.sent = append(f.sent, struct{ from, to, subject, body string }{from, to, subject, body})
	return nil
}

func TestOrderMailer_SendsConfirmation(t *testing.T) {
	fc := &fakeEmailClient{}
	m := NewOrderMailer(fc, "no-reply@atelier.example")

	k, err := cartdom.NewKey(cartdom.FamilyProduct, "p-001", "", "v-red")
	require.NoError(t, err)
	items := []cartdom.Item{{Key: k, DisplayName: "Linen Shirt", UnitPrice: 4800, Qty: 2}}
	sum := cartdom.Summarize(items)

	who := &session.Identity{ID: "u-1", Email: "buyer@example.com"}
	require.NoError(t, m.NotifyOrderPlaced(context.Background(), who, items, sum))

	require.Len(t, fc.sent, 1)
	assert.Equal(t, "no-reply@atelier.example", fc.sent[0].from)
	assert.Equal(t, "buyer@example.com", fc.sent[0].to)
	assert.Contains(t, fc.sent[0].body, "Linen Shirt (v-red) x2")
	assert.Contains(t, fc.sent[0].body, "Total: 9600 (2 items)")
}

func TestOrderMailer_SkipsGuestAndEmptyCart(t *testing.T) {
	fc := &fakeEmailClient{}
	m := NewOrderMailer(fc, "no-reply@atelier.example")

	require.NoError(t, m.NotifyOrderPlaced(context.Background(), nil, []cartdom.Item{{Qty: 1}}, cartdom.Summary{}))

	who := &session.Identity{ID: "u-1", Email: "buyer@example.com"}
	require.NoError(t, m.NotifyOrderPlaced(context.Background(), who, nil, cartdom.Summary{}))

	assert.Empty(t, fc.sent)
}

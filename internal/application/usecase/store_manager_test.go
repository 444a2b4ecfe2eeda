package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartdom "atelier/internal/domain/cart"
	"atelier/internal/domain/session"
)

func TestStoreForReusesStorePerDevice(t *testing.T) {
	m, err := NewStoreManager(session.ContextProbe{}, newFakeDeviceStore(), newFakeRemoteStore(), quietLog())
	require.NoError(t, err)

	first, err := m.StoreFor(context.Background(), "dev-1")
	require.NoError(t, err)
	second, err := m.StoreFor(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := m.StoreFor(context.Background(), "dev-2")
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestStoreForPublishesOnlyAfterInitialLoad(t *testing.T) {
	inner := newFakeDeviceStore()
	item, err := cartdom.NewItem(pkey("p1", "v1"), 2)
	require.NoError(t, err)
	require.NoError(t, inner.Save(context.Background(), "dev-1", []cartdom.Item{item}))

	blocking := &blockingDeviceStore{
		inner:   inner,
		gate:    make(chan struct{}),
		entered: make(chan struct{}),
	}
	m, err := NewStoreManager(session.ContextProbe{}, blocking, newFakeRemoteStore(), quietLog())
	require.NoError(t, err)

	done := make(chan *CartStore, 1)
	go func() {
		s, _ := m.StoreFor(context.Background(), "dev-1")
		done <- s
	}()

	<-blocking.entered
	select {
	case <-done:
		t.Fatal("store handed out before its initial load completed")
	case <-time.After(20 * time.Millisecond):
	}

	close(blocking.gate)
	s := <-done
	require.NotNil(t, s)

	// the device record was visible from the first moment the store was
	assert.Equal(t, 2, s.ItemCount())
}

func TestTeardownDropsStoreButKeepsDeviceRecord(t *testing.T) {
	local := newFakeDeviceStore()
	m, err := NewStoreManager(session.ContextProbe{}, local, newFakeRemoteStore(), quietLog())
	require.NoError(t, err)

	first, err := m.StoreFor(context.Background(), "dev-1")
	require.NoError(t, err)
	require.NoError(t, first.AddItem(context.Background(), pkey("p1", "v1"), 2))

	m.Teardown("dev-1")

	rebuilt, err := m.StoreFor(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.NotSame(t, first, rebuilt)

	// the record survives teardown; the rebuilt store reloads it
	assert.Equal(t, 2, rebuilt.ItemCount())
}

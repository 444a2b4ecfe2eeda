package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartdom "atelier/internal/domain/cart"
)

func seedDevice(t *testing.T, local *fakeDeviceStore, deviceID string, items ...cartdom.Item) {
	t.Helper()
	require.NoError(t, local.Save(context.Background(), deviceID, items))
}

func TestMigrateConservesQuantities(t *testing.T) {
	local := newFakeDeviceStore()
	remote := newFakeRemoteStore()
	ctx := context.Background()

	// the identity about to log in already owns A(1) and B(1) remotely
	_, err := remote.Add(ctx, "user-a", pkey("A", ""), 1)
	require.NoError(t, err)
	_, err = remote.Add(ctx, "user-a", pkey("B", ""), 1)
	require.NoError(t, err)

	// the device cart holds A(2) with a stale price snapshot
	seedDevice(t, local, "dev-1", cartdom.Item{Key: pkey("A", ""), UnitPrice: 999, Qty: 2})

	m, err := NewMigrator(local, remote, quietLog())
	require.NoError(t, err)
	require.NoError(t, m.Migrate(ctx, "dev-1", "user-a"))

	rows := remote.ownerRows("user-a")
	require.Len(t, rows, 2)

	idxA := cartdom.FindIndex(rows, pkey("A", ""))
	require.GreaterOrEqual(t, idxA, 0)
	assert.Equal(t, 3, rows[idxA].Qty)

	idxB := cartdom.FindIndex(rows, pkey("B", ""))
	require.GreaterOrEqual(t, idxB, 0)
	assert.Equal(t, 1, rows[idxB].Qty)
}

func TestMigrateDiscardsLocalPriceSnapshots(t *testing.T) {
	local := newFakeDeviceStore()
	remote := newFakeRemoteStore()
	remote.prices[pkey("A", "").String()] = 1200
	ctx := context.Background()

	seedDevice(t, local, "dev-1", cartdom.Item{Key: pkey("A", ""), UnitPrice: 999, Qty: 1})

	m, err := NewMigrator(local, remote, quietLog())
	require.NoError(t, err)
	require.NoError(t, m.Migrate(ctx, "dev-1", "user-a"))

	listed, err := remote.List(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	// price is the remote catalog's, not the device snapshot
	assert.Equal(t, 1200, listed[0].UnitPrice)
}

func TestMigrateEmptyDeviceCartSkipsRemoteCalls(t *testing.T) {
	local := newFakeDeviceStore()
	remote := newFakeRemoteStore()

	m, err := NewMigrator(local, remote, quietLog())
	require.NoError(t, err)
	require.NoError(t, m.Migrate(context.Background(), "dev-1", "user-a"))

	assert.Zero(t, remote.addCalls)
	assert.Equal(t, 1, local.clears)
}

func TestMigrateClearsDeviceCartEvenOnPartialFailure(t *testing.T) {
	local := newFakeDeviceStore()
	remote := newFakeRemoteStore()
	remote.addErrFor[pkey("bad", "").String()] = assert.AnError
	ctx := context.Background()

	seedDevice(t, local, "dev-1",
		cartdom.Item{Key: pkey("good", ""), Qty: 1},
		cartdom.Item{Key: pkey("bad", ""), Qty: 2},
		cartdom.Item{Key: pkey("also-good", ""), Qty: 3},
	)

	m, err := NewMigrator(local, remote, quietLog())
	require.NoError(t, err)

	// per-item failure neither aborts the loop nor surfaces to the caller
	require.NoError(t, m.Migrate(ctx, "dev-1", "user-a"))

	rows := remote.ownerRows("user-a")
	assert.Len(t, rows, 2)
	assert.GreaterOrEqual(t, cartdom.FindIndex(rows, pkey("good", "")), 0)
	assert.GreaterOrEqual(t, cartdom.FindIndex(rows, pkey("also-good", "")), 0)

	// the device record is gone regardless; a device cart is never retried
	assert.Empty(t, local.record("dev-1"))
}

func TestMigrateValidatesArguments(t *testing.T) {
	m, err := NewMigrator(newFakeDeviceStore(), newFakeRemoteStore(), quietLog())
	require.NoError(t, err)

	assert.ErrorIs(t, m.Migrate(context.Background(), "", "user-a"), ErrCartInvalidArgument)
	assert.ErrorIs(t, m.Migrate(context.Background(), "dev-1", " "), ErrCartInvalidArgument)
}

package usecase

import (
	"context"
	"fmt"
	"sync"

	cartdom "atelier/internal/domain/cart"
)

// fakeDeviceStore keeps one record per device in memory.
type fakeDeviceStore struct {
	mu      sync.Mutex
	records map[string][]cartdom.Item

	loadErr  error
	saveErr  error
	clearErr error

	saves  int
	clears int
}

func newFakeDeviceStore() *fakeDeviceStore {
	return &fakeDeviceStore{records: map[string][]cartdom.Item{}}
}

func (f *fakeDeviceStore) Load(_ context.Context, deviceID string) ([]cartdom.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return cartdom.CloneItems(f.records[deviceID]), nil
}

func (f *fakeDeviceStore) Save(_ context.Context, deviceID string, items []cartdom.Item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.records[deviceID] = cartdom.CloneItems(items)
	return nil
}

func (f *fakeDeviceStore) Clear(_ context.Context, deviceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	f.clears++
	delete(f.records, deviceID)
	return nil
}

func (f *fakeDeviceStore) record(deviceID string) []cartdom.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cartdom.CloneItems(f.records[deviceID])
}

// fakeRemoteStore implements the owner-scoped remote contract with
// upsert-by-configuration Add and catalog price denormalization on List.
type fakeRemoteStore struct {
	mu   sync.Mutex
	rows map[string][]cartdom.Item // ownerID -> rows
	seq  int

	// catalog price per configuration key; List and Add stamp these so the
	// "remote prices win" policy is observable in tests.
	prices map[string]int
	// names per configuration key (optional)
	names map[string]string

	// addErrFor fails Add for a specific configuration key string
	addErrFor map[string]error

	listErr error
	addErr  error

	addCalls  int
	listCalls int
}

func newFakeRemoteStore() *fakeRemoteStore {
	return &fakeRemoteStore{
		rows:      map[string][]cartdom.Item{},
		prices:    map[string]int{},
		names:     map[string]string{},
		addErrFor: map[string]error{},
	}
}

func (f *fakeRemoteStore) List(_ context.Context, ownerID string) ([]cartdom.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := cartdom.CloneItems(f.rows[ownerID])
	for i := range out {
		f.denormalizeLocked(&out[i])
	}
	return out, nil
}

func (f *fakeRemoteStore) Add(_ context.Context, ownerID string, k cartdom.Key, qty int) (cartdom.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	if f.addErr != nil {
		return cartdom.Item{}, f.addErr
	}
	if err, ok := f.addErrFor[k.String()]; ok {
		return cartdom.Item{}, err
	}
	if err := k.Validate(); err != nil {
		return cartdom.Item{}, err
	}
	if qty < 1 {
		return cartdom.Item{}, cartdom.ErrInvalidItem
	}

	rows := f.rows[ownerID]
	if idx := cartdom.FindIndex(rows, k); idx >= 0 {
		rows[idx].Qty += qty
		f.rows[ownerID] = rows
		out := rows[idx]
		f.denormalizeLocked(&out)
		return out, nil
	}

	f.seq++
	row := cartdom.Item{RowID: fmt.Sprintf("row-%d", f.seq), Key: k, Qty: qty}
	f.rows[ownerID] = append(rows, row)
	f.denormalizeLocked(&row)
	return row, nil
}

func (f *fakeRemoteStore) SetQuantity(_ context.Context, ownerID, rowID string, qty int) (cartdom.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rows := f.rows[ownerID]
	for i := range rows {
		if rows[i].RowID != rowID {
			continue
		}
		if qty <= 0 {
			f.rows[ownerID] = cartdom.RemoveAt(rows, i)
			return cartdom.Item{}, nil
		}
		rows[i].Qty = qty
		out := rows[i]
		f.denormalizeLocked(&out)
		return out, nil
	}
	if qty <= 0 {
		// equivalent to Remove, which is idempotent
		return cartdom.Item{}, nil
	}
	return cartdom.Item{}, cartdom.ErrNotFound
}

func (f *fakeRemoteStore) Remove(_ context.Context, ownerID, rowID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	rows := f.rows[ownerID]
	for i := range rows {
		if rows[i].RowID == rowID {
			f.rows[ownerID] = cartdom.RemoveAt(rows, i)
			return nil
		}
	}
	// idempotent
	return nil
}

func (f *fakeRemoteStore) Clear(_ context.Context, ownerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, ownerID)
	return nil
}

func (f *fakeRemoteStore) denormalizeLocked(it *cartdom.Item) {
	if p, ok := f.prices[it.Key.String()]; ok {
		it.UnitPrice = p
	}
	if n, ok := f.names[it.Key.String()]; ok {
		it.DisplayName = n
	}
}

func (f *fakeRemoteStore) ownerRows(ownerID string) []cartdom.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cartdom.CloneItems(f.rows[ownerID])
}

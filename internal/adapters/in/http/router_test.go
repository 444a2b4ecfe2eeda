package httpin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	usecase "atelier/internal/application/usecase"
	cartdom "atelier/internal/domain/cart"
	"atelier/internal/domain/session"
)

type memDeviceStore struct {
	mu      sync.Mutex
	records map[string][]cartdom.Item
}

func (s *memDeviceStore) Load(_ context.Context, deviceID string) ([]cartdom.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cartdom.CloneItems(s.records[deviceID]), nil
}

func (s *memDeviceStore) Save(_ context.Context, deviceID string, items []cartdom.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = map[string][]cartdom.Item{}
	}
	s.records[deviceID] = cartdom.CloneItems(items)
	return nil
}

func (s *memDeviceStore) Clear(_ context.Context, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, deviceID)
	return nil
}

type memRemoteStore struct{}

func (memRemoteStore) List(context.Context, string) ([]cartdom.Item, error) { return nil, nil }
func (memRemoteStore) Add(context.Context, string, cartdom.Key, int) (cartdom.Item, error) {
	return cartdom.Item{}, nil
}
func (memRemoteStore) SetQuantity(context.Context, string, string, int) (cartdom.Item, error) {
	return cartdom.Item{}, cartdom.ErrNotFound
}
func (memRemoteStore) Remove(context.Context, string, string) error { return nil }
func (memRemoteStore) Clear(context.Context, string) error          { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	stores, err := usecase.NewStoreManager(&session.ContextProbe{}, &memDeviceStore{}, memRemoteStore{}, log)
	require.NoError(t, err)

	return NewRouter(RouterDeps{
		Stores:     stores,
		CheckoutUC: usecase.NewCheckoutUsecase(nil, log),
		Log:        log,
	})
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Device-Id", "device-1")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) (items []cartdom.Item, itemCount, total int) {
	t.Helper()
	var resp struct {
		Items     []cartdom.Item `json:"items"`
		ItemCount int            `json:"itemCount"`
		Total     int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Items, resp.ItemCount, resp.Total
}

func TestRouter_Healthz(t *testing.T) {
	h := newTestRouter(t)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRouter_GuestAddAndGet(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/mall/cart/items", map[string]any{
		"itemFamily": "product", "productRef": "p-001", "variantRef": "v-red", "qty": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	items, count, _ := decodeCart(t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Qty)
	assert.Equal(t, 2, count)

	// same configuration accumulates onto the existing line
	rec = doJSON(t, h, http.MethodPost, "/mall/cart/items", map[string]any{
		"itemFamily": "product", "productRef": "p-001", "variantRef": "v-red", "qty": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	items, count, _ = decodeCart(t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Qty)
	assert.Equal(t, 5, count)

	rec = doJSON(t, h, http.MethodGet, "/mall/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items, _, _ = decodeCart(t, rec)
	require.Len(t, items, 1)
}

func TestRouter_ZeroQtyRemovesLine(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/mall/cart/items", map[string]any{
		"itemFamily": "merch", "merchRef": "m-010", "qty": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPatch, "/mall/cart/items", map[string]any{
		"itemFamily": "merch", "merchRef": "m-010", "qty": 0,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	items, count, total := decodeCart(t, rec)
	assert.Empty(t, items)
	assert.Zero(t, count)
	assert.Zero(t, total)
}

func TestRouter_InvalidConfigurationRejected(t *testing.T) {
	h := newTestRouter(t)

	// merch lines cannot carry a variant
	rec := doJSON(t, h, http.MethodPost, "/mall/cart/items", map[string]any{
		"itemFamily": "merch", "merchRef": "m-010", "variantRef": "v-1", "qty": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/mall/cart/items", map[string]any{
		"itemFamily": "product", "productRef": "p-1", "merchRef": "m-1", "qty": 1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_ClearCart(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/mall/cart/items", map[string]any{
		"itemFamily": "product", "productRef": "p-001", "qty": 4,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/mall/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items, _, _ := decodeCart(t, rec)
	assert.Empty(t, items)
}

func TestRouter_MintsDeviceCookieWhenMissing(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/mall/cart", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "atelier_device_id", cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestRouter_SignOutDropsStoreKeepsDeviceRecord(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/mall/cart/items", map[string]any{
		"itemFamily": "product", "productRef": "p-001", "qty": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/mall/session/signout", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// the next request rebuilds the store from the persisted device record
	rec = doJSON(t, h, http.MethodGet, "/mall/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items, count, _ := decodeCart(t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, 3, count)
}

func TestRouter_CheckoutCompleteEmptiesCart(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/mall/cart/items", map[string]any{
		"itemFamily": "product", "productRef": "p-001", "qty": 1,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/mall/checkout/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/mall/cart", nil)
	items, _, _ := decodeCart(t, rec)
	assert.Empty(t, items)
}

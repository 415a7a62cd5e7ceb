package cart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hindustanbills/apperr"
	"hindustanbills/barcode"
	"hindustanbills/globals"
	"hindustanbills/locks"
	"hindustanbills/models"
	"hindustanbills/store/memstore"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) *memstore.Store {
	t.Helper()
	st := memstore.New()
	ctx := context.Background()
	for _, p := range []models.Product{
		{ID: "p1", Name: "Parle-G", Price: 10, Stock: 100, Shop: "s1", IsActive: true},
		{ID: "p2", Name: "Tata Tea", Price: 120.5, Stock: 10, Shop: "s1", IsActive: true},
		{ID: "p3", Name: "Old Soap", Price: 30, Stock: 10, Shop: "s1", IsActive: false},
	} {
		p := p
		require.NoError(t, st.CreateProduct(ctx, &p))
	}
	return st
}

func stage(t *testing.T, st *memstore.Store, id, session, user, product string, qty int) {
	t.Helper()
	require.NoError(t, st.InsertScan(context.Background(), &models.ScannedProduct{
		ID: id, SessionCode: session, User: user, Product: product, Quantity: qty, State: models.ScanActive, ScannedAt: time.Now(),
	}))
}

func TestConvertSessionMergesIntoCart(t *testing.T) {
	st := seed(t)
	svc := NewService(st, st, st, locks.NewLocal())
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", "p1", 2)
	require.NoError(t, err)

	stage(t, st, "r1", "S1", "u1", "p1", 3)
	stage(t, st, "r2", "S1", "u1", "p2", 1)

	res, err := svc.ConvertSession(ctx, "u1", "S1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Converted)
	require.Len(t, res.Cart.Items, 2)
	assert.Equal(t, 5, res.Cart.Items[0].Quantity)
	assert.Equal(t, 1, res.Cart.Items[1].Quantity)
	assert.Equal(t, 170.5, res.Cart.Subtotal)

	left, err := st.ScansBySession(ctx, "S1", "u1", models.ScanActive)
	require.NoError(t, err)
	assert.Empty(t, left)

	// converting again finds nothing and keeps the cart as is
	_, err = svc.ConvertSession(ctx, "u1", "S1")
	assert.Equal(t, http.StatusNotFound, apperr.StatusOf(err))
	items, err := svc.Items(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []models.CartItem{{Product: "p1", Quantity: 5}, {Product: "p2", Quantity: 1}}, items)
}

func TestConvertEmptySessionLeavesCartUnchanged(t *testing.T) {
	st := seed(t)
	svc := NewService(st, st, st, locks.NewLocal())
	ctx := context.Background()

	before, err := svc.Initialize(ctx, "u1", "T4")
	require.NoError(t, err)

	_, err = svc.ConvertSession(ctx, "u1", "EMPTY")
	assert.Equal(t, http.StatusNotFound, apperr.StatusOf(err))

	after, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

type failingCarts struct {
	*memstore.Store
}

func (failingCarts) SaveCart(context.Context, *models.Cart) error {
	return errors.New("disk full")
}

func TestConvertRestoresRowsWhenCartSaveFails(t *testing.T) {
	st := seed(t)
	svc := NewService(failingCarts{st}, st, st, locks.NewLocal())
	ctx := context.Background()

	stage(t, st, "r1", "S1", "u1", "p1", 3)

	_, err := svc.ConvertSession(ctx, "u1", "S1")
	assert.Equal(t, http.StatusInternalServerError, apperr.StatusOf(err))

	rows, err := st.ScansBySession(ctx, "S1", "u1", models.ScanActive)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3, rows[0].Quantity)
}

func TestAddUpdateRemove(t *testing.T) {
	st := seed(t)
	svc := NewService(st, st, st, locks.NewLocal())
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", "p3", 1)
	assert.Equal(t, http.StatusNotFound, apperr.StatusOf(err))

	_, err = svc.Add(ctx, "u1", "p1", 0)
	assert.Equal(t, http.StatusBadRequest, apperr.StatusOf(err))

	_, err = svc.Add(ctx, "u1", "p1", 1)
	require.NoError(t, err)
	v, err := svc.Add(ctx, "u1", "p1", 2)
	require.NoError(t, err)
	require.Len(t, v.Items, 1)
	assert.Equal(t, 3, v.Items[0].Quantity)

	v, err = svc.Update(ctx, "u1", "p1", 7)
	require.NoError(t, err)
	assert.Equal(t, 70.0, v.Subtotal)

	_, err = svc.Update(ctx, "u1", "p2", 1)
	assert.Equal(t, http.StatusNotFound, apperr.StatusOf(err))

	v, err = svc.Remove(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Empty(t, v.Items)

	_, err = svc.Remove(ctx, "u1", "p1")
	assert.Equal(t, http.StatusNotFound, apperr.StatusOf(err))
}

func TestEmpty(t *testing.T) {
	st := seed(t)
	svc := NewService(st, st, st, locks.NewLocal())
	ctx := context.Background()

	require.NoError(t, svc.Empty(ctx, "nobody"))

	_, err := svc.Add(ctx, "u1", "p2", 2)
	require.NoError(t, err)
	require.NoError(t, svc.Empty(ctx, "u1"))

	items, err := svc.Items(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUpdateHandlerRejectsZeroQuantity(t *testing.T) {
	st := seed(t)
	h := NewHandlers(NewService(st, st, st, locks.NewLocal()))

	req := httptest.NewRequest(http.MethodPut, "/api/cart/update", strings.NewReader(`{"productId":"p1","quantity":0}`))
	req = req.WithContext(context.WithValue(req.Context(), globals.UserIDKey, "u1"))
	rec := httptest.NewRecorder()
	h.UpdateCart(rec, req, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "quantity must be at least 1")
}

func TestRescanAfterConvertDoesNotDoubleCount(t *testing.T) {
	st := seed(t)
	locker := locks.NewLocal()
	svc := NewService(st, st, st, locker)
	scanner := barcode.NewService(st, st, locker)
	ctx := context.Background()

	_, err := scanner.AddByID(ctx, "u1", barcode.AddByIDInput{ProductID: "p1", SessionCode: "S1", ShopID: "s1", Quantity: 2})
	require.NoError(t, err)
	_, err = svc.ConvertSession(ctx, "u1", "S1")
	require.NoError(t, err)

	again, err := scanner.AddByID(ctx, "u1", barcode.AddByIDInput{ProductID: "p1", SessionCode: "S1", ShopID: "s1", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, again.Quantity)

	_, err = svc.ConvertSession(ctx, "u1", "S1")
	require.NoError(t, err)
	items, err := svc.Items(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []models.CartItem{{Product: "p1", Quantity: 5}}, items)
}

func TestRemovedThenRescannedConvertsTheSum(t *testing.T) {
	st := seed(t)
	locker := locks.NewLocal()
	svc := NewService(st, st, st, locker)
	scanner := barcode.NewService(st, st, locker)
	ctx := context.Background()

	first, err := scanner.AddByID(ctx, "u1", barcode.AddByIDInput{ProductID: "p2", SessionCode: "S2", ShopID: "s1", Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, scanner.RemoveScanned(ctx, "u1", "S2", first.ScannedProduct.ID))
	_, err = scanner.AddByID(ctx, "u1", barcode.AddByIDInput{ProductID: "p2", SessionCode: "S2", ShopID: "s1", Quantity: 3})
	require.NoError(t, err)

	res, err := svc.ConvertSession(ctx, "u1", "S2")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Converted)
	require.Len(t, res.Cart.Items, 1)
	assert.Equal(t, 5, res.Cart.Items[0].Quantity)
}

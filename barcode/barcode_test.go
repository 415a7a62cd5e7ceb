package barcode

import (
	"bytes"
	"context"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"hindustanbills/apperr"
	"hindustanbills/locks"
	"hindustanbills/models"
	"hindustanbills/store/memstore"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	ctx := context.Background()
	for _, p := range []models.Product{
		{ID: "p-biscuit", Name: "Parle-G", Price: 10, Stock: 50, Shop: "shop-1", IsActive: true, Metadata: models.ProductMetadata{Barcode: "890123"}},
		{ID: "p-tea", Name: "Tata Tea", Price: 120.5, Stock: 5, Shop: "shop-1", IsActive: true, Metadata: models.ProductMetadata{SKU: "TEA-250"}},
		{ID: "p-empty", Name: "Maggi", Price: 14, Stock: 0, Shop: "shop-1", IsActive: true, Metadata: models.ProductMetadata{Barcode: "111"}},
		{ID: "p-gone", Name: "Old Soap", Price: 30, Stock: 9, Shop: "shop-1", IsActive: false, Metadata: models.ProductMetadata{Barcode: "222"}},
		{ID: "p-other", Name: "Dal", Price: 90, Stock: 9, Shop: "shop-2", IsActive: true, Metadata: models.ProductMetadata{Barcode: "333"}},
	} {
		p := p
		require.NoError(t, st.CreateProduct(ctx, &p))
	}
	return NewService(st, st, locks.NewLocal()), st
}

func TestRepeatedScanAccumulates(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	first, err := svc.Scan(ctx, "u1", ScanInput{Barcode: "890123", SessionCode: "S1", ShopID: "shop-1", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, first.Quantity)

	second, err := svc.Scan(ctx, "u1", ScanInput{Barcode: "890123", SessionCode: "S1", ShopID: "shop-1", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 5, second.Quantity)
	assert.Equal(t, first.ScannedProduct.ID, second.ScannedProduct.ID)

	view, err := svc.SessionProducts(ctx, "u1", "S1")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.Items[0].Quantity)
	assert.Equal(t, 50.0, view.Total)
}

func TestScanDefaultsQuantityToOne(t *testing.T) {
	svc, _ := setup(t)
	res, err := svc.Scan(context.Background(), "u1", ScanInput{Barcode: " 890123 ", SessionCode: "S1", ShopID: "shop-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Quantity)
}

func TestScanResolution(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		code   string
		shop   string
		status int
	}{
		{"leading zeros", "000890123", "shop-1", 0},
		{"sku", "TEA-250", "shop-1", 0},
		{"unknown", "999", "shop-1", http.StatusNotFound},
		{"other shop", "333", "shop-1", http.StatusNotFound},
		{"inactive", "222", "shop-1", http.StatusNotFound},
		{"out of stock", "111", "shop-1", http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Scan(ctx, "u1", ScanInput{Barcode: tc.code, SessionCode: "S-" + tc.name, ShopID: tc.shop})
			if tc.status == 0 {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tc.status, apperr.StatusOf(err))
		})
	}
}

func TestCodeVariants(t *testing.T) {
	assert.Equal(t, []string{"00123", "123"}, CodeVariants(" 00123 "))
	assert.Equal(t, []string{"ABC-1"}, CodeVariants("ABC-1"))
	assert.Equal(t, []string{"000"}, CodeVariants("000"))
	assert.Nil(t, CodeVariants("  "))
}

func TestRescanAfterRemoveAddsToPreviousCount(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	res, err := svc.Scan(ctx, "u1", ScanInput{Barcode: "890123", SessionCode: "S1", ShopID: "shop-1", Quantity: 2})
	require.NoError(t, err)
	require.NoError(t, svc.RemoveScanned(ctx, "u1", "S1", res.ScannedProduct.ID))

	again, err := svc.Scan(ctx, "u1", ScanInput{Barcode: "890123", SessionCode: "S1", ShopID: "shop-1", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 5, again.Quantity)
	assert.Equal(t, res.ScannedProduct.ID, again.ScannedProduct.ID)
	assert.Equal(t, models.ScanActive, again.ScannedProduct.State)
}

func TestRescanAfterConvertStartsFromNewQuantity(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()

	res, err := svc.Scan(ctx, "u1", ScanInput{Barcode: "890123", SessionCode: "S1", ShopID: "shop-1", Quantity: 2})
	require.NoError(t, err)
	n, err := st.SetScanState(ctx, []string{res.ScannedProduct.ID}, models.ScanActive, models.ScanConverted)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	again, err := svc.Scan(ctx, "u1", ScanInput{Barcode: "890123", SessionCode: "S1", ShopID: "shop-1", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, again.Quantity)
	assert.Equal(t, models.ScanActive, again.ScannedProduct.State)
}

func TestClearSessionEmptiesIt(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Scan(ctx, "u1", ScanInput{Barcode: "890123", SessionCode: "S1", ShopID: "shop-1"})
	require.NoError(t, err)
	_, err = svc.AddByID(ctx, "u1", AddByIDInput{ProductID: "p-tea", SessionCode: "S1", ShopID: "shop-1", Quantity: 2})
	require.NoError(t, err)
	_, err = svc.Scan(ctx, "u2", ScanInput{Barcode: "890123", SessionCode: "S1", ShopID: "shop-1"})
	require.NoError(t, err)

	n, err := svc.ClearSession(ctx, "u1", "S1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	view, err := svc.SessionProducts(ctx, "u1", "S1")
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	other, err := svc.SessionProducts(ctx, "u2", "S1")
	require.NoError(t, err)
	assert.Len(t, other.Items, 1)
}

func TestUpdateScanned(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	res, err := svc.Scan(ctx, "u1", ScanInput{Barcode: "890123", SessionCode: "S1", ShopID: "shop-1"})
	require.NoError(t, err)

	row, err := svc.UpdateScanned(ctx, "u1", "S1", res.ScannedProduct.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, row.Quantity)

	_, err = svc.UpdateScanned(ctx, "u1", "S1", res.ScannedProduct.ID, 0)
	assert.Equal(t, http.StatusBadRequest, apperr.StatusOf(err))

	_, err = svc.UpdateScanned(ctx, "intruder", "S1", res.ScannedProduct.ID, 3)
	assert.Equal(t, http.StatusNotFound, apperr.StatusOf(err))
}

func TestConcurrentScansKeepOneRow(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Scan(ctx, "u1", ScanInput{Barcode: "890123", SessionCode: "S1", ShopID: "shop-1"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rows, err := st.ScansBySession(ctx, "S1", "u1", models.ScanActive)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 10, rows[0].Quantity)
}

func TestScanHandlerAndQR(t *testing.T) {
	svc, _ := setup(t)
	h := NewHandlers(svc)

	router := httprouter.New()
	router.POST("/api/barcode/scan", h.Scan)
	router.GET("/api/barcode/session/:sessionCode/qr", h.SessionQR)
	router.GET("/api/products/scan/:barcode", h.LookupProduct)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/barcode/scan", strings.NewReader(`{"sessionCode":"S1","shopId":"shop-1"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "barcode is required")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/scan/890123?shopId=shop-1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Parle-G")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/barcode/session/ABCD2345/qr", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	_, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	assert.NoError(t, err)
}

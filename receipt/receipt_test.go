package receipt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hindustanbills/apperr"
	"hindustanbills/store/memstore"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutTotalsAndStores(t *testing.T) {
	svc := NewService(memstore.New())
	ctx := context.Background()

	rc, err := svc.Checkout(ctx, "", CheckoutInput{Items: []ItemInput{
		{ProductID: "p1", Name: "Parle-G", Price: 10, Quantity: 3},
		{Name: "Loose sugar", Price: 42.5, Quantity: 1},
	}})
	require.NoError(t, err)
	assert.Equal(t, 72.5, rc.TotalAmount)

	got, err := svc.Get(ctx, rc.ID)
	require.NoError(t, err)
	assert.Equal(t, rc.Items, got.Items)

	_, err = svc.Get(ctx, "missing")
	assert.Equal(t, http.StatusNotFound, apperr.StatusOf(err))
}

func TestCheckoutHandler(t *testing.T) {
	svc := NewService(memstore.New())
	router := httprouter.New()
	router.POST("/api/checkout", svc.CheckoutHandler)
	router.GET("/api/receipt/:id", svc.GetHandler)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(`{"items":[]}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/checkout", strings.NewReader(`{"items":[{"name":"Tea","price":5,"quantity":2}]}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Receipt struct {
			ID          string  `json:"id"`
			TotalAmount float64 `json:"totalAmount"`
		} `json:"receipt"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, 10.0, body.Receipt.TotalAmount)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/receipt/"+body.Receipt.ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"hindustanbills/auth"
	"hindustanbills/barcode"
	"hindustanbills/cart"
	"hindustanbills/locks"
	"hindustanbills/middleware"
	"hindustanbills/mq"
	"hindustanbills/orders"
	"hindustanbills/pay"
	"hindustanbills/products"
	"hindustanbills/ratelim"
	"hindustanbills/receipt"
	"hindustanbills/shop"
	"hindustanbills/store/memstore"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *httprouter.Router {
	t.Helper()
	st := memstore.New()
	jwt := middleware.NewAuth([]byte("routes-test-secret"))
	locker := locks.NewLocal()
	cartSvc := cart.NewService(st, st, st, locker)
	invoices := t.TempDir()

	d := &Deps{
		Auth:         jwt,
		RateLimiter:  ratelim.NewRateLimiter(ratelim.NewLocal(6000, 1000)),
		ScanLimiter:  ratelim.NewUserRateLimiter(ratelim.NewLocal(6000, 1000), "scan"),
		Idempotency:  pay.NewIdempotency(st),
		AuthHandlers: auth.NewHandlers(auth.NewService(st, jwt), nil, "http://frontend"),
		Barcode:      barcode.NewHandlers(barcode.NewService(st, st, locker)),
		Cart:         cart.NewHandlers(cartSvc),
		Orders:       orders.NewHandlers(orders.NewService(st, st, st, cartSvc, 0.18)),
		Payments:     pay.NewPaymentService(st, st, st, cartSvc, mq.NewLocal(16), locker, invoices),
		Shop:         shop.NewHandlers(shop.NewService(st, st, st)),
		Products:     products.NewHandlers(products.NewService(st, st, t.TempDir())),
		Receipts:     receipt.NewService(st),
		InvoiceDir:   invoices,
		UploadDir:    t.TempDir(),
	}
	router := httprouter.New()
	RoutesWrapper(router, d)
	return router
}

type client struct {
	t      *testing.T
	router http.Handler
	token  string
}

func (c *client) do(method, path string, body interface{}, headers ...string) (int, map[string]interface{}) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func register(t *testing.T, router http.Handler, email, role string) *client {
	c := &client{t: t, router: router}
	code, body := c.do(http.MethodPost, "/api/auth/register", map[string]string{
		"name": "Test " + role, "email": email, "password": "secret123", "role": role,
	})
	require.Equal(t, http.StatusCreated, code, body)
	c.token = body["token"].(string)
	return c
}

func TestCheckoutFlow(t *testing.T) {
	router := newTestRouter(t)

	retailer := register(t, router, "shop@example.com", "retailer")
	code, body := retailer.do(http.MethodPut, "/api/shop/details", map[string]interface{}{
		"name": "Sharma General Store", "isActive": true,
	})
	require.Equal(t, http.StatusCreated, code, body)
	shopID := body["shop"].(map[string]interface{})["id"].(string)

	code, body = retailer.do(http.MethodPost, "/api/products", map[string]interface{}{
		"name": "Tata Salt 1kg", "price": 50, "stock": 5, "barcode": "8901234567890",
	})
	require.Equal(t, http.StatusCreated, code, body)

	customer := register(t, router, "buyer@example.com", "customer")
	code, body = customer.do(http.MethodPost, "/api/barcode/session", nil)
	require.Equal(t, http.StatusCreated, code, body)
	session := body["sessionCode"].(string)

	code, body = customer.do(http.MethodGet, "/api/products/scan/8901234567890?shopId="+shopID, nil)
	require.Equal(t, http.StatusOK, code, body)

	code, body = customer.do(http.MethodPost, "/api/barcode/scan", map[string]interface{}{
		"barcode": "8901234567890", "sessionCode": session, "shopId": shopID, "quantity": 2,
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 2, body["quantity"])

	code, body = customer.do(http.MethodPost, "/api/cart/convert-session", map[string]string{"sessionCode": session})
	require.Equal(t, http.StatusOK, code, body)
	assert.EqualValues(t, 1, body["converted"])

	code, body = customer.do(http.MethodPost, "/api/orders", map[string]interface{}{"paymentMethod": "mock"})
	require.Equal(t, http.StatusCreated, code, body)
	order := body["order"].(map[string]interface{})
	assert.EqualValues(t, 118, order["total"])
	orderID := order["id"].(string)

	payBody := map[string]interface{}{"orderId": orderID, "success": true}
	code, body = customer.do(http.MethodPost, "/api/payments/mock", payBody, "Idempotency-Key", "pay-1")
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "paid", body["order"].(map[string]interface{})["status"])

	code, _ = customer.do(http.MethodPost, "/api/payments/mock", payBody, "Idempotency-Key", "pay-1")
	assert.Equal(t, http.StatusOK, code)

	code, body = customer.do(http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Empty(t, body["cart"].(map[string]interface{})["items"])

	code, body = retailer.do(http.MethodGet, "/api/shop/orders", nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Len(t, body["orders"], 1)

	code, body = retailer.do(http.MethodPut, "/api/orders/status/"+orderID, map[string]string{"status": "verified"})
	require.Equal(t, http.StatusOK, code, body)
}

func TestRoleGuards(t *testing.T) {
	router := newTestRouter(t)
	customer := register(t, router, "c@example.com", "customer")

	code, _ := customer.do(http.MethodGet, "/api/shop/details", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = customer.do(http.MethodPost, "/api/products", map[string]interface{}{"name": "x", "price": 1})
	assert.Equal(t, http.StatusForbidden, code)

	anon := &client{t: t, router: router}
	code, _ = anon.do(http.MethodGet, "/api/cart", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, body := anon.do(http.MethodPost, "/api/checkout", map[string]interface{}{
		"items": []map[string]interface{}{{"name": "Tea", "price": 10, "quantity": 2}},
	})
	assert.Equal(t, http.StatusCreated, code, body)
}

package routes

import (
	"hindustanbills/auth"
	"hindustanbills/barcode"
	"hindustanbills/cart"
	"hindustanbills/middleware"
	"hindustanbills/orders"
	"hindustanbills/pay"
	"hindustanbills/products"
	"hindustanbills/ratelim"
	"hindustanbills/receipt"
	"hindustanbills/shop"

	"github.com/julienschmidt/httprouter"
)

// Deps carries everything the route table needs.
type Deps struct {
	Auth        *middleware.Auth
	RateLimiter *ratelim.RateLimiter
	ScanLimiter *ratelim.RateLimiter
	Idempotency *pay.Idempotency

	AuthHandlers *auth.Handlers
	Barcode      *barcode.Handlers
	Cart         *cart.Handlers
	Orders       *orders.Handlers
	Payments     *pay.PaymentService
	Shop         *shop.Handlers
	Products     *products.Handlers
	Receipts     *receipt.Service

	InvoiceDir string
	UploadDir  string
}

func RoutesWrapper(router *httprouter.Router, d *Deps) {
	AddStaticRoutes(router, d)
	AddAuthRoutes(router, d)
	AddBarcodeRoutes(router, d)
	AddProductRoutes(router, d)
	AddCartRoutes(router, d)
	AddOrderRoutes(router, d)
	AddPayRoutes(router, d)
	AddShopRoutes(router, d)
	AddReceiptRoutes(router, d)
}

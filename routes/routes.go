package routes

import (
	"net/http"

	"hindustanbills/globals"
	"hindustanbills/middleware"

	"github.com/julienschmidt/httprouter"
)

func AddStaticRoutes(router *httprouter.Router, d *Deps) {
	router.ServeFiles("/invoices/*filepath", http.Dir(d.InvoiceDir))
	router.ServeFiles("/static/productpic/*filepath", http.Dir(d.UploadDir))
}

func AddAuthRoutes(router *httprouter.Router, d *Deps) {
	h := d.AuthHandlers
	router.POST("/api/auth/register", d.RateLimiter.Limit(h.Register))
	router.POST("/api/auth/login", d.RateLimiter.Limit(h.Login))
	router.GET("/api/auth/google", d.RateLimiter.Limit(h.GoogleLogin))
	router.GET("/api/auth/google/callback", d.RateLimiter.Limit(h.GoogleCallback))
	router.GET("/api/auth/me", d.Auth.Authenticate(h.Me))
	router.PUT("/api/auth/update-profile", d.Auth.Authenticate(h.UpdateProfile))
}

func AddBarcodeRoutes(router *httprouter.Router, d *Deps) {
	h := d.Barcode
	limited := middleware.Chain(d.Auth.Authenticate, d.ScanLimiter.Limit)

	router.POST("/api/barcode/scan", limited(h.Scan))
	router.POST("/api/barcode/add-by-id", limited(h.AddByID))
	router.POST("/api/barcode/session", d.Auth.Authenticate(h.NewSession))
	router.GET("/api/barcode/session/:sessionCode", d.Auth.Authenticate(h.SessionProducts))
	router.GET("/api/barcode/session/:sessionCode/qr", d.Auth.Authenticate(h.SessionQR))
	router.PUT("/api/barcode/session/:sessionCode/:id", d.Auth.Authenticate(h.UpdateScanned))
	router.DELETE("/api/barcode/session/:sessionCode/:id", d.Auth.Authenticate(h.RemoveScanned))
	router.DELETE("/api/barcode/session/:sessionCode", d.Auth.Authenticate(h.ClearSession))
}

func AddProductRoutes(router *httprouter.Router, d *Deps) {
	h := d.Products
	retailer := middleware.Chain(d.Auth.Authenticate, middleware.RequireRoles(globals.RoleRetailer, globals.RoleAdmin))

	router.GET("/api/products/scan/:barcode", middleware.Chain(d.Auth.Authenticate, d.ScanLimiter.Limit)(d.Barcode.LookupProduct))
	router.GET("/api/products/search", d.Auth.Authenticate(h.SearchProducts))
	router.GET("/api/products/item/:id", d.Auth.Authenticate(h.GetProduct))

	router.POST("/api/products", retailer(h.CreateProduct))
	router.PUT("/api/products/item/:id", retailer(h.UpdateProduct))
	router.DELETE("/api/products/item/:id", retailer(h.DeleteProduct))
	router.POST("/api/products/item/:id/image", retailer(h.UploadImage))
}

func AddCartRoutes(router *httprouter.Router, d *Deps) {
	h := d.Cart
	router.POST("/api/cart/initialize", d.Auth.Authenticate(h.Initialize))
	router.POST("/api/cart/convert-session", d.Auth.Authenticate(h.ConvertSession))
	router.POST("/api/cart/add", d.Auth.Authenticate(h.AddToCart))
	router.GET("/api/cart", d.Auth.Authenticate(h.GetCart))
	router.POST("/api/cart/remove", d.Auth.Authenticate(h.RemoveFromCart))
	router.PUT("/api/cart/update", d.Auth.Authenticate(h.UpdateCart))
}

func AddOrderRoutes(router *httprouter.Router, d *Deps) {
	h := d.Orders
	router.POST("/api/orders", d.Auth.Authenticate(h.CreateOrder))
	router.GET("/api/orders", d.Auth.Authenticate(h.MyOrders))
	router.GET("/api/orders/:id", d.Auth.Authenticate(h.GetOrder))
	router.PUT("/api/orders/status/:id",
		middleware.Chain(
			d.Auth.Authenticate,
			middleware.RequireRoles(globals.RoleRetailer, globals.RoleAdmin),
		)(h.UpdateStatus),
	)
}

func AddShopRoutes(router *httprouter.Router, d *Deps) {
	h := d.Shop
	retailer := middleware.Chain(d.Auth.Authenticate, middleware.RequireRoles(globals.RoleRetailer))

	router.GET("/api/shop/details", retailer(h.GetDetails))
	router.PUT("/api/shop/details", retailer(h.UpdateDetails))
	router.GET("/api/shop/products", retailer(h.GetProducts))
	router.GET("/api/shop/orders", retailer(h.GetOrders))
	router.GET("/api/shop/available", d.Auth.Authenticate(h.Available))
}

func AddReceiptRoutes(router *httprouter.Router, d *Deps) {
	router.POST("/api/checkout", d.Auth.OptionalAuth(d.Receipts.CheckoutHandler))
	router.GET("/api/receipt/:id", d.Auth.OptionalAuth(d.Receipts.GetHandler))
}

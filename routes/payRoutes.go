package routes

import (
	"hindustanbills/middleware"

	"github.com/julienschmidt/httprouter"
)

// AddPayRoutes wires the mock gateway. Idempotency runs after
// authentication so keys are scoped per user.
func AddPayRoutes(router *httprouter.Router, d *Deps) {
	router.POST("/api/payments/mock",
		middleware.Chain(
			d.RateLimiter.Limit,
			d.Auth.Authenticate,
			d.Idempotency.Middleware,
		)(d.Payments.Mock),
	)
}

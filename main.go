package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hindustanbills/auth"
	"hindustanbills/barcode"
	"hindustanbills/cart"
	"hindustanbills/config"
	"hindustanbills/db"
	"hindustanbills/locks"
	"hindustanbills/mailer"
	"hindustanbills/middleware"
	"hindustanbills/mq"
	"hindustanbills/orders"
	"hindustanbills/pay"
	"hindustanbills/products"
	"hindustanbills/ratelim"
	"hindustanbills/rdx"
	"hindustanbills/receipt"
	"hindustanbills/routes"
	"hindustanbills/shop"
	"hindustanbills/store"
	"hindustanbills/store/memstore"
	"hindustanbills/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs each request method, path, status, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("%s %s %d from %s – %v", r.Method, r.RequestURI, rec.status, r.RemoteAddr, time.Since(start))
	})
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

// backends holds the shared infrastructure picked at startup.
type backends struct {
	store   store.Store
	locker  locks.Locker
	counter ratelim.Counter
	scans   ratelim.Counter
	queue   interface {
		mq.Publisher
		mq.Subscriber
	}
	cleanup []func(context.Context)
}

func openStore(ctx context.Context, cfg *config.Config, b *backends) error {
	if cfg.StoreBackend == config.BackendMemory {
		log.Println("⚠️  Using in-memory store; data is lost on restart")
		b.store = memstore.New()
		return nil
	}

	colls, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	if err := colls.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("mongo indexes: %w", err)
	}
	b.store = store.NewMongo(colls)
	b.cleanup = append(b.cleanup, colls.Disconnect)
	return nil
}

// openCoordination uses Redis for locks, rate limits and the invoice queue
// when REDIS_ADDR is set, and per-process fallbacks otherwise.
func openCoordination(ctx context.Context, cfg *config.Config, b *backends) error {
	if cfg.RedisAddr == "" {
		local := ratelim.NewLocal(60, 20)
		scans := ratelim.NewLocal(300, 60)
		go local.RunJanitor(ctx, time.Minute)
		go scans.RunJanitor(ctx, time.Minute)
		b.locker = locks.NewLocal()
		b.counter = local
		b.scans = scans
		b.queue = mq.NewLocal(256)
		log.Println("⚠️  REDIS_ADDR not set; locks, rate limits and mail queue are per-process")
		return nil
	}

	conn, err := rdx.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return fmt.Errorf("redis connect: %w", err)
	}
	b.locker = locks.NewRedis(conn)
	b.counter = ratelim.NewRedis(conn, 60, time.Minute)
	b.scans = ratelim.NewRedis(conn, 300, time.Minute)
	b.queue = mq.NewRedis(conn)
	b.cleanup = append(b.cleanup, func(context.Context) { closeRedis(conn) })
	return nil
}

func closeRedis(conn *redis.Client) {
	if err := conn.Close(); err != nil {
		log.Printf("rdx: close error: %v", err)
	}
}

func setupRouter(cfg *config.Config, b *backends) *httprouter.Router {
	jwt := middleware.NewAuth(cfg.JWTSecret)
	st := b.store

	authSvc := auth.NewService(st, jwt)
	var google *auth.GoogleOAuth
	if cfg.GoogleEnabled() {
		google = auth.NewGoogleOAuth(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.BackendURL, cfg.SessionSecret)
	}

	cartSvc := cart.NewService(st, st, st, b.locker)
	orderSvc := orders.NewService(st, st, st, cartSvc, cfg.TaxRate)

	deps := &routes.Deps{
		Auth:         jwt,
		RateLimiter:  ratelim.NewRateLimiter(b.counter),
		ScanLimiter:  ratelim.NewUserRateLimiter(b.scans, "scan"),
		Idempotency:  pay.NewIdempotency(st),
		AuthHandlers: auth.NewHandlers(authSvc, google, cfg.FrontendURL),
		Barcode:      barcode.NewHandlers(barcode.NewService(st, st, b.locker)),
		Cart:         cart.NewHandlers(cartSvc),
		Orders:       orders.NewHandlers(orderSvc),
		Payments:     pay.NewPaymentService(st, st, st, cartSvc, b.queue, b.locker, cfg.InvoiceDir),
		Shop:         shop.NewHandlers(shop.NewService(st, st, st)),
		Products:     products.NewHandlers(products.NewService(st, st, cfg.UploadDir)),
		Receipts:     receipt.NewService(st),
		InvoiceDir:   cfg.InvoiceDir,
		UploadDir:    cfg.UploadDir,
	}

	router := httprouter.New()
	router.GET("/health", Index)
	routes.RoutesWrapper(router, deps)
	return router
}

func main() {
	cfg := config.Load()
	if cfg.StoreBackend == config.BackendMemory && len(cfg.JWTSecret) == 0 {
		log.Println("⚠️  JWT_SECRET not set; using an insecure development secret")
		cfg.JWTSecret = []byte("dev-only-secret")
		cfg.SessionSecret = cfg.JWTSecret
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Config error: %v", err)
	}

	for _, dir := range []string{cfg.InvoiceDir, cfg.UploadDir} {
		if err := utils.EnsureDir(dir); err != nil {
			log.Fatalf("❌ Cannot create %s: %v", dir, err)
		}
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	b := &backends{}
	if err := openStore(ctx, cfg, b); err != nil {
		log.Fatalf("❌ %v", err)
	}
	if err := openCoordination(ctx, cfg, b); err != nil {
		log.Fatalf("❌ %v", err)
	}

	go func() {
		if err := mq.StartInvoiceWorker(ctx, b.queue, mailer.New(cfg.ResendAPIKey, cfg.SenderEmail), cfg.InvoiceDir); err != nil {
			log.Printf("mq: invoice worker stopped: %v", err)
		}
	}()

	router := setupRouter(cfg, b)

	// apply middleware: CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Idempotency-Key"},
		AllowCredentials: true,
	}).Handler(router)

	handler := loggingMiddleware(securityHeaders(corsHandler))

	server := &http.Server{
		Addr:              cfg.Port,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Println("🛑 Stopping background workers...")
		stop()
	})

	go func() {
		log.Printf("🚀 Server listening on %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ ListenAndServe error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("🛑 Shutdown signal received; shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Graceful shutdown failed: %v", err)
	}
	for _, fn := range b.cleanup {
		fn(shutdownCtx)
	}

	log.Println("✅ Server stopped cleanly")
}

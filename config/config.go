package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

type Config struct {
	Port string

	MongoURI string
	MongoDB  string

	RedisAddr     string
	RedisPassword string

	JWTSecret     []byte
	SessionSecret []byte

	GoogleClientID     string
	GoogleClientSecret string

	BackendURL  string
	FrontendURL string

	ResendAPIKey string
	SenderEmail  string

	InvoiceDir string
	UploadDir  string

	StoreBackend string
	TaxRate      float64
}

// Load reads .env (if present) and the process environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from an env lookup function.
func FromEnv(getenv func(string) string) *Config {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	port := get("PORT", ":8080")
	if port[0] != ':' {
		port = ":" + port
	}

	taxRate := 0.18
	if raw := getenv("TAX_RATE"); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil && v >= 0 {
			taxRate = v
		} else {
			log.Printf("config: ignoring invalid TAX_RATE %q", raw)
		}
	}

	sessionSecret := get("SESSION_SECRET", "")
	jwtSecret := get("JWT_SECRET", "")
	if sessionSecret == "" {
		sessionSecret = jwtSecret
	}

	return &Config{
		Port:               port,
		MongoURI:           get("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:            get("MONGO_DB", "hindustanbills"),
		RedisAddr:          get("REDIS_ADDR", ""),
		RedisPassword:      get("REDIS_PASSWORD", ""),
		JWTSecret:          []byte(jwtSecret),
		SessionSecret:      []byte(sessionSecret),
		GoogleClientID:     get("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: get("GOOGLE_CLIENT_SECRET", ""),
		BackendURL:         strings.TrimRight(get("BACKEND_URL", "http://localhost:8080"), "/"),
		FrontendURL:        strings.TrimRight(get("FRONTEND_URL", "http://localhost:3000"), "/"),
		ResendAPIKey:       get("RESEND_API_KEY", ""),
		SenderEmail:        get("SENDER_EMAIL", "billing@hindustanbills.local"),
		InvoiceDir:         get("INVOICE_DIR", "invoices"),
		UploadDir:          get("UPLOAD_DIR", "static/productpic"),
		StoreBackend:       strings.ToLower(get("STORE_BACKEND", BackendMongo)),
		TaxRate:            taxRate,
	}
}

// Validate reports configuration that would make the server unusable.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMongo, BackendMemory:
	default:
		return errors.New("STORE_BACKEND must be mongo or memory")
	}
	if c.StoreBackend == BackendMongo && len(c.JWTSecret) == 0 {
		return errors.New("JWT_SECRET is required")
	}
	return nil
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

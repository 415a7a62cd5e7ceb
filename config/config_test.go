package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv(envOf(nil))

	assert.Equal(t, ":8080", cfg.Port)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "hindustanbills", cfg.MongoDB)
	assert.Equal(t, BackendMongo, cfg.StoreBackend)
	assert.InDelta(t, 0.18, cfg.TaxRate, 1e-9)
	assert.Equal(t, "invoices", cfg.InvoiceDir)
	assert.False(t, cfg.GoogleEnabled())
}

func TestFromEnvOverrides(t *testing.T) {
	cfg := FromEnv(envOf(map[string]string{
		"PORT":                 "9090",
		"JWT_SECRET":           "s3cret",
		"TAX_RATE":             "0.05",
		"FRONTEND_URL":         "https://shop.example.com/",
		"STORE_BACKEND":        "Memory",
		"GOOGLE_CLIENT_ID":     "id",
		"GOOGLE_CLIENT_SECRET": "secret",
	}))

	assert.Equal(t, ":9090", cfg.Port)
	assert.Equal(t, []byte("s3cret"), cfg.JWTSecret)
	assert.Equal(t, []byte("s3cret"), cfg.SessionSecret, "session secret falls back to JWT secret")
	assert.InDelta(t, 0.05, cfg.TaxRate, 1e-9)
	assert.Equal(t, "https://shop.example.com", cfg.FrontendURL)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.True(t, cfg.GoogleEnabled())
}

func TestFromEnvIgnoresBadTaxRate(t *testing.T) {
	cfg := FromEnv(envOf(map[string]string{"TAX_RATE": "abc"}))
	assert.InDelta(t, 0.18, cfg.TaxRate, 1e-9)
}

func TestValidate(t *testing.T) {
	cfg := FromEnv(envOf(nil))
	require.Error(t, cfg.Validate(), "mongo mode needs a JWT secret")

	cfg.JWTSecret = []byte("x")
	require.NoError(t, cfg.Validate())

	cfg.StoreBackend = "postgres"
	require.Error(t, cfg.Validate())
}

package config

import (
	"os"
	"strconv"
	"time"
)

const DEFAULT_DB_TIMEOUT = 10 * time.Second

// Config collects every recognized environment option once at process start.
// Nothing reads os.Getenv after Load returns.
type Config struct {
	APIEnv string
	Port   string

	// DatabaseServiceURL is the base URL of the persistence microservice.
	DatabaseServiceURL string
	RequestTimeout     time.Duration

	StripeSecretKey     string
	StripeWebhookSecret string

	// SimulationMode swaps the live gateway for the local simulator.
	SimulationMode bool

	// FrontendURL is the base for checkout success/cancel redirects.
	FrontendURL string

	RedisURL string

	JWTSecret string

	// EnableDirectCardFlow re-enables the legacy direct card-detail capture
	// variant. Off by default; the checkout-link flow is canonical.
	EnableDirectCardFlow bool

	// Fee percentage overrides by method, e.g. FEE_RATE_CARD=2.5 means 2.5%.
	FeeRateOverrides map[string]float64
}

func Load() *Config {
	cfg := &Config{
		APIEnv:               getenv("API_ENV", "local"),
		Port:                 getenv("PORT", "9090"),
		DatabaseServiceURL:   getenv("DATABASE_SERVICE_URL", "http://localhost:5001"),
		RequestTimeout:       DEFAULT_DB_TIMEOUT,
		StripeSecretKey:      os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:  os.Getenv("STRIPE_WEBHOOK_SECRET"),
		SimulationMode:       getbool("PAYMENT_SIMULATION"),
		FrontendURL:          getenv("FRONTEND_URL", "http://localhost:3000"),
		RedisURL:             os.Getenv("REDIS_URL"),
		JWTSecret:            os.Getenv("JWT_SECRET"),
		EnableDirectCardFlow: getbool("ENABLE_DIRECT_CARD_FLOW"),
		FeeRateOverrides:     map[string]float64{},
	}
	if secs := os.Getenv("REQUEST_TIMEOUT_SECONDS"); secs != "" {
		if n, err := strconv.Atoi(secs); err == nil && n > 0 {
			cfg.RequestTimeout = time.Duration(n) * time.Second
		}
	}
	for _, method := range []string{"CARD", "PAYPAL", "BANK_TRANSFER", "CASH", "OTHER"} {
		if v := os.Getenv("FEE_RATE_" + method); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				cfg.FeeRateOverrides[method] = f
			}
		}
	}
	return cfg
}

func (c *Config) IsProd() bool {
	return c.APIEnv == "production"
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getbool(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}

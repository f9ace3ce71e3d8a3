package config

import (
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
)

const (
	AppName = "promptiq"

	DefaultGeminiModel = "gemini-2.5-flash"
)

type Config struct {
	BaseURL                string
	DataDogClient          *statsd.Client
	Environment            string
	GeminiAPIKey           string
	GeminiModel            string
	ListenAddress          string
	MongoDBConnection      string
	MongoDBName            string
	RateLimitBurst         int
	RateLimitPerSecond     float64
	Redis                  Redis
	SlackWebhookURL        string
	StatusWorkerInterval   time.Duration
	StripeEndpointSecret   string
	StripeEndpointSuffix   string
	StripePrices           map[string]string // plan -> Stripe price id, inline price data when empty
	StripeToken            string
	TelegramSystemBotToken string
	TelegramSystemTo       string
	TrustedProxies         []string // CIDRs whose X-Forwarded-For is believed
}

type Redis struct {
	Host     string
	Port     string
	Password string
}

// ShareURL returns the public URL for a share code.
func (c *Config) ShareURL(code string) string {
	return c.BaseURL + "/p/" + code
}

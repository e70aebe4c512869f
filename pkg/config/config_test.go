package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.API.Timeout != 10*time.Second {
		t.Fatalf("expected 10s api timeout, got %v", c.API.Timeout)
	}
	if c.Feed.ReconnectDelay != 5*time.Second {
		t.Fatalf("expected 5s reconnect delay, got %v", c.Feed.ReconnectDelay)
	}
	if c.Polling.Interval != 30*time.Second {
		t.Fatalf("expected 30s polling interval, got %v", c.Polling.Interval)
	}
	if c.Session.Store != "badger" || c.Sink.Type != "none" {
		t.Fatalf("unexpected store/sink %q/%q", c.Session.Store, c.Sink.Type)
	}
	if c.Currency.USDToSLL != 23.70 {
		t.Fatalf("unexpected rate %v", c.Currency.USDToSLL)
	}
}

func TestLoadKeepsExplicitFalse(t *testing.T) {
	path := writeFile(t, "c.yaml", `
environment: test
coingecko:
  enabled: false
server:
  enabled: false
feed:
  symbols: [BTC, ETH]
  reconnect_delay: 2s
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.CoinGecko.Enabled || c.Server.Enabled {
		t.Fatalf("explicit false was overwritten by defaults")
	}
	if c.Feed.ReconnectDelay != 2*time.Second || len(c.Feed.Symbols) != 2 {
		t.Fatalf("unexpected feed config %+v", c.Feed)
	}
}

func TestLoadRejectsUnknownSink(t *testing.T) {
	path := writeFile(t, "c.yaml", "sink:\n  type: s3\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidateKafkaNeedsBrokers(t *testing.T) {
	c := Default()
	c.Sink.Type = "kafka"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error without brokers")
	}
	c.Kafka.Brokers = []string{"localhost:9092"}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	envFile := writeFile(t, ".env", "LEONE_API_URL=https://api.leone.test\n")
	t.Setenv("LEONE_SYMBOLS", "btc, eth ,")
	t.Setenv("LEONE_SESSION_STORE", "memory")

	c, err := LoadWithEnv("", envFile)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("LEONE_API_URL") })

	if c.API.BaseURL != "https://api.leone.test" {
		t.Fatalf("expected .env override, got %q", c.API.BaseURL)
	}
	if len(c.Feed.Symbols) != 2 || c.Feed.Symbols[0] != "BTC" || c.Feed.Symbols[1] != "ETH" {
		t.Fatalf("unexpected symbols %v", c.Feed.Symbols)
	}
	if c.Session.Store != "memory" {
		t.Fatalf("unexpected store %q", c.Session.Store)
	}
	if got := c.WebSocketBaseURL(); got != "wss://api.leone.test" {
		t.Fatalf("unexpected ws base %q", got)
	}
}

func TestLoadShippedConfig(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "configs", "leoneai.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Feed.Symbols) != 3 || c.Feed.Symbols[0] != "BTC-USD" {
		t.Fatalf("unexpected symbols %v", c.Feed.Symbols)
	}
	if !c.Feed.Portfolio || c.Feed.Multiplex {
		t.Fatalf("unexpected feed flags %+v", c.Feed)
	}
	if got := c.WebSocketBaseURL(); got != "ws://localhost:8000" {
		t.Fatalf("unexpected ws base %q", got)
	}
}

func TestServerCORSDefaultsAndOverride(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Server.CORS.AllowOrigins) != 2 || c.Server.CORS.AllowOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected default origins %v", c.Server.CORS.AllowOrigins)
	}

	path := writeFile(t, "cors.yaml", `
server:
  cors:
    allow_origins: ["https://app.leone.ai"]
    allow_methods: [GET]
`)
	c, err = Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Server.CORS.AllowOrigins) != 1 || c.Server.CORS.AllowOrigins[0] != "https://app.leone.ai" {
		t.Fatalf("origins not overridden: %v", c.Server.CORS.AllowOrigins)
	}
	if len(c.Server.CORS.AllowMethods) != 1 || c.Server.CORS.AllowMethods[0] != "GET" {
		t.Fatalf("methods not overridden: %v", c.Server.CORS.AllowMethods)
	}
}

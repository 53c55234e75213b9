package boot

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Env     string `env:"ENV,default=dev"`
	DataDir string `env:"DATA_DIR"`
	Server  struct {
		Port          string  `env:"PORT,default=8080"`
		MetricsPort   string  `env:"METRICS_PORT,default=8081"`
		Origins       string  `env:"ALLOWED_ORIGINS,default=*"`
		AuthRateLimit float64 `env:"AUTH_RATE_LIMIT,default=5"`
	}
	Database struct {
		URL string `env:"DATABASE_URL"`
	}
	Auth struct {
		TokenTTL      time.Duration `env:"TOKEN_TTL,default=24h"`
		KeyPassphrase string        `env:"SIGNING_KEY_PASSPHRASE"`
	}
	Limits struct {
		RequestWindow time.Duration `env:"REQUEST_WINDOW,default=60s"`
		MaxRequests   int           `env:"MAX_REQUESTS_PER_WINDOW,default=3"`
		PageSize      int           `env:"PAGE_SIZE,default=10"`
	}
}

func Load() (*Config, error) {
	return LoadFrom(envconfig.OsLookuper())
}

func LoadFrom(lookuper envconfig.Lookuper) (*Config, error) {
	config := &Config{}
	if err := envconfig.ProcessWith(context.Background(), config, lookuper); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	if config.Limits.MaxRequests < 1 {
		return nil, fmt.Errorf("MAX_REQUESTS_PER_WINDOW must be positive, got %d", config.Limits.MaxRequests)
	}
	if config.Limits.PageSize < 1 {
		return nil, fmt.Errorf("PAGE_SIZE must be positive, got %d", config.Limits.PageSize)
	}
	return config, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod"
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "dev"
}

func (c *Config) DataDirectory() string {
	return c.DataDir
}

// DatabaseURL falls back to a file in the data directory, or to a private
// in-memory database when no data directory is configured.
func (c *Config) DatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	if c.DataDir != "" {
		return "file:" + path.Join(c.DataDir, "socialgraph.db") + "?_foreign_keys=on&_busy_timeout=5000"
	}
	return "file:socialgraph?mode=memory&cache=shared&_foreign_keys=on"
}

func (c *Config) AllowedOrigins() []string {
	origins := []string{}
	for _, origin := range strings.Split(c.Server.Origins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func (c *Config) RequestWindow() time.Duration {
	return c.Limits.RequestWindow
}

func (c *Config) MaxRequestsPerWindow() int {
	return c.Limits.MaxRequests
}

func (c *Config) PageSize() int {
	return c.Limits.PageSize
}

func (c *Config) TokenTTL() time.Duration {
	return c.Auth.TokenTTL
}

func (c *Config) SigningKeyPassphrase() string {
	return c.Auth.KeyPassphrase
}

// AuthRateLimit is the allowed requests per second per client on /auth.
func (c *Config) AuthRateLimit() float64 {
	return c.Server.AuthRateLimit
}

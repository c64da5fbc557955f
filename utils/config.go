// utils/config.go
package utils

import (
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full environment surface of the service, loaded once at boot.
type Config struct {
	Port           string `envconfig:"PORT" default:"5300"`
	DatabaseURL    string `envconfig:"DATABASE_URL" required:"true"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// Gateway → service auth
	ServiceToken string `envconfig:"ECONOMY_SERVICE_TOKEN" required:"true"`

	// Ledger tuning
	DailyTokenCap     int64 `envconfig:"DAILY_TOKEN_CAP" default:"500"`
	PersonalBestBonus int64 `envconfig:"PERSONAL_BEST_BONUS" default:"10"`

	// External collaborators (empty = disabled)
	AdmissionServiceURL string `envconfig:"ADMISSION_SERVICE_URL"`
	ProfileSyncURL      string `envconfig:"PROFILE_SYNC_URL"`
	RedisAddr           string `envconfig:"REDIS_ADDR"`

	// R2 artwork storage
	CloudflareAccountID string `envconfig:"CLOUDFLARE_ACCOUNT_ID"`
	R2AccessKeyID       string `envconfig:"R2_ACCESS_KEY_ID"`
	R2AccessKeySecret   string `envconfig:"R2_ACCESS_KEY_SECRET"`
	R2BucketName        string `envconfig:"R2_BUCKET_NAME"`
	CDNBaseURL          string `envconfig:"CDN_BASE_URL"`
}

// LoadConfig reads the typed config from the environment. godotenv runs
// before this in main, so .env values are visible here.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// OriginList returns the cleaned, comma-joined CORS origin list.
func (c *Config) OriginList() string {
	parts := strings.Split(c.AllowedOrigins, ",")
	for i, origin := range parts {
		parts[i] = strings.TrimSpace(origin)
	}
	return strings.Join(parts, ",")
}

// R2Configured reports whether artwork uploads can be enabled.
func (c *Config) R2Configured() bool {
	return c.CloudflareAccountID != "" && c.R2AccessKeyID != "" && c.R2BucketName != ""
}

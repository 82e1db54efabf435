package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Gateway  GatewayConfig
	Mailer   MailerConfig
	Admin    AdminConfig
	Recon    ReconConfig
}

type ServerConfig struct {
	Port int
	Env  string // "development", "production"
}

type DatabaseConfig struct {
	Host    string
	Port    string
	Name    string
	User    string
	Pass    string
	Charset string
}

type RedisConfig struct {
	Addr string
	Pass string
	DB   int
}

// GatewayConfig holds the payment gateway credentials. CallbackSecret signs
// the browser callback; WebhookSecret signs server-to-server events. The two
// are distinct on purpose.
type GatewayConfig struct {
	KeyID          string
	KeySecret      string
	CallbackSecret string
	WebhookSecret  string
}

type MailerConfig struct {
	Endpoint string
	APIKey   string
}

type AdminConfig struct {
	APIKey string
}

// ReconConfig tunes the stale-pending reconciliation job.
type ReconConfig struct {
	// Pending transactions older than Cutoff are checked against the
	// gateway; older than Expiry they are failed.
	Cutoff time.Duration
	Expiry time.Duration
}

// Load reads configuration from .env file and environment variables.
func Load() (*Config, error) {
	// Load .env file (ignore error if missing)
	_ = godotenv.Load()

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_ENV", "production")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "3306")
	viper.SetDefault("DB_CHARSET", "utf8mb4")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("RECON_CUTOFF", "30m")
	viper.SetDefault("RECON_EXPIRY", "24h")

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("APP_PORT"),
			Env:  viper.GetString("APP_ENV"),
		},
		Database: DatabaseConfig{
			Host:    viper.GetString("DB_HOST"),
			Port:    viper.GetString("DB_PORT"),
			Name:    viper.GetString("DB_NAME"),
			User:    viper.GetString("DB_USER"),
			Pass:    viper.GetString("DB_PASS"),
			Charset: viper.GetString("DB_CHARSET"),
		},
		Redis: RedisConfig{
			Addr: viper.GetString("REDIS_ADDR"),
			Pass: viper.GetString("REDIS_PASS"),
			DB:   viper.GetInt("REDIS_DB"),
		},
		Gateway: GatewayConfig{
			KeyID:          viper.GetString("GATEWAY_KEY_ID"),
			KeySecret:      viper.GetString("GATEWAY_KEY_SECRET"),
			CallbackSecret: viper.GetString("GATEWAY_CALLBACK_SECRET"),
			WebhookSecret:  viper.GetString("GATEWAY_WEBHOOK_SECRET"),
		},
		Mailer: MailerConfig{
			Endpoint: viper.GetString("MAILER_ENDPOINT"),
			APIKey:   viper.GetString("MAILER_API_KEY"),
		},
		Admin: AdminConfig{
			APIKey: viper.GetString("ADMIN_API_KEY"),
		},
		Recon: ReconConfig{
			Cutoff: parseDuration(viper.GetString("RECON_CUTOFF"), 30*time.Minute),
			Expiry: parseDuration(viper.GetString("RECON_EXPIRY"), 24*time.Hour),
		},
	}

	if cfg.Database.Name == "" {
		log.Println("WARNING: DB_NAME is not set")
	}
	if cfg.Gateway.KeyID == "" || cfg.Gateway.KeySecret == "" {
		log.Println("WARNING: gateway credentials are not set")
	}
	if cfg.Gateway.WebhookSecret == "" {
		log.Println("WARNING: GATEWAY_WEBHOOK_SECRET is not set; webhooks will be rejected")
	}

	return cfg, nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// DSN returns the MySQL DSN string for GORM.
func (d *DatabaseConfig) DSN() string {
	return d.User + ":" + d.Pass + "@tcp(" + d.Host + ":" + d.Port + ")/" + d.Name + "?charset=" + d.Charset + "&parseTime=True&loc=Local"
}

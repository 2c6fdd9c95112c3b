// AngelaMos | 2026
// config.go

package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App          AppConfig          `koanf:"app"`
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Redis        RedisConfig        `koanf:"redis"`
	JWT          JWTConfig          `koanf:"jwt"`
	RateLimit    RateLimitConfig    `koanf:"rate_limit"`
	CORS         CORSConfig         `koanf:"cors"`
	Log          LogConfig          `koanf:"log"`
	Otel         OtelConfig         `koanf:"otel"`
	Subscription SubscriptionConfig `koanf:"subscription"`
	Content      ContentConfig      `koanf:"content"`
	Presence     PresenceConfig     `koanf:"presence"`
	Events       EventsConfig       `koanf:"events"`
	Jobs         JobsConfig         `koanf:"jobs"`
	Bootstrap    BootstrapConfig    `koanf:"bootstrap"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment" validate:"oneof=development test staging production"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"             validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"                validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns"     validate:"min=1"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

type RedisConfig struct {
	URL             string        `koanf:"url"                validate:"required"`
	PoolSize        int           `koanf:"pool_size"          validate:"min=1"`
	MinIdleConns    int           `koanf:"min_idle_conns"`
	PoolTimeout     time.Duration `koanf:"pool_timeout"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type JWTConfig struct {
	PrivateKeyPath     string        `koanf:"private_key_path"     validate:"required"`
	PublicKeyPath      string        `koanf:"public_key_path"      validate:"required"`
	AccessTokenExpire  time.Duration `koanf:"access_token_expire"  validate:"gt=0"`
	RefreshTokenExpire time.Duration `koanf:"refresh_token_expire" validate:"gtfield=AccessTokenExpire"`
	Issuer             string        `koanf:"issuer"`
	Audience           string        `koanf:"audience"`
}

type RateLimitConfig struct {
	Requests         int           `koanf:"requests"           validate:"min=1"`
	Window           time.Duration `koanf:"window"             validate:"gt=0"`
	Burst            int           `koanf:"burst"              validate:"min=1"`
	PurchasesPerHour int           `koanf:"purchases_per_hour" validate:"min=1"`
	PurchaseBurst    int           `koanf:"purchase_burst"     validate:"min=1"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"  validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json text"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"  validate:"gte=0,lte=1"`
}

// SubscriptionConfig caps the one-time lifetime grants per tier.
type SubscriptionConfig struct {
	PremiumBonusCap int `koanf:"premium_bonus_cap" validate:"min=0"`
	VIPBonusCap     int `koanf:"vip_bonus_cap"     validate:"min=0"`
}

type ContentConfig struct {
	CountDeniedViews bool `koanf:"count_denied_views"`
}

type PresenceConfig struct {
	OnlineWindow  time.Duration `koanf:"online_window"  validate:"gt=0"`
	TouchInterval time.Duration `koanf:"touch_interval" validate:"gt=0,ltefield=OnlineWindow"`
}

type EventsConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"     validate:"required_if=Enabled true"`
	Queue   string `koanf:"queue"   validate:"required"`

	ReconnectDelay time.Duration `koanf:"reconnect_delay" validate:"gt=0"`
}

type JobsConfig struct {
	TokenCleanupSchedule string `koanf:"token_cleanup_schedule" validate:"required"`
}

// BootstrapConfig seeds an administrator account on startup when all
// three fields are set.
type BootstrapConfig struct {
	AdminUsername string `koanf:"admin_username"`
	AdminEmail    string `koanf:"admin_email"`
	AdminPassword string `koanf:"admin_password"`
}

func (b BootstrapConfig) Enabled() bool {
	return b.AdminUsername != "" && b.AdminEmail != "" && b.AdminPassword != ""
}

// Load layers defaults, the optional YAML file and environment variables,
// in that order, then validates the result.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	loaded := &Config{}
	if err := k.Unmarshal("", loaded); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(loaded); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return loaded, nil
}

func validate(c *Config) error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(c)

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		fe := fieldErrs[0]
		return fmt.Errorf("%s failed %q", strings.TrimPrefix(fe.Namespace(), "Config."), fe.ActualTag())
	}
	if err != nil {
		return err
	}

	if c.CORS.AllowCredentials && slices.Contains(c.CORS.AllowedOrigins, "*") {
		return errors.New("CORS wildcard '*' cannot be used with AllowCredentials")
	}

	if c.IsProduction() && c.Otel.Enabled && c.Otel.Insecure {
		return errors.New("OTEL_INSECURE must be false in production")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

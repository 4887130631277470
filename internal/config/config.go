package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName         string
	AppEnv          string
	AppPort         string
	LogLevel        string
	DatabaseURL     string
	RedisURL        string
	CacheTTL        time.Duration
	NATSURL         string
	NATSSubject     string
	JWTSecret       string
	RateLimitMax    int
	RateLimitWindow time.Duration
	CORSOrigins     string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// AuthEnabled reports whether write routes must carry a bearer token.
func (c Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	v.SetEnvPrefix("STUDENTS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// libpq style variables are accepted as fallbacks.
	bindings := map[string][]string{
		"app.port":          {"STUDENTS_APP_PORT", "PORT"},
		"database.url":      {"STUDENTS_DATABASE_URL", "DATABASE_URL"},
		"database.host":     {"STUDENTS_DATABASE_HOST", "PGHOST"},
		"database.port":     {"STUDENTS_DATABASE_PORT", "PGPORT"},
		"database.user":     {"STUDENTS_DATABASE_USER", "PGUSER"},
		"database.password": {"STUDENTS_DATABASE_PASSWORD", "PGPASSWORD"},
		"database.name":     {"STUDENTS_DATABASE_NAME", "PGDATABASE"},
		"database.sslmode":  {"STUDENTS_DATABASE_SSLMODE", "PGSSLMODE"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	v.SetDefault("app.name", "Students API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "5000")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "require")
	v.SetDefault("cache.ttl", "1m")
	v.SetDefault("nats.subject", "students")
	v.SetDefault("rate_limit.max", 60)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("cors.allow_origins", "*")

	cacheTTL, err := parseDuration(v, "cache.ttl")
	if err != nil {
		return Config{}, err
	}

	window, err := parseDuration(v, "rate_limit.window")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          strings.ToLower(v.GetString("app.env")),
		AppPort:         v.GetString("app.port"),
		LogLevel:        strings.ToLower(v.GetString("log.level")),
		DatabaseURL:     strings.TrimSpace(v.GetString("database.url")),
		RedisURL:        strings.TrimSpace(v.GetString("redis.url")),
		CacheTTL:        cacheTTL,
		NATSURL:         strings.TrimSpace(v.GetString("nats.url")),
		NATSSubject:     strings.Trim(v.GetString("nats.subject"), ". "),
		JWTSecret:       v.GetString("jwt.secret"),
		RateLimitMax:    v.GetInt("rate_limit.max"),
		RateLimitWindow: window,
		CORSOrigins:     strings.TrimSpace(v.GetString("cors.allow_origins")),
	}

	if cfg.DatabaseURL == "" {
		host := strings.TrimSpace(v.GetString("database.host"))
		if host == "" {
			return Config{}, fmt.Errorf("database url or host must be provided")
		}
		cfg.DatabaseURL = PostgresDSN(
			host,
			v.GetString("database.port"),
			v.GetString("database.user"),
			v.GetString("database.password"),
			v.GetString("database.name"),
			v.GetString("database.sslmode"),
		)
	}

	if cfg.NATSSubject == "" {
		cfg.NATSSubject = "students"
	}

	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 60
	}

	return cfg, nil
}

// PostgresDSN assembles a connection URL from discrete connection parameters.
func PostgresDSN(host, port, user, password, name, sslmode string) string {
	if port == "" {
		port = "5432"
	}
	if sslmode == "" {
		sslmode = "require"
	}

	userinfo := url.User(user)
	if password != "" {
		userinfo = url.UserPassword(user, password)
	}

	dsn := url.URL{
		Scheme:   "postgres",
		User:     userinfo,
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + name,
		RawQuery: url.Values{"sslmode": []string{sslmode}}.Encode(),
	}

	return dsn.String()
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return d, nil
}

// Package config loads service configuration from the environment and
// validates it before anything starts.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/froyplus000/pattarapol-focusbear-intern-repo/internal/validation"
	"github.com/go-playground/validator/v10"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// FallbackEncryptionKey is used when ENCRYPTION_KEY is unset. Never use it
// outside local development.
const FallbackEncryptionKey = "a3f1c2e4b5d6978812ab34cd56ef7890a1b2c3d4e5f60718293a4b5c6d7e8f90"

// App holds the settings every service reads.
type App struct {
	NodeEnv        string `env:"NODE_ENV,default=development" validate:"oneof=development production test"`
	Port           int    `env:"APP_PORT,default=3000" validate:"min=1,max=65535"`
	LogLevel       string `env:"LOG_LEVEL,default=info" validate:"oneof=trace debug info warn warning error fatal panic"`
	LogFormat      string `env:"LOG_FORMAT,default=text" validate:"oneof=text json"`
	Milestone      string `env:"MILESTONE,default=first-app" validate:"required"`
	DataDir        string `env:"DATA_DIR"`
	// TrustedProxies lists the proxy IPs or CIDRs whose forwarding headers
	// are believed. Empty means the socket peer is always the client.
	TrustedProxies string `env:"TRUSTED_PROXIES" validate:"omitempty,proxies"`
}

// Addr is the listen address for Port.
func (a App) Addr() string { return ":" + strconv.Itoa(a.Port) }

// Proxies splits TrustedProxies into trimmed entries.
func (a App) Proxies() []string { return splitOrigins(a.TrustedProxies) }

// Database holds Postgres connection settings.
type Database struct {
	Host    string `env:"DB_HOST" validate:"required"`
	Port    int    `env:"DB_PORT,default=5432" validate:"min=1,max=65535"`
	User    string `env:"DB_USER" validate:"required"`
	Pass    string `env:"DB_PASS" validate:"required"`
	Name    string `env:"DB_NAME" validate:"required"`
	SSLMode string `env:"DB_SSLMODE,default=disable" validate:"oneof=disable require verify-ca verify-full"`
}

// URL renders a postgres:// connection URL usable by both lib/pq and the
// migration driver.
func (d Database) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Pass),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

// Redis locates the queue backend.
type Redis struct {
	Host string `env:"REDIS_HOST,default=127.0.0.1" validate:"required"`
	Port int    `env:"REDIS_PORT,default=6379" validate:"min=1,max=65535"`
}

func (r Redis) Addr() string { return net.JoinHostPort(r.Host, strconv.Itoa(r.Port)) }

// Auth0 describes the token issuer.
type Auth0 struct {
	Domain     string `env:"AUTH0_DOMAIN" validate:"required"`
	Audience   string `env:"AUTH0_AUDIENCE" validate:"required"`
	RolesClaim string `env:"AUTH0_ROLES_CLAIM,default=https://nestjs-rbac-demo.com/roles" validate:"required"`
}

// Security holds the hardened service settings.
type Security struct {
	CORSOrigins string        `env:"CORS_ORIGINS" validate:"required,origins"`
	APIKey      string        `env:"API_KEY" validate:"required,min=32"`
	RateLimit   int           `env:"RATE_LIMIT_MAX,default=100" validate:"min=1"`
	RateWindow  time.Duration `env:"RATE_LIMIT_WINDOW,default=1m" validate:"min=1s"`
}

// Origins splits CORSOrigins into trimmed entries.
func (s Security) Origins() []string {
	return splitOrigins(s.CORSOrigins)
}

// Encryption holds the at-rest encryption key as 64 hex characters.
type Encryption struct {
	Key string `env:"ENCRYPTION_KEY" validate:"omitempty,hexadecimal,len=64"`
}

// UsingFallback reports whether no key was configured.
func (e Encryption) UsingFallback() bool { return e.Key == "" }

// KeyOrFallback returns the configured key or FallbackEncryptionKey.
func (e Encryption) KeyOrFallback() string {
	if e.Key == "" {
		return FallbackEncryptionKey
	}
	return e.Key
}

var messages = validation.Catalog{
	"CORS_ORIGINS.required":   "CORS_ORIGINS is required",
	"CORS_ORIGINS.origins":    "CORS_ORIGINS must be comma-separated URLs (e.g., http://localhost:3000,https://example.com)",
	"API_KEY.required":        "API_KEY is required",
	"API_KEY.min":             "API_KEY must be at least 32 characters for security",
	"ENCRYPTION_KEY.len":      "ENCRYPTION_KEY must be 64 hex characters (32 bytes)",
	"TRUSTED_PROXIES.proxies": "TRUSTED_PROXIES must be comma-separated IP addresses or CIDR ranges",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(validation.TagName("env"))
	registerRules(v, map[string]func(string) bool{
		"origins": validOrigins,
		"proxies": validProxies,
	})
	return v
}

// registerRules adds string rules to v and panics if one is rejected, since
// a section using it would otherwise skip that check.
func registerRules(v *validator.Validate, rules map[string]func(string) bool) {
	for tag, check := range rules {
		check := check
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return check(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("config: register %q rule: %v", tag, err))
		}
	}
}

// Error lists every validation failure of one section.
type Error struct {
	Messages []string
}

func (e *Error) Error() string {
	return "config validation error: " + strings.Join(e.Messages, "; ")
}

// Load decodes the environment into target and validates it.
func Load(target any) error {
	if err := envdecode.Decode(target); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return fmt.Errorf("decode environment: %w", err)
	}
	if err := validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return &Error{Messages: validation.Messages(verrs, messages)}
		}
		return err
	}
	return nil
}

// EnvFiles lists the dotenv files consulted for nodeEnv, most specific first.
func EnvFiles(nodeEnv string) []string {
	files := make([]string, 0, 4)
	if nodeEnv != "" {
		files = append(files, ".env."+nodeEnv+".local", ".env."+nodeEnv)
	}
	return append(files, ".env.local", ".env")
}

// LoadEnvFiles loads every existing dotenv file from dir. Values already in
// the environment are never overridden, so earlier files win.
func LoadEnvFiles(dir, nodeEnv string) ([]string, error) {
	var loaded []string
	for _, name := range EnvFiles(nodeEnv) {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return loaded, fmt.Errorf("load %s: %w", path, err)
		}
		loaded = append(loaded, path)
	}
	return loaded, nil
}

// Mask hides most of a secret for display.
func Mask(value string) string {
	switch {
	case value == "":
		return ""
	case len(value) <= 4:
		return "****"
	default:
		return value[:2] + "****" + value[len(value)-2:]
	}
}

func splitOrigins(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validOrigins(raw string) bool {
	origins := splitOrigins(raw)
	if len(origins) == 0 {
		return false
	}
	for _, o := range origins {
		u, err := url.Parse(o)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return false
		}
	}
	return true
}

func validProxies(raw string) bool {
	proxies := splitOrigins(raw)
	if len(proxies) == 0 {
		return false
	}
	for _, p := range proxies {
		if _, _, err := net.ParseCIDR(p); err == nil {
			continue
		}
		if net.ParseIP(p) == nil {
			return false
		}
	}
	return true
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendREST     = "rest"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Config struct {
	// StoreBackend selects the persistence adapter: "rest" for the hosted
	// PostgREST/GoTrue backend, "postgres" or "sqlite" for a self-hosted
	// database.
	StoreBackend string `env:"STORE_BACKEND" envDefault:"rest"`
	// StoreLayout is the table shape of the backend: "split" (separate movie
	// and show tables) or "unified" (one items table).
	StoreLayout string `env:"STORE_LAYOUT" envDefault:"split"`
	// SupabaseURL is the project URL of the hosted backend.
	SupabaseURL string `env:"SUPABASE_URL"`
	// SupabaseAnonKey is the public anon key of the hosted backend.
	SupabaseAnonKey string `env:"SUPABASE_ANON_KEY"`
	// DatabaseURL is the connection string of the self-hosted database (a
	// file path for sqlite).
	DatabaseURL string `env:"DATABASE_URL" envDefault:"mcurankings.db"`
	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	// ExternalURL is the publicly reachable URL of the site, used for CORS.
	ExternalURL string `env:"EXTERNAL_URL" envDefault:"http://localhost:8080"`
	// CORSOrigins is an additional set of origins (comma-separated) that are
	// allowed to make credentialed cross-origin requests.
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`
	// SessionTTL is how long a session lasts from sign-in. Set to 0 to keep
	// sessions until sign-out.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	// LoginMaxAttempts is the number of failed login attempts allowed per IP
	// within LoginWindow before the IP is temporarily blocked.
	LoginMaxAttempts int `env:"LOGIN_MAX_ATTEMPTS" envDefault:"10"`
	// LoginWindow is the sliding window duration for counting failed logins.
	LoginWindow time.Duration `env:"LOGIN_WINDOW" envDefault:"15m"`
	// LoginBanDuration is how long an IP is blocked after exceeding LoginMaxAttempts.
	LoginBanDuration time.Duration `env:"LOGIN_BAN_DURATION" envDefault:"15m"`
	// AdminEmail is the single admin account.
	AdminEmail string `env:"ADMIN_EMAIL" envDefault:"admin@mcurankings.local"`
	// InitialAdminPassword provisions the admin account at start-up when set.
	// An existing account is left alone.
	InitialAdminPassword string `env:"INITIAL_ADMIN_PASSWORD"`
	// RequestTimeout bounds every call to the store.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
	// SearchDebounce is the quiet period before a typeahead query runs.
	SearchDebounce time.Duration `env:"SEARCH_DEBOUNCE" envDefault:"200ms"`
	// SearchLimit caps typeahead results.
	SearchLimit int `env:"SEARCH_LIMIT" envDefault:"8"`
	// HealthCheckInterval is how often the store is pinged. The store is
	// reported unavailable after 2 consecutive failures.
	HealthCheckInterval time.Duration `env:"HEALTH_CHECK_INTERVAL" envDefault:"30s"`
	// ShutdownTimeout is the maximum duration to wait for in-flight requests
	// to complete during graceful shutdown.
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

// Load parses configuration from environment variables, after loading an
// optional .env file from the working directory. Variables already set in
// the environment win over the file.
func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path.
func LoadFile(path string) (Config, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the server cannot start with.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendREST:
		if c.SupabaseURL == "" || c.SupabaseAnonKey == "" {
			return errors.New("config: STORE_BACKEND=rest requires SUPABASE_URL and SUPABASE_ANON_KEY")
		}
	case BackendPostgres, BackendSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: STORE_BACKEND=%s requires DATABASE_URL", c.StoreBackend)
		}
	default:
		return fmt.Errorf("config: unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.StoreLayout {
	case "split", "unified":
	default:
		return fmt.Errorf("config: unknown STORE_LAYOUT %q", c.StoreLayout)
	}
	if c.SearchLimit <= 0 {
		return errors.New("config: SEARCH_LIMIT must be positive")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	TaskStorePostgres = "postgres"
	TaskStoreMongo    = "mongo"

	AuthProviderJWT      = "jwt"
	AuthProviderFirebase = "firebase"

	DispatchInline = "inline"
	DispatchAsync  = "async"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	TaskStore   string
	Database    DatabaseConfig
	Mongo       MongoConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Reminder    ReminderConfig
	Dispatcher  DispatcherConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host          string
	Port          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	MaxConn       int
	EnableMetrics bool
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type MongoConfig struct {
	URI      string
	Database string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type AuthConfig struct {
	Provider string
	JWT      JWTConfig
	Firebase FirebaseConfig
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

type ReminderConfig struct {
	WindowDays    int
	TTL           time.Duration
	ReadMarkerTTL time.Duration
}

type DispatcherConfig struct {
	Mode        string
	Path        string
	Bucket      string
	Workers     int
	BatchSize   int
	Interval    time.Duration
	MaxAttempts int
	Retention   time.Duration
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "reminders"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:          getString("SERVER_HOST", "0.0.0.0"),
			Port:          getString("SERVER_PORT", "8080"),
			ReadTimeout:   getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:  getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:   getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxConn:       getInt("SERVER_MAX_CONN", 0),
			EnableMetrics: getBool("METRICS_ENABLED", true),
		},
		TaskStore: getString("TASK_STORE", TaskStorePostgres),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "reminders"),
			User:            getString("DB_USER", "reminders"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Mongo: MongoConfig{
			URI:      getString("MONGO_URI", "mongodb://localhost:27017"),
			Database: getString("MONGO_DATABASE", "reminders"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			Provider: getString("AUTH_PROVIDER", AuthProviderJWT),
			JWT: JWTConfig{
				Secret: os.Getenv("JWT_SECRET"),
				Issuer: getString("JWT_ISSUER", "reminders"),
			},
			Firebase: FirebaseConfig{
				ProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
				CredentialsFile: os.Getenv("FIREBASE_CREDENTIALS_FILE"),
			},
		},
		Reminder: ReminderConfig{
			WindowDays:    getInt("REMINDER_WINDOW_DAYS", 2),
			TTL:           getDuration("REMINDER_TTL", 7*24*time.Hour),
			ReadMarkerTTL: getDuration("READ_MARKER_TTL", 30*24*time.Hour),
		},
		Dispatcher: DispatcherConfig{
			Mode:        getString("REMINDER_DISPATCH_MODE", DispatchInline),
			Path:        getString("BOLTDB_PATH", "./data/reminder_jobs.db"),
			Bucket:      getString("BOLTDB_BUCKET", "reminder_jobs"),
			Workers:     getInt("DISPATCHER_WORKERS", 4),
			BatchSize:   getInt("DISPATCHER_BATCH_SIZE", 50),
			Interval:    getDuration("DISPATCHER_INTERVAL", 30*time.Second),
			MaxAttempts: getInt("DISPATCHER_MAX_ATTEMPTS", 1),
			Retention:   getDuration("DISPATCHER_RETENTION", 24*time.Hour),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Reminder.WindowDays < 0 {
		errs = append(errs, fmt.Errorf("REMINDER_WINDOW_DAYS must be >= 0, got %d", c.Reminder.WindowDays))
	}
	if c.Reminder.TTL <= 0 {
		errs = append(errs, errors.New("REMINDER_TTL must be positive"))
	}
	if c.Reminder.ReadMarkerTTL <= 0 {
		errs = append(errs, errors.New("READ_MARKER_TTL must be positive"))
	}
	switch c.TaskStore {
	case TaskStorePostgres, TaskStoreMongo:
	default:
		errs = append(errs, fmt.Errorf("unknown TASK_STORE %q", c.TaskStore))
	}
	switch c.Auth.Provider {
	case AuthProviderJWT:
		if c.Auth.JWT.Secret == "" {
			errs = append(errs, errors.New("JWT_SECRET is required when AUTH_PROVIDER=jwt"))
		}
	case AuthProviderFirebase:
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_PROVIDER %q", c.Auth.Provider))
	}
	switch c.Dispatcher.Mode {
	case DispatchInline:
	case DispatchAsync:
		if c.Dispatcher.Path == "" {
			errs = append(errs, errors.New("BOLTDB_PATH is required for async dispatch"))
		}
		if c.Dispatcher.MaxAttempts < 1 {
			errs = append(errs, errors.New("DISPATCHER_MAX_ATTEMPTS must be at least 1"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown REMINDER_DISPATCH_MODE %q", c.Dispatcher.Mode))
	}
	return errors.Join(errs...)
}

// AsyncDispatch reports whether scheduling runs through the job dispatcher.
func (c *Config) AsyncDispatch() bool {
	return c.Dispatcher.Mode == DispatchAsync
}

func buildPostgresURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}

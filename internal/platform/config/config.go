package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile            = ".env"
	defaultPort               = "8080"
	defaultReadTimeout        = 15 * time.Second
	defaultWriteTimeout       = 30 * time.Second
	defaultIdleTimeout        = 120 * time.Second
	defaultStoreDriver        = StoreDriverMemory
	defaultVouchersCollection = "vouchers"
	defaultUsagesCollection   = "voucherUsages"
	defaultCurrency           = "MYR"
	defaultVoucherURLPrefix   = "/admin/vouchers"
	defaultOrderURLTemplate   = "/admin/orders/{orderID}"
	defaultFirestoreTxAttempt = 5
	defaultFirestoreTxTimeout = 15 * time.Second
)

// Store drivers.
const (
	StoreDriverMemory    = "memory"
	StoreDriverFirestore = "firestore"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server       ServerConfig
	Firebase     FirebaseConfig
	Firestore    FirestoreConfig
	Store        StoreConfig
	Presentation PresentationConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// FirebaseConfig stores Firebase project settings. Admin routes require Firebase ID tokens only
// when ProjectID is set.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string
}

// Enabled reports whether Firebase authentication is configured.
func (c FirebaseConfig) Enabled() bool {
	return strings.TrimSpace(c.ProjectID) != ""
}

// FirestoreConfig stores database parameters. TxAttempts and TxTimeout bound read-modify-write
// transactions.
type FirestoreConfig struct {
	ProjectID    string
	EmulatorHost string
	TxAttempts   int
	TxTimeout    time.Duration
}

// StoreConfig selects and configures the voucher store.
type StoreConfig struct {
	Driver             string
	SeedFile           string
	VouchersCollection string
	UsagesCollection   string
}

// PresentationConfig controls admin view formatting.
type PresentationConfig struct {
	DefaultCurrency  string
	VoucherURLPrefix string
	OrderURLTemplate string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises configuration loading.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the dotenv file path. An empty path disables dotenv loading.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap supplies explicit values that take precedence over every other source.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv ignores the process environment.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load reads configuration with precedence dotenv < process environment < explicit map.
func Load(_ context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if value, ok := dotEnvValues[key]; ok {
			return value, true
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "VOUCHERS_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "VOUCHERS_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "VOUCHERS_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "VOUCHERS_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Firebase: FirebaseConfig{
			ProjectID:       stringWithDefault(lookup, "VOUCHERS_FIREBASE_PROJECT_ID", ""),
			CredentialsFile: stringWithDefault(lookup, "VOUCHERS_FIREBASE_CREDENTIALS_FILE", ""),
		},
		Firestore: FirestoreConfig{
			ProjectID:    stringWithDefault(lookup, "VOUCHERS_FIRESTORE_PROJECT_ID", ""),
			EmulatorHost: stringWithDefault(lookup, "VOUCHERS_FIRESTORE_EMULATOR_HOST", ""),
			TxAttempts:   intWithDefault(lookup, "VOUCHERS_FIRESTORE_TX_ATTEMPTS", defaultFirestoreTxAttempt),
			TxTimeout:    durationWithDefault(lookup, "VOUCHERS_FIRESTORE_TX_TIMEOUT", defaultFirestoreTxTimeout),
		},
		Store: StoreConfig{
			Driver:             strings.ToLower(stringWithDefault(lookup, "VOUCHERS_STORE_DRIVER", defaultStoreDriver)),
			SeedFile:           stringWithDefault(lookup, "VOUCHERS_STORE_SEED_FILE", ""),
			VouchersCollection: stringWithDefault(lookup, "VOUCHERS_STORE_VOUCHERS_COLLECTION", defaultVouchersCollection),
			UsagesCollection:   stringWithDefault(lookup, "VOUCHERS_STORE_USAGES_COLLECTION", defaultUsagesCollection),
		},
		Presentation: PresentationConfig{
			DefaultCurrency:  strings.ToUpper(stringWithDefault(lookup, "VOUCHERS_DEFAULT_CURRENCY", defaultCurrency)),
			VoucherURLPrefix: stringWithDefault(lookup, "VOUCHERS_VOUCHER_URL_PREFIX", defaultVoucherURLPrefix),
			OrderURLTemplate: stringWithDefault(lookup, "VOUCHERS_ORDER_URL_TEMPLATE", defaultOrderURLTemplate),
		},
	}

	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.Firebase.ProjectID
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if strings.TrimSpace(cfg.Server.Port) == "" {
		missing = append(missing, "Server.Port")
	}
	switch cfg.Store.Driver {
	case StoreDriverMemory:
	case StoreDriverFirestore:
		if cfg.Firestore.ProjectID == "" {
			missing = append(missing, "Firestore.ProjectID")
		}
	default:
		missing = append(missing, "Store.Driver")
	}
	if cfg.Firestore.TxAttempts <= 0 {
		missing = append(missing, "Firestore.TxAttempts")
	}
	if cfg.Firestore.TxTimeout <= 0 {
		missing = append(missing, "Firestore.TxTimeout")
	}
	if strings.TrimSpace(cfg.Store.VouchersCollection) == "" {
		missing = append(missing, "Store.VouchersCollection")
	}
	if strings.TrimSpace(cfg.Store.UsagesCollection) == "" {
		missing = append(missing, "Store.UsagesCollection")
	}
	if len(cfg.Presentation.DefaultCurrency) != 3 {
		missing = append(missing, "Presentation.DefaultCurrency")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	values, err := godotenv.Read(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0
		}
		return n
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

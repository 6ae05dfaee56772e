package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    slog.Level
	APIKeys     map[string]string // key -> partner label
	BodyLimit   int64

	GreenID  GreenID
	Wallet   Wallet
	PGP      PGP
	Redis    RedisConfig
	Database Database
	Kafka    Kafka

	VerifyCacheTTL time.Duration
}

// GreenID holds the vendor endpoint and account credentials.
type GreenID struct {
	URL       string
	AccountID string
	Password  string
}

// Wallet holds the secp256k1 key that anchors the issuer DID.
type Wallet struct {
	Address    string
	PrivateKey string
	// DomainURL is the service identity used as PGP issuer and presentation domain.
	DomainURL string
	// SignHash enables signing the presentation hash with the wallet key.
	SignHash bool
}

// PGP points at the armored private key used for detached signatures.
type PGP struct {
	PrivateKeyPath string
	Passphrase     string
}

// RedisConfig configures the cache backend. An empty URL disables caching.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Database configures the request log store. An empty URL selects the in-memory store.
type Database struct {
	URL        string
	CACertPath string
}

// Kafka configures the audit sink. Empty brokers selects the in-memory sink.
type Kafka struct {
	Brokers    string
	AuditTopic string
}

// TestMode reports whether the vendor endpoint is a test environment. Test mode
// issues credentials regardless of the polled verification status.
func (s Server) TestMode() bool {
	return strings.Contains(s.GreenID.URL, "test")
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:        getEnv("IDPROXY_ADDR", ":3000"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLevel(os.Getenv("LOG_LEVEL")),
		APIKeys:     parseAPIKeys(os.Getenv("API_KEYS")),
		BodyLimit:   int64(getInt("BODY_LIMIT_BYTES", 64*1024)),
		GreenID: GreenID{
			URL:       os.Getenv("GREENID_URL"),
			AccountID: os.Getenv("GREENID_ACCOUNT_ID"),
			Password:  os.Getenv("GREENID_PASSWORD"),
		},
		Wallet: Wallet{
			Address:    os.Getenv("WALLET_ADDRESS"),
			PrivateKey: os.Getenv("WALLET_PRIVATE_KEY"),
			DomainURL:  os.Getenv("IDEM_URL"),
			SignHash:   os.Getenv("PGP_SIGN") == "true",
		},
		PGP: PGP{
			PrivateKeyPath: os.Getenv("PGP_PRIVATE_KEY"),
			Passphrase:     os.Getenv("PGP_PASSPHRASE"),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Database: Database{
			URL:        os.Getenv("DATABASE_URL"),
			CACertPath: os.Getenv("CA_CERT"),
		},
		Kafka: Kafka{
			Brokers:    os.Getenv("KAFKA_BROKERS"),
			AuditTopic: getEnv("AUDIT_TOPIC", "idproxy.verification.audit"),
		},
		VerifyCacheTTL: getDuration("VERIFY_CACHE_TTL", 5*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// parseAPIKeys reads "partner:key,partner2:key2". A bare key is labelled "default".
func parseAPIKeys(s string) map[string]string {
	keys := make(map[string]string)
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		partner, key, ok := strings.Cut(entry, ":")
		if !ok {
			partner, key = "default", entry
		}
		keys[strings.TrimSpace(key)] = strings.TrimSpace(partner)
	}
	return keys
}

package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for
// durations, costs and limits.
type Config struct {
	Env           string // application environment (e.g. "dev", "prod")
	Port          string // HTTP port to listen on
	DBUser        string // database username
	DBPass        string // database password (optional)
	DBHost        string // database host address
	DBPort        string // database port number
	DBName        string // database name
	JWTSecret     string // secret used to sign JWTs
	AccessTTLMin  int    // access token time-to-live in minutes
	BcryptCost    int    // bcrypt cost for password hashing
	PublicBaseURL string // public origin used to build RSVP links and QR payloads

	MaxNotifyPerDay int    // per-invitation, per-channel daily send quota
	MaxPartySize    int    // upper bound on RSVP headcount
	DispatchWorkers int    // concurrent sends within one announcement batch
	AMQPURL         string // RabbitMQ connection string (optional)

	RedisAddr     string // Redis host:port for task queue and cache namespaces
	RedisPassword string // Redis password (optional)

	EmailAPIURL string // outbound email provider endpoint (optional)
	EmailAPIKey string // outbound email provider key
	EmailFrom   string // From address for outbound email
	SMSAPIURL   string // outbound SMS provider endpoint (optional)
	SMSAPIKey   string // outbound SMS provider key
	SMSSender   string // sender name shown on SMS
	WhatsAppDB  string // sqlite path for the WhatsApp session store (optional)
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Provider settings
// are optional; a channel with no provider configured simply has no
// sender registered.
func Load() Config {
	return Config{
		Env:           must("APP_ENV"),
		Port:          must("APP_PORT"),
		DBUser:        must("DB_USER"),
		DBPass:        os.Getenv("DB_PASS"), // empty allowed
		DBHost:        must("DB_HOST"),
		DBPort:        must("DB_PORT"),
		DBName:        must("DB_NAME"),
		JWTSecret:     must("JWT_SECRET"),
		AccessTTLMin:  mustInt("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost:    mustInt("BCRYPT_COST"),
		PublicBaseURL: must("PUBLIC_BASE_URL"),

		MaxNotifyPerDay: intOr("MAX_NOTIFY_PER_DAY", 3),
		MaxPartySize:    intOr("MAX_PARTY_SIZE", 12),
		DispatchWorkers: intOr("DISPATCH_WORKERS", 5),
		AMQPURL:         os.Getenv("RABBITMQ_URL"),

		RedisAddr:     strOr("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		EmailAPIURL: os.Getenv("EMAIL_API_URL"),
		EmailAPIKey: os.Getenv("EMAIL_API_KEY"),
		EmailFrom:   os.Getenv("EMAIL_FROM"),
		SMSAPIURL:   os.Getenv("SMS_API_URL"),
		SMSAPIKey:   os.Getenv("SMS_API_KEY"),
		SMSSender:   strOr("SMS_SENDER", "WeddingHub"),
		WhatsAppDB:  os.Getenv("WHATSAPP_DB_PATH"),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// strOr returns the env value or the default when unset.
func strOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// intOr returns the env value as int or the default when unset or invalid.
func intOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid int for %s: %q, using default %d", key, v, def)
		return def
	}
	return n
}

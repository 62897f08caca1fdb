package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL    string
	DBSchema       string
	DBMaxConns     int32
	DBMinConns     int32
	DBPingTimeout  time.Duration
	DBConnIdleTime time.Duration

	// If true, /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// JWTSecret enables the JWT token verifier. When empty, the server falls
	// back to a static dev token (logged loudly at startup).
	JWTSecret string
	DevToken  string

	WSOriginRequired bool
	WSAllowedOrigins []string
	WSDevInsecure    bool

	WSWriteTimeout      time.Duration
	WSReadIdleTimeout   time.Duration
	WSSendQueueSize     int
	WSHeartbeatInterval time.Duration
	WSHeartbeatTimeout  time.Duration
	WSRateLimitEvents   int
	WSRateLimitWindow   time.Duration
}

// LoadConfig loads Config from environment variables with defaults.
// Origin policy defaults are secure-by-default: required, localhost only.
func LoadConfig() Config {
	return Config{
		HTTPAddr:  EnvString("PARLEY_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel:  EnvString("PARLEY_LOG_LEVEL", "info"),
		LogFormat: EnvString("PARLEY_LOG_FORMAT", "json"),

		ReadHeaderTimeout: EnvDuration("PARLEY_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("PARLEY_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("PARLEY_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("PARLEY_HTTP_IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    EnvInt("PARLEY_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:    EnvString("PARLEY_DATABASE_URL", ""),
		DBSchema:       EnvString("PARLEY_DB_SCHEMA", "public"),
		DBMaxConns:     EnvInt32("PARLEY_DB_MAX_CONNS", 10),
		DBMinConns:     EnvInt32("PARLEY_DB_MIN_CONNS", 0),
		DBPingTimeout:  EnvDuration("PARLEY_DB_PING_TIMEOUT", 3*time.Second),
		DBConnIdleTime: EnvDuration("PARLEY_DB_CONN_IDLE_TIME", 5*time.Minute),

		ReadinessRequireDB: EnvBool("PARLEY_READINESS_REQUIRE_DB", false),

		JWTSecret: EnvString("PARLEY_JWT_SECRET", ""),
		DevToken:  EnvString("PARLEY_DEV_TOKEN", "dev-token"),

		WSOriginRequired: EnvBool("PARLEY_WS_ORIGIN_REQUIRED", true),
		WSAllowedOrigins: EnvCSV("PARLEY_WS_ALLOWED_ORIGINS", "http://localhost,http://127.0.0.1"),
		WSDevInsecure:    EnvBool("PARLEY_WS_DEV_INSECURE", false),

		WSWriteTimeout:      EnvDuration("PARLEY_WS_WRITE_TIMEOUT", 5*time.Second),
		WSReadIdleTimeout:   EnvDuration("PARLEY_WS_READ_IDLE_TIMEOUT", 2*time.Minute),
		WSSendQueueSize:     EnvInt("PARLEY_WS_SEND_QUEUE", 256),
		WSHeartbeatInterval: EnvDuration("PARLEY_WS_HEARTBEAT_INTERVAL", 25*time.Second),
		WSHeartbeatTimeout:  EnvDuration("PARLEY_WS_HEARTBEAT_TIMEOUT", 5*time.Second),
		WSRateLimitEvents:   EnvInt("PARLEY_WS_RATE_EVENTS", 120),
		WSRateLimitWindow:   EnvDuration("PARLEY_WS_RATE_WINDOW", 10*time.Second),
	}
}

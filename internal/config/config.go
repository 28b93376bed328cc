package config // package config loads application configuration from environment variables

import (
    "fmt"     // fmt formats configuration errors
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"    // time parses the shutdown timeout

    "go.uber.org/multierr" // multierr collects every configuration problem at once
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations and costs.
type Config struct {
    Env             string        // application environment (e.g. "dev", "prod")
    Port            string        // HTTP port to listen on
    DBUser          string        // database username
    DBPass          string        // database password (optional)
    DBHost          string        // database host address
    DBPort          string        // database port number
    DBName          string        // database name
    JWTSecret       string        // secret used to sign JWTs
    AccessTTLMin    int           // access token time‑to‑live in minutes
    RefreshTTLDays  int           // refresh token time‑to‑live in days
    BcryptCost      int           // bcrypt cost for password hashing
    LogLevel        string        // debug, info, warn or error
    LogFormat       string        // json or console
    AMQPURL         string        // RabbitMQ URL; empty disables the event queue
    NotifyWebhook   string        // URL notifications are delivered to (optional)
    NotifyToken     string        // bearer token sent to the notification webhook
    EventLogPath    string        // file the consumer appends allocation events to
    ShutdownTimeout time.Duration // grace period for in-flight requests on shutdown
}

// Load reads configuration values from environment variables and returns a
// Config.  Any missing or invalid variable causes the program to exit with
// a fatal log message listing all of them.
func Load() Config {
    cfg, err := LoadFromEnv()
    if err != nil {
        log.Fatalf("invalid configuration: %v", err)
    }
    return cfg
}

// LoadFromEnv is like Load but returns the combined error instead of exiting.
func LoadFromEnv() (Config, error) {
    var errs error
    req := func(key string) string {
        v, err := required(key)
        errs = multierr.Append(errs, err)
        return v
    }
    reqInt := func(key string) int {
        n, err := requiredInt(key)
        errs = multierr.Append(errs, err)
        return n
    }

    cfg := Config{
        Env:            req("APP_ENV"),                    // environment (dev/test/prod)
        Port:           req("APP_PORT"),                   // port to bind the HTTP server
        DBUser:         req("DB_USER"),                    // database user
        DBPass:         os.Getenv("DB_PASS"),              // database password (empty allowed)
        DBHost:         req("DB_HOST"),                    // database host
        DBPort:         req("DB_PORT"),                    // database port
        DBName:         req("DB_NAME"),                    // database name
        JWTSecret:      req("JWT_SECRET"),                 // secret used for signing JWTs
        AccessTTLMin:   reqInt("ACCESS_TOKEN_TTL_MIN"),    // TTL for access tokens in minutes
        RefreshTTLDays: reqInt("REFRESH_TOKEN_TTL_DAYS"),  // TTL for refresh tokens in days
        BcryptCost:     reqInt("BCRYPT_COST"),             // bcrypt cost factor
        LogLevel:       envStr("LOG_LEVEL", "info"),       // zap level
        LogFormat:      envStr("LOG_FORMAT", "json"),      // zap encoder
        AMQPURL:        envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
        NotifyWebhook:  os.Getenv("NOTIFY_WEBHOOK_URL"),
        NotifyToken:    os.Getenv("NOTIFY_WEBHOOK_TOKEN"),
        EventLogPath:   envStr("ALLOCATION_LOG_PATH", "logs/allocations.log"),
    }

    cfg.ShutdownTimeout = 10 * time.Second
    if s := os.Getenv("SHUTDOWN_TIMEOUT"); s != "" {
        d, err := time.ParseDuration(s)
        if err != nil || d <= 0 {
            errs = multierr.Append(errs, fmt.Errorf("invalid duration for SHUTDOWN_TIMEOUT: %q", s))
        } else {
            cfg.ShutdownTimeout = d
        }
    }
    if cfg.AccessTTLMin < 0 || cfg.RefreshTTLDays < 0 {
        errs = multierr.Append(errs, fmt.Errorf("token TTLs must not be negative"))
    }
    return cfg, errs
}

// required retrieves the value of a required environment variable.
func required(key string) (string, error) {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        return "", fmt.Errorf("missing required env var: %s", key)
    }
    return v, nil
}

// requiredInt is like required() but converts the retrieved string into an integer.
func requiredInt(key string) (int, error) {
    s, err := required(key)
    if err != nil {
        return 0, err
    }
    n, err := strconv.Atoi(s)
    if err != nil {
        return 0, fmt.Errorf("invalid int for %s: %q", key, s)
    }
    return n, nil
}

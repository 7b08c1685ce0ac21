package config // package config loads application configuration from environment variables

import (
    "log"     // log reports a malformed .env file
    "os"      // os provides access to environment variables
    "strings" // strings splits list-valued variables
    "time"    // time parses shutdown deadlines

    "github.com/joho/godotenv" // godotenv loads a local .env file into the process environment
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  With nothing set, `server` listens on port 3000
// and keeps its data in mydatabase.db in the working directory, as the
// legacy deployment did.
type Config struct {
    Env             string        // application environment (e.g. "dev", "prod")
    Port            string        // HTTP port to listen on
    DBPath          string        // SQLite database file
    PublicDir       string        // directory holding dashboard.html
    AllowOrigins    []string      // CORS allowed origins
    BodyLimit       string        // maximum request body size (echo notation, e.g. "1M")
    ShutdownTimeout time.Duration // graceful shutdown deadline
}

// Load reads an optional .env file and then the environment.  A missing
// .env file is expected in most deployments and is not reported.
func Load() Config {
    if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
        log.Printf("config: ignoring .env: %v", err)
    }
    port := envStr("APP_PORT", "")
    if port == "" {
        port = envStr("PORT", "3000")
    }
    return Config{
        Env:             envStr("APP_ENV", "dev"),
        Port:            port,
        DBPath:          envStr("DB_PATH", "mydatabase.db"),
        PublicDir:       envStr("PUBLIC_DIR", "public"),
        AllowOrigins:    splitList(envStr("CORS_ALLOW_ORIGINS", "*")),
        BodyLimit:       envStr("BODY_LIMIT", "1M"),
        ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
    }
}

func splitList(s string) []string {
    var out []string
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    if len(out) == 0 {
        return []string{"*"}
    }
    return out
}

// Package config loads server settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
)

// Config holds everything the server binaries need.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// LogLevel is debug, info, warn, or error.
	LogLevel string
	// PrettyLogs selects the console log format.
	PrettyLogs bool

	// Backend selects the store: "memory" or "firestore".
	Backend string
	// ProjectID and UserID locate the Firestore data.
	ProjectID string
	UserID    string

	// DefaultAccountID receives transactions that name no account, and
	// subscription charges.
	DefaultAccountID string

	// ScribeModel overrides the Gemini model; empty means the default.
	ScribeModel string
	// QueuePath is the offline note queue file.
	QueuePath string
}

// Load reads the optional .env file and then the environment. Missing values
// fall back to defaults suitable for local use with the in-memory store.
func Load() (Config, error) {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	cfg := Config{
		Addr:             getenv("CHRONICLE_ADDR", ":8080"),
		LogLevel:         getenv("CHRONICLE_LOG_LEVEL", "info"),
		PrettyLogs:       getbool("CHRONICLE_PRETTY_LOGS", false),
		Backend:          getenv("CHRONICLE_BACKEND", "memory"),
		ProjectID:        os.Getenv("CHRONICLE_PROJECT_ID"),
		UserID:           getenv("CHRONICLE_USER_ID", "default"),
		DefaultAccountID: os.Getenv("CHRONICLE_DEFAULT_ACCOUNT"),
		ScribeModel:      os.Getenv("CHRONICLE_SCRIBE_MODEL"),
		QueuePath:        getenv("CHRONICLE_QUEUE_PATH", "scribe-queue.json"),
	}

	switch cfg.Backend {
	case BackendMemory, BackendFirestore:
	default:
		return Config{}, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if cfg.Backend == BackendFirestore && cfg.ProjectID == "" {
		return Config{}, fmt.Errorf("CHRONICLE_PROJECT_ID is required for the firestore backend")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getbool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

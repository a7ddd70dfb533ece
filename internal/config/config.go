package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

//go:embed ports.yaml
var portsYAML []byte

type Config struct {
	Server Server
	Roll   Roll
	Sensor Sensor
	Face   Face
	Ledger Ledger
	Twilio Twilio
	Ports  Ports
}

type Server struct {
	Addr string // listen address (default :5000)
}

// Roll selects the voter roll backend. Backend "json" reads Path; "postgres"
// and "mariadb" use their respective connection strings.
type Roll struct {
	Backend      string
	Path         string // JSON roll file (e.g. voters.json)
	DatabaseURL  string // PostgreSQL connection URL
	MariaDBURL   string // MariaDB DSN (e.g. votegate:votegate@tcp(mariadb:3306)/votegate)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type Sensor struct {
	Port           string // serial port; empty means autodetect
	BaudRate       int
	PollIntervalMs int
	WaitTimeoutMs  int
}

type Face struct {
	EncoderURL string  // face embedding service (default http://localhost:8000)
	Threshold  float64 // max cosine distance to accept a match
}

// Ledger selects the admission ledger backend: "memory" (default), "redis"
// or "postgres" (shares Roll.DatabaseURL).
type Ledger struct {
	Backend  string
	RedisURL string
}

type Twilio struct {
	AccountSID  string
	AuthToken   string
	FromNumber  string
	CountryCode string // prefixed to enrolled phone numbers (default +91)
}

type Ports struct {
	PriorityKeywords []string `yaml:"priority_keywords"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func Load() *Config {
	var ports Ports
	if err := yaml.Unmarshal(portsYAML, &ports); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded ports.yaml: " + err.Error())
	}

	return &Config{
		Server: Server{
			Addr: envDefault("VOTEGATE_ADDR", ":5000"),
		},
		Roll: Roll{
			Backend:      envDefault("ROLL_BACKEND", "json"),
			Path:         envDefault("ROLL_PATH", "voters.json"),
			DatabaseURL:  os.Getenv("DATABASE_URL"),
			MariaDBURL:   os.Getenv("MARIADB_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Sensor: Sensor{
			Port:           os.Getenv("SENSOR_PORT"),
			BaudRate:       envInt("SENSOR_BAUD", 57600),
			PollIntervalMs: envInt("SENSOR_POLL_INTERVAL_MS", 100),
			WaitTimeoutMs:  envInt("SENSOR_WAIT_TIMEOUT_MS", 5000),
		},
		Face: Face{
			EncoderURL: envDefault("FACE_ENCODER_URL", "http://localhost:8000"),
			Threshold:  envFloat("FACE_THRESHOLD", 0.4),
		},
		Ledger: Ledger{
			Backend:  envDefault("LEDGER_BACKEND", "memory"),
			RedisURL: os.Getenv("REDIS_URL"),
		},
		Twilio: Twilio{
			AccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
			AuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
			FromNumber:  os.Getenv("TWILIO_FROM_NUMBER"),
			CountryCode: envDefault("TWILIO_COUNTRY_CODE", "+91"),
		},
		Ports: ports,
	}
}

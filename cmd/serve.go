package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shadowvote/votegate/internal/config"
	"github.com/shadowvote/votegate/internal/face"
	"github.com/shadowvote/votegate/internal/ledger"
	"github.com/shadowvote/votegate/internal/notify"
	"github.com/shadowvote/votegate/internal/roll"
	"github.com/shadowvote/votegate/internal/roll/jsonfile"
	"github.com/shadowvote/votegate/internal/roll/mariadb"
	"github.com/shadowvote/votegate/internal/roll/postgres"
	"github.com/shadowvote/votegate/internal/sensor"
	"github.com/shadowvote/votegate/internal/verify"
	"github.com/shadowvote/votegate/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the verification kiosk server",
	Long: `Start the VoteGate web server.
The server exposes the verification API (QR, fingerprint, face, SMS) and
serves the browser kiosk page used at the polling station.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (overrides VOTEGATE_ADDR)")
	serveCmd.Flags().Bool("no-sensor", false, "Run without a fingerprint sensor")
}

// buildStore opens the configured voter roll backend. The returned cleanup
// function is a no-op for the JSON backend.
func buildStore(ctx context.Context, cfg *config.Config) (roll.Store, func(), error) {
	switch cfg.Roll.Backend {
	case "json":
		store, err := jsonfile.Load(cfg.Roll.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("loading JSON roll: %w", err)
		}
		fmt.Printf("Using JSON roll %s (%d voters)\n", cfg.Roll.Path, len(store.All()))
		return store, func() {}, nil

	case "postgres":
		if cfg.Roll.DatabaseURL == "" {
			return nil, nil, errors.New("DATABASE_URL environment variable is required for the postgres backend")
		}
		pool, err := postgres.NewPool(cfg.Roll.DatabaseURL, cfg.Roll.MaxOpenConns, cfg.Roll.MaxIdleConns)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("running migrations: %w", err)
		}
		fmt.Println("Using PostgreSQL roll backend")
		return postgres.NewVoterRepository(pool), func() { pool.Close() }, nil

	case "mariadb":
		if cfg.Roll.MariaDBURL == "" {
			return nil, nil, errors.New("MARIADB_URL environment variable is required for the mariadb backend")
		}
		store, err := mariadb.New(cfg.Roll.MariaDBURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to MariaDB: %w", err)
		}
		fmt.Println("Using MariaDB roll backend (read-only)")
		return store, func() { store.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown roll backend %q", cfg.Roll.Backend)
	}
}

// buildLedger opens the configured admission ledger backend.
func buildLedger(ctx context.Context, cfg *config.Config) (ledger.Ledger, func(), error) {
	switch cfg.Ledger.Backend {
	case "memory":
		fmt.Println("Using in-memory admission ledger (cleared on restart)")
		return ledger.NewMemory(), func() {}, nil

	case "redis":
		if cfg.Ledger.RedisURL == "" {
			return nil, nil, errors.New("REDIS_URL environment variable is required for the redis ledger")
		}
		l, err := ledger.DialRedis(ctx, cfg.Ledger.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to Redis: %w", err)
		}
		fmt.Println("Using Redis admission ledger")
		return l, func() { l.Close() }, nil

	case "postgres":
		if cfg.Roll.DatabaseURL == "" {
			return nil, nil, errors.New("DATABASE_URL environment variable is required for the postgres ledger")
		}
		pool, err := postgres.NewPool(cfg.Roll.DatabaseURL, cfg.Roll.MaxOpenConns, cfg.Roll.MaxIdleConns)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		l := ledger.NewPostgres(pool.DB())
		if err := l.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("preparing admissions table: %w", err)
		}
		fmt.Println("Using PostgreSQL admission ledger")
		return l, func() { pool.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}

// buildReader resolves the sensor port and creates the serialized reader.
// Returns nil when no sensor is available; the fingerprint endpoint then
// reports the device as not connected.
func buildReader(cfg *config.Config) *sensor.Reader {
	port := cfg.Sensor.Port
	if port == "" {
		detected, err := sensor.AutodetectPort(cfg.Ports.PriorityKeywords)
		if err != nil {
			fmt.Printf("No fingerprint sensor found: %v\n", err)
			return nil
		}
		port = detected
	}
	fmt.Printf("Using fingerprint sensor on %s\n", port)

	openDevice := func() (sensor.Device, error) {
		return sensor.NewSerialDevice(port, cfg.Sensor.BaudRate), nil
	}
	return sensor.NewReader(openDevice,
		time.Duration(cfg.Sensor.PollIntervalMs)*time.Millisecond,
		time.Duration(cfg.Sensor.WaitTimeoutMs)*time.Millisecond)
}

// buildNotifier creates the SMS sender when Twilio credentials are present.
func buildNotifier(cfg *config.Config) verify.Notifier {
	sender, err := notify.NewTwilio(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken,
		cfg.Twilio.FromNumber, cfg.Twilio.CountryCode)
	if err != nil {
		fmt.Println("SMS confirmations disabled (Twilio not configured)")
		return nil
	}
	fmt.Println("SMS confirmations enabled")
	return sender
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if addr := mustGetString(cmd, "addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	ctx := context.Background()

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	admissions, closeLedger, err := buildLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLedger()

	var fingerprints verify.Fingerprinter
	if !mustGetBool(cmd, "no-sensor") {
		if reader := buildReader(cfg); reader != nil {
			fingerprints = reader
		}
	}

	encoder := face.NewEncoder(cfg.Face.EncoderURL)
	notifier := buildNotifier(cfg)

	service := verify.NewService(roll.NewResolver(store), admissions,
		fingerprints, encoder, cfg.Face.Threshold, notifier)

	server := web.NewServer(cfg, service, store)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting VoteGate kiosk on http://%s\n", cfg.Server.Addr)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shadowvote/votegate/internal/config"
	"github.com/shadowvote/votegate/internal/roll"
	"github.com/shadowvote/votegate/internal/sensor"
)

var checkCmd = &cobra.Command{
	Use:   "check <aadhaar>",
	Short: "Run a fingerprint verification for one voter from the terminal",
	Long: `Check looks the voter up in the configured roll, waits for a finger on
the sensor, and reports whether it matches one of the enrolled template
pages. Useful for testing the sensor wiring before opening the station.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().Int("timeout-ms", 0, "Finger wait timeout in milliseconds (overrides SENSOR_WAIT_TIMEOUT_MS)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if ms := mustGetInt(cmd, "timeout-ms"); ms > 0 {
		cfg.Sensor.WaitTimeoutMs = ms
	}

	ctx := context.Background()

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	voter, err := roll.NewResolver(store).Resolve(ctx, args[0])
	if err != nil {
		return fmt.Errorf("resolving voter: %w", err)
	}
	if !voter.HasFingerprint() {
		return fmt.Errorf("voter %s has no enrolled fingerprint pages", voter.Aadhaar)
	}

	reader := buildReader(cfg)
	if reader == nil {
		return errors.New("no fingerprint sensor available")
	}

	fmt.Printf("Place finger on the sensor (%d pages enrolled)...\n", len(voter.FingerprintPages))

	res, err := reader.Verify(ctx, voter.FingerprintPages)
	switch {
	case errors.Is(err, sensor.ErrNoFinger):
		return errors.New("no finger detected within the timeout")
	case errors.Is(err, sensor.ErrExtractionFailed):
		return errors.New("could not extract features, try a cleaner press")
	case err != nil:
		return err
	}

	if res.Matched {
		fmt.Printf("Match on page %d (score %d)\n", res.Page, res.Score)
	} else {
		fmt.Println("No match")
	}
	return nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "votegate",
	Short: "Voter identity verification gate for polling stations",
	Long: `VoteGate runs the polling-station verification kiosk: it admits voters
by scanned QR token, verifies identity with a serial fingerprint sensor
or a face check, and guarantees each voter is admitted at most once.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

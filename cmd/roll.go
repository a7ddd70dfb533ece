package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/shadowvote/votegate/internal/config"
	"github.com/shadowvote/votegate/internal/roll/jsonfile"
	"github.com/shadowvote/votegate/internal/roll/postgres"
)

var rollCmd = &cobra.Command{
	Use:   "roll",
	Short: "Inspect and manage the voter roll",
}

var rollCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of enrolled voters",
	RunE:  runRollCount,
}

var rollPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Copy the JSON roll file into PostgreSQL",
	Long: `Push reads the JSON roll file and upserts every record into the
PostgreSQL voters table, so the station can switch to the postgres
backend. Existing records with the same identifier are overwritten.`,
	RunE: runRollPush,
}

func init() {
	rootCmd.AddCommand(rollCmd)
	rollCmd.AddCommand(rollCountCmd)
	rollCmd.AddCommand(rollPushCmd)
}

func runRollCount(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting voters: %w", err)
	}
	fmt.Printf("%d voters enrolled (%s backend)\n", count, cfg.Roll.Backend)
	return nil
}

func runRollPush(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if cfg.Roll.DatabaseURL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	ctx := context.Background()

	source, err := jsonfile.Load(cfg.Roll.Path)
	if err != nil {
		return fmt.Errorf("loading JSON roll: %w", err)
	}
	voters := source.All()
	if len(voters) == 0 {
		return fmt.Errorf("no voters found in %s", cfg.Roll.Path)
	}

	pool, err := postgres.NewPool(cfg.Roll.DatabaseURL, cfg.Roll.MaxOpenConns, cfg.Roll.MaxIdleConns)
	if err != nil {
		return fmt.Errorf("connecting to PostgreSQL: %w", err)
	}
	defer pool.Close()

	if err := pool.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	repo := postgres.NewVoterRepository(pool)
	bar := progressbar.Default(int64(len(voters)), "pushing voters")

	pushed := 0
	for _, v := range voters {
		if err := repo.Save(ctx, v); err != nil {
			return fmt.Errorf("saving voter %s: %w", v.Aadhaar, err)
		}
		pushed++
		bar.Add(1)
	}

	fmt.Printf("Pushed %d voters from %s\n", pushed, cfg.Roll.Path)
	return nil
}

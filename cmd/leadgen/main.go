// Command leadgen runs the lead generation pipeline and its maintenance tasks.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aviral2610/Lead-gen/internal/config"
	"github.com/Aviral2610/Lead-gen/internal/pkg/logger"
)

var (
	configPath string
	jsonOutput bool
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "leadgen",
	Short: "AI lead generation pipeline",
	Long: `leadgen scrapes local businesses, finds and verifies their emails,
researches their websites, writes a personalized first line, and pushes the
leads that clear the suppression list to an Instantly campaign.

Configuration comes from a YAML file, a .env file and environment variables,
in increasing order of precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadFromEnv(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
		logger.SetRedactPII(cfg.Logging.Redact())
		return nil
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of tables")

	rootCmd.AddCommand(pipelineCmd())
	rootCmd.AddCommand(repliesCmd())
	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(doctorCmd())
	rootCmd.AddCommand(suppressionCmd())
	rootCmd.AddCommand(costsCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(personalizeCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

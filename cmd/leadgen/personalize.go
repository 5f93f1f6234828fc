package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aviral2610/Lead-gen/internal/config"
)

func personalizeCmd() *cobra.Command {
	var (
		input  string
		output string
		delay  float64
	)
	cmd := &cobra.Command{
		Use:   "personalize",
		Short: "Add an AI first line to every lead in a CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(config.RequireLLM); err != nil {
				return err
			}
			in, err := os.Open(input)
			if err != nil {
				return err
			}
			defer in.Close()

			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				w, err := a.writer(ctx)
				if err != nil {
					return err
				}
				out, err := os.Create(output)
				if err != nil {
					return err
				}
				report, err := w.PersonalizeCSV(ctx, in, out, time.Duration(delay*float64(time.Second)))
				if cerr := out.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					return err
				}
				a.ledger.LogSummary()
				if jsonOutput {
					return printJSON(report)
				}
				fmt.Printf("Personalized %d/%d leads -> %s\n", report.Personalized, report.Total, output)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "enriched leads CSV")
	cmd.Flags().StringVarP(&output, "output", "o", "personalized_leads.csv", "output CSV")
	cmd.Flags().Float64VarP(&delay, "delay", "d", 1.0, "seconds between LLM calls")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

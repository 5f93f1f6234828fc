package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Aviral2610/Lead-gen/internal/config"
	"github.com/Aviral2610/Lead-gen/internal/domain"
	"github.com/Aviral2610/Lead-gen/internal/pkg/logger"
	"github.com/Aviral2610/Lead-gen/internal/reply"
)

func repliesCmd() *cobra.Command {
	var (
		email    string
		text     string
		csvPath  string
		output   string
		suppress bool
	)
	cmd := &cobra.Command{
		Use:   "replies",
		Short: "Classify and route inbound replies",
		Example: `  leadgen replies --email jane@acme.com --reply "Please remove me"
  leadgen replies --csv replies.csv --output routed.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" && csvPath == "" {
				return errors.New("either --email or --csv is required")
			}
			if email != "" && text == "" {
				return errors.New("--reply is required with --email")
			}
			if err := cfg.Validate(config.RequireLLM); err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				router, err := a.router(ctx)
				if err != nil {
					return err
				}
				var results []domain.RoutedAction
				if email != "" {
					action, err := router.Process(ctx, email, text)
					if err != nil {
						return err
					}
					results = []domain.RoutedAction{action}
					if err := printJSON(action); err != nil {
						return err
					}
				} else {
					batch, err := processReplyFile(ctx, router, csvPath, output)
					if err != nil {
						return err
					}
					results = batch.Results
				}
				if suppress {
					return a.applySuppressions(ctx, results)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "sender address of a single reply")
	cmd.Flags().StringVarP(&text, "reply", "r", "", "body of a single reply")
	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV with email and reply_body columns")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write batch results as JSON")
	cmd.Flags().BoolVar(&suppress, "suppress", true, "add unsubscribes and removal requests to the suppression list")
	cmd.MarkFlagsMutuallyExclusive("email", "csv")
	return cmd
}

func processReplyFile(ctx context.Context, router *reply.Router, path, output string) (reply.BatchResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return reply.BatchResult{}, err
	}
	defer f.Close()

	res, err := router.ProcessCSV(ctx, f)
	if err != nil {
		return res, err
	}

	if output != "" {
		data, err := json.MarshalIndent(res.Results, "", "  ")
		if err != nil {
			return res, err
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return res, fmt.Errorf("write %s: %w", output, err)
		}
		logger.Info("results saved", "path", output)
	}

	if jsonOutput {
		return res, printJSON(res)
	}
	printReplySummary(res)
	return res, nil
}

func printReplySummary(res reply.BatchResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Category", "Replies"})
	cats := make([]string, 0, len(res.Summary))
	for c := range res.Summary {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)
	for _, c := range cats {
		t.AppendRow(table.Row{c, res.Summary[domain.ReplyCategory(c)]})
	}
	t.AppendFooter(table.Row{"Processed", len(res.Results)})
	t.Render()
	if res.Skipped > 0 || res.Failed > 0 {
		fmt.Printf("Skipped %d rows, %d failed\n", res.Skipped, res.Failed)
	}
}

// applySuppressions records unsubscribes and removal requests. The gate is
// only loaded when at least one reply needs it.
func (a *app) applySuppressions(ctx context.Context, results []domain.RoutedAction) error {
	var pending []domain.RoutedAction
	for _, r := range results {
		if r.Action == domain.ActionSuppress || r.Action == domain.ActionLogAndRemove {
			pending = append(pending, r)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	gate, err := a.gate(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, r := range pending {
		if _, err := reply.ApplySuppression(ctx, gate, r, domain.SuppressionFromManual); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

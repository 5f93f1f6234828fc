package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Aviral2610/Lead-gen/internal/domain"
	"github.com/Aviral2610/Lead-gen/internal/suppression"
)

func suppressionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "suppression",
		Aliases: []string{"sup"},
		Short:   "Manage the suppression list",
	}
	cmd.AddCommand(suppressionAddCmd())
	cmd.AddCommand(suppressionRemoveCmd())
	cmd.AddCommand(suppressionCheckCmd())
	cmd.AddCommand(suppressionImportCmd())
	cmd.AddCommand(suppressionExportCmd())
	cmd.AddCommand(suppressionCountCmd())
	return cmd
}

// withGate runs fn against the configured suppression list.
func withGate(cmd *cobra.Command, fn func(ctx context.Context, g *suppression.Gate) error) error {
	return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
		g, err := a.gate(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, g)
	})
}

func suppressionAddCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "add <email>...",
		Short: "Suppress one or more addresses",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGate(cmd, func(ctx context.Context, g *suppression.Gate) error {
				for _, email := range args {
					added, err := g.Add(ctx, email, domain.SuppressionReason(reason), domain.SuppressionFromManual)
					if err != nil {
						return fmt.Errorf("%s: %w", email, err)
					}
					if added {
						fmt.Printf("suppressed %s\n", email)
					} else {
						fmt.Printf("%s already suppressed\n", email)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", string(domain.ReasonManual), "unsubscribe, bounce, spam_complaint or manual")
	return cmd
}

func suppressionRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <email>",
		Short: "Remove an address from the list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGate(cmd, func(ctx context.Context, g *suppression.Gate) error {
				if err := g.Remove(ctx, args[0]); err != nil {
					return err
				}
				fmt.Printf("removed %s\n", args[0])
				return nil
			})
		},
	}
}

func suppressionCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <email>",
		Short: "Report whether an address is suppressed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGate(cmd, func(ctx context.Context, g *suppression.Gate) error {
				suppressed := g.IsSuppressed(args[0])
				if jsonOutput {
					return printJSON(map[string]any{"email": args[0], "suppressed": suppressed})
				}
				if suppressed {
					fmt.Printf("%s is suppressed\n", args[0])
				} else {
					fmt.Printf("%s is not suppressed\n", args[0])
				}
				return nil
			})
		},
	}
}

func suppressionImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Bulk import addresses from a CSV with an email column",
		Long: `Reads a CSV whose header contains "email" and, optionally, "reason".
Rows without a reason are imported as bulk_import. Addresses that are
already suppressed keep their existing entry.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			entries, err := readSuppressionCSV(f, time.Now().UTC())
			if err != nil {
				return err
			}
			return withGate(cmd, func(ctx context.Context, g *suppression.Gate) error {
				added, err := g.BulkAdd(ctx, entries)
				if err != nil {
					return err
				}
				fmt.Printf("imported %d of %d addresses (%d total)\n", added, len(entries), g.Count())
				return nil
			})
		},
	}
}

// readSuppressionCSV parses an import file. Blank emails are skipped.
func readSuppressionCSV(r io.Reader, now time.Time) ([]domain.Suppression, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	emailCol, reasonCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))) {
		case "email":
			emailCol = i
		case "reason":
			reasonCol = i
		}
	}
	if emailCol < 0 {
		return nil, errors.New(`csv has no "email" column`)
	}

	var entries []domain.Suppression
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if emailCol >= len(row) || strings.TrimSpace(row[emailCol]) == "" {
			continue
		}
		reason := domain.ReasonBulkImport
		if reasonCol >= 0 && reasonCol < len(row) && strings.TrimSpace(row[reasonCol]) != "" {
			reason = domain.SuppressionReason(strings.TrimSpace(row[reasonCol]))
		}
		entries = append(entries, domain.Suppression{
			Email:   row[emailCol],
			Reason:  reason,
			Source:  domain.SuppressionFromImport,
			AddedAt: now,
		})
	}
	return entries, nil
}

func suppressionExportCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print every suppressed address",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGate(cmd, func(ctx context.Context, g *suppression.Gate) error {
				entries := g.Export()
				switch {
				case jsonOutput || format == "json":
					return printJSON(entries)
				case format == "csv":
					return writeSuppressionCSV(os.Stdout, entries)
				default:
					t := table.NewWriter()
					t.SetOutputMirror(os.Stdout)
					t.AppendHeader(table.Row{"Email", "Reason", "Source", "Added"})
					for _, e := range entries {
						t.AppendRow(table.Row{e.Email, e.Reason, e.Source, e.AddedAt.Format(time.RFC3339)})
					}
					t.AppendFooter(table.Row{"Total", len(entries), "", ""})
					t.Render()
					return nil
				}
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "table, csv or json")
	return cmd
}

func writeSuppressionCSV(w io.Writer, entries []domain.Suppression) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"email", "reason", "source", "added_at"}); err != nil {
		return err
	}
	for _, e := range entries {
		if err := cw.Write([]string{e.Email, string(e.Reason), string(e.Source), e.AddedAt.Format(time.RFC3339)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func suppressionCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Show list size by reason and source",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGate(cmd, func(ctx context.Context, g *suppression.Gate) error {
				stats := g.Stats()
				if jsonOutput {
					return printJSON(stats)
				}
				t := table.NewWriter()
				t.SetOutputMirror(os.Stdout)
				t.AppendHeader(table.Row{"Group", "Value", "Count"})
				for reason, n := range stats.ByReason {
					t.AppendRow(table.Row{"reason", reason, n})
				}
				for source, n := range stats.BySource {
					t.AppendRow(table.Row{"source", source, n})
				}
				t.SortBy([]table.SortBy{{Name: "Group"}, {Name: "Value"}})
				t.AppendFooter(table.Row{"Total", "", stats.Total})
				t.Render()
				return nil
			})
		},
	}
}

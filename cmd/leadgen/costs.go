package main

import (
	"errors"
	"os"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/Aviral2610/Lead-gen/internal/cost"
	"github.com/Aviral2610/Lead-gen/internal/domain"
)

func costsCmd() *cobra.Command {
	var last int
	cmd := &cobra.Command{
		Use:   "costs",
		Short: "Show recorded API spend per session and per service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Costs.Backend != "" && cfg.Costs.Backend != "file" {
				return errors.New("cost history is only readable from the file backend")
			}
			entries, err := cost.NewFileSink(cfg.Costs.LogFile).Entries()
			if err != nil {
				return err
			}
			if last > 0 && len(entries) > last {
				entries = entries[len(entries)-last:]
			}
			if jsonOutput {
				return printJSON(entries)
			}
			renderCosts(entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&last, "last", "n", 0, "only the most recent n sessions")
	return cmd
}

func renderCosts(entries []domain.CostLogEntry) {
	sessions := table.NewWriter()
	sessions.SetOutputMirror(os.Stdout)
	sessions.SetTitle("Sessions")
	sessions.AppendHeader(table.Row{"Timestamp", "Duration (s)", "Calls", "Cost (USD)"})

	totals := make(map[string]domain.CostEntry)
	var calls int
	var spend float64
	for _, e := range entries {
		sessions.AppendRow(table.Row{e.Timestamp.Format(time.DateTime), e.SessionDurationS, e.TotalAPICalls, e.EstimatedTotalCostUSD})
		calls += e.TotalAPICalls
		spend += e.EstimatedTotalCostUSD
		for svc, c := range e.ByService {
			t := totals[svc]
			t.Calls += c.Calls
			t.EstimatedCostUSD += c.EstimatedCostUSD
			totals[svc] = t
		}
	}
	sessions.AppendFooter(table.Row{"Total", "", calls, spend})
	sessions.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Transformer: usd, TransformerFooter: usd},
	})
	sessions.Render()

	services := make([]string, 0, len(totals))
	for svc := range totals {
		services = append(services, svc)
	}
	sort.Strings(services)

	bySvc := table.NewWriter()
	bySvc.SetOutputMirror(os.Stdout)
	bySvc.SetTitle("By service")
	bySvc.AppendHeader(table.Row{"Service", "Calls", "Cost (USD)"})
	for _, svc := range services {
		bySvc.AppendRow(table.Row{svc, totals[svc].Calls, totals[svc].EstimatedCostUSD})
	}
	bySvc.SetColumnConfigs([]table.ColumnConfig{{Number: 3, Transformer: usd}})
	bySvc.Render()
}

var usd = text.NewNumberTransformer("$%.4f")

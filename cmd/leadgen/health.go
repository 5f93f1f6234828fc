package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Aviral2610/Lead-gen/internal/config"
	"github.com/Aviral2610/Lead-gen/internal/health"
)

func healthCmd() *cobra.Command {
	var (
		campaignID string
		noAlert    bool
		list       bool
	)
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check campaign deliverability and alert on breaches",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(config.RequireOutreach); err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				if list {
					return listCampaigns(ctx, a)
				}
				m, err := a.monitor(ctx)
				if err != nil {
					return err
				}
				var r health.Report
				if noAlert {
					r = m.Check(ctx, campaignID)
				} else {
					r = m.CheckAndAlert(ctx, campaignID)
				}
				if jsonOutput {
					return printJSON(r)
				}
				printHealthReport(r)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&campaignID, "campaign", "", "campaign ID (default INSTANTLY_CAMPAIGN_ID)")
	cmd.Flags().BoolVar(&noAlert, "no-alert", false, "evaluate without sending notifications")
	cmd.Flags().BoolVar(&list, "list", false, "list campaigns instead of checking one")
	return cmd
}

func listCampaigns(ctx context.Context, a *app) error {
	campaigns, err := a.instantly().ListCampaigns(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(campaigns)
	}
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Name"})
	for _, c := range campaigns {
		t.AppendRow(table.Row{c.ID, c.Name})
	}
	t.Render()
	return nil
}

func printHealthReport(r health.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Campaign " + r.Health.CampaignID)
	t.AppendHeader(table.Row{"Metric", "Count", "Rate %"})
	t.AppendRows([]table.Row{
		{"Sent", r.Health.TotalSent, ""},
		{"Opened", r.Health.TotalOpened, fmt.Sprintf("%.1f", r.Rates.OpenRate)},
		{"Replied", r.Health.TotalReplied, fmt.Sprintf("%.1f", r.Rates.ReplyRate)},
		{"Bounced", r.Health.TotalBounced, fmt.Sprintf("%.1f", r.Rates.BounceRate)},
		{"Unsubscribed", r.Health.TotalUnsubscribed, fmt.Sprintf("%.1f", r.Rates.UnsubscribeRate)},
	})
	status := "HEALTHY"
	if !r.Healthy {
		status = "UNHEALTHY"
	}
	t.AppendFooter(table.Row{"Status", status, ""})
	t.Render()
	for _, a := range r.Alerts {
		fmt.Println("ALERT:", a)
	}
}

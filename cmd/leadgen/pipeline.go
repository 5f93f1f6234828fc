package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Aviral2610/Lead-gen/internal/config"
	"github.com/Aviral2610/Lead-gen/internal/pipeline"
	"github.com/Aviral2610/Lead-gen/internal/pkg/logger"
	"github.com/Aviral2610/Lead-gen/internal/scraping"
)

func pipelineCmd() *cobra.Command {
	var (
		queries      []string
		dryRun       bool
		skipOutreach bool
		output       string
		workers      int
		source       string
		titles       []string
	)
	cmd := &cobra.Command{
		Use:   "pipeline",
		Short: "Scrape, enrich, personalize and push leads",
		Example: `  leadgen pipeline --queries "plumbers in Denver, CO" --dry-run
  leadgen pipeline --skip-outreach --output output/run.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			required := []config.Requirement{config.RequireEnrichment, config.RequireLLM}
			switch source {
			case "gmaps":
				required = append(required, config.RequireScraping)
			case "apollo":
				required = append(required, config.RequireApollo)
			default:
				return fmt.Errorf("unknown source %q (want gmaps or apollo)", source)
			}
			if !dryRun && !skipOutreach {
				required = append(required, config.RequireOutreach)
			}
			if err := cfg.Validate(required...); err != nil {
				return err
			}
			if workers <= 0 {
				workers = cfg.Enrichment.Concurrency
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				p, err := a.buildPipeline(ctx, a.leadSource(source, titles))
				if err != nil {
					return err
				}
				report, err := p.Run(ctx, pipeline.Options{
					Queries:      queries,
					DryRun:       dryRun,
					SkipOutreach: skipOutreach,
					OutputPath:   output,
					Workers:      workers,
				})
				if jsonOutput {
					if perr := printJSON(report); perr != nil {
						return perr
					}
				} else {
					printPipelineReport(report)
				}
				return err
			})
		},
	}
	cmd.Flags().StringSliceVarP(&queries, "queries", "q", nil, `search queries, e.g. "barbers in Toronto"`)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "stop before pushing to Instantly")
	cmd.Flags().BoolVar(&skipOutreach, "skip-outreach", false, "skip the Instantly push")
	cmd.Flags().StringVarP(&output, "output", "o", "", "results file (default output/pipeline_results_<timestamp>.json)")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "enrichment workers (default from config)")
	cmd.Flags().StringVar(&source, "source", "gmaps", "lead source: gmaps (Apify Google Maps) or apollo")
	cmd.Flags().StringSliceVar(&titles, "titles", []string{"Owner", "Founder", "CEO"}, "person titles for --source apollo")
	_ = cmd.MarkFlagRequired("queries")
	return cmd
}

// leadSource returns the configured source. Apollo treats each query as a
// person location.
func (a *app) leadSource(source string, titles []string) pipeline.LeadSource {
	if source == "apollo" {
		return scraping.ApolloSource{
			Client: scraping.NewApolloClient(a.cfg.Apollo.BaseURL, a.cfg.Apollo.APIKey, a.cfg.Timeouts.Long(), a.policy(time.Second, 3)),
			Base:   scraping.PeopleQuery{Titles: titles},
		}
	}
	return a.scraper()
}

func (a *app) buildPipeline(ctx context.Context, source pipeline.LeadSource) (*pipeline.Pipeline, error) {
	gate, err := a.gate(ctx)
	if err != nil {
		return nil, err
	}
	writer, err := a.writer(ctx)
	if err != nil {
		return nil, err
	}
	sink, err := a.costSink(ctx)
	if err != nil {
		return nil, err
	}

	deps := pipeline.Deps{
		Source:       source,
		Enricher:     a.enrichmentEngine(),
		Personalizer: writer,
		Gate:         gate,
		Ledger:       a.ledger,
		CostSink:     sink,
	}
	if a.cfg.OpenAI.APIKey != "" {
		r, err := a.researcher()
		if err != nil {
			return nil, err
		}
		deps.Researcher = r
	} else {
		logger.Warn("OPENAI_API_KEY not set, skipping website research")
	}
	if a.cfg.Instantly.APIKey != "" {
		deps.Pusher = a.gateway()
		deps.Lock = a.pushLock(a.cfg.Instantly.CampaignID)
	}
	return pipeline.New(deps), nil
}

func printPipelineReport(r pipeline.Report) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Pipeline run " + r.RunID)
	t.AppendHeader(table.Row{"Stage", "Count"})
	t.AppendRows([]table.Row{
		{"Scraped", r.Scraped},
		{"Verified", r.Enrichment.Verified},
		{"Dropped (no valid email)", r.Enrichment.Dropped},
		{"Verification failed", r.Enrichment.Failed},
		{"Researched", r.Researched},
		{"Research failed", r.ResearchFailed},
		{"Personalized", r.Personalized},
		{"Suppressed", r.Suppressed},
		{"Cleared", r.Cleared},
	})
	if r.Push != nil {
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Pushed", r.Push.Pushed},
			{"Push failed", r.Push.Failed},
			{"Invalid email", r.Push.InvalidEmail},
		})
	}
	t.AppendFooter(table.Row{"Estimated cost (USD)", r.Costs.EstimatedTotalCostUSD})
	t.Render()
	if r.OutputPath != "" {
		os.Stdout.WriteString("Results saved to " + r.OutputPath + "\n")
	}
}

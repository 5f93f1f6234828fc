package cost

import "github.com/prometheus/client_golang/prometheus"

var (
	apiCallsDesc = prometheus.NewDesc(
		"leadgen_api_calls_total",
		"API calls made this session by service",
		[]string{"service"},
		nil,
	)
	costDesc = prometheus.NewDesc(
		"leadgen_estimated_cost_usd",
		"Estimated API spend this session by service",
		[]string{"service"},
		nil,
	)
)

// Collector exposes a Ledger to Prometheus, read on each scrape.
type Collector struct {
	ledger *Ledger
}

// NewCollector returns a collector over ledger.
func NewCollector(ledger *Ledger) *Collector {
	return &Collector{ledger: ledger}
}

// Describe sends the metric descriptors to the channel.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- apiCallsDesc
	ch <- costDesc
}

// Collect emits the current per-service counters.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for svc, e := range c.ledger.Snapshot() {
		ch <- prometheus.MustNewConstMetric(apiCallsDesc, prometheus.CounterValue, float64(e.Calls), svc)
		ch <- prometheus.MustNewConstMetric(costDesc, prometheus.CounterValue, e.EstimatedCostUSD, svc)
	}
}

package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/llmwatch/llmwatch/internal/detector"
	"github.com/spf13/cobra"
)

// loadtest drives synthetic traffic through the observe endpoint so the
// detection pipeline can be exercised without a live LLM provider.
func newLoadtestCmd() *cobra.Command {
	var (
		requests int
		interval time.Duration
		seed     int64
		spikeAt  int
	)

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Send synthetic metric traffic through the detection engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			gen := detector.NewGenerator(requests, 0, seed)

			// Pre-build one realistic series per metric; each request
			// sends the i-th value of every series as one batch.
			series := make(map[string][]float64)
			for _, name := range detector.BaselineMetrics() {
				series[name] = gen.Sequence(seriesMean(name), seriesStd(name), requests, 0, 0, 0)
			}

			anomalies, patterns := 0, 0
			for i := 0; i < requests; i++ {
				batch := make(map[string]float64, len(series))
				for name, values := range series {
					v := values[i]
					if spikeAt > 0 && i >= spikeAt && (name == "llm.latency.ms" || name == "llm.tokens.total") {
						v *= 4
					}
					batch[name] = v
				}

				result, err := apiClient.Anomalies().Observe(ctx, batch)
				if err != nil {
					return fmt.Errorf("request %d failed: %w", i+1, err)
				}
				anomalies += len(result.Anomalies)
				if result.Pattern != nil {
					patterns++
					fmt.Printf("request %d: pattern %s (%s)\n", i+1, result.Pattern.Name, result.Pattern.Severity)
				}
				if result.Incident != nil {
					fmt.Printf("request %d: incident %s [%s]\n", i+1, result.Incident.ID, result.Incident.Severity)
				}

				if interval > 0 {
					time.Sleep(interval)
				}
			}

			fmt.Printf("\nSent %d batches: %d anomalies, %d patterns\n", requests, anomalies, patterns)
			return nil
		},
	}

	cmd.Flags().IntVar(&requests, "requests", 100, "number of observation batches to send")
	cmd.Flags().DurationVar(&interval, "interval", 0, "delay between batches")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 picks one)")
	cmd.Flags().IntVar(&spikeAt, "spike-at", 0, "inject a latency/token spike from this request on")
	return cmd
}

// seriesMean and seriesStd pull the generator's profile so loadtest
// traffic matches the synthetic baseline shapes.
func seriesMean(metric string) float64 {
	mean, _, ok := detector.Profile(metric)
	if !ok {
		return 100
	}
	return mean
}

func seriesStd(metric string) float64 {
	_, std, ok := detector.Profile(metric)
	if !ok {
		return 10
	}
	return std
}

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show platform summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			summary, err := apiClient.Metrics().Summary(ctx)
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(summary)
			}

			fmt.Println("LLMWatch Dashboard")
			fmt.Println(strings.Repeat("=", 40))

			d := summary.Detector
			fmt.Printf("  Provider:      %s\n", summary.Provider)
			fmt.Printf("  Datapoints:    %d across %d metrics\n", d.TotalDatapoints, d.MetricsTracked)
			fmt.Printf("  Windows ready: %d / %d (window size %d)\n", d.WindowsReady, d.MetricsTracked, d.WindowSize)
			fmt.Printf("  Anomalies:     %d detected (%d patterns)\n", d.TotalAnomalies, d.TotalPatterns)

			s := summary.Session
			fmt.Printf("  Requests:      %d (%.1f/min, avg %.0f ms)\n", s.TotalRequests, s.RequestsPerMinute, s.AvgLatencyMs)
			fmt.Printf("  Tokens:        %d (avg %.0f per request)\n", s.TotalTokens, s.AvgTokensPerReq)
			fmt.Printf("  Cost:          $%.4f\n", s.TotalCost)
			if s.TotalRefusals > 0 || s.TotalTruncations > 0 {
				fmt.Printf("  Quality:       %d refusals, %d truncations\n", s.TotalRefusals, s.TotalTruncations)
			}

			if len(summary.RecentAnomalies) > 0 {
				fmt.Println()
				fmt.Println("Recent anomalies:")
				for _, a := range summary.RecentAnomalies {
					fmt.Printf("  %s %s value=%.2f z=%.2f\n", formatSeverity(a.Severity), a.MetricName, a.Value, a.ZScore)
				}
			}

			return nil
		},
	}
}

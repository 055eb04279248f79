package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/llmwatch/llmwatch/pkg/client"
	"github.com/spf13/cobra"
)

func listOptions(page, pageSize int) *client.ListOptions {
	return &client.ListOptions{Page: page, PageSize: pageSize}
}

func newAnomalyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "anomalies",
		Short: "Inspect detected anomalies",
	}

	cmd.AddCommand(newAnomalyListCmd())
	cmd.AddCommand(newAnomalyRecentCmd())
	cmd.AddCommand(newAnomalyObserveCmd())

	return cmd
}

func newAnomalyListCmd() *cobra.Command {
	var (
		metric, severity, direction, patternID string
		page, pageSize                         int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List persisted anomalies",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &client.AnomalyListOptions{
				ListOptions: client.ListOptions{Page: page, PageSize: pageSize},
				MetricName:  metric,
				Severity:    severity,
				Direction:   direction,
				PatternID:   patternID,
			}

			anomalies, pg, err := apiClient.Anomalies().List(context.Background(), opts)
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(anomalies)
			}

			table := NewTable("SEVERITY", "METRIC", "VALUE", "Z-SCORE", "DIR", "PATTERN", "DETECTED")
			for _, a := range anomalies {
				table.AddRow(
					formatSeverity(a.Severity),
					a.MetricName,
					fmt.Sprintf("%.2f", a.Value),
					fmt.Sprintf("%.2f", a.ZScore),
					a.Direction,
					truncate(a.PatternID, 20),
					a.DetectedAt.Format("2006-01-02 15:04:05"),
				)
			}
			table.Render()
			fmt.Printf("\nPage %d of %d (%d total)\n", pg.Page, pg.TotalPages, pg.TotalItems)
			return nil
		},
	}

	cmd.Flags().StringVar(&metric, "metric", "", "filter by metric name")
	cmd.Flags().StringVar(&severity, "severity", "", "filter by severity (SEV-1, SEV-2, SEV-3)")
	cmd.Flags().StringVar(&direction, "direction", "", "filter by direction (high, low)")
	cmd.Flags().StringVar(&patternID, "pattern", "", "filter by pattern ID")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "items per page")
	return cmd
}

func newAnomalyRecentCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show the detection engine's recent anomalies",
		RunE: func(cmd *cobra.Command, args []string) error {
			anomalies, err := apiClient.Anomalies().Recent(context.Background(), limit)
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(anomalies)
			}

			if len(anomalies) == 0 {
				fmt.Println("No recent anomalies")
				return nil
			}

			table := NewTable("SEVERITY", "METRIC", "VALUE", "Z-SCORE", "DEVIATION", "DETECTED")
			for _, a := range anomalies {
				table.AddRow(
					formatSeverity(a.Severity),
					a.MetricName,
					fmt.Sprintf("%.2f", a.Value),
					fmt.Sprintf("%.2f", a.ZScore),
					fmt.Sprintf("%+.1f%%", a.DeviationPercent),
					a.DetectedAt.Format("15:04:05"),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of anomalies")
	return cmd
}

func newAnomalyObserveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "observe <metric=value> [metric=value...]",
		Short: "Feed raw metric values into the detection engine",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			metrics := make(map[string]float64, len(args))
			for _, arg := range args {
				parts := strings.SplitN(arg, "=", 2)
				if len(parts) != 2 {
					return fmt.Errorf("invalid observation %q, expected metric=value", arg)
				}
				value, err := strconv.ParseFloat(parts[1], 64)
				if err != nil {
					return fmt.Errorf("invalid value for %s: %w", parts[0], err)
				}
				metrics[parts[0]] = value
			}

			result, err := apiClient.Anomalies().Observe(context.Background(), metrics)
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(result)
			}

			if len(result.Anomalies) == 0 {
				fmt.Println("No anomalies detected")
				return nil
			}

			for _, a := range result.Anomalies {
				fmt.Printf("%s %s value=%.2f z=%.2f (baseline %.2f +- %.2f)\n",
					formatSeverity(a.Severity), a.MetricName, a.Value, a.ZScore, a.BaselineMean, a.BaselineStd)
			}
			if result.Pattern != nil {
				fmt.Printf("pattern: %s (%s confidence)\n", result.Pattern.Name, result.Pattern.Confidence)
			}
			if result.Incident != nil {
				fmt.Printf("incident: %s [%s] %s\n", result.Incident.ID, result.Incident.Severity, result.Incident.Title)
			}
			return nil
		},
	}

	return cmd
}

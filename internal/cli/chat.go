package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <prompt>",
		Short: "Send a prompt through the detection gateway",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := strings.Join(args, " ")

			resp, err := apiClient.Chat().Send(context.Background(), prompt)
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(resp)
			}

			fmt.Println(resp.Response)
			fmt.Println()
			fmt.Printf("model=%s latency=%.0fms tokens=%.0f cost=$%.5f\n",
				resp.Model, resp.LatencyMs, resp.Metrics["llm.tokens.total"], resp.Metrics["llm.cost.per_request"])

			for _, a := range resp.Anomalies {
				fmt.Printf("%s %s value=%.2f z=%.2f (baseline %.2f)\n",
					formatSeverity(a.Severity), a.MetricName, a.Value, a.ZScore, a.BaselineMean)
			}
			if resp.Pattern != nil {
				fmt.Printf("pattern: %s (%s confidence)\n", resp.Pattern.Name, resp.Pattern.Confidence)
			}
			if resp.Incident != nil {
				fmt.Printf("incident: %s [%s] %s\n", resp.Incident.ID, resp.Incident.Severity, resp.Incident.Title)
			}

			return nil
		},
	}

	cmd.AddCommand(newInteractionsCmd())
	return cmd
}

func newInteractionsCmd() *cobra.Command {
	var page, pageSize int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List logged gateway exchanges",
		RunE: func(cmd *cobra.Command, args []string) error {
			interactions, pg, err := apiClient.Chat().Interactions(context.Background(), listOptions(page, pageSize))
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(interactions)
			}

			table := NewTable("ID", "MODEL", "TOKENS", "LATENCY", "COST", "ANOMALIES", "CREATED")
			for _, it := range interactions {
				table.AddRow(
					truncate(it.ID, 12),
					it.Model,
					strconv.Itoa(it.PromptTokens+it.ResponseTokens),
					fmt.Sprintf("%.0fms", it.LatencyMs),
					fmt.Sprintf("$%.5f", it.CostUSD),
					strconv.Itoa(it.AnomalyCount),
					it.CreatedAt.Format("2006-01-02 15:04:05"),
				)
			}
			table.Render()
			fmt.Printf("\nPage %d of %d (%d total)\n", pg.Page, pg.TotalPages, pg.TotalItems)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "items per page")
	return cmd
}

package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/llmwatch/llmwatch/pkg/client"
	"github.com/spf13/cobra"
)

func newIncidentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "incidents",
		Short: "Manage incidents",
	}

	cmd.AddCommand(newIncidentListCmd())
	cmd.AddCommand(newIncidentGetCmd())
	cmd.AddCommand(newIncidentAckCmd())
	cmd.AddCommand(newIncidentResolveCmd())

	return cmd
}

func newIncidentListCmd() *cobra.Command {
	var (
		status, severity string
		page, pageSize   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List incidents",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := &client.IncidentListOptions{
				ListOptions: client.ListOptions{Page: page, PageSize: pageSize},
				Status:      status,
				Severity:    severity,
			}

			incidents, pg, err := apiClient.Incidents().List(context.Background(), opts)
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(incidents)
			}

			table := NewTable("ID", "SEVERITY", "STATUS", "TITLE", "ANOMALIES", "CREATED")
			for _, inc := range incidents {
				table.AddRow(
					truncate(inc.ID, 12),
					formatSeverity(inc.Severity),
					formatStatus(inc.Status),
					truncate(inc.Title, 50),
					strconv.Itoa(inc.AnomalyCount),
					inc.CreatedAt.Format("2006-01-02 15:04:05"),
				)
			}
			table.Render()
			fmt.Printf("\nPage %d of %d (%d total)\n", pg.Page, pg.TotalPages, pg.TotalItems)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (open, acknowledged, resolved)")
	cmd.Flags().StringVar(&severity, "severity", "", "filter by severity (SEV-1, SEV-2, SEV-3)")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "items per page")
	return cmd
}

func newIncidentGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a single incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inc, err := apiClient.Incidents().Get(context.Background(), args[0])
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(inc)
			}

			fmt.Printf("Incident %s\n", inc.ID)
			fmt.Printf("  Severity:  %s\n", formatSeverity(inc.Severity))
			fmt.Printf("  Status:    %s\n", formatStatus(inc.Status))
			fmt.Printf("  Title:     %s\n", inc.Title)
			fmt.Printf("  Pattern:   %s\n", inc.PatternID)
			fmt.Printf("  Anomalies: %d\n", inc.AnomalyCount)
			fmt.Printf("  Created:   %s\n", inc.CreatedAt.Format("2006-01-02 15:04:05"))
			if inc.ResolvedAt != nil {
				fmt.Printf("  Resolved:  %s\n", inc.ResolvedAt.Format("2006-01-02 15:04:05"))
			}
			if inc.Description != "" {
				fmt.Printf("\n%s\n", inc.Description)
			}
			if inc.RootCause != "" {
				fmt.Printf("\nRoot cause:\n%s\n", inc.RootCause)
			}
			return nil
		},
	}
}

func newIncidentAckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ack <id>",
		Short: "Acknowledge an open incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inc, err := apiClient.Incidents().Acknowledge(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Incident %s acknowledged\n", inc.ID)
			return nil
		},
	}
}

func newIncidentResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <id>",
		Short: "Resolve an incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inc, err := apiClient.Incidents().Resolve(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Incident %s resolved\n", inc.ID)
			return nil
		},
	}
}

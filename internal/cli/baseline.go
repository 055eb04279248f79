package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/llmwatch/llmwatch/pkg/client"
	"github.com/spf13/cobra"
)

func newBaselineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage metric baselines",
	}

	cmd.AddCommand(newBaselineSnapshotCmd())
	cmd.AddCommand(newBaselineGenerateCmd())
	cmd.AddCommand(newBaselineListCmd())
	cmd.AddCommand(newBaselineExportCmd())
	cmd.AddCommand(newBaselineImportCmd())

	return cmd
}

func newBaselineSnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Capture the current detection state",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := apiClient.Baselines().Snapshot(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Snapshot %d captured (%d metrics, %d datapoints)\n", snap.ID, snap.Metrics, snap.Datapoints)
			return nil
		},
	}
}

func newBaselineGenerateCmd() *cobra.Command {
	var (
		points      int
		anomalyRate float64
		seed        int64
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Seed the detection engine with synthetic baselines",
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := apiClient.Baselines().Generate(context.Background(), &client.GenerateOptions{
				Points:      points,
				AnomalyRate: anomalyRate,
				Seed:        seed,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Baselines generated: snapshot %d (%d metrics, %d datapoints)\n", snap.ID, snap.Metrics, snap.Datapoints)
			return nil
		},
	}

	cmd.Flags().IntVar(&points, "points", 1000, "datapoints per metric")
	cmd.Flags().Float64Var(&anomalyRate, "anomaly-rate", 0.05, "fraction of outlier datapoints")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 picks one)")
	return cmd
}

func newBaselineListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			snaps, err := apiClient.Baselines().List(context.Background(), limit)
			if err != nil {
				return err
			}

			if getOutputFormat() != "table" {
				return printOutput(snaps)
			}

			table := NewTable("ID", "METRICS", "DATAPOINTS", "CAPTURED")
			for _, snap := range snaps {
				table.AddRow(
					strconv.FormatInt(snap.ID, 10),
					strconv.Itoa(snap.Metrics),
					strconv.FormatInt(snap.Datapoints, 10),
					snap.CapturedAt.Format("2006-01-02 15:04:05"),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of snapshots")
	return cmd
}

func newBaselineExportCmd() *cobra.Command {
	var outFile string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the detection state as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := apiClient.Baselines().Export(context.Background())
			if err != nil {
				return err
			}

			if outFile == "" || outFile == "-" {
				_, err = os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(outFile, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", outFile, err)
			}
			fmt.Printf("Baselines exported to %s\n", outFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outFile, "file", "f", "", "output file (default stdout)")
	return cmd
}

func newBaselineImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load a previously exported baseline document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			defer f.Close()

			if err := apiClient.Baselines().Import(context.Background(), f); err != nil {
				return err
			}
			fmt.Println("Baselines imported")
			return nil
		},
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/perfiamatic/audit-flash/internal/audit"
	"github.com/perfiamatic/audit-flash/internal/flow"
	"github.com/perfiamatic/audit-flash/internal/relay"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		clinic         string
		averageRevenue float64
		email          string
		webhookURL     string
		out            string
	)
	cmd := &cobra.Command{
		Use:   "analyze <file.csv>",
		Short: "Send a CSV export to the analysis webhook and save the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			client := relay.NewClient(webhookURL, relay.WithTimeout(flagTimeout))
			ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
			defer cancel()
			progressCtx, stopProgress := context.WithCancel(ctx)
			progressDone := make(chan struct{})
			go func() {
				defer close(progressDone)
				_ = flow.DefaultSchedule.Run(progressCtx, func(step int, label string) {
					fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s\n", step, len(flow.DefaultSchedule), label)
				})
			}()
			resp, err := client.Analyze(ctx, audit.Submission{
				CSV:            string(data),
				FileName:       filepath.Base(args[0]),
				ClinicName:     clinic,
				AverageRevenue: averageRevenue,
				Email:          email,
			})
			stopProgress()
			<-progressDone
			if err != nil {
				return fmt.Errorf("analyze: %s: %w", relay.Message(err), err)
			}
			body, err := json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), out, append(body, '\n')); err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("analysis failed: %s", resp.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&clinic, "clinic", "", "clinic name (nom_cabinet)")
	cmd.Flags().Float64Var(&averageRevenue, "ca-moyen", audit.DefaultAverageRevenue, "average revenue per appointment")
	cmd.Flags().StringVar(&email, "email", "", "optional recipient of the emailed report")
	cmd.Flags().StringVar(&webhookURL, "webhook", envOr("N8N_WEBHOOK_URL", ""), "analysis webhook URL")
	cmd.Flags().StringVar(&out, "out", "-", "response JSON file, - for stdout")
	_ = cmd.MarkFlagRequired("clinic")
	return cmd
}

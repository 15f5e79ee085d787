package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/perfiamatic/audit-flash/internal/audit"
	"github.com/perfiamatic/audit-flash/internal/auditreport"
	"github.com/perfiamatic/audit-flash/report"
)

func newRenderCmd() *cobra.Command {
	var (
		in       string
		out      string
		htmlOnly bool
	)
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Build the PDF report from a saved webhook response",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := readResponse(in)
			if err != nil {
				return err
			}
			doc, err := auditreport.NewBuilder().Build(resp)
			if err != nil {
				return err
			}
			if htmlOnly {
				renderer, err := auditreport.NewRenderer(nil)
				if err != nil {
					return err
				}
				html, err := renderer.HTML(doc)
				if err != nil {
					return err
				}
				return writeOutput(cmd.OutOrStdout(), out, []byte(html))
			}
			if out == "" {
				out = auditreport.Filename(doc.ClinicName, time.Now())
			}
			renderer, err := auditreport.NewRenderer(report.NewClient(flagGotenbergURL, flagTimeout))
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), flagTimeout)
			defer cancel()
			res, err := renderer.Render(ctx, doc)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd.OutOrStdout(), out, res.PDF); err != nil {
				return err
			}
			if out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", out, len(res.PDF))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "webhook response JSON file")
	cmd.Flags().StringVar(&out, "out", "", "output file, - for stdout (default: download file name)")
	cmd.Flags().BoolVar(&htmlOnly, "html", false, "write the HTML instead of converting to PDF")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func readResponse(path string) (audit.Response, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return audit.Response{}, err
	}
	var resp audit.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return audit.Response{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if !resp.Success {
		return audit.Response{}, fmt.Errorf("response reports a failed analysis: %s", resp.Error)
	}
	return resp, nil
}

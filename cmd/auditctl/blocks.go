package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/perfiamatic/audit-flash/internal/narrative"
)

func newBlocksCmd() *cobra.Command {
	var (
		in      string
		rewrite bool
	)
	cmd := &cobra.Command{
		Use:   "blocks",
		Short: "Print the blocks parsed from a narrative, one per line",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if in == "" || in == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(in)
			}
			if err != nil {
				return err
			}
			md := string(data)
			if rewrite {
				md = narrative.Rewrite(md)
			}
			w := cmd.OutOrStdout()
			for b := range narrative.Blocks(md) {
				if _, err := fmt.Fprintf(w, "%-4s %s\n", b.Kind, b.Text); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "markdown file, - or empty for stdin")
	cmd.Flags().BoolVar(&rewrite, "rewrite", false, "apply the dashboard wording first")
	return cmd
}

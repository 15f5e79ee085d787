package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	flagGotenbergURL string
	flagTimeout      time.Duration
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "auditctl",
		Short:         "Audit Flash No-Shows operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagGotenbergURL, "gotenberg", envOr("GOTENBERG_URL", "http://127.0.0.1:3000"), "Gotenberg base URL")
	root.PersistentFlags().DurationVar(&flagTimeout, "timeout", 60*time.Second, "timeout for outbound calls")
	root.AddCommand(newRenderCmd(), newBlocksCmd(), newAnalyzeCmd(), newJobsCmd())
	return root
}

// Execute is the entry point called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// writeOutput writes data to path, or to w when path is "-" or empty.
func writeOutput(w io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := w.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

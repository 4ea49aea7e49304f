package main

import (
	"os"

	"github.com/spf13/cobra"

	"stream-stitch-relay/internal/app"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "stitch-relay",
		Short:        "Stitch numbered media segments into downloadable files",
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd(), newWorkerCmd(), newHistoryCmd())
	return root
}

func newServeCmd() *cobra.Command {
	var noWorkers bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP intake with workers and scratch janitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Serve(!noWorkers)
		},
	}
	cmd.Flags().BoolVar(&noWorkers, "no-workers", false, "serve intake only; run workers with the worker command")
	return cmd
}

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run queue workers and the scratch janitor without the HTTP intake",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Work()
		},
	}
}

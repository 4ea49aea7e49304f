package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"stream-stitch-relay/internal/app"
	"stream-stitch-relay/internal/model"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <installationId>",
		Short: "List an installation's most recent requests",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := app.New(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			reqs, err := a.Orchestrator.History(ctx, args[0], limit)
			if err != nil {
				return err
			}
			if len(reqs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No requests found")
				return nil
			}
			renderHistory(cmd, reqs)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of requests to show")
	return cmd
}

func renderHistory(cmd *cobra.Command, reqs []model.ProcessingRequest) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Request", "Status", "HTTP", "Artifact", "Name", "Created"})

	for _, r := range reqs {
		httpStatus := ""
		if r.HTTPStatus != 0 {
			httpStatus = fmt.Sprint(r.HTTPStatus)
		}
		t.AppendRow(table.Row{
			r.RequestID,
			string(r.Status),
			httpStatus,
			r.ArtifactID,
			r.DisplayName,
			humanize.Time(r.CreatedAt),
		})
	}
	t.Render()
}

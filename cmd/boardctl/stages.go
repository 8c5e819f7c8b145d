package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"pipeline_board_backend/internal/pipeline/domain"
	"pipeline_board_backend/internal/pipeline/metrics"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newStagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stages <board-id>",
		Short: "List the stages of a board in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID, err := parseBoardID(args[0])
			if err != nil {
				return err
			}
			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			stages, err := e.engine().ListOrdered(cmd.Context(), boardID)
			if err != nil {
				return err
			}
			return printStages(cmd.OutOrStdout(), stages)
		},
	}
}

func newMetricsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "metrics <board-id>",
		Short: "Show live counts, value and conversion rate of a board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID, err := parseBoardID(args[0])
			if err != nil {
				return err
			}
			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			eng := e.engine()
			stages, err := eng.ListOrdered(cmd.Context(), boardID)
			if err != nil {
				return err
			}
			m, err := eng.MetricsFor(cmd.Context(), boardID)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(m)
			}
			return printMetrics(cmd.OutOrStdout(), stages, m)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print metrics as JSON")
	return cmd
}

func newReorderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <board-id> <stage-id>...",
		Short: "Set the order of a board's custom stages",
		Long:  "Reorders the custom stages of a board. Every custom stage must be listed exactly once; intake, won and lost stages keep their places.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID, err := parseBoardID(args[0])
			if err != nil {
				return err
			}
			order, err := parseStageIDs(args[1:])
			if err != nil {
				return err
			}
			e, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			stages, err := e.engine().ReorderStages(cmd.Context(), boardID, order)
			if err != nil {
				return err
			}
			return printStages(cmd.OutOrStdout(), stages)
		},
	}
}

func parseStageIDs(raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, fmt.Errorf("invalid stage id %q: %w", r, err)
		}
		out = append(out, id)
	}
	return out, nil
}

func printStages(out io.Writer, stages []domain.Stage) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tID\tROLE\tNAME\tCADENCE")
	for _, s := range stages {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", s.OrderIndex, s.ID, s.Role, s.Name, len(s.Cadence))
	}
	return tw.Flush()
}

func printMetrics(out io.Writer, stages []domain.Stage, m metrics.BoardMetrics) error {
	ordered := append([]domain.Stage(nil), stages...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].OrderIndex < ordered[j].OrderIndex })

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tLEADS\tVALUE")
	for _, s := range ordered {
		sm := m.PerStage[s.ID]
		fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Name, sm.Count, formatCents(sm.TotalValueCents))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\ntotal %d leads, %s | won %d, lost %d, active %d | conversion %.1f%%\n",
		m.TotalLeads, formatCents(m.TotalValueCents), m.Won, m.Lost, m.Active, m.ConversionRate*100)
	return err
}

func formatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

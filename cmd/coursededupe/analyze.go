package main

import (
	"github.com/spf13/cobra"

	"course-dedupe/internal/confirm"
	"course-dedupe/internal/dedupe"
	"course-dedupe/internal/similarity"
)

func newAnalyzeCmd(a *app) *cobra.Command {
	var noPublish bool
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Print duplicate groups and the course each would keep, without changing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ex := dedupe.NewExecutor(st, confirm.Never(), a.log,
				dedupe.WithMatcher(similarity.NewMatcher(a.cfg.FamilyMarkers...)))
			report, err := ex.Analyze(ctx)
			if err != nil {
				return err
			}

			printAnalysis(a.out, report)
			if !noPublish {
				a.publish(ctx, report)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noPublish, "no-publish", false, "do not write or upload the report")
	return cmd
}

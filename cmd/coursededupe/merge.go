package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"course-dedupe/internal/confirm"
	"course-dedupe/internal/dedupe"
	"course-dedupe/internal/similarity"
)

func newMergeCmd(a *app) *cobra.Command {
	var (
		policy    string
		allow     []string
		noPublish bool
	)
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge confirmed duplicate groups into their retained course",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if !cmd.Flags().Changed("policy") {
				policy = a.cfg.Policy
			}
			if !cmd.Flags().Changed("allow") {
				allow = a.cfg.AllowCourses
			}
			confirmer, err := confirm.FromName(policy, allow, a.in, a.out)
			if err != nil {
				return err
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ex := dedupe.NewExecutor(st, confirmer, a.log,
				dedupe.WithMatcher(similarity.NewMatcher(a.cfg.FamilyMarkers...)))
			report, runErr := ex.Run(ctx)
			if report == nil {
				return runErr
			}

			printSummary(a.out, report)
			if !noPublish {
				// publish with a fresh context so a canceled run still leaves a report
				a.publish(context.WithoutCancel(ctx), report)
			}
			if runErr != nil {
				if errors.Is(runErr, context.Canceled) {
					return fmt.Errorf("merge interrupted: %w", runErr)
				}
				return runErr
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&policy, "policy", confirm.PolicyPrompt, "confirmation policy: prompt, always, never or allowlist")
	cmd.Flags().StringSliceVar(&allow, "allow", nil, "retained course ids merged without asking (allowlist policy)")
	cmd.Flags().BoolVar(&noPublish, "no-publish", false, "do not write or upload the report")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"course-dedupe/internal/store"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the catalog tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if err := store.AutoMigrate(cmd.Context(), st); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			a.log.Info("schema up to date", "driver", a.cfg.DBDriver)
			fmt.Fprintln(a.out, "Schema up to date")
			return nil
		},
	}
}

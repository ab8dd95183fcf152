package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"course-dedupe/internal/catalog"
	"course-dedupe/internal/store"
)

func newSeedCmd(a *app) *cobra.Command {
	var (
		file    string
		migrate bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import a YAML course catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				return errors.New("seed: --file is required")
			}
			ctx := cmd.Context()

			courses, err := catalog.ReadFile(file)
			if err != nil {
				return err
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			if migrate {
				if err := store.AutoMigrate(ctx, st); err != nil {
					return fmt.Errorf("seed: migrate: %w", err)
				}
			}

			stats, err := catalog.Import(ctx, st, courses, a.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Imported %d courses, %d chapters, %d progress records, %d purchases (%d already present)\n",
				stats.Courses, stats.Chapters, stats.Progress, stats.Purchases, stats.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "catalog YAML file")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "create missing tables first")
	return cmd
}

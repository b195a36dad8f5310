package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sennetconsortium/senotype-editor/modules/senotype/infrastructure/persistence"
)

type migrateOptions struct {
	seed string
}

func newMigrateCmd() *cobra.Command {
	var opts migrateOptions
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the senlib schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			defer conf.Unload()
			ctx := cmd.Context()
			db, err := openDB(ctx, conf)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := persistence.Migrate(ctx, db)
			if err != nil {
				return withCode(exitDB, err)
			}
			out := cmd.OutOrStdout()
			if len(applied) == 0 {
				fmt.Fprintln(out, "schema is up to date")
			}
			for _, v := range applied {
				fmt.Fprintf(out, "applied migration %05d\n", v)
			}

			if opts.seed == "" {
				return nil
			}
			fixture, err := persistence.LoadFixture(opts.seed)
			if err != nil {
				return withCode(exitUsage, err)
			}
			if err := persistence.NewValuesetRepository(db).Upsert(ctx, fixture.Valuesets); err != nil {
				return withCode(exitDB, err)
			}
			fmt.Fprintf(out, "seeded %d valueset terms\n", len(fixture.Valuesets))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.seed, "seed", "", "valueset YAML fixture to upsert after migrating")
	return cmd
}

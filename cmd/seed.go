package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/geodir/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load categories and locations from a YAML fixture",
	Long:  "Upserts the fixture's categories by slug and inserts its locations. Run 'geocode backlog --missing-only' afterwards to geocode them.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		f, err := seed.LoadFile(args[0])
		if err != nil {
			return err
		}

		pool, store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		res, err := seed.Apply(ctx, store, f)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d categories and %d locations (%d awaiting geocoding)\n",
			res.Categories, res.Locations, res.Ungeocoded)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

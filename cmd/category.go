package main

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/geodir/internal/location"
)

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage categories",
}

var categoryDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a category",
	Long:  "Deletes a category. --policy decides what happens to its locations: restrict (refuse), nullify (detach) or cascade (delete them).",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return eris.Errorf("invalid category id %q", args[0])
		}
		name, _ := cmd.Flags().GetString("policy")
		if name == "" {
			name = cfg.Categories.DeletePolicy
		}
		policy, err := location.ParseDeletePolicy(name)
		if err != nil {
			return err
		}

		pool, store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		res, err := store.DeleteCategory(ctx, id, policy)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %d (policy %s, %d locations affected)\n", id, res.Policy, res.Affected)
		return nil
	},
}

func init() {
	categoryDeleteCmd.Flags().String("policy", "", "restrict, nullify or cascade (default from config)")
	categoryCmd.AddCommand(categoryDeleteCmd)
	rootCmd.AddCommand(categoryCmd)
}

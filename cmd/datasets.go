package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blueprintkit/bioblueprint/internal/dataset"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "Manage on-disk image datasets",
}

var datasetsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List datasets under the configured root",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := dataset.Catalog{Root: cfg.Datasets.Root}
		entries, err := catalog.List()
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Printf("No datasets under %s\n", cfg.Datasets.Root)
			return nil
		}

		for _, e := range entries {
			line := fmt.Sprintf("%-24s %3d images", e.Name, e.ImageCount)
			if e.HasContext {
				line += "  [" + e.Summary + "]"
			}
			fmt.Println(line)
		}
		return nil
	},
}

var datasetsFillCmd = &cobra.Command{
	Use:   "fill <name>",
	Short: "Interactively fill in missing known info for a dataset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := dataset.Catalog{Root: cfg.Datasets.Root}
		dir, err := catalog.Path(args[0])
		if err != nil {
			return err
		}

		meta, err := dataset.ReadMeta(dir)
		if err != nil {
			return err
		}

		filled, err := dataset.FillMissing(os.Stdin, os.Stdout, meta.Known)
		if err != nil {
			return err
		}

		if _, err := dataset.UpdateKnown(dir, filled); err != nil {
			return err
		}
		zap.L().Info("datasets: known info saved", zap.String("dataset", args[0]))
		return nil
	},
}

func init() {
	datasetsCmd.AddCommand(datasetsListCmd)
	datasetsCmd.AddCommand(datasetsFillCmd)
	rootCmd.AddCommand(datasetsCmd)
}

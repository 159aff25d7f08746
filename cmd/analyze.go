package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blueprintkit/bioblueprint/internal/dataset"
	"github.com/blueprintkit/bioblueprint/internal/pipeline"
	"github.com/blueprintkit/bioblueprint/internal/preprocess"
)

var (
	analyzeSkipContext bool
	analyzeFill        bool
	analyzeOutput      string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <dir>",
	Short: "Run the full analysis pipeline over a directory of images",
	Long:  "Preprocesses every image in the directory, runs context detection, quick scan, deep analysis and synthesis, and writes the final profile JSON. A meta.json sidecar in the directory supplies known info and cached context.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		dir := args[0]

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		meta, err := dataset.ReadMeta(dir)
		if err != nil {
			return err
		}

		known := meta.Known
		if analyzeFill {
			filled, fillErr := dataset.FillMissing(os.Stdin, os.Stdout, known)
			if fillErr != nil {
				return fillErr
			}
			known = filled
			if _, err := dataset.UpdateKnown(dir, known); err != nil {
				zap.L().Warn("analyze: failed to save known info", zap.Error(err))
			}
		}

		images, err := preprocess.Directory(ctx, dir, preprocessOptions())
		if err != nil {
			return err
		}
		if len(images) == 0 {
			return eris.Errorf("no processable images in %s", dir)
		}

		opts := pipeline.Options{
			Label:       filepath.Base(dir),
			SkipContext: analyzeSkipContext,
			Known:       known,
		}
		if meta.HasContext() {
			opts.Context = meta.Context
			zap.L().Info("analyze: using cached context from meta.json")
		}

		result, err := env.Pipeline.Run(ctx, images, opts)
		if err != nil {
			return err
		}

		// Cache a freshly detected context for future runs.
		if result.Context != nil && !meta.HasContext() {
			if _, err := dataset.UpdateContext(dir, result.Context); err != nil {
				zap.L().Warn("analyze: failed to cache context", zap.Error(err))
			}
		}

		encoded, err := json.MarshalIndent(result.Blueprint, "", "  ")
		if err != nil {
			return eris.Wrap(err, "encode blueprint")
		}

		if analyzeOutput != "" {
			if err := os.WriteFile(analyzeOutput, encoded, 0o644); err != nil {
				return eris.Wrapf(err, "write %s", analyzeOutput)
			}
			zap.L().Info("analyze: blueprint written", zap.String("path", analyzeOutput))
			return nil
		}

		fmt.Println(string(encoded))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeSkipContext, "skip-context", false, "skip the context detection phase")
	analyzeCmd.Flags().BoolVar(&analyzeFill, "fill", false, "interactively prompt for missing known info before analysis")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "write the blueprint JSON to a file instead of stdout")
	rootCmd.AddCommand(analyzeCmd)
}

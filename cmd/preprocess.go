package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/blueprintkit/bioblueprint/internal/preprocess"
)

var preprocessOutput string

var preprocessCmd = &cobra.Command{
	Use:   "preprocess <dir>",
	Short: "Normalize a directory of images without running analysis",
	Long:  "Resizes and re-encodes every image in the directory, extracts EXIF metadata, and writes the resulting batch as JSON. Useful for inspecting what the pipeline would actually send.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		images, err := preprocess.Directory(cmd.Context(), args[0], preprocessOptions())
		if err != nil {
			return err
		}

		zap.L().Info("preprocess complete",
			zap.Int("images", len(images)),
		)

		encoded, err := json.MarshalIndent(images, "", "  ")
		if err != nil {
			return eris.Wrap(err, "encode batch")
		}

		out := os.Stdout
		if preprocessOutput != "" {
			f, createErr := os.Create(preprocessOutput)
			if createErr != nil {
				return eris.Wrapf(createErr, "create %s", preprocessOutput)
			}
			defer f.Close()
			out = f
		}

		_, err = out.Write(append(encoded, '\n'))
		return eris.Wrap(err, "write batch")
	},
}

func init() {
	preprocessCmd.Flags().StringVarP(&preprocessOutput, "output", "o", "", "write the batch JSON to a file instead of stdout")
	rootCmd.AddCommand(preprocessCmd)
}

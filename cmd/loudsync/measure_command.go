package main

import (
	"github.com/spf13/cobra"

	"loudsync/internal/pipeline"
)

func newMeasureCommand(ctx *commandContext) *cobra.Command {
	var presetFlag string

	cmd := &cobra.Command{
		Use:   "measure",
		Short: "Analyze loudness only and write the measurement report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if presetFlag != "" {
				cfg.Normalize.Preset = presetFlag
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			cfg.Output.WriteCSV = true
			return executeBatch(cmd, cfg, pipeline.ModeMeasure, true)
		},
	}

	cmd.Flags().StringVarP(&presetFlag, "preset", "p", "", "Analysis target preset")
	return cmd
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loudsync/internal/loudness"
	"loudsync/internal/target"
)

func newPresetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "presets",
		Short:       "List the available loudness presets",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, 8)
			for _, preset := range target.Presets() {
				integrated := loudness.FormatValue(preset.Target.IntegratedLUFS)
				if preset.Name == target.ProfileReference {
					integrated = "measured"
				}
				rows = append(rows, []string{
					preset.Name,
					integrated,
					loudness.FormatValue(preset.Target.TruePeakCeilingDBTP),
					preset.Description,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Preset", "Integrated (LUFS)", "Ceiling (dBTP)", "Use"},
				rows, 1, 2))
			return nil
		},
	}
}

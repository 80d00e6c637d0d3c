package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loudsync/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check that the external audio tools are available",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			requirements := []deps.Requirement{
				{Name: "ffmpeg", Command: "ffmpeg", Description: "loudness measurement and transforms"},
				{Name: "ffprobe", Command: "ffprobe", Description: "duration and stream probing"},
			}

			rows := make([][]string, 0, len(requirements))
			missing := 0
			for _, status := range deps.CheckBinaries(requirements) {
				configured := cfg.Paths.FFmpeg
				if status.Name == "ffprobe" {
					configured = cfg.Paths.FFprobe
				}
				resolved, err := deps.Resolve(status.Name, configured)
				detail := resolved
				if err != nil {
					detail = status.Detail
					if detail == "" {
						detail = err.Error()
					}
					missing++
				}
				rows = append(rows, []string{
					status.Name,
					yesNo(err == nil),
					status.Description,
					detail,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Tool", "Found", "Purpose", "Location"}, rows))
			if missing > 0 {
				return fmt.Errorf("%d required tool(s) missing", missing)
			}
			return nil
		},
	}
}

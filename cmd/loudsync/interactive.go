package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"loudsync/internal/config"
	"loudsync/internal/target"
)

const fallbackPreset = "-16"

// resolveTarget turns the configured preset into a concrete target. When
// reference-file analysis fails, interactive sessions get to pick a preset
// and non-interactive runs fall back to the default with a notice.
func resolveTarget(ctx context.Context, out io.Writer, cfg *config.Config, measurer target.Measurer) (target.Target, error) {
	tgt, err := target.Resolve(ctx, cfg.Normalize.Preset, cfg.Normalize.RefPath, measurer)
	if err == nil {
		return tgt, nil
	}
	if !errors.Is(err, target.ErrReferenceAnalysis) {
		return target.Target{}, err
	}

	fmt.Fprintf(out, "Reference file analysis failed: %v\n", err)
	if stdinIsTerminal() {
		return promptPreset(ctx, out, os.Stdin)
	}
	fmt.Fprintf(out, "Falling back to the %s LUFS preset.\n", fallbackPreset)
	return target.Resolve(ctx, fallbackPreset, "", nil)
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// promptPreset lists the fixed presets and reads a selection. Anything
// unparseable selects the default.
func promptPreset(ctx context.Context, out io.Writer, in io.Reader) (target.Target, error) {
	presets := make([]target.Preset, 0, 8)
	for _, preset := range target.Presets() {
		if preset.Name == target.ProfileReference {
			continue
		}
		presets = append(presets, preset)
	}

	fmt.Fprintln(out, "Select a loudness preset:")
	for i, preset := range presets {
		fmt.Fprintf(out, "  %d) %s LUFS (%s)\n", i+1, preset.Name, preset.Description)
	}
	fmt.Fprintf(out, "Choice [default %s]: ", fallbackPreset)

	reader := bufio.NewReader(in)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return target.Resolve(ctx, fallbackPreset, "", nil)
	}

	choice, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || choice < 1 || choice > len(presets) {
		fmt.Fprintf(out, "Using the %s LUFS preset.\n", fallbackPreset)
		return target.Resolve(ctx, fallbackPreset, "", nil)
	}
	return presets[choice-1].Target, nil
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// spaceOpts holds the flags of the space command.
type spaceOpts struct {
	percent float64
	output  string
	noCache bool
	refresh bool
}

// spaceCommand creates the space command.
func (c *CLI) spaceCommand() *cobra.Command {
	opts := &spaceOpts{}

	cmd := &cobra.Command{
		Use:   "space [file]",
		Short: "Widen a skyline SVG without distorting buildings",
		Long: `Widen a skyline SVG horizontally by a percentage.

The canvas grows by the percentage and every top-level element is shifted
away from the center in proportion to its distance from it. Buildings keep
their size; only the gaps between them grow.`,
		Example: `  # Widen by 25%, writing skyline_spaced_25.svg
  skylayer space skyline.svg -p 25

  # Write to stdout
  skylayer space skyline.svg -p 25 -o -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSpace(cmd, args[0], opts)
		},
	}

	cmd.Flags().Float64VarP(&opts.percent, "percent", "p", 0, "spacing percentage (0 returns the input unchanged)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", `output file, "-" for stdout (default: <name>_spaced_<p>.svg)`)
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute even when a cached result exists")
	_ = cmd.MarkFlagRequired("percent")

	return cmd
}

func (c *CLI) runSpace(cmd *cobra.Command, input string, opts *spaceOpts) error {
	ctx := cmd.Context()

	data, err := readInput(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	pOpts, err := c.engineOptions()
	if err != nil {
		return err
	}
	pOpts.Refresh = opts.refresh

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	res, err := runner.Space(ctx, data, opts.percent, pOpts)
	if err != nil {
		return err
	}

	if opts.output == "-" {
		_, err := os.Stdout.Write(res.Document)
		return err
	}

	out := opts.output
	if out == "" {
		out = spacedName(input, opts.percent)
	}
	if err := os.WriteFile(out, res.Document, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	printSuccess("Spaced %s by %s%%", StyleValue.Render(input), formatFloat(opts.percent))
	printSpacing(res.SpacingSummary)
	printFile(out)
	printNewline()
	printNextStep("Separate the result", fmt.Sprintf("%s separate %s", appName, out))
	return nil
}

// spacedName returns the default output path for a spaced document.
func spacedName(input string, percent float64) string {
	base := "skyline"
	dir := "."
	if input != "-" {
		base = stem(input)
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, fmt.Sprintf("%s_spaced_%s.svg", base, formatFloat(percent)))
}

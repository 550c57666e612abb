package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var interactive, noCache bool

	cmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Show the buildings found in a skyline SVG",
		Long: `Resolve the buildings of a skyline SVG and show their heights and layers
without writing any file.

With --interactive the buildings open in a table that can be filtered by layer.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			input := args[0]

			data, err := readInput(input)
			if err != nil {
				return fmt.Errorf("read %s: %w", input, err)
			}
			opts, err := c.engineOptions()
			if err != nil {
				return err
			}
			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			res, err := runner.Separate(ctx, data, opts)
			if err != nil {
				return err
			}

			if interactive {
				p := tea.NewProgram(NewBuildingBrowser(input, res.Separation), tea.WithAltScreen(), tea.WithContext(ctx))
				_, err := p.Run()
				return err
			}

			printKeyValue("Canvas", res.Canvas.String())
			printKeyValue("Strategy", res.Strategy)
			printKeyValue("Buildings", fmt.Sprintf("%d", len(res.Buildings)))
			printKeyValue("Excluded shapes", fmt.Sprintf("%d", res.Excluded))
			for _, id := range res.Skipped {
				printWarning("skipped group %s: no measurable shape", id)
			}
			printNewline()
			fmt.Println(renderLayerTable(layerInfos(res.Layers), nil))
			for _, b := range res.Buildings {
				printDetail("%-24s %-10s height %-6s x %s", b.ID, b.Layer, formatFloat(b.Height), formatFloat(b.CenterX))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse buildings in an interactive table")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")

	return cmd
}

package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/skylayer/pkg/layers"
	"github.com/matzehuels/skylayer/pkg/pipeline"
)

// separateOpts holds the flags of the separate command.
type separateOpts struct {
	output     string
	base       string
	threshold  float64
	clustering string
	spacing    float64
	noCache    bool
	refresh    bool
}

// separateCommand creates the separate command.
func (c *CLI) separateCommand() *cobra.Command {
	opts := &separateOpts{}

	cmd := &cobra.Command{
		Use:   "separate [file]",
		Short: "Split a skyline SVG into three depth layers",
		Long: `Split a skyline SVG into foreground, middle and background layer documents.

Buildings are taken from groups whose id starts with "building"; documents
without such groups are clustered from their loose shapes. Each building is
assigned to a layer by its height relative to the canvas.

Use "-" to read the master document from stdin.`,
		Example: `  # Write skyline_layer_{1,2,3}.svg next to the input
  skylayer separate skyline.svg

  # Widen by 20% first and write to a directory
  skylayer separate skyline.svg --spacing 20 -o layers/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runSeparate(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory (default: next to the input)")
	cmd.Flags().StringVar(&opts.base, "base", "", "base name of layer files (default: input file name)")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "clustering distance in canvas units (default from config)")
	cmd.Flags().StringVar(&opts.clustering, "clustering", "", "clustering strategy: greedy, components (default from config)")
	cmd.Flags().Float64VarP(&opts.spacing, "spacing", "p", 0, "widen the skyline by this percentage before separating")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "recompute even when a cached result exists")

	return cmd
}

func (c *CLI) runSeparate(cmd *cobra.Command, input string, opts *separateOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	data, err := readInput(input)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	pOpts, err := c.engineOptions()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("threshold") {
		pOpts.Threshold = opts.threshold
	}
	if opts.clustering != "" {
		pOpts.Clustering = opts.clustering
	}
	pOpts.SpacingPercent = opts.spacing
	pOpts.Refresh = opts.refresh
	pOpts.BaseName = opts.base
	if pOpts.BaseName == "" && input != "-" {
		pOpts.BaseName = stem(input)
	}

	runner, err := c.newRunner(ctx, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(logger)
	spinner := newSpinnerWithContext(ctx, "Separating layers...")
	spinner.Start()
	res, err := runner.Separate(ctx, data, pOpts)
	if err != nil {
		spinner.StopWithError("Separation failed")
		return err
	}
	spinner.Stop()

	dir := opts.output
	if dir == "" {
		dir = "."
		if input != "-" {
			dir = filepath.Dir(input)
		}
	}
	files, err := writeLayers(dir, res.Layers)
	if err != nil {
		return err
	}
	prog.done("Wrote layers")

	printSuccess("Separated %s", StyleValue.Render(input))
	printStats(len(res.Buildings), res.Excluded, res.Strategy, res.CacheHit)
	if res.Spacing != nil {
		printSpacing(*res.Spacing)
	}
	for _, id := range res.Skipped {
		printWarning("skipped group %s: no measurable shape", id)
	}

	fmt.Println(renderLayerTable(layerInfos(res.Layers), files))
	return nil
}

func layerInfos(outs []pipeline.LayerOutput) []layers.Info {
	infos := make([]layers.Info, len(outs))
	for i, l := range outs {
		infos[i] = l.Info
	}
	return infos
}

// writeLayers writes every layer document into dir and returns the paths.
// Either all layers are written or none: documents go to temp files first
// and are renamed into place only after every write succeeded.
func writeLayers(dir string, outs []pipeline.LayerOutput) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	paths := make([]string, len(outs))
	for i, l := range outs {
		paths[i] = filepath.Join(dir, l.Filename)
		if fi, err := os.Stat(paths[i]); err == nil && !fi.Mode().IsRegular() {
			return nil, fmt.Errorf("write %s: not a regular file", paths[i])
		}
	}

	temps := make([]string, 0, len(outs))
	cleanup := func() {
		for _, tmp := range temps {
			os.Remove(tmp)
		}
	}
	for i, l := range outs {
		tmp, err := writeTemp(dir, l.Document)
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("write %s: %w", paths[i], err)
		}
		temps = append(temps, tmp)
	}

	for i, tmp := range temps {
		if err := os.Rename(tmp, paths[i]); err != nil {
			cleanup()
			for _, done := range paths[:i] {
				os.Remove(done)
			}
			return nil, fmt.Errorf("write %s: %w", paths[i], err)
		}
	}
	return paths, nil
}

func writeTemp(dir string, data []byte) (string, error) {
	tmp, err := os.CreateTemp(dir, ".layer-*")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// Package pipeline provides the separation and spacing pipeline for skylayer.
//
// This package runs the complete parse → resolve → normalize → partition
// pipeline that the CLI and the HTTP server share, so both produce identical
// layers for identical input.
//
// # Stages
//
//  1. Parse: decode the master document and determine its canvas
//  2. Resolve: find tagged building groups, or cluster loose shapes
//  3. Normalize: map each building's top onto the height scale
//  4. Partition: split buildings into three layers and serialize each
//
// Spacing is independent of separation. [Runner.SpaceAndSeparate] feeds the
// spaced document into separation so the layers share the wider canvas.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	res, err := runner.Separate(ctx, master, pipeline.Options{Threshold: 40})
//	if errors.Is(err, errors.ErrCodeNoBuildings) {
//	    // ask upstream for a better master
//	}
//	for _, l := range res.Layers {
//	    os.WriteFile(l.Filename, l.Document, 0o644)
//	}
package pipeline

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/skylayer/pkg/cache"
	errs "github.com/matzehuels/skylayer/pkg/errors"
	"github.com/matzehuels/skylayer/pkg/geom"
	"github.com/matzehuels/skylayer/pkg/layers"
	"github.com/matzehuels/skylayer/pkg/skyline"
	"github.com/matzehuels/skylayer/pkg/svg"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultThreshold is the clustering distance in canvas units.
	DefaultThreshold = skyline.DefaultThreshold

	// DefaultClustering is the fallback clustering strategy.
	DefaultClustering = "greedy"

	// DefaultHeightScale is the top of the height scale.
	DefaultHeightScale = skyline.DefaultScale

	// DefaultForegroundMax and DefaultMiddleMax are the layer thresholds.
	DefaultForegroundMax = layers.DefaultForegroundMax
	DefaultMiddleMax     = layers.DefaultMiddleMax

	// DefaultBaseName names layer files when the caller gives none.
	DefaultBaseName = "skyline"
)

// Cache lifetimes. Results depend only on input bytes and options, so they
// can live long.
const (
	TTLSeparation = 7 * 24 * time.Hour
	TTLSpacing    = 7 * 24 * time.Hour
)

// ValidClusterings is the set of supported clustering strategies.
var ValidClusterings = map[string]bool{
	"greedy":     true,
	"components": true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a pipeline run.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Resolve options
	Threshold  float64 `json:"threshold,omitempty"`
	Clustering string  `json:"clustering,omitempty"`

	// Normalize and partition options
	HeightScale   float64 `json:"height_scale,omitempty"`
	ForegroundMax float64 `json:"foreground_max,omitempty"`
	MiddleMax     float64 `json:"middle_max,omitempty"`

	// SpacingPercent, when positive, spaces the document before separating.
	SpacingPercent float64 `json:"spacing_percent,omitempty"`

	// BaseName prefixes layer file names.
	BaseName string `json:"base_name,omitempty"`

	// Refresh bypasses cached results.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger        *log.Logger    `json:"-"`
	Extractor     geom.Extractor `json:"-"`
	DefaultCanvas svg.ViewBox    `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// =============================================================================
// Results
// =============================================================================

// LayerOutput is one serialized layer.
type LayerOutput struct {
	Info     layers.Info `json:"info"`
	Filename string      `json:"filename"`
	Document []byte      `json:"document"`
}

// BuildingSummary describes one resolved building.
type BuildingSummary struct {
	ID      string  `json:"id"`
	Layer   string  `json:"layer"`
	Tagged  bool    `json:"tagged"`
	CenterX float64 `json:"center_x"`
	TopY    float64 `json:"top_y"`
	Height  float64 `json:"height"`
	Shapes  int     `json:"shapes"`
}

// SpacingSummary is the metadata of a spacing run.
type SpacingSummary struct {
	Percent        float64 `json:"percent"`
	OriginalWidth  float64 `json:"original_width"`
	NewWidth       float64 `json:"new_width"`
	OriginalAspect string  `json:"original_aspect_ratio"`
	NewAspect      string  `json:"new_aspect_ratio"`
	Shifted        int     `json:"shifted"`
	Skipped        int     `json:"skipped"`
}

// Separation is the cacheable outcome of a separation run.
type Separation struct {
	// Layers always holds three entries: foreground, middle, background.
	Layers    []LayerOutput     `json:"layers"`
	Buildings []BuildingSummary `json:"buildings"`
	Canvas    svg.ViewBox       `json:"canvas"`
	Strategy  string            `json:"strategy"`
	Excluded  int               `json:"excluded_shapes"`
	Skipped   []string          `json:"skipped_groups,omitempty"`

	// Spacing is set when the document was spaced before separation.
	Spacing *SpacingSummary `json:"spacing,omitempty"`
}

// SeparationResult contains the outputs of a separation run.
type SeparationResult struct {
	Separation

	// DocHash is the SHA-256 of the input bytes.
	DocHash string

	Stats    Stats
	CacheHit bool
}

// SpacingResult contains the outputs of a spacing run.
type SpacingResult struct {
	SpacingSummary

	// Document is the spaced document. For a zero percentage it is the
	// input unchanged.
	Document []byte

	DocHash  string
	Duration time.Duration
	CacheHit bool
}

// Stats contains pipeline execution statistics.
type Stats struct {
	ParseTime     time.Duration
	ResolveTime   time.Duration
	PartitionTime time.Duration
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateClustering checks that a clustering strategy is valid.
func ValidateClustering(name string) error {
	if !ValidClusterings[name] {
		return errs.New(errs.ErrCodeInvalidInput, "invalid clustering: %q (must be one of: greedy, components)", name)
	}
	return nil
}

// ValidateThreshold checks that a clustering threshold is usable.
func ValidateThreshold(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return errs.New(errs.ErrCodeInvalidInput, "threshold must be a positive number, got %g", v)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	o.SetDefaults()
	if err := ValidateThreshold(o.Threshold); err != nil {
		return err
	}
	if err := ValidateClustering(o.Clustering); err != nil {
		return err
	}
	if !(o.HeightScale > 0) || math.IsInf(o.HeightScale, 0) {
		return errs.New(errs.ErrCodeInvalidInput, "height scale must be positive, got %g", o.HeightScale)
	}
	if err := o.partitioner().Validate(); err != nil {
		return err
	}
	if o.MiddleMax > o.HeightScale {
		return errs.New(errs.ErrCodeInvalidInput, "middle max %g exceeds height scale %g", o.MiddleMax, o.HeightScale)
	}
	if err := errs.ValidatePercent(o.SpacingPercent); err != nil {
		return err
	}
	if err := errs.ValidateFilename(o.BaseName + ".svg"); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetDefaults fills zero fields with defaults.
func (o *Options) SetDefaults() {
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.Clustering == "" {
		o.Clustering = DefaultClustering
	}
	if o.HeightScale == 0 {
		o.HeightScale = DefaultHeightScale
	}
	if o.ForegroundMax == 0 {
		o.ForegroundMax = DefaultForegroundMax
	}
	if o.MiddleMax == 0 {
		o.MiddleMax = DefaultMiddleMax
	}
	if o.BaseName == "" {
		o.BaseName = DefaultBaseName
	}
	if o.Extractor == nil {
		o.Extractor = geom.DefaultExtractor
	}
	if o.DefaultCanvas.Degenerate() {
		o.DefaultCanvas = svg.DefaultViewBox
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// SeparationKeyOpts returns cache key options for separation.
func (o *Options) SeparationKeyOpts() cache.SeparationKeyOpts {
	return cache.SeparationKeyOpts{
		Threshold:      o.Threshold,
		Clustering:     o.Clustering,
		Scale:          o.HeightScale,
		ForegroundMax:  o.ForegroundMax,
		MiddleMax:      o.MiddleMax,
		SpacingPercent: o.SpacingPercent,
		BaseName:       o.BaseName,
		DefaultCanvas:  o.DefaultCanvas.String(),
	}
}

// SpacingKeyOpts returns cache key options for spacing.
func (o *Options) SpacingKeyOpts(percent float64) cache.SpacingKeyOpts {
	return cache.SpacingKeyOpts{Percent: percent, DefaultCanvas: o.DefaultCanvas.String()}
}

func (o *Options) resolver() (*skyline.Resolver, error) {
	c, err := skyline.ParseClusterer(o.Clustering)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "clustering")
	}
	return skyline.NewResolver(skyline.Config{
		Threshold:  o.Threshold,
		Clustering: c,
		Extractor:  o.Extractor,
		Logger:     o.Logger,
	}), nil
}

func (o *Options) partitioner() layers.Partitioner {
	return layers.Partitioner{
		ForegroundMax: o.ForegroundMax,
		MiddleMax:     o.MiddleMax,
		Scale:         o.HeightScale,
		Calculator:    svg.BoxCalculator{Extractor: o.Extractor},
	}
}

func (o *Options) parseOptions() []svg.ParseOption {
	return []svg.ParseOption{svg.WithLogger(o.Logger), svg.WithDefaultViewBox(o.DefaultCanvas)}
}

func (s SpacingSummary) String() string {
	return fmt.Sprintf("%g%%: width %g -> %g (%s -> %s)", s.Percent, s.OriginalWidth, s.NewWidth, s.OriginalAspect, s.NewAspect)
}

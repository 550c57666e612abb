package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/skylayer/pkg/cache"
	errs "github.com/matzehuels/skylayer/pkg/errors"
	"github.com/matzehuels/skylayer/pkg/layers"
	"github.com/matzehuels/skylayer/pkg/observability"
	"github.com/matzehuels/skylayer/pkg/skyline"
	"github.com/matzehuels/skylayer/pkg/spacing"
	"github.com/matzehuels/skylayer/pkg/svg"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL, when positive, replaces the default cache lifetimes.
	TTL time.Duration

	// flight collapses concurrent separations of the same input and options.
	flight singleflight.Group
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// Separate splits a master document into three layer documents.
//
// It fails with a parse failure for malformed input and with
// ErrCodeNoBuildings when the document holds no boxable shape; in both
// cases no layer is produced.
func (r *Runner) Separate(ctx context.Context, data []byte, opts Options) (*SeparationResult, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docHash := cache.Hash(data)
	key := r.Keyer.SeparationKey(docHash, opts.SeparationKeyOpts())

	if !opts.Refresh {
		var cached Separation
		if r.lookup(ctx, "separation", key, &cached) {
			return &SeparationResult{Separation: cached, DocHash: docHash, CacheHit: true}, nil
		}
	}

	v, err, shared := r.flight.Do(key, func() (any, error) {
		return r.runSeparate(ctx, data, docHash, key, opts)
	})
	if err != nil {
		return nil, err
	}
	res := *v.(*SeparationResult)
	if shared {
		r.Logger.Debug("shared separation result", "doc", docHash[:12])
	}
	return &res, nil
}

func (r *Runner) runSeparate(ctx context.Context, data []byte, docHash, key string, opts Options) (*SeparationResult, error) {
	hooks := observability.Pipeline()
	hooks.OnSeparateStart(ctx, docHash)
	start := time.Now()

	res, err := r.separate(data, opts)
	if err != nil {
		hooks.OnSeparateComplete(ctx, "", 0, time.Since(start), err)
		return nil, err
	}
	res.DocHash = docHash
	hooks.OnSeparateComplete(ctx, res.Strategy, len(res.Buildings), time.Since(start), nil)

	counts := make([]int, len(res.Layers))
	for i, l := range res.Layers {
		counts[i] = l.Info.BuildingCount
	}
	r.Logger.Info("separated layers",
		"strategy", res.Strategy,
		"buildings", len(res.Buildings),
		"layers", counts,
		"excluded", res.Excluded,
		"duration", time.Since(start))

	r.store(ctx, "separation", key, res.Separation, TTLSeparation)
	return res, nil
}

// SpaceAndSeparate spaces the document by percent and separates the result.
func (r *Runner) SpaceAndSeparate(ctx context.Context, data []byte, percent float64, opts Options) (*SeparationResult, error) {
	opts.SpacingPercent = percent
	opts.validated = false
	return r.Separate(ctx, data, opts)
}

func (r *Runner) separate(data []byte, opts Options) (*SeparationResult, error) {
	res := &SeparationResult{}

	parseStart := time.Now()
	doc, err := svg.Parse(data, opts.parseOptions()...)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	if opts.SpacingPercent > 0 {
		sp, err := spacing.Transformer{Calculator: svg.BoxCalculator{Extractor: opts.Extractor}, Logger: opts.Logger}.
			Apply(doc, opts.SpacingPercent)
		if err != nil {
			return nil, fmt.Errorf("spacing: %w", err)
		}
		doc = sp.Document
		summary := summarizeSpacing(sp)
		res.Spacing = &summary
	}
	res.Stats.ParseTime = time.Since(parseStart)

	resolveStart := time.Now()
	resolver, err := opts.resolver()
	if err != nil {
		return nil, err
	}
	resolution := resolver.Resolve(doc)
	if len(resolution.Buildings) == 0 {
		if resolution.Excluded > 0 {
			cause := errs.New(errs.ErrCodeIndeterminateShape,
				"%d shapes have no computable bounding box", resolution.Excluded)
			return nil, errs.Wrap(errs.ErrCodeNoBuildings, cause, "no buildings found in master document")
		}
		return nil, errs.New(errs.ErrCodeNoBuildings, "no buildings found in master document")
	}
	norm := skyline.Normalizer{Scale: opts.HeightScale}
	if err := norm.Normalize(resolution.Buildings, resolution.Canvas); err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	res.Stats.ResolveTime = time.Since(resolveStart)

	partitionStart := time.Now()
	p := opts.partitioner()
	p.Namespaces = doc.Namespaces()
	parts := p.Partition(resolution.Buildings, resolution.Canvas)
	for _, l := range parts {
		res.Layers = append(res.Layers, LayerOutput{
			Info:     l.Info(),
			Filename: l.Filename(opts.BaseName),
			Document: l.Bytes(),
		})
		for _, b := range l.Buildings {
			res.Buildings = append(res.Buildings, summarizeBuilding(b, l.Depth))
		}
	}
	res.Stats.PartitionTime = time.Since(partitionStart)

	res.Canvas = resolution.Canvas
	res.Strategy = string(resolution.Strategy)
	res.Excluded = resolution.Excluded
	res.Skipped = resolution.Skipped
	return res, nil
}

// Space widens a document by percent.
func (r *Runner) Space(ctx context.Context, data []byte, percent float64, opts Options) (*SpacingResult, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if err := errs.ValidatePercent(percent); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	docHash := cache.Hash(data)
	key := r.Keyer.SpacingKey(docHash, opts.SpacingKeyOpts(percent))

	if !opts.Refresh {
		var cached SpacingResult
		if r.lookup(ctx, "spacing", key, &cached) {
			cached.DocHash = docHash
			cached.CacheHit = true
			return &cached, nil
		}
	}

	hooks := observability.Pipeline()
	hooks.OnSpacingStart(ctx, percent)
	start := time.Now()

	doc, err := svg.Parse(data, opts.parseOptions()...)
	if err != nil {
		err = fmt.Errorf("parse: %w", err)
		hooks.OnSpacingComplete(ctx, percent, 0, time.Since(start), err)
		return nil, err
	}
	sp, err := spacing.Transformer{Calculator: svg.BoxCalculator{Extractor: opts.Extractor}, Logger: opts.Logger}.
		Apply(doc, percent)
	if err != nil {
		hooks.OnSpacingComplete(ctx, percent, 0, time.Since(start), err)
		return nil, err
	}

	res := &SpacingResult{
		SpacingSummary: summarizeSpacing(sp),
		Document:       sp.Serialized,
		DocHash:        docHash,
		Duration:       time.Since(start),
	}
	hooks.OnSpacingComplete(ctx, percent, sp.Shifted, res.Duration, nil)

	r.Logger.Info("applied spacing",
		"percent", percent,
		"width", res.OriginalWidth,
		"new_width", res.NewWidth,
		"shifted", res.Shifted,
		"duration", res.Duration)

	r.store(ctx, "spacing", key, res, TTLSpacing)
	return res, nil
}

// lookup reads a cached JSON value. Cache errors and undecodable entries
// count as misses.
func (r *Runner) lookup(ctx context.Context, keyType, key string, v any) bool {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "type", keyType, "err", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		r.Logger.Debug("discarding cache entry", "type", keyType, "err", fmt.Errorf("%w: %v", cache.ErrCorrupt, err))
		_ = r.Cache.Delete(ctx, key)
		observability.Cache().OnCacheMiss(ctx, keyType)
		return false
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return true
}

func (r *Runner) store(ctx context.Context, keyType, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if r.TTL > 0 {
		ttl = r.TTL
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "type", keyType, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func summarizeSpacing(sp *spacing.Result) SpacingSummary {
	return SpacingSummary{
		Percent:        sp.Percent,
		OriginalWidth:  sp.OriginalWidth,
		NewWidth:       sp.NewWidth,
		OriginalAspect: sp.OriginalAspect,
		NewAspect:      sp.NewAspect,
		Shifted:        sp.Shifted,
		Skipped:        sp.Skipped,
	}
}

func summarizeBuilding(b skyline.Building, d layers.Depth) BuildingSummary {
	return BuildingSummary{
		ID:      b.ID,
		Layer:   d.String(),
		Tagged:  b.Tagged,
		CenterX: b.Box.CenterX(),
		TopY:    b.TopY,
		Height:  b.Height,
		Shapes:  countShapes(b),
	}
}

func countShapes(b skyline.Building) int {
	n := 0
	for _, m := range b.Members {
		m.Node.Walk(func(c *svg.Node) bool {
			if !svg.IsRendered(c) {
				return false
			}
			if svg.IsShape(c) {
				n++
			}
			return true
		})
	}
	return n - b.Excluded
}

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/skylayer/pkg/cache"
	errs "github.com/matzehuels/skylayer/pkg/errors"
	"github.com/matzehuels/skylayer/pkg/svg"
)

const master = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 800 600">
  <g id="building-1"><rect x="100" y="540" width="60" height="60"/></g>
  <g id="building-2"><rect x="300" y="330" width="60" height="270"/></g>
  <g id="building-3"><rect x="500" y="120" width="60" height="480"/><path d="Z"/></g>
</svg>`

func quietRunner(c cache.Cache) *Runner {
	return NewRunner(c, nil, log.New(&bytes.Buffer{}))
}

func TestValidateClustering(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"greedy", false},
		{"components", false},
		{"Greedy", true},
		{"kmeans", true},
		{"", true},
	}
	for _, tt := range tests {
		err := ValidateClustering(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateClustering(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	var o Options
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("zero options: %v", err)
	}
	if o.Threshold != DefaultThreshold || o.Clustering != DefaultClustering || o.HeightScale != DefaultHeightScale {
		t.Errorf("defaults not applied: %+v", o)
	}
	if o.DefaultCanvas != svg.DefaultViewBox || o.BaseName != DefaultBaseName {
		t.Errorf("runtime defaults not applied: %+v", o)
	}
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Errorf("second call: %v", err)
	}

	bad := []Options{
		{Threshold: -1},
		{Clustering: "kmeans"},
		{ForegroundMax: 7, MiddleMax: 5},
		{HeightScale: 5, MiddleMax: 6, ForegroundMax: 3},
		{SpacingPercent: -10},
		{BaseName: "../etc"},
	}
	for _, o := range bad {
		if err := o.ValidateAndSetDefaults(); err == nil {
			t.Errorf("expected error for %+v", o)
		}
	}
}

func TestSeparate(t *testing.T) {
	r := quietRunner(nil)
	res, err := r.Separate(context.Background(), []byte(master), Options{BaseName: "nyc"})
	if err != nil {
		t.Fatalf("Separate: %v", err)
	}

	if len(res.Layers) != 3 {
		t.Fatalf("layers = %d, want 3", len(res.Layers))
	}
	wantIDs := []string{"building-1", "building-2", "building-3"}
	wantNames := []string{"nyc_layer_1.svg", "nyc_layer_2.svg", "nyc_layer_3.svg"}
	for i, l := range res.Layers {
		if l.Info.BuildingCount != 1 {
			t.Errorf("layer %d count = %d", i, l.Info.BuildingCount)
		}
		if l.Filename != wantNames[i] {
			t.Errorf("layer %d filename = %s", i, l.Filename)
		}
		if !bytes.Contains(l.Document, []byte(`id="`+wantIDs[i]+`"`)) {
			t.Errorf("layer %d missing %s:\n%s", i, wantIDs[i], l.Document)
		}
		if !bytes.HasPrefix(l.Document, []byte(svg.Declaration)) {
			t.Errorf("layer %d lacks declaration", i)
		}
		if bytes.Contains(l.Document, []byte(`d="Z"`)) {
			t.Errorf("layer %d exports indeterminate shape", i)
		}
	}
	if res.Strategy != "tagged" || res.Excluded != 1 {
		t.Errorf("strategy=%s excluded=%d", res.Strategy, res.Excluded)
	}
	if len(res.Buildings) != 3 || res.Buildings[2].Layer != "background" || res.Buildings[2].Shapes != 1 {
		t.Errorf("buildings = %+v", res.Buildings)
	}
	if res.DocHash != cache.Hash([]byte(master)) {
		t.Error("DocHash should hash the input")
	}
}

func TestSeparateCarriesNamespaces(t *testing.T) {
	in := `<svg xmlns="http://www.w3.org/2000/svg" xmlns:inkscape="http://www.inkscape.org/namespaces/inkscape" viewBox="0 0 800 600">
  <g id="building-1" inkscape:label="Tower"><rect x="100" y="300" width="50" height="300"/></g>
</svg>`
	res, err := quietRunner(nil).Separate(context.Background(), []byte(in), Options{})
	if err != nil {
		t.Fatalf("Separate: %v", err)
	}
	for i, l := range res.Layers {
		if !bytes.Contains(l.Document, []byte(`xmlns:inkscape="http://www.inkscape.org/namespaces/inkscape"`)) {
			t.Errorf("layer %d does not declare inkscape:\n%s", i, l.Document)
		}
	}
}

func TestSeparateFailures(t *testing.T) {
	r := quietRunner(nil)
	tests := []struct {
		name string
		in   string
		code errs.Code
	}{
		{"not xml", "<svg", errs.ErrCodeParseFailure},
		{"no shapes", `<svg viewBox="0 0 800 600"><text>skyline</text></svg>`, errs.ErrCodeNoBuildings},
		{"only indeterminate", `<svg viewBox="0 0 800 600"><rect x="1"/><path d="M"/></svg>`, errs.ErrCodeNoBuildings},
		{"flat canvas", `<svg viewBox="0 0 800 0"><rect width="1" height="1"/></svg>`, errs.ErrCodeDegenerateCanvas},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Separate(context.Background(), []byte(tt.in), Options{})
			if !errs.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
			if res != nil {
				t.Error("failed run should produce no result")
			}
		})
	}
}

func TestSeparateReportsIndeterminateShapes(t *testing.T) {
	in := `<svg viewBox="0 0 800 600"><rect x="1"/><path d="M"/></svg>`
	_, err := quietRunner(nil).Separate(context.Background(), []byte(in), Options{})

	var e *errs.Error
	if !errors.As(err, &e) || e.Code != errs.ErrCodeNoBuildings {
		t.Fatalf("err = %v, want NO_BUILDINGS_FOUND", err)
	}
	if errs.GetCode(e.Cause) != errs.ErrCodeIndeterminateShape || !strings.Contains(err.Error(), "2 shapes") {
		t.Errorf("cause = %v, want the indeterminate shape count", e.Cause)
	}

	_, err = quietRunner(nil).Separate(context.Background(), []byte(`<svg viewBox="0 0 800 600"/>`), Options{})
	if !errs.Is(err, errs.ErrCodeNoBuildings) || strings.Contains(err.Error(), "INDETERMINATE_SHAPE") {
		t.Errorf("empty document err = %v", err)
	}
}

func TestSeparateUsesCache(t *testing.T) {
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := quietRunner(c)
	ctx := context.Background()

	first, err := r.Separate(ctx, []byte(master), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHit {
		t.Error("first run should miss")
	}

	second, err := r.Separate(ctx, []byte(master), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheHit {
		t.Error("second run should hit")
	}
	for i := range first.Layers {
		if !bytes.Equal(first.Layers[i].Document, second.Layers[i].Document) {
			t.Errorf("cached layer %d differs", i)
		}
	}

	third, err := r.Separate(ctx, []byte(master), Options{Threshold: 10})
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheHit {
		t.Error("different options should miss")
	}

	refreshed, err := r.Separate(ctx, []byte(master), Options{Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.CacheHit {
		t.Error("refresh should bypass the cache")
	}
}

func TestSpace(t *testing.T) {
	r := quietRunner(nil)
	res, err := r.Space(context.Background(), []byte(master), 50, Options{})
	if err != nil {
		t.Fatalf("Space: %v", err)
	}
	if res.NewWidth != 1200 || res.NewAspect != "2:1" || res.OriginalAspect != "4:3" {
		t.Errorf("summary = %+v", res.SpacingSummary)
	}
	if !bytes.Contains(res.Document, []byte(`viewBox="0 0 1200 600"`)) {
		t.Errorf("document not widened:\n%s", res.Document)
	}

	same, err := r.Space(context.Background(), []byte(master), 0, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(same.Document, []byte(master)) {
		t.Error("zero spacing should return the input bytes")
	}

	if _, err := r.Space(context.Background(), []byte(master), -5, Options{}); !errs.Is(err, errs.ErrCodeInvalidPercent) {
		t.Errorf("negative percent err = %v", err)
	}
}

func TestSpaceAndSeparate(t *testing.T) {
	r := quietRunner(nil)
	res, err := r.SpaceAndSeparate(context.Background(), []byte(master), 100, Options{})
	if err != nil {
		t.Fatalf("SpaceAndSeparate: %v", err)
	}
	if res.Spacing == nil || res.Spacing.NewWidth != 1600 {
		t.Fatalf("spacing = %+v", res.Spacing)
	}
	if res.Canvas.Width != 1600 {
		t.Errorf("canvas = %+v", res.Canvas)
	}
	for _, l := range res.Layers {
		if !strings.Contains(string(l.Document), `viewBox="0 0 1600 600"`) {
			t.Errorf("layer canvas not widened:\n%s", l.Document)
		}
	}
}

func TestSeparateCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := quietRunner(nil).Separate(ctx, []byte(master), Options{}); err == nil {
		t.Error("expected context error")
	}
}

func TestSeparateConcurrent(t *testing.T) {
	r := quietRunner(nil)
	ctx := context.Background()

	const n = 8
	results := make([]*SeparationResult, n)
	errors := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errors[i] = r.Separate(ctx, []byte(master), Options{})
		}()
	}
	wg.Wait()

	for i := range n {
		if errors[i] != nil {
			t.Fatalf("run %d: %v", i, errors[i])
		}
		if len(results[i].Buildings) != 3 {
			t.Errorf("run %d: buildings = %d", i, len(results[i].Buildings))
		}
		if results[i].DocHash != results[0].DocHash {
			t.Errorf("run %d: doc hash differs", i)
		}
	}
}

package skyline_test

import (
	"fmt"

	"github.com/matzehuels/skylayer/pkg/skyline"
	"github.com/matzehuels/skylayer/pkg/svg"
)

func ExampleResolver_Resolve() {
	doc, _ := svg.Parse([]byte(`<svg viewBox="0 0 800 600">
  <g id="building-1"><rect x="100" y="300" width="100" height="300"/></g>
  <g id="building-2"><rect x="400" y="60" width="80" height="540"/></g>
</svg>`))

	res := skyline.NewResolver(skyline.Config{}).Resolve(doc)
	_ = skyline.Normalizer{}.Normalize(res.Buildings, res.Canvas)

	for _, b := range res.Buildings {
		fmt.Printf("%s center=%.0f top=%.0f height=%.1f\n", b.ID, b.CenterX, b.TopY, b.Height)
	}
	// Output:
	// building-1 center=150 top=300 height=5.0
	// building-2 center=440 top=60 height=9.0
}

func ExampleGreedy() {
	doc, _ := svg.Parse([]byte(`<svg viewBox="0 0 800 600">
  <rect x="90" y="400" width="20" height="200"/>
  <rect x="120" y="300" width="20" height="300"/>
  <rect x="500" y="100" width="40" height="500"/>
</svg>`))

	res := skyline.NewResolver(skyline.Config{Threshold: 50}).Resolve(doc)
	for _, b := range res.Buildings {
		fmt.Println(b.ID, len(b.Members))
	}
	// Output:
	// building-cluster-1 2
	// building-cluster-2 1
}

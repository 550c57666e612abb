package spacing

import (
	"bytes"
	"strings"
	"testing"

	errs "github.com/matzehuels/skylayer/pkg/errors"
	"github.com/matzehuels/skylayer/pkg/svg"
)

const skyline = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 800 600">
  <rect x="150" y="300" width="100" height="300"/>
  <g id="building-center"><rect x="350" y="100" width="100" height="500"/></g>
  <g id="building-right" transform="translate(10, 0)"><rect x="590" y="200" width="100" height="400"/></g>
  <path d="Z"/>
  <text x="10" y="10">title</text>
</svg>`

func parse(t *testing.T, s string) *svg.Document {
	t.Helper()
	doc, err := svg.Parse([]byte(s))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

func TestApplyZeroIsIdentity(t *testing.T) {
	in := []byte(skyline + "\n<!-- trailing -->\n")
	doc, err := svg.Parse(in)
	if err != nil {
		t.Fatal(err)
	}
	res, err := Transformer{}.Apply(doc, 0)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !bytes.Equal(res.Serialized, in) {
		t.Errorf("serialized output differs from input:\n%s", res.Serialized)
	}
	if res.Document != doc {
		t.Error("identity should return the input document")
	}
	if res.OriginalAspect != "4:3" || res.NewAspect != res.OriginalAspect {
		t.Errorf("aspects = %q -> %q", res.OriginalAspect, res.NewAspect)
	}
	if res.NewWidth != res.OriginalWidth || res.Shifted != 0 {
		t.Errorf("identity changed geometry: %+v", res)
	}
}

func TestApplyScenario(t *testing.T) {
	doc := parse(t, skyline)
	res, err := Transformer{}.Apply(doc, 50)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if res.OriginalWidth != 800 || res.NewWidth != 1200 {
		t.Errorf("width %v -> %v, want 800 -> 1200", res.OriginalWidth, res.NewWidth)
	}
	if res.OriginalAspect != "4:3" || res.NewAspect != "2:1" {
		t.Errorf("aspect %q -> %q, want 4:3 -> 2:1", res.OriginalAspect, res.NewAspect)
	}
	if res.Shifted != 2 || res.Skipped != 1 {
		t.Errorf("shifted=%d skipped=%d, want 2 and 1", res.Shifted, res.Skipped)
	}

	els := res.Document.Root.Elements()
	if got := els[0].AttrOr("transform", ""); got != "translate(-100.00, 0.00)" {
		t.Errorf("left rect transform = %q", got)
	}
	if _, ok := els[1].Attr("transform"); ok {
		t.Error("element at the canvas center should not move")
	}
	// center 650 after its own translate: (650-400)*0.5 = 125
	if got := els[2].AttrOr("transform", ""); got != "translate(10, 0) translate(125.00, 0.00)" {
		t.Errorf("right group transform = %q", got)
	}
	if _, ok := els[3].Attr("transform"); ok {
		t.Error("indeterminate path should be left untransformed")
	}
	if len(els) != 5 {
		t.Errorf("elements = %d, want 5 (nothing dropped)", len(els))
	}

	if got := res.Document.Root.AttrOr("viewBox", ""); got != "0 0 1200 600" {
		t.Errorf("viewBox = %q", got)
	}
	if !bytes.Contains(res.Serialized, []byte(`viewBox="0 0 1200 600"`)) {
		t.Errorf("serialized output not updated:\n%s", res.Serialized)
	}
	if _, ok := doc.Root.Elements()[0].Attr("transform"); ok {
		t.Error("input document was modified")
	}
}

func TestApplyCenterNeverMoves(t *testing.T) {
	doc := parse(t, `<svg viewBox="-100 0 200 100"><circle cx="0" cy="50" r="10"/></svg>`)
	for _, p := range []float64{1, 25, 100, 333.3} {
		res, err := Transformer{}.Apply(doc, p)
		if err != nil {
			t.Fatal(err)
		}
		if res.Shifted != 0 {
			t.Errorf("p=%v: centered shape was shifted", p)
		}
	}
}

func TestApplyTinyShiftIsSkipped(t *testing.T) {
	doc := parse(t, `<svg viewBox="0 0 800 600"><rect x="350.2" y="0" width="100" height="10"/></svg>`)
	res, err := Transformer{}.Apply(doc, 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.Shifted != 0 {
		t.Errorf("sub-cent shift should be skipped: %s", res.Serialized)
	}
}

func TestApplyErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		p    float64
		code errs.Code
	}{
		{"negative", skyline, -1, errs.ErrCodeInvalidPercent},
		{"zero width", `<svg viewBox="0 0 0 600"/>`, 10, errs.ErrCodeDegenerateCanvas},
		{"negative height", `<svg viewBox="0 0 800 -1"/>`, 10, errs.ErrCodeDegenerateCanvas},
		{"zero height at zero percent", `<svg viewBox="0 0 800 0"/>`, 0, errs.ErrCodeDegenerateCanvas},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Transformer{}.Apply(parse(t, tt.doc), tt.p)
			if !errs.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestAspectRatio(t *testing.T) {
	tests := []struct {
		w, h float64
		want string
	}{
		{800, 600, "4:3"},
		{1200, 600, "2:1"},
		{1000, 600, "5:3"},
		{7, 13, "7:13"},
		{880.5, 600, "880.5:600"},
		{1234.567, 600, "1234.57:600"},
	}
	for _, tt := range tests {
		if got := AspectRatio(tt.w, tt.h); got != tt.want {
			t.Errorf("AspectRatio(%v, %v) = %q, want %q", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestApplyRoundsWidth(t *testing.T) {
	doc := parse(t, `<svg viewBox="0 0 333 100"><rect width="10" height="10"/></svg>`)
	res, err := Transformer{}.Apply(doc, 33.3)
	if err != nil {
		t.Fatal(err)
	}
	if res.NewWidth != 443.89 {
		t.Errorf("NewWidth = %v, want 443.89", res.NewWidth)
	}
	if !strings.Contains(string(res.Serialized), `viewBox="0 0 443.89 100"`) {
		t.Errorf("viewBox not rounded:\n%s", res.Serialized)
	}
}

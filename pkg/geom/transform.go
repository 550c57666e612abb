package geom

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var translateRe = regexp.MustCompile(`translate\s*\(([^)]*)\)`)

// ParseTranslate returns the total offset of every translate(...) function in
// a transform attribute. Other transform functions are ignored. A translate
// with a single argument has a zero y offset.
func ParseTranslate(transform string) (dx, dy float64) {
	for _, m := range translateRe.FindAllStringSubmatch(transform, -1) {
		args := strings.Fields(strings.ReplaceAll(m[1], ",", " "))
		if len(args) >= 1 {
			if v, err := strconv.ParseFloat(args[0], 64); err == nil {
				dx += v
			}
		}
		if len(args) >= 2 {
			if v, err := strconv.ParseFloat(args[1], 64); err == nil {
				dy += v
			}
		}
	}
	return dx, dy
}

// FormatTranslate renders a translate function with two decimal places.
func FormatTranslate(dx, dy float64) string {
	return fmt.Sprintf("translate(%.2f, %.2f)", dx, dy)
}

// AppendTranslate appends a translation to an existing transform list.
// Prior transforms are kept so the new offset composes with them.
func AppendTranslate(existing string, dx, dy float64) string {
	t := FormatTranslate(dx, dy)
	existing = strings.TrimSpace(existing)
	if existing == "" {
		return t
	}
	return existing + " " + t
}

// PrependTranslate places a translation before an existing transform list,
// so it applies outside of it. Used to carry ancestor offsets onto an
// element that is lifted out of its group.
func PrependTranslate(existing string, dx, dy float64) string {
	t := FormatTranslate(dx, dy)
	existing = strings.TrimSpace(existing)
	if existing == "" {
		return t
	}
	return t + " " + existing
}

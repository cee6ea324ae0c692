// Package annotate draws detection boxes and labels onto frames.
package annotate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"accidentwatch/internal/model"
)

const (
	boxThickness = 2
	labelOffset  = 10 // label baseline sits this far above the box
	labelPadding = 3
)

var (
	// BoxColor is used for rectangles and label backgrounds.
	BoxColor = color.RGBA{G: 255, A: 255}
	// TextColor is used for label text.
	TextColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Label formats the caption drawn above a detection.
func Label(d model.Detection) string {
	return fmt.Sprintf("%s %.2f", d.Class, d.Confidence)
}

// Draw returns a copy of frame with a rectangle and label for every detection.
// The input frame is never modified.
func Draw(frame image.Image, detections []model.Detection) *image.RGBA {
	bounds := frame.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, frame, bounds.Min, draw.Src)

	for _, d := range detections {
		drawRect(out, d.Box, BoxColor)
		drawLabel(out, d.Box.Min, Label(d))
	}
	return out
}

// drawRect outlines r with the given color, clipped to the image.
func drawRect(img *image.RGBA, r image.Rectangle, col color.Color) {
	r = r.Canon()
	src := image.NewUniform(col)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+boxThickness),
		image.Rect(r.Min.X, r.Max.Y-boxThickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+boxThickness, r.Max.Y),
		image.Rect(r.Max.X-boxThickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(img, e.Intersect(img.Bounds()), src, image.Point{}, draw.Src)
	}
}

// drawLabel renders text on a filled box whose baseline is labelOffset above anchor.
// The box is shifted to stay inside the image.
func drawLabel(img *image.RGBA, anchor image.Point, text string) {
	face := basicfont.Face7x13
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	descent := metrics.Descent.Ceil()
	width := font.MeasureString(face, text).Ceil()

	baseline := image.Pt(anchor.X, anchor.Y-labelOffset)
	box := image.Rect(
		baseline.X-labelPadding, baseline.Y-ascent-labelPadding,
		baseline.X+width+labelPadding, baseline.Y+descent+labelPadding,
	)

	bounds := img.Bounds()
	shift := image.Point{}
	if box.Min.Y < bounds.Min.Y {
		shift.Y = bounds.Min.Y - box.Min.Y
	}
	if box.Min.X < bounds.Min.X {
		shift.X = bounds.Min.X - box.Min.X
	} else if box.Max.X > bounds.Max.X {
		shift.X = bounds.Max.X - box.Max.X
	}
	box = box.Add(shift)
	baseline = baseline.Add(shift)

	draw.Draw(img, box.Intersect(bounds), image.NewUniform(BoxColor), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(TextColor),
		Face: face,
		Dot:  fixed.P(baseline.X, baseline.Y),
	}
	d.DrawString(text)
}

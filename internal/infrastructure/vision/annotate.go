package vision

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"leaf-doctor/internal/domain/entity"
)

// BoxAnnotator draws detection boxes with a "label (0.87)" caption.
type BoxAnnotator struct {
	Color     color.RGBA
	Thickness int
}

// NewBoxAnnotator returns an annotator drawing 2px red boxes.
func NewBoxAnnotator() *BoxAnnotator {
	return &BoxAnnotator{
		Color:     color.RGBA{R: 255, A: 255},
		Thickness: 2,
	}
}

// Annotate decodes imageData, draws every boxed detection and returns JPEG.
func (a *BoxAnnotator) Annotate(imageData []byte, detections []entity.DetectionResult) ([]byte, error) {
	src, err := Decode(imageData)
	if err != nil {
		return nil, err
	}

	b := src.Bounds()
	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), src, b.Min, draw.Src)

	for _, d := range detections {
		if !d.HasBox() {
			continue
		}
		r := image.Rect(d.Box.X1, d.Box.Y1, d.Box.X2, d.Box.Y2).Intersect(canvas.Bounds())
		if r.Empty() {
			continue
		}
		a.drawRect(canvas, r)
		a.drawCaption(canvas, r, fmt.Sprintf("%s (%.2f)", d.Label, d.Confidence))
	}

	return EncodeJPEG(canvas)
}

func (a *BoxAnnotator) drawRect(dst *image.RGBA, r image.Rectangle) {
	t := a.Thickness
	if t < 1 {
		t = 1
	}
	fill := image.NewUniform(a.Color)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(r), fill, image.Point{}, draw.Src)
	}
}

// drawCaption writes text on a filled strip above the box, or inside it
// when the box touches the top edge.
func (a *BoxAnnotator) drawCaption(dst *image.RGBA, r image.Rectangle, text string) {
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil() + 4
	height := face.Height + 2

	top := r.Min.Y - height
	if top < dst.Bounds().Min.Y {
		top = r.Min.Y
	}
	strip := image.Rect(r.Min.X, top, r.Min.X+width, top+height).Intersect(dst.Bounds())
	draw.Draw(dst, strip, image.NewUniform(a.Color), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.White,
		Face: face,
		Dot:  fixed.P(strip.Min.X+2, strip.Min.Y+face.Ascent+1),
	}
	d.DrawString(text)
}

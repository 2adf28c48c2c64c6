package framefeed

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"os"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/linescope/linescope-go/internal/core/domain"
)

// DefaultJPEGQuality is the encoder quality used when none is
// configured.
const DefaultJPEGQuality = 80

// Composer renders numbered frames over a base image and encodes them
// as JPEG. It is safe for concurrent use; the base image is read-only
// and every Frame call works on its own copy.
type Composer struct {
	base    image.Image
	quality int
}

// NewComposer loads the base image from basePath (JPEG or PNG). A
// missing or undecodable file falls back to a generated placeholder so
// the feed still serves. quality <= 0 selects DefaultJPEGQuality.
func NewComposer(basePath string, quality int) *Composer {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &Composer{base: loadBase(basePath), quality: quality}
}

func loadBase(path string) image.Image {
	f, err := os.Open(path)
	if err != nil {
		return placeholder()
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return placeholder()
	}
	return img
}

// placeholder is a 640x480 vertical gradient used when no base image
// is available.
func placeholder() image.Image {
	const w, h = 640, 480
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		shade := uint8(40 + y*120/h)
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: shade / 2, G: shade, B: shade + 60, A: 255})
		}
	}
	return img
}

// Frame renders the frame numbered n, stamped ts, and returns the
// encoded JPEG bytes.
func (c *Composer) Frame(n int, ts time.Time) ([]byte, error) {
	bounds := c.base.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, c.base, bounds.Min, draw.Src)

	label := fmt.Sprintf("%02d  %s", n, domain.FormatTimestamp(ts))
	overlay(canvas, label)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: c.quality}); err != nil {
		return nil, domain.ErrEncodeFailure.WithCause(err)
	}
	return buf.Bytes(), nil
}

// overlay draws a translucent box in the top-left corner with the
// label rendered at double scale for legibility.
func overlay(canvas *image.RGBA, label string) {
	face := basicfont.Face7x13
	textW := font.MeasureString(face, label).Ceil()
	textH := face.Metrics().Height.Ceil()

	// Render small, then upscale 2x into the box.
	small := image.NewRGBA(image.Rect(0, 0, textW+8, textH+6))
	d := font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(color.RGBA{R: 255, G: 255, B: 255, A: 255}),
		Face: face,
		Dot:  fixed.P(4, face.Metrics().Ascent.Ceil()+3),
	}
	d.DrawString(label)

	scale := 2
	boxW := small.Bounds().Dx() * scale
	boxH := small.Bounds().Dy() * scale
	bounds := canvas.Bounds()
	box := image.Rect(bounds.Min.X+10, bounds.Min.Y+10, bounds.Min.X+10+boxW, bounds.Min.Y+10+boxH)

	shade := image.NewUniform(color.RGBA{A: 140})
	draw.DrawMask(canvas, box, image.NewUniform(color.RGBA{A: 255}), image.Point{}, shade, image.Point{}, draw.Over)
	draw.NearestNeighbor.Scale(canvas, box, small, small.Bounds(), draw.Over, nil)
}

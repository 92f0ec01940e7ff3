package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
)

// ImageType tells which part of an event an Image draws.
type ImageType int

const (
	ImageFill ImageType = iota
	ImageOutline
	ImageShadow
)

func (t ImageType) String() string {
	switch t {
	case ImageFill:
		return "fill"
	case ImageOutline:
		return "outline"
	case ImageShadow:
		return "shadow"
	default:
		return fmt.Sprintf("ImageType(%d)", int(t))
	}
}

// Image is one coverage bitmap placed on the frame and tinted with Color.
// Bitmap bounds start at (0, 0) and may be shared between frames and
// between images of the same event; treat it as read-only.
type Image struct {
	Type   ImageType
	X, Y   int
	Bitmap *image.Alpha
	Color  color.NRGBA
	// Layer and Event identify the source dialogue line.
	Layer int
	Event int
}

// Bounds is the frame rectangle the image covers.
func (img Image) Bounds() image.Rectangle {
	if img.Bitmap == nil {
		return image.Rectangle{}
	}
	return img.Bitmap.Bounds().Add(image.Pt(img.X, img.Y))
}

// NRGBA expands the bitmap into a tinted image, coverage times colour alpha.
func (img Image) NRGBA() *image.NRGBA {
	if img.Bitmap == nil {
		return image.NewNRGBA(image.Rectangle{})
	}

	b := img.Bitmap.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := img.Bitmap.Pix[(y+b.Min.Y-img.Bitmap.Rect.Min.Y)*img.Bitmap.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			cov := uint32(src[x+b.Min.X-img.Bitmap.Rect.Min.X])
			dst[x*4+0] = img.Color.R
			dst[x*4+1] = img.Color.G
			dst[x*4+2] = img.Color.B
			dst[x*4+3] = uint8(cov * uint32(img.Color.A) / 255)
		}
	}
	return out
}

// PNG encodes the tinted image.
func (img Image) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img.NRGBA()); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Change reports how a frame differs from the previous one.
type Change int

const (
	ChangeNone Change = iota
	// same bitmaps, moved
	ChangePosition
	ChangeContent
)

func (c Change) String() string {
	switch c {
	case ChangeNone:
		return "none"
	case ChangePosition:
		return "position"
	case ChangeContent:
		return "content"
	default:
		return fmt.Sprintf("Change(%d)", int(c))
	}
}

func detectChange(prev, cur []Image) Change {
	if len(prev) != len(cur) {
		return ChangeContent
	}

	change := ChangeNone
	for i := range cur {
		a, b := prev[i], cur[i]
		if a.Bitmap != b.Bitmap || a.Color != b.Color || a.Type != b.Type {
			return ChangeContent
		}
		if a.X != b.X || a.Y != b.Y {
			change = ChangePosition
		}
	}
	return change
}

package imaging

import (
	"bytes"
	"image"

	transform "github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
)

// Orientation is the EXIF orientation tag value (1-8)
type Orientation int

const (
	OrientationNormal     Orientation = 1
	OrientationFlipH      Orientation = 2
	OrientationRotate180  Orientation = 3
	OrientationFlipV      Orientation = 4
	OrientationTranspose  Orientation = 5
	OrientationRotate90   Orientation = 6 // clockwise
	OrientationTransverse Orientation = 7
	OrientationRotate270  Orientation = 8 // clockwise
)

// readOrientation returns the EXIF orientation of raw, or OrientationNormal
// when there is no usable tag
func readOrientation(raw []byte) Orientation {
	x, err := exif.Decode(bytes.NewReader(raw))
	if err != nil {
		return OrientationNormal
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return OrientationNormal
	}
	v, err := tag.Int(0)
	if err != nil || v < 1 || v > 8 {
		return OrientationNormal
	}
	return Orientation(v)
}

func (o Orientation) swapsAxes() bool {
	return o >= OrientationTranspose && o <= OrientationRotate270
}

// apply turns a stored image upright. transform rotates counter-clockwise.
func (o Orientation) apply(img image.Image) image.Image {
	switch o {
	case OrientationFlipH:
		return transform.FlipH(img)
	case OrientationRotate180:
		return transform.Rotate180(img)
	case OrientationFlipV:
		return transform.FlipV(img)
	case OrientationTranspose:
		return transform.Transpose(img)
	case OrientationRotate90:
		return transform.Rotate270(img)
	case OrientationTransverse:
		return transform.Transverse(img)
	case OrientationRotate270:
		return transform.Rotate90(img)
	}
	return img
}

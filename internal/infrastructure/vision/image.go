package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"

	xdraw "golang.org/x/image/draw"

	"leaf-doctor/internal/domain/entity"
)

const (
	TypeJPEG = "image/jpeg"
	TypePNG  = "image/png"

	jpegQuality = 90
)

var (
	// ErrUnsupportedImage is returned for anything other than JPEG or PNG.
	ErrUnsupportedImage = errors.New("unsupported image type: only JPEG and PNG are accepted")
	// ErrEmptyCrop is returned when a box does not overlap the image.
	ErrEmptyCrop = errors.New("crop region is empty")
)

// SniffImageType returns the content type of data when it is JPEG or PNG.
func SniffImageType(data []byte) (string, error) {
	switch ct := http.DetectContentType(data); ct {
	case TypeJPEG, TypePNG:
		return ct, nil
	default:
		return "", fmt.Errorf("%w (got %s)", ErrUnsupportedImage, ct)
	}
}

// Decode decodes a JPEG or PNG image.
func Decode(data []byte) (image.Image, error) {
	ct, err := SniffImageType(data)
	if err != nil {
		return nil, err
	}

	var img image.Image
	if ct == TypePNG {
		img, err = png.Decode(bytes.NewReader(data))
	} else {
		img, err = jpeg.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ct, err)
	}
	return img, nil
}

// EncodeJPEG encodes img as JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// Crop copies the part of img covered by box, clamped to the image bounds.
func Crop(img image.Image, box entity.BoundingBox) (image.Image, error) {
	r := image.Rect(box.X1, box.Y1, box.X2, box.Y2).Add(img.Bounds().Min).Intersect(img.Bounds())
	if r.Empty() {
		return nil, ErrEmptyCrop
	}

	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	xdraw.Copy(dst, image.Point{}, img, r, xdraw.Src, nil)
	return dst, nil
}

// CropJPEG decodes imageData, crops box and returns the crop as JPEG.
func CropJPEG(imageData []byte, box entity.BoundingBox) ([]byte, error) {
	img, err := Decode(imageData)
	if err != nil {
		return nil, err
	}
	crop, err := Crop(img, box)
	if err != nil {
		return nil, err
	}
	return EncodeJPEG(crop)
}

// ToJPEG re-encodes a JPEG or PNG upload as JPEG.
func ToJPEG(imageData []byte) ([]byte, error) {
	img, err := Decode(imageData)
	if err != nil {
		return nil, err
	}
	return EncodeJPEG(img)
}

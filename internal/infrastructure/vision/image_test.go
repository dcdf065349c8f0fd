package vision

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"leaf-doctor/internal/domain/entity"
)

var green = color.RGBA{G: 200, A: 255}

func TestSniffImageType(t *testing.T) {
	pngData := solidPNG(t, 4, 4, green)
	ct, err := SniffImageType(pngData)
	require.NoError(t, err)
	require.Equal(t, TypePNG, ct)

	jpegData, err := ToJPEG(pngData)
	require.NoError(t, err)
	ct, err = SniffImageType(jpegData)
	require.NoError(t, err)
	require.Equal(t, TypeJPEG, ct)

	_, err = SniffImageType([]byte("GIF89a...."))
	require.ErrorIs(t, err, ErrUnsupportedImage)

	_, err = SniffImageType([]byte("plain text"))
	require.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestDecode_RejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not an image"))
	require.ErrorIs(t, err, ErrUnsupportedImage)
}

func TestCrop_ClampsToBounds(t *testing.T) {
	img, err := Decode(solidPNG(t, 40, 30, green))
	require.NoError(t, err)

	crop, err := Crop(img, entity.BoundingBox{X1: 30, Y1: -5, X2: 60, Y2: 10})
	require.NoError(t, err)
	require.Equal(t, 10, crop.Bounds().Dx())
	require.Equal(t, 10, crop.Bounds().Dy())

	r, g, _, _ := crop.At(0, 0).RGBA()
	require.Zero(t, r)
	require.Equal(t, uint32(200)<<8|200, g)
}

func TestCrop_OutsideIsEmpty(t *testing.T) {
	img, err := Decode(solidPNG(t, 10, 10, green))
	require.NoError(t, err)

	_, err = Crop(img, entity.BoundingBox{X1: 50, Y1: 50, X2: 60, Y2: 60})
	require.ErrorIs(t, err, ErrEmptyCrop)
}

func TestCropJPEG(t *testing.T) {
	data, err := CropJPEG(solidPNG(t, 20, 20, green), entity.BoundingBox{X1: 2, Y1: 2, X2: 12, Y2: 8})
	require.NoError(t, err)

	img, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, 10, img.Bounds().Dx())
	require.Equal(t, 6, img.Bounds().Dy())
}

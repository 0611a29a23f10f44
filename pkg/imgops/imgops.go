package imgops

import (
	"bytes"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	jpegQuality = 80
	blurSigma   = 3.0
)

// Decode reads an image and reports the encoded format it was detected as
// ("jpeg", "png", ...). Importing the imaging package registers decoders for
// every format it can also re-encode.
func Decode(r io.Reader) (image.Image, string, error) {
	return image.Decode(r)
}

// Fit scales the image down to fit within a size x size box, preserving
// aspect ratio. Images already inside the box are returned unscaled.
func Fit(img image.Image, size int) image.Image {
	return imaging.Fit(img, size, size, imaging.Lanczos)
}

// Blur applies a fixed-sigma gaussian blur over the whole image.
func Blur(img image.Image) image.Image {
	return imaging.Blur(img, blurSigma)
}

// Encode re-encodes the image using the encoder for the detected source
// format, falling back to JPEG when the format has no encoder. Returns the
// encoded bytes and the matching content type.
func Encode(img image.Image, detectedFormat string) ([]byte, string, error) {
	format, contentType := encoderFor(detectedFormat)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), contentType, nil
}

func encoderFor(detectedFormat string) (imaging.Format, string) {
	switch strings.ToLower(detectedFormat) {
	case "jpeg", "jpg":
		return imaging.JPEG, "image/jpeg"
	case "png":
		return imaging.PNG, "image/png"
	case "gif":
		return imaging.GIF, "image/gif"
	case "bmp":
		return imaging.BMP, "image/bmp"
	case "tiff", "tif":
		return imaging.TIFF, "image/tiff"
	default:
		return imaging.JPEG, "image/jpeg"
	}
}
